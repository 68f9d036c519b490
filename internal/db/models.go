// Package db provides GORM-based database operations for promptvault.
package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

// JSONStringArray stores a string slice as a JSON text column.
type JSONStringArray []string

func (a JSONStringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	return string(data), err
}

func (a *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(a))
	case []byte:
		return json.Unmarshal(v, (*[]string)(a))
	default:
		return fmt.Errorf("unsupported type %T for JSONStringArray", value)
	}
}

// JSONOutputs stores embedded prompt outputs as a JSON text column.
type JSONOutputs []models.Output

func (o JSONOutputs) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]models.Output(o))
	return string(data), err
}

func (o *JSONOutputs) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	switch v := value.(type) {
	case string:
		return json.Unmarshal([]byte(v), (*[]models.Output)(o))
	case []byte:
		return json.Unmarshal(v, (*[]models.Output)(o))
	default:
		return fmt.Errorf("unsupported type %T for JSONOutputs", value)
	}
}

// Team is a group of users sharing prompts.
type Team struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	TeamID         string `gorm:"uniqueIndex;not null" json:"team_id"`
	Name           string `gorm:"not null" json:"name"`
	OwnerID        string `gorm:"index;not null" json:"owner_id"`
	CreatedAt      string `gorm:"not null" json:"created_at"`
	CreatedAtEpoch int64  `gorm:"index:idx_teams_created,sort:desc;not null" json:"-"`
}

func (Team) TableName() string { return "teams" }

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&t.CreatedAt, &t.CreatedAtEpoch)
	return nil
}

// TeamMember links a user to a team with a role.
type TeamMember struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"-"`
	TeamID        string         `gorm:"index;uniqueIndex:idx_members_team_user,priority:1;not null" json:"team_id"`
	UserID        string         `gorm:"index;uniqueIndex:idx_members_team_user,priority:2;not null" json:"user_id"`
	Role          string         `gorm:"type:text;check:role IN ('admin', 'member');default:'member';not null" json:"role"`
	InvitedBy     sql.NullString `json:"-"`
	JoinedAt      string         `gorm:"not null" json:"joined_at"`
	JoinedAtEpoch int64          `gorm:"not null" json:"-"`
}

func (TeamMember) TableName() string { return "team_members" }

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&m.JoinedAt, &m.JoinedAtEpoch)
	return nil
}

// TeamInvite is a pending invitation into a team.
type TeamInvite struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	TeamID         string `gorm:"index;not null" json:"team_id"`
	Email          string `gorm:"index;not null" json:"email"`
	Token          string `gorm:"uniqueIndex;not null" json:"token"`
	InvitedBy      string `gorm:"not null" json:"invited_by"`
	Status         string `gorm:"type:text;check:status IN ('pending', 'accepted', 'expired');default:'pending';index" json:"status"`
	CreatedAt      string `gorm:"not null" json:"created_at"`
	CreatedAtEpoch int64  `gorm:"not null" json:"-"`
	ExpiresAtEpoch int64  `gorm:"not null" json:"expires_at_epoch"`
}

func (TeamInvite) TableName() string { return "team_invites" }

func (i *TeamInvite) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&i.CreatedAt, &i.CreatedAtEpoch)
	return nil
}

// TeamPrompt is a backend-persisted prompt owned by a team member.
type TeamPrompt struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	PromptID   string          `gorm:"uniqueIndex;not null"`
	TeamID     string          `gorm:"index;index:idx_prompts_team_created,priority:1;not null"`
	OwnerID    string          `gorm:"index;not null"`
	Title      string          `gorm:"not null"`
	Text       string          `gorm:"type:text;not null"`
	Tags       JSONStringArray `gorm:"type:text"`
	Visibility string          `gorm:"type:text;check:visibility IN ('private', 'team', 'public');default:'private'"`
	Outputs    JSONOutputs     `gorm:"type:text"`

	// Migration provenance: the guest session the prompt came from.
	MigratedFrom sql.NullString `gorm:"index"`

	// Enhancement metadata.
	EnhancedFor     sql.NullString
	EnhancementType sql.NullString
	EnhancedAtEpoch sql.NullInt64

	UsageCount     int    `gorm:"default:0"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"index:idx_prompts_team_created,priority:2,sort:desc;not null"`
	UpdatedAt      string `gorm:"not null"`
	UpdatedAtEpoch int64  `gorm:"not null"`
}

func (TeamPrompt) TableName() string { return "team_prompts" }

func (p *TeamPrompt) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&p.CreatedAt, &p.CreatedAtEpoch)
	if p.UpdatedAtEpoch == 0 {
		p.UpdatedAt = p.CreatedAt
		p.UpdatedAtEpoch = p.CreatedAtEpoch
	}
	return nil
}

// PromptRating is one user's star rating of a team prompt. One row per
// (prompt, user); re-rating updates in place.
type PromptRating struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	PromptID       string `gorm:"index;uniqueIndex:idx_ratings_prompt_user,priority:1;not null"`
	UserID         string `gorm:"uniqueIndex:idx_ratings_prompt_user,priority:2;not null"`
	Stars          int    `gorm:"check:stars BETWEEN 1 AND 5;not null"`
	CreatedAt      string `gorm:"not null"`
	CreatedAtEpoch int64  `gorm:"not null"`
	UpdatedAtEpoch int64  `gorm:"not null"`
}

func (PromptRating) TableName() string { return "prompt_ratings" }

func (r *PromptRating) BeforeCreate(tx *gorm.DB) error {
	stampCreate(&r.CreatedAt, &r.CreatedAtEpoch)
	if r.UpdatedAtEpoch == 0 {
		r.UpdatedAtEpoch = r.CreatedAtEpoch
	}
	return nil
}

// stampCreate fills RFC3339 and epoch-millisecond creation timestamps
// when unset.
func stampCreate(at *string, epoch *int64) {
	if *epoch == 0 {
		now := time.Now()
		*epoch = now.UnixMilli()
		*at = now.Format(time.RFC3339)
	}
}
