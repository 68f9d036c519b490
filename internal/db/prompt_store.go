package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

// ErrPromptNotFound is returned when a prompt id has no backend record.
var ErrPromptNotFound = errors.New("prompt not found")

// PromptStore provides team-prompt database operations.
type PromptStore struct {
	store *Store
}

// NewPromptStore creates a new prompt store.
func NewPromptStore(store *Store) *PromptStore {
	return &PromptStore{store: store}
}

// PromptInput holds the caller-supplied fields of a new team prompt.
type PromptInput struct {
	Title      string
	Text       string
	Tags       []string
	Visibility string
}

// CreatePrompt stores a new prompt for ownerID in teamID and returns it.
func (s *PromptStore) CreatePrompt(ctx context.Context, teamID, ownerID string, in PromptInput) (*TeamPrompt, error) {
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	prompt := &TeamPrompt{
		PromptID:   uuid.NewString(),
		TeamID:     teamID,
		OwnerID:    ownerID,
		Title:      in.Title,
		Text:       in.Text,
		Tags:       JSONStringArray(in.Tags),
		Visibility: visibility,
	}
	if err := s.store.DB.WithContext(ctx).Create(prompt).Error; err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}
	return prompt, nil
}

// SaveMigratedPrompt persists one guest-exported prompt for userID in
// teamID. It is the production persistence function handed to the guest
// migration routine; the guest session id is kept as provenance.
func (s *PromptStore) SaveMigratedPrompt(ctx context.Context, userID string, export models.PromptExport, teamID, sessionID string) error {
	prompt := &TeamPrompt{
		PromptID:     uuid.NewString(),
		TeamID:       teamID,
		OwnerID:      userID,
		Title:        export.Title,
		Text:         export.Text,
		Tags:         JSONStringArray(export.Tags),
		Visibility:   export.Visibility,
		Outputs:      JSONOutputs(export.Outputs),
		MigratedFrom: sql.NullString{String: sessionID, Valid: sessionID != ""},
	}
	if !export.CreatedAt.IsZero() {
		prompt.CreatedAtEpoch = export.CreatedAt.UnixMilli()
		prompt.CreatedAt = export.CreatedAt.Time().Format(time.RFC3339)
	}
	if err := s.store.DB.WithContext(ctx).Create(prompt).Error; err != nil {
		return fmt.Errorf("save migrated prompt: %w", err)
	}
	return nil
}

// GetPrompt retrieves a prompt by its public id.
func (s *PromptStore) GetPrompt(ctx context.Context, promptID string) (*TeamPrompt, error) {
	var prompt TeamPrompt
	err := s.store.DB.WithContext(ctx).Where("prompt_id = ?", promptID).First(&prompt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &prompt, nil
}

// ListPromptsByTeam returns a team's prompts, most recent first.
func (s *PromptStore) ListPromptsByTeam(ctx context.Context, teamID string, limit int) ([]*TeamPrompt, error) {
	q := s.store.DB.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at_epoch DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var prompts []*TeamPrompt
	if err := q.Find(&prompts).Error; err != nil {
		return nil, err
	}
	return prompts, nil
}

// UpdatePrompt applies non-zero input fields to an existing prompt.
func (s *PromptStore) UpdatePrompt(ctx context.Context, promptID string, in PromptInput) (*TeamPrompt, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	if in.Title != "" {
		prompt.Title = in.Title
	}
	if in.Text != "" {
		prompt.Text = in.Text
	}
	if in.Tags != nil {
		prompt.Tags = JSONStringArray(in.Tags)
	}
	if in.Visibility != "" {
		prompt.Visibility = in.Visibility
	}
	now := time.Now()
	prompt.UpdatedAt = now.Format(time.RFC3339)
	prompt.UpdatedAtEpoch = now.UnixMilli()

	if err := s.store.DB.WithContext(ctx).Save(prompt).Error; err != nil {
		return nil, fmt.Errorf("update prompt: %w", err)
	}
	return prompt, nil
}

// SetEnhancement stores enhancement metadata and the enhanced text.
func (s *PromptStore) SetEnhancement(ctx context.Context, promptID, enhancedText, enhancedFor, enhancementType string) (*TeamPrompt, error) {
	prompt, err := s.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	prompt.Text = enhancedText
	prompt.EnhancedFor = sql.NullString{String: enhancedFor, Valid: enhancedFor != ""}
	prompt.EnhancementType = sql.NullString{String: enhancementType, Valid: enhancementType != ""}
	prompt.EnhancedAtEpoch = sql.NullInt64{Int64: now.UnixMilli(), Valid: true}
	prompt.UpdatedAt = now.Format(time.RFC3339)
	prompt.UpdatedAtEpoch = now.UnixMilli()

	if err := s.store.DB.WithContext(ctx).Save(prompt).Error; err != nil {
		return nil, fmt.Errorf("set enhancement: %w", err)
	}
	return prompt, nil
}

// DeletePrompt removes a prompt and its ratings.
func (s *PromptStore) DeletePrompt(ctx context.Context, promptID string) error {
	return s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prompt_id = ?", promptID).Delete(&PromptRating{}).Error; err != nil {
			return err
		}
		result := tx.Where("prompt_id = ?", promptID).Delete(&TeamPrompt{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPromptNotFound
		}
		return nil
	})
}

// UpsertRating records or replaces one user's rating of a prompt.
func (s *PromptStore) UpsertRating(ctx context.Context, promptID, userID string, stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("stars must be between 1 and 5, got %d", stars)
	}
	if _, err := s.GetPrompt(ctx, promptID); err != nil {
		return err
	}

	now := time.Now()
	rating := &PromptRating{
		PromptID:       promptID,
		UserID:         userID,
		Stars:          stars,
		UpdatedAtEpoch: now.UnixMilli(),
	}
	return s.store.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prompt_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stars", "updated_at_epoch"}),
		}).
		Create(rating).Error
}

// RatingSummary is the aggregate rating of one prompt.
type RatingSummary struct {
	PromptID string  `json:"prompt_id"`
	Average  float64 `json:"average"`
	Count    int64   `json:"count"`
}

// GetRatingSummary returns the average stars and vote count for a
// prompt. A prompt with no ratings yields a zero summary, not an error.
func (s *PromptStore) GetRatingSummary(ctx context.Context, promptID string) (*RatingSummary, error) {
	summary := &RatingSummary{PromptID: promptID}
	row := s.store.DB.WithContext(ctx).
		Model(&PromptRating{}).
		Select("COALESCE(AVG(stars), 0), COUNT(*)").
		Where("prompt_id = ?", promptID).
		Row()
	if err := row.Scan(&summary.Average, &summary.Count); err != nil {
		return nil, err
	}
	return summary, nil
}

// IncrementUsage bumps a prompt's usage counter.
func (s *PromptStore) IncrementUsage(ctx context.Context, promptID string) error {
	return s.store.DB.WithContext(ctx).
		Model(&TeamPrompt{}).
		Where("prompt_id = ?", promptID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}
