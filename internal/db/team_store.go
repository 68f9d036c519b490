package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invite validity window.
const inviteTTL = 7 * 24 * time.Hour

var (
	// ErrTeamNotFound is returned when a team id has no record.
	ErrTeamNotFound = errors.New("team not found")
	// ErrInviteNotFound is returned for unknown or consumed invite
	// tokens.
	ErrInviteNotFound = errors.New("invite not found")
	// ErrInviteExpired is returned when an invite's validity window has
	// passed.
	ErrInviteExpired = errors.New("invite expired")
)

// TeamStore provides team and membership database operations.
type TeamStore struct {
	store *Store
}

// NewTeamStore creates a new team store.
func NewTeamStore(store *Store) *TeamStore {
	return &TeamStore{store: store}
}

// CreateTeam creates a team owned by ownerID, with the owner as its
// first admin member.
func (s *TeamStore) CreateTeam(ctx context.Context, name, ownerID string) (*Team, error) {
	team := &Team{
		TeamID:  uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
	}

	err := s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		member := &TeamMember{
			TeamID: team.TeamID,
			UserID: ownerID,
			Role:   "admin",
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	return team, nil
}

// GetTeam retrieves a team by its public id.
func (s *TeamStore) GetTeam(ctx context.Context, teamID string) (*Team, error) {
	var team Team
	err := s.store.DB.WithContext(ctx).Where("team_id = ?", teamID).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// ListTeamsForUser returns the teams a user belongs to, newest first.
func (s *TeamStore) ListTeamsForUser(ctx context.Context, userID string) ([]*Team, error) {
	var teams []*Team
	err := s.store.DB.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.team_id").
		Where("team_members.user_id = ?", userID).
		Order("teams.created_at_epoch DESC").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// IsMember reports whether userID belongs to teamID and their role.
func (s *TeamStore) IsMember(ctx context.Context, teamID, userID string) (bool, string, error) {
	var member TeamMember
	err := s.store.DB.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, member.Role, nil
}

// CreateInvite issues a pending invitation for email into teamID.
func (s *TeamStore) CreateInvite(ctx context.Context, teamID, email, invitedBy string) (*TeamInvite, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}

	invite := &TeamInvite{
		TeamID:         teamID,
		Email:          email,
		Token:          uuid.NewString(),
		InvitedBy:      invitedBy,
		Status:         "pending",
		ExpiresAtEpoch: time.Now().Add(inviteTTL).UnixMilli(),
	}
	if err := s.store.DB.WithContext(ctx).Create(invite).Error; err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	return invite, nil
}

// AcceptInvite consumes a pending invite token and adds userID to the
// invited team as a member.
func (s *TeamStore) AcceptInvite(ctx context.Context, token, userID string) (*TeamMember, error) {
	var member *TeamMember
	err := s.store.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invite TeamInvite
		err := tx.Where("token = ? AND status = 'pending'", token).First(&invite).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInviteNotFound
		}
		if err != nil {
			return err
		}
		if invite.ExpiresAtEpoch < time.Now().UnixMilli() {
			invite.Status = "expired"
			_ = tx.Save(&invite).Error
			return ErrInviteExpired
		}

		invite.Status = "accepted"
		if err := tx.Save(&invite).Error; err != nil {
			return err
		}

		member = &TeamMember{
			TeamID:    invite.TeamID,
			UserID:    userID,
			Role:      "member",
			InvitedBy: sql.NullString{String: invite.InvitedBy, Valid: true},
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}
