package guest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

// PersistFunc is the backend persistence boundary: store one exported
// prompt for userID in teamID. It must return an error on failure.
type PersistFunc func(ctx context.Context, userID string, prompt models.PromptExport, teamID string) error

// MigrationResult reports one migration attempt. It is transient and
// never persisted.
type MigrationResult struct {
	Success       bool             `json:"success"`
	MigratedCount int              `json:"migrated_count"`
	Errors        []string         `json:"errors,omitempty"`
	SessionID     string           `json:"session_id"`
	LastModified  models.Timestamp `json:"last_modified"`
	MigratedAt    models.Timestamp `json:"migrated_at"`
}

// MigrateExport transfers an already-exported work payload into the
// backend. Prompts are persisted one at a time: sequential on purpose,
// to bound write load on the backend and keep the per-item error list
// deterministic. A failed item is recorded and the remaining items still
// run. With zero prompts it succeeds immediately with no backend calls.
func MigrateExport(ctx context.Context, export *Export, userID, teamID string, persist PersistFunc) *MigrationResult {
	result := &MigrationResult{
		SessionID:    export.SessionID,
		LastModified: export.LastModified,
		MigratedAt:   models.TimestampNow(),
	}

	if len(export.Prompts) == 0 {
		result.Success = true
		return result
	}

	for i, prompt := range export.Prompts {
		if err := persist(ctx, userID, prompt, teamID); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("prompt %d (%s): %v", i+1, prompt.Title, err))
			continue
		}
		result.MigratedCount++
	}

	result.Success = len(result.Errors) == 0
	return result
}

// Migrate runs the one-shot migration of all local work into the backend
// for a newly authenticated identity. Local work is cleared if and only
// if at least one prompt migrated and no item failed; otherwise the
// store is left intact so a retry is possible.
func (s *Store) Migrate(ctx context.Context, userID, teamID string, persist PersistFunc) (*MigrationResult, error) {
	export, err := s.ExportForMigration()
	if err != nil {
		return nil, fmt.Errorf("export local work: %w", err)
	}

	result := MigrateExport(ctx, export, userID, teamID, persist)

	log.Info().
		Str("userId", userID).
		Str("teamId", teamID).
		Int("migrated", result.MigratedCount).
		Int("failed", len(result.Errors)).
		Msg("Guest work migration finished")

	if result.Success && result.MigratedCount > 0 {
		if err := s.ClearGuestWork(); err != nil {
			// Migration itself succeeded; report the cleanup failure
			// without undoing anything.
			log.Error().Err(err).Msg("Failed to clear guest work after migration")
			return result, fmt.Errorf("clear guest work: %w", err)
		}
	}
	return result, nil
}
