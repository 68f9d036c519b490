// Package db provides GORM-based database operations for promptvault.
package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: teams and membership.
		{
			ID: "001_teams",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Team{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&TeamMember{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("teams", "team_members")
			},
		},

		// Migration 002: team prompts.
		{
			ID: "002_team_prompts",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&TeamPrompt{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("team_prompts")
			},
		},

		// Migration 003: ratings.
		{
			ID: "003_prompt_ratings",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&PromptRating{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("prompt_ratings")
			},
		},

		// Migration 004: invites.
		{
			ID: "004_team_invites",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&TeamInvite{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("team_invites")
			},
		},
	})

	return m.Migrate()
}
