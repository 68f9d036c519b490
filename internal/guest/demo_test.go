package guest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

func TestIsDemoPrompt_Catalog(t *testing.T) {
	for _, demo := range DemoCatalog() {
		assert.True(t, IsDemoPrompt(&demo), "catalog entry %s must classify as demo", demo.ID)
	}
}

func TestIsDemoPrompt_StrictRule(t *testing.T) {
	tests := []struct {
		name   string
		prompt *models.Prompt
		want   bool
	}{
		{
			name:   "system owned and read-only",
			prompt: &models.Prompt{ID: "demo-x", Owner: models.OwnerSystem, ReadOnly: true},
			want:   true,
		},
		{
			name: "demo-prefixed id alone is not demo",
			// A user prompt that happens to carry a demo-ish id must
			// never be reclassified as read-only.
			prompt: &models.Prompt{ID: "demo-mine", Owner: models.OwnerUser},
			want:   false,
		},
		{
			name:   "system owner without read-only flag",
			prompt: &models.Prompt{ID: "demo-y", Owner: models.OwnerSystem},
			want:   false,
		},
		{
			name:   "guest prompt",
			prompt: &models.Prompt{ID: "prompt-1", Owner: models.OwnerGuest},
			want:   false,
		},
		{
			name:   "nil prompt",
			prompt: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDemoPrompt(tt.prompt))
		})
	}
}

func TestDuplicateDemoToUserPrompt(t *testing.T) {
	demo := DemoCatalog()[0]

	copy := DuplicateDemoToUserPrompt(&demo, models.OwnerGuest)
	require.NotNil(t, copy)

	assert.Empty(t, copy.ID, "duplicate is an identifier-free draft")
	assert.Equal(t, demo.Title+" (Copy)", copy.Title)
	assert.Equal(t, demo.Text, copy.Text)
	assert.Equal(t, models.OwnerGuest, copy.Owner)
	assert.False(t, copy.ReadOnly)
	assert.Zero(t, copy.Order)
	assert.Zero(t, copy.UsageCount)
	assert.False(t, copy.CreatedAt.IsZero())

	// The duplicate is not demo content.
	assert.False(t, IsDemoPrompt(copy))

	// Source entry untouched.
	assert.True(t, demo.ReadOnly)
	assert.Equal(t, models.OwnerSystem, demo.Owner)
}

func TestDuplicateDemoToUserPrompt_RejectsNonDemo(t *testing.T) {
	demo := DemoCatalog()[0]

	first := DuplicateDemoToUserPrompt(&demo, models.OwnerUser)
	require.NotNil(t, first)

	// Duplicating a duplicate is invalid input and yields the defined
	// failure result, not a crash.
	assert.Nil(t, DuplicateDemoToUserPrompt(first, models.OwnerUser))
	assert.Nil(t, DuplicateDemoToUserPrompt(nil, models.OwnerUser))
}

func TestPromptBadge_Precedence(t *testing.T) {
	enhancedAt := models.TimestampNow()

	demo := &models.Prompt{Owner: models.OwnerSystem, ReadOnly: true}
	guestEnhanced := &models.Prompt{Owner: models.OwnerGuest, EnhancedAt: &enhancedAt}
	userEnhanced := &models.Prompt{Owner: models.OwnerUser, EnhancementType: "clarity"}
	plain := &models.Prompt{Owner: models.OwnerUser}

	// demo > unsaved > enhanced > none
	assert.Equal(t, BadgeDemo, PromptBadge(demo, true))
	assert.Equal(t, BadgeDemo, PromptBadge(demo, false))
	assert.Equal(t, BadgeUnsaved, PromptBadge(guestEnhanced, true))
	assert.Equal(t, BadgeEnhanced, PromptBadge(guestEnhanced, false))
	assert.Equal(t, BadgeEnhanced, PromptBadge(userEnhanced, false))
	assert.Equal(t, BadgeNone, PromptBadge(plain, false))
}

func TestHasDemoID(t *testing.T) {
	assert.True(t, HasDemoID("demo-code-review"))
	assert.False(t, HasDemoID("prompt-123"))
}
