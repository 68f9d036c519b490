package guest

import (
	"strings"

	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

// DemoIDPrefix is the naming convention for demo catalog identifiers.
// It exists so demo ids never collide with generated ones; classification
// does not depend on it (see IsDemoPrompt).
const DemoIDPrefix = "demo-"

// demoCatalog is the static, read-only demo content shown to every
// visitor. Entries are never mutated; "editing" one goes through
// DuplicateDemoToUserPrompt.
var demoCatalog = []models.Prompt{
	{
		ID:         DemoIDPrefix + "code-review",
		Title:      "Code Review Assistant",
		Text:       "Review the following code for correctness, readability and performance. List concrete issues with line references, then suggest fixes:\n\n{{code}}",
		Tags:       []string{"engineering", "review"},
		Visibility: models.VisibilityPublic,
		Owner:      models.OwnerSystem,
		ReadOnly:   true,
		Order:      1,
		UsageCount: 1240,
	},
	{
		ID:         DemoIDPrefix + "meeting-summary",
		Title:      "Meeting Summary",
		Text:       "Summarize this meeting transcript into decisions, action items with owners, and open questions:\n\n{{transcript}}",
		Tags:       []string{"productivity"},
		Visibility: models.VisibilityPublic,
		Owner:      models.OwnerSystem,
		ReadOnly:   true,
		Order:      2,
		UsageCount: 980,
	},
	{
		ID:         DemoIDPrefix + "sql-helper",
		Title:      "SQL Query Helper",
		Text:       "Given this schema, write an efficient SQL query that answers the question. Explain the join strategy:\n\nSchema: {{schema}}\nQuestion: {{question}}",
		Tags:       []string{"data", "sql"},
		Visibility: models.VisibilityPublic,
		Owner:      models.OwnerSystem,
		ReadOnly:   true,
		Order:      3,
		UsageCount: 715,
	},
}

// DemoCatalog returns a copy of the demo prompt catalog in display order.
func DemoCatalog() []models.Prompt {
	out := make([]models.Prompt, len(demoCatalog))
	copy(out, demoCatalog)
	return out
}

// IsDemoPrompt reports whether p is demo content. The canonical rule is
// the strict one: system ownership AND the read-only flag. The id prefix
// alone is deliberately not enough, so a user prompt that happens to be
// named "demo-..." can never be reclassified as read-only.
func IsDemoPrompt(p *models.Prompt) bool {
	if p == nil {
		return false
	}
	return p.Owner == models.OwnerSystem && p.ReadOnly
}

// DuplicateDemoToUserPrompt produces a fresh, editable draft from a demo
// prompt, owned by owner (models.OwnerGuest for visitors). It returns nil
// when the input is not a demo prompt — including the output of a prior
// duplication. The source entry is untouched.
//
// The draft has no identifier: the receiving store assigns one on save.
func DuplicateDemoToUserPrompt(demo *models.Prompt, owner string) *models.Prompt {
	if !IsDemoPrompt(demo) {
		return nil
	}
	now := models.TimestampNow()
	return &models.Prompt{
		Title:      demo.Title + " (Copy)",
		Text:       demo.Text,
		Tags:       append([]string(nil), demo.Tags...),
		Visibility: models.VisibilityPrivate,
		Owner:      owner,
		ReadOnly:   false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Badge is a display hint for a prompt card.
type Badge string

const (
	BadgeDemo     Badge = "demo"
	BadgeUnsaved  Badge = "unsaved"
	BadgeEnhanced Badge = "enhanced"
	BadgeNone     Badge = ""
)

// PromptBadge picks the badge for a prompt. Precedence:
// demo > unsaved > enhanced > none.
func PromptBadge(p *models.Prompt, isGuest bool) Badge {
	switch {
	case IsDemoPrompt(p):
		return BadgeDemo
	case isGuest && p != nil && p.Owner == models.OwnerGuest:
		return BadgeUnsaved
	case p != nil && p.Enhanced():
		return BadgeEnhanced
	default:
		return BadgeNone
	}
}

// HasDemoID reports whether an identifier follows the demo naming
// convention. Display-only helper; not part of classification.
func HasDemoID(id string) bool {
	return strings.HasPrefix(id, DemoIDPrefix)
}
