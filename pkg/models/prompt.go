// Package models contains domain models for promptvault.
package models

// Ownership markers distinguish who a prompt belongs to.
const (
	OwnerGuest  = "guest"  // unsaved work by an unauthenticated visitor
	OwnerSystem = "system" // read-only demo content shipped with the app
	OwnerUser   = "user"   // authenticated, backend-persisted content
)

// Prompt visibility levels.
const (
	VisibilityPrivate = "private"
	VisibilityTeam    = "team"
	VisibilityPublic  = "public"
)

// Prompt is a text prompt as seen by the guest and demo layers. Backend
// persistence uses its own record type; this is the wire/local shape.
type Prompt struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
	Visibility string   `json:"visibility"`
	Owner      string   `json:"owner"`
	ReadOnly   bool     `json:"read_only,omitempty"`

	// Catalog-only fields: demo ordering and display statistics.
	Order      int `json:"order,omitempty"`
	UsageCount int `json:"usage_count,omitempty"`

	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`

	// Enhancement metadata, set when the AI enhancement flow ran on
	// this prompt.
	EnhancedFor     string     `json:"enhanced_for,omitempty"`
	EnhancementType string     `json:"enhancement_type,omitempty"`
	EnhancedAt      *Timestamp `json:"enhanced_at,omitempty"`
}

// Enhanced reports whether the prompt carries enhancement metadata.
func (p *Prompt) Enhanced() bool {
	return p.EnhancementType != "" || p.EnhancedAt != nil
}

// Output is a captured result of running a prompt. Outputs keep a loose
// reference to their prompt: the prompt may have been deleted since.
type Output struct {
	ID        string    `json:"id"`
	PromptID  string    `json:"prompt_id"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// ChatMessage is a single turn of the guest's scratch conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
}

// PromptExport is the backend-shaped payload for one prompt crossing the
// persistence boundary during guest migration.
type PromptExport struct {
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	Tags       []string  `json:"tags"`
	Visibility string    `json:"visibility"`
	Outputs    []Output  `json:"outputs"`
	CreatedAt  Timestamp `json:"created_at"`
}
