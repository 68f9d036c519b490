package guest

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

// Storage keys. One work record and one session identifier exist per
// storage scope.
const (
	workKey    = "guest_work"
	sessionKey = "guest_session_id"
)

// Retention caps applied by CleanupOldWork. Writes that blow the storage
// quota trim to these and retry once.
const (
	MaxPrompts      = 10
	MaxOutputs      = 20
	MaxChatMessages = 50
)

// ErrPromptNotFound is returned when an operation references a local
// prompt that does not exist.
var ErrPromptNotFound = errors.New("prompt not found in local work")

// localWork is the persisted record of a guest's unsaved state.
type localWork struct {
	Prompts          []models.Prompt      `json:"prompts"`
	Outputs          []models.Output      `json:"outputs"`
	ChatMessages     []models.ChatMessage `json:"chat_messages"`
	EnhancementCount int                  `json:"enhancement_count"`
	LastModified     models.Timestamp     `json:"last_modified"`
	SessionID        string               `json:"session_id"`
}

// WorkSummary is the "what you'll save" payload shown to a guest before
// signup.
type WorkSummary struct {
	PromptCount      int              `json:"prompt_count"`
	OutputCount      int              `json:"output_count"`
	ChatCount        int              `json:"chat_count"`
	EnhancementCount int              `json:"enhancement_count"`
	LastModified     models.Timestamp `json:"last_modified"`
	SessionID        string           `json:"session_id"`
}

// Export is the full backend-shaped dump of a guest's local work,
// produced by ExportForMigration.
type Export struct {
	Prompts      []models.PromptExport `json:"prompts"`
	ChatMessages []models.ChatMessage  `json:"chat_messages"`
	SessionID    string                `json:"session_id"`
	LastModified models.Timestamp      `json:"last_modified"`
}

// PromptDraft holds the caller-supplied fields of a new local prompt.
// Unset fields default to empty.
type PromptDraft struct {
	Title      string
	Text       string
	Tags       []string
	Visibility string
}

// PromptUpdate holds a partial update for an existing local prompt.
// Nil pointer fields are left unchanged.
type PromptUpdate struct {
	Title           *string
	Text            *string
	Tags            []string
	Visibility      *string
	EnhancedFor     *string
	EnhancementType *string
}

// Store is the Local Work Store: durable (storage-scoped) persistence of
// a guest's unsaved prompts, outputs and chat messages. It is an explicit
// handle constructed once and passed to consumers; there is no package
// singleton. Operations are read-modify-write against the storage with
// no internal locking, matching the single-caller scope it serves.
type Store struct {
	storage Storage
	now     func() time.Time
}

// NewStore creates a Store over the given storage scope.
func NewStore(storage Storage) *Store {
	return &Store{storage: storage, now: time.Now}
}

// SessionID returns the per-scope session identifier, generating and
// persisting it on first use. It stays stable until ClearGuestWork.
func (s *Store) SessionID() (string, error) {
	id, ok, err := s.storage.Get(sessionKey)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.storage.Set(sessionKey, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	return id, nil
}

// AddPrompt appends a new guest-owned prompt and persists. Unspecified
// draft fields default to empty.
func (s *Store) AddPrompt(draft PromptDraft) (models.Prompt, error) {
	work, err := s.load()
	if err != nil {
		return models.Prompt{}, err
	}

	now, _ := models.NewTimestamp(s.now())
	prompt := models.Prompt{
		ID:         s.newID("prompt"),
		Title:      draft.Title,
		Text:       draft.Text,
		Tags:       append([]string(nil), draft.Tags...),
		Visibility: draft.Visibility,
		Owner:      models.OwnerGuest,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	work.Prompts = append(work.Prompts, prompt)
	if err := s.persist(work); err != nil {
		return models.Prompt{}, err
	}
	return prompt, nil
}

// UpdatePrompt merges updates into the prompt with the given id and
// persists. A missing id yields ErrPromptNotFound as a returned result;
// the stored collection is left unchanged. When isEnhancement is true
// the running enhancement counter is incremented.
func (s *Store) UpdatePrompt(id string, updates PromptUpdate, isEnhancement bool) error {
	work, err := s.load()
	if err != nil {
		return err
	}

	idx := -1
	for i := range work.Prompts {
		if work.Prompts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("update prompt %q: %w", id, ErrPromptNotFound)
	}

	p := &work.Prompts[idx]
	if updates.Title != nil {
		p.Title = *updates.Title
	}
	if updates.Text != nil {
		p.Text = *updates.Text
	}
	if updates.Tags != nil {
		p.Tags = append([]string(nil), updates.Tags...)
	}
	if updates.Visibility != nil {
		p.Visibility = *updates.Visibility
	}
	if updates.EnhancedFor != nil {
		p.EnhancedFor = *updates.EnhancedFor
	}
	if updates.EnhancementType != nil {
		p.EnhancementType = *updates.EnhancementType
	}
	now, _ := models.NewTimestamp(s.now())
	p.UpdatedAt = now
	if isEnhancement {
		enhancedAt := now
		p.EnhancedAt = &enhancedAt
		work.EnhancementCount++
	}

	return s.persist(work)
}

// DeletePrompt removes the prompt with the given id. Deleting a missing
// prompt is a no-op, not an error. Outputs referencing the prompt are
// kept; they carry loose references by design.
func (s *Store) DeletePrompt(id string) error {
	work, err := s.load()
	if err != nil {
		return err
	}

	kept := work.Prompts[:0]
	for _, p := range work.Prompts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	work.Prompts = kept
	return s.persist(work)
}

// AddOutput appends an output for promptID. The prompt's existence is
// not checked: outputs may outlive their prompt.
func (s *Store) AddOutput(promptID, content, model string) (models.Output, error) {
	work, err := s.load()
	if err != nil {
		return models.Output{}, err
	}

	now, _ := models.NewTimestamp(s.now())
	out := models.Output{
		ID:        s.newID("output"),
		PromptID:  promptID,
		Content:   content,
		Model:     model,
		CreatedAt: now,
	}
	work.Outputs = append(work.Outputs, out)
	if err := s.persist(work); err != nil {
		return models.Output{}, err
	}
	return out, nil
}

// AddChatMessage appends a chat message.
func (s *Store) AddChatMessage(role, content string) (models.ChatMessage, error) {
	work, err := s.load()
	if err != nil {
		return models.ChatMessage{}, err
	}

	now, _ := models.NewTimestamp(s.now())
	msg := models.ChatMessage{
		ID:        s.newID("chat"),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
	work.ChatMessages = append(work.ChatMessages, msg)
	if err := s.persist(work); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// GetPrompts returns all local prompts in insertion order.
func (s *Store) GetPrompts() ([]models.Prompt, error) {
	work, err := s.load()
	if err != nil {
		return nil, err
	}
	return work.Prompts, nil
}

// GetOutputs returns all outputs, or only those for promptID when it is
// non-empty.
func (s *Store) GetOutputs(promptID string) ([]models.Output, error) {
	work, err := s.load()
	if err != nil {
		return nil, err
	}
	if promptID == "" {
		return work.Outputs, nil
	}
	var filtered []models.Output
	for _, o := range work.Outputs {
		if o.PromptID == promptID {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// GetChatMessages returns all chat messages in insertion order.
func (s *Store) GetChatMessages() ([]models.ChatMessage, error) {
	work, err := s.load()
	if err != nil {
		return nil, err
	}
	return work.ChatMessages, nil
}

// HasUnsavedWork reports whether any local collection is non-empty.
func (s *Store) HasUnsavedWork() (bool, error) {
	work, err := s.load()
	if err != nil {
		return false, err
	}
	return len(work.Prompts) > 0 || len(work.Outputs) > 0 || len(work.ChatMessages) > 0, nil
}

// WorkSummary returns counts and metadata for the signup upsell.
func (s *Store) WorkSummary() (WorkSummary, error) {
	work, err := s.load()
	if err != nil {
		return WorkSummary{}, err
	}
	return WorkSummary{
		PromptCount:      len(work.Prompts),
		OutputCount:      len(work.Outputs),
		ChatCount:        len(work.ChatMessages),
		EnhancementCount: work.EnhancementCount,
		LastModified:     work.LastModified,
		SessionID:        work.SessionID,
	}, nil
}

// ExportForMigration produces the backend-shaped payload of the entire
// local state: each prompt normalized with defaults and its outputs
// embedded. It is a pure read; storage is not mutated.
func (s *Store) ExportForMigration() (*Export, error) {
	work, err := s.load()
	if err != nil {
		return nil, err
	}

	export := &Export{
		Prompts:      make([]models.PromptExport, 0, len(work.Prompts)),
		ChatMessages: work.ChatMessages,
		SessionID:    work.SessionID,
		LastModified: work.LastModified,
	}
	for _, p := range work.Prompts {
		export.Prompts = append(export.Prompts, exportPrompt(p, work.Outputs))
	}
	return export, nil
}

// ClearGuestWork erases the persisted record and the session identifier.
// Called only after a verified successful migration.
func (s *Store) ClearGuestWork() error {
	if err := s.storage.Delete(workKey); err != nil {
		return fmt.Errorf("clear guest work: %w", err)
	}
	if err := s.storage.Delete(sessionKey); err != nil {
		return fmt.Errorf("clear guest session: %w", err)
	}
	return nil
}

// CleanupOldWork truncates each collection to its retention cap, keeping
// the most recent entries, and persists the trimmed record.
func (s *Store) CleanupOldWork() error {
	work, err := s.load()
	if err != nil {
		return err
	}
	trimWork(work)
	return s.persist(work)
}

// exportPrompt normalizes one local prompt into the backend shape,
// embedding its outputs.
func exportPrompt(p models.Prompt, outputs []models.Output) models.PromptExport {
	exp := models.PromptExport{
		Title:      p.Title,
		Text:       p.Text,
		Tags:       p.Tags,
		Visibility: p.Visibility,
		CreatedAt:  p.CreatedAt,
	}
	if exp.Title == "" {
		exp.Title = "Untitled Prompt"
	}
	if exp.Tags == nil {
		exp.Tags = []string{}
	}
	if exp.Visibility == "" {
		exp.Visibility = models.VisibilityPrivate
	}
	exp.Outputs = []models.Output{}
	for _, o := range outputs {
		if o.PromptID == p.ID {
			exp.Outputs = append(exp.Outputs, o)
		}
	}
	return exp
}

// trimWork applies the retention caps in place.
func trimWork(work *localWork) {
	if n := len(work.Prompts); n > MaxPrompts {
		work.Prompts = work.Prompts[n-MaxPrompts:]
	}
	if n := len(work.Outputs); n > MaxOutputs {
		work.Outputs = work.Outputs[n-MaxOutputs:]
	}
	if n := len(work.ChatMessages); n > MaxChatMessages {
		work.ChatMessages = work.ChatMessages[n-MaxChatMessages:]
	}
}

// newID derives a session-unique identifier from the current time plus
// randomness.
func (s *Store) newID(kind string) string {
	return fmt.Sprintf("%s-%d-%04x", kind, s.now().UnixMilli(), rand.Intn(0x10000))
}

// load reads and decodes the work record, returning an empty record when
// none exists yet.
func (s *Store) load() (*localWork, error) {
	raw, ok, err := s.storage.Get(workKey)
	if err != nil {
		return nil, fmt.Errorf("read guest work: %w", err)
	}

	sessionID, err := s.SessionID()
	if err != nil {
		return nil, err
	}

	if !ok || raw == "" {
		return &localWork{SessionID: sessionID}, nil
	}

	var work localWork
	if err := json.Unmarshal([]byte(raw), &work); err != nil {
		// A corrupt record is unrecoverable; start fresh rather than
		// wedge every subsequent operation.
		log.Warn().Err(err).Msg("Corrupt guest work record, starting fresh")
		return &localWork{SessionID: sessionID}, nil
	}
	if work.SessionID == "" {
		work.SessionID = sessionID
	}
	return &work, nil
}

// persist encodes and writes the record. On quota exhaustion it trims to
// the retention caps and retries the write exactly once.
func (s *Store) persist(work *localWork) error {
	now, _ := models.NewTimestamp(s.now())
	work.LastModified = now

	write := func() error {
		data, err := json.Marshal(work)
		if err != nil {
			return fmt.Errorf("encode guest work: %w", err)
		}
		return s.storage.Set(workKey, string(data))
	}

	err := write()
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		log.Error().Err(err).Msg("Failed to persist guest work")
		return fmt.Errorf("persist guest work: %w", err)
	}

	log.Warn().Msg("Storage quota exceeded, trimming old guest work and retrying")
	trimWork(work)
	if err := write(); err != nil {
		log.Error().Err(err).Msg("Failed to persist guest work after cleanup")
		return fmt.Errorf("persist guest work after cleanup: %w", err)
	}
	return nil
}
