package guest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

// StoreSuite is a test suite for Local Work Store operations.
type StoreSuite struct {
	suite.Suite
	storage *MemoryStorage
	store   *Store
}

func (s *StoreSuite) SetupTest() {
	s.storage = NewMemoryStorage(0)
	s.store = NewStore(s.storage)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func strPtr(v string) *string { return &v }

// TestAddPromptInsertionOrder verifies prompts come back in insertion
// order with unique identifiers.
func (s *StoreSuite) TestAddPromptInsertionOrder() {
	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		_, err := s.store.AddPrompt(PromptDraft{Title: title})
		s.Require().NoError(err)
	}

	prompts, err := s.store.GetPrompts()
	s.Require().NoError(err)
	s.Require().Len(prompts, 3)

	seen := make(map[string]bool)
	for i, p := range prompts {
		s.Equal(titles[i], p.Title)
		s.Equal(models.OwnerGuest, p.Owner)
		s.NotEmpty(p.ID)
		s.False(seen[p.ID], "identifier %q reused", p.ID)
		seen[p.ID] = true
	}
}

func (s *StoreSuite) TestAddPromptDefaults() {
	p, err := s.store.AddPrompt(PromptDraft{})
	s.Require().NoError(err)

	s.Empty(p.Title)
	s.Empty(p.Text)
	s.Empty(p.Visibility)
	s.False(p.CreatedAt.IsZero())
}

func (s *StoreSuite) TestUpdatePrompt() {
	p, err := s.store.AddPrompt(PromptDraft{Title: "before"})
	s.Require().NoError(err)

	err = s.store.UpdatePrompt(p.ID, PromptUpdate{Title: strPtr("after"), Text: strPtr("body")}, false)
	s.Require().NoError(err)

	prompts, err := s.store.GetPrompts()
	s.Require().NoError(err)
	s.Require().Len(prompts, 1)
	s.Equal("after", prompts[0].Title)
	s.Equal("body", prompts[0].Text)
}

// TestUpdatePromptNotFound verifies a missing id is reported as a result
// and leaves the stored collection unchanged.
func (s *StoreSuite) TestUpdatePromptNotFound() {
	_, err := s.store.AddPrompt(PromptDraft{Title: "only"})
	s.Require().NoError(err)

	err = s.store.UpdatePrompt("no-such-id", PromptUpdate{Title: strPtr("x")}, false)
	s.Require().ErrorIs(err, ErrPromptNotFound)

	prompts, err := s.store.GetPrompts()
	s.Require().NoError(err)
	s.Require().Len(prompts, 1)
	s.Equal("only", prompts[0].Title)
}

func (s *StoreSuite) TestUpdatePromptEnhancementCounter() {
	p, err := s.store.AddPrompt(PromptDraft{Title: "enhance me"})
	s.Require().NoError(err)

	err = s.store.UpdatePrompt(p.ID, PromptUpdate{
		Text:            strPtr("improved"),
		EnhancementType: strPtr("clarity"),
	}, true)
	s.Require().NoError(err)

	summary, err := s.store.WorkSummary()
	s.Require().NoError(err)
	s.Equal(1, summary.EnhancementCount)

	prompts, _ := s.store.GetPrompts()
	s.True(prompts[0].Enhanced())
	s.NotNil(prompts[0].EnhancedAt)
}

func (s *StoreSuite) TestDeletePrompt() {
	p, err := s.store.AddPrompt(PromptDraft{Title: "doomed"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeletePrompt(p.ID))
	// Deleting again is a no-op, not an error.
	s.Require().NoError(s.store.DeletePrompt(p.ID))

	prompts, err := s.store.GetPrompts()
	s.Require().NoError(err)
	s.Empty(prompts)
}

// TestOutputsSurviveDeletedPrompt: outputs keep loose references, so an
// output whose prompt was deleted is retained.
func (s *StoreSuite) TestOutputsSurviveDeletedPrompt() {
	p, err := s.store.AddPrompt(PromptDraft{Title: "transient"})
	s.Require().NoError(err)

	_, err = s.store.AddOutput(p.ID, "result text", "gpt-4o")
	s.Require().NoError(err)
	s.Require().NoError(s.store.DeletePrompt(p.ID))

	outputs, err := s.store.GetOutputs("")
	s.Require().NoError(err)
	s.Len(outputs, 1)
}

func (s *StoreSuite) TestGetOutputsFilter() {
	p1, _ := s.store.AddPrompt(PromptDraft{Title: "one"})
	p2, _ := s.store.AddPrompt(PromptDraft{Title: "two"})

	_, err := s.store.AddOutput(p1.ID, "a", "")
	s.Require().NoError(err)
	_, err = s.store.AddOutput(p2.ID, "b", "")
	s.Require().NoError(err)
	_, err = s.store.AddOutput(p1.ID, "c", "")
	s.Require().NoError(err)

	outputs, err := s.store.GetOutputs(p1.ID)
	s.Require().NoError(err)
	s.Len(outputs, 2)

	all, err := s.store.GetOutputs("")
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *StoreSuite) TestHasUnsavedWork() {
	has, err := s.store.HasUnsavedWork()
	s.Require().NoError(err)
	s.False(has)

	_, err = s.store.AddChatMessage("user", "hello")
	s.Require().NoError(err)

	has, err = s.store.HasUnsavedWork()
	s.Require().NoError(err)
	s.True(has)
}

// TestWorkSummaryScenario mirrors the guest flow: 2 prompts, 1 output,
// one enhancement update.
func (s *StoreSuite) TestWorkSummaryScenario() {
	p1, err := s.store.AddPrompt(PromptDraft{Title: "first"})
	s.Require().NoError(err)
	_, err = s.store.AddPrompt(PromptDraft{Title: "second"})
	s.Require().NoError(err)
	_, err = s.store.AddOutput(p1.ID, "output", "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdatePrompt(p1.ID, PromptUpdate{Text: strPtr("better")}, true))

	summary, err := s.store.WorkSummary()
	s.Require().NoError(err)
	s.Equal(2, summary.PromptCount)
	s.Equal(1, summary.OutputCount)
	s.Equal(0, summary.ChatCount)
	s.Equal(1, summary.EnhancementCount)
	s.NotEmpty(summary.SessionID)
}

func (s *StoreSuite) TestSessionIDStable() {
	id1, err := s.store.SessionID()
	s.Require().NoError(err)
	s.NotEmpty(id1)

	// A second store over the same storage scope sees the same id.
	other := NewStore(s.storage)
	id2, err := other.SessionID()
	s.Require().NoError(err)
	s.Equal(id1, id2)

	s.Require().NoError(s.store.ClearGuestWork())
	id3, err := s.store.SessionID()
	s.Require().NoError(err)
	s.NotEqual(id1, id3)
}

func (s *StoreSuite) TestCleanupOldWork() {
	for i := 0; i < MaxPrompts+5; i++ {
		_, err := s.store.AddPrompt(PromptDraft{Title: "p"})
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.CleanupOldWork())

	prompts, err := s.store.GetPrompts()
	s.Require().NoError(err)
	s.Len(prompts, MaxPrompts)
}

// TestQuotaRetry: a write that exceeds the quota trims retained work and
// retries once.
func (s *StoreSuite) TestQuotaRetry() {
	// Generous enough for the trimmed record, too small for 30 prompts.
	storage := NewMemoryStorage(16 * 1024)
	store := NewStore(storage)

	for i := 0; i < 30; i++ {
		_, err := store.AddPrompt(PromptDraft{
			Title: "padded",
			Text:  strings.Repeat("x", 512),
		})
		s.Require().NoError(err)
	}

	prompts, err := store.GetPrompts()
	s.Require().NoError(err)
	s.GreaterOrEqual(len(prompts), MaxPrompts)
	s.Less(len(prompts), 30)
}

func (s *StoreSuite) TestExportForMigration() {
	p1, _ := s.store.AddPrompt(PromptDraft{Title: "has output", Tags: []string{"x"}})
	_, _ = s.store.AddPrompt(PromptDraft{})
	_, err := s.store.AddOutput(p1.ID, "captured", "gpt-4o")
	s.Require().NoError(err)

	export, err := s.store.ExportForMigration()
	s.Require().NoError(err)
	s.Require().Len(export.Prompts, 2)

	s.Equal("has output", export.Prompts[0].Title)
	s.Len(export.Prompts[0].Outputs, 1)

	// Defaults applied to the empty draft.
	s.Equal("Untitled Prompt", export.Prompts[1].Title)
	s.Equal(models.VisibilityPrivate, export.Prompts[1].Visibility)
	s.NotNil(export.Prompts[1].Tags)
	s.Empty(export.Prompts[1].Outputs)

	// Pure read: nothing was cleared.
	has, err := s.store.HasUnsavedWork()
	s.Require().NoError(err)
	s.True(has)
}

func (s *StoreSuite) TestFileStorageRoundTrip() {
	dir := s.T().TempDir()
	storage, err := NewFileStorage(dir, 0)
	s.Require().NoError(err)

	store := NewStore(storage)
	_, err = store.AddPrompt(PromptDraft{Title: "durable"})
	s.Require().NoError(err)

	// A fresh store over the same directory sees the work.
	reopened := NewStore(storage)
	prompts, err := reopened.GetPrompts()
	s.Require().NoError(err)
	s.Require().Len(prompts, 1)
	s.Equal("durable", prompts[0].Title)
}

func (s *StoreSuite) TestTimestampsAdvance() {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	current := base
	s.store.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}

	p, err := s.store.AddPrompt(PromptDraft{Title: "t"})
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpdatePrompt(p.ID, PromptUpdate{Title: strPtr("t2")}, false))

	prompts, _ := s.store.GetPrompts()
	s.True(prompts[0].CreatedAt.Before(prompts[0].UpdatedAt))
}
