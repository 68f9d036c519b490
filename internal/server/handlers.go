package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/raohamdcreator-bit/promptvault/internal/auth"
	"github.com/raohamdcreator-bit/promptvault/internal/db"
	"github.com/raohamdcreator-bit/promptvault/internal/enhance"
	"github.com/raohamdcreator-bit/promptvault/internal/guest"
	"github.com/raohamdcreator-bit/promptvault/internal/privacy"
	"github.com/raohamdcreator-bit/promptvault/pkg/models"
)

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	if err := s.store.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleDemoPrompts returns the built-in demo catalog. No account or
// session is required.
func (s *Service) handleDemoPrompts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prompts": guest.DemoCatalog(),
	})
}

// handleGuestMigrate persists a guest export under the authenticated
// user. Partial failures are reported in the result body, not as an
// HTTP error: the client decides whether to clear its local copy.
func (s *Service) handleGuestMigrate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var body struct {
		Export guest.Export `json:"export"`
		TeamID string       `json:"team_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.TeamID != "" {
		if !s.requireMember(w, r, body.TeamID) {
			return
		}
	}

	result := guest.MigrateExport(r.Context(), &body.Export, identity.UserID, body.TeamID,
		func(ctx context.Context, userID string, prompt models.PromptExport, teamID string) error {
			return s.promptStore.SaveMigratedPrompt(ctx, userID, prompt, teamID, body.Export.SessionID)
		})

	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeError(w, http.StatusBadRequest, "team name is required")
		return
	}

	team, err := s.teamStore.CreateTeam(r.Context(), body.Name, identity.UserID)
	if err != nil {
		log.Error().Err(err).Msg("create team")
		writeError(w, http.StatusInternalServerError, "failed to create team")
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Service) handleListTeams(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	teams, err := s.teamStore.ListTeamsForUser(r.Context(), identity.UserID)
	if err != nil {
		log.Error().Err(err).Msg("list teams")
		writeError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

func (s *Service) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if !s.requireMember(w, r, teamID) {
		return
	}

	team, err := s.teamStore.GetTeam(r.Context(), teamID)
	if err != nil {
		if errors.Is(err, db.ErrTeamNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load team")
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Service) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	teamID := chi.URLParam(r, "teamID")

	role, ok := s.requireRole(w, r, teamID)
	if !ok {
		return
	}
	if role != "admin" {
		writeError(w, http.StatusForbidden, "only team admins can invite")
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeError(w, http.StatusBadRequest, "invite email is required")
		return
	}

	invite, err := s.teamStore.CreateInvite(r.Context(), teamID, body.Email, identity.UserID)
	if err != nil {
		log.Error().Err(err).Str("team_id", teamID).Msg("create invite")
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (s *Service) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	token := chi.URLParam(r, "token")

	member, err := s.teamStore.AcceptInvite(r.Context(), token, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrInviteNotFound):
			writeError(w, http.StatusNotFound, "invite not found")
		case errors.Is(err, db.ErrInviteExpired):
			writeError(w, http.StatusGone, "invite expired")
		default:
			writeError(w, http.StatusInternalServerError, "failed to accept invite")
		}
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (s *Service) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	teamID := chi.URLParam(r, "teamID")
	if !s.requireMember(w, r, teamID) {
		return
	}

	var body struct {
		Title      string   `json:"title"`
		Text       string   `json:"text"`
		Tags       []string `json:"tags"`
		Visibility string   `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		writeError(w, http.StatusBadRequest, "prompt text is required")
		return
	}

	prompt, err := s.promptStore.CreatePrompt(r.Context(), teamID, identity.UserID, db.PromptInput{
		Title:      body.Title,
		Text:       body.Text,
		Tags:       body.Tags,
		Visibility: body.Visibility,
	})
	if err != nil {
		log.Error().Err(err).Str("team_id", teamID).Msg("create prompt")
		writeError(w, http.StatusInternalServerError, "failed to create prompt")
		return
	}
	writeJSON(w, http.StatusCreated, promptResponse(prompt))
}

func (s *Service) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if !s.requireMember(w, r, teamID) {
		return
	}

	prompts, err := s.promptStore.ListPromptsByTeam(r.Context(), teamID, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list prompts")
		return
	}

	out := make([]map[string]interface{}, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, promptResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"prompts": out})
}

func (s *Service) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.loadMemberPrompt(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, promptResponse(prompt))
}

func (s *Service) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.loadMemberPrompt(w, r)
	if !ok {
		return
	}

	var body struct {
		Title      string   `json:"title"`
		Text       string   `json:"text"`
		Tags       []string `json:"tags"`
		Visibility string   `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.promptStore.UpdatePrompt(r.Context(), prompt.PromptID, db.PromptInput{
		Title:      body.Title,
		Text:       body.Text,
		Tags:       body.Tags,
		Visibility: body.Visibility,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update prompt")
		return
	}
	writeJSON(w, http.StatusOK, promptResponse(updated))
}

func (s *Service) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.loadMemberPrompt(w, r)
	if !ok {
		return
	}

	if err := s.promptStore.DeletePrompt(r.Context(), prompt.PromptID); err != nil {
		if errors.Is(err, db.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete prompt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEnhance rewrites freeform prompt text. It is open to guests and
// rate-limited per identity; nothing is stored.
func (s *Service) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	typ, err := enhance.ParseType(body.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Scrub credentials and private sections before the text goes to an
	// external model.
	text := privacy.Clean(body.Text)
	enhanced, err := s.enhancer.Enhance(r.Context(), text, typ)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"enhanced_text":    enhanced,
		"enhancement_type": string(typ),
	})
}

// handleEnhancePrompt rewrites a stored team prompt and records the
// enhancement metadata on it.
func (s *Service) handleEnhancePrompt(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.loadMemberPrompt(w, r)
	if !ok {
		return
	}

	var body struct {
		Type  string `json:"type"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	typ, err := enhance.ParseType(body.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	enhanced, err := s.enhancer.Enhance(r.Context(), privacy.Clean(prompt.Text), typ)
	if err != nil {
		log.Error().Err(err).Str("prompt_id", prompt.PromptID).Msg("enhance prompt")
		writeError(w, http.StatusBadGateway, "enhancement failed")
		return
	}

	model := body.Model
	if model == "" {
		model = "default"
	}
	updated, err := s.promptStore.SetEnhancement(r.Context(), prompt.PromptID, enhanced, model, string(typ))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store enhancement")
		return
	}
	writeJSON(w, http.StatusOK, promptResponse(updated))
}

func (s *Service) handlePromptUsage(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.loadMemberPrompt(w, r)
	if !ok {
		return
	}
	if err := s.promptStore.IncrementUsage(r.Context(), prompt.PromptID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record usage")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleRatePrompt(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	prompt, ok := s.loadMemberPrompt(w, r)
	if !ok {
		return
	}

	var body struct {
		Stars int `json:"stars"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Stars < 1 || body.Stars > 5 {
		writeError(w, http.StatusBadRequest, "stars must be between 1 and 5")
		return
	}

	if err := s.promptStore.UpsertRating(r.Context(), prompt.PromptID, identity.UserID, body.Stars); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save rating")
		return
	}

	summary, err := s.promptStore.GetRatingSummary(r.Context(), prompt.PromptID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load rating summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Service) handleRatingSummary(w http.ResponseWriter, r *http.Request) {
	prompt, ok := s.loadMemberPrompt(w, r)
	if !ok {
		return
	}

	summary, err := s.promptStore.GetRatingSummary(r.Context(), prompt.PromptID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load rating summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// requireMember writes an error response and returns false when the
// authenticated user is not a member of teamID.
func (s *Service) requireMember(w http.ResponseWriter, r *http.Request, teamID string) bool {
	_, ok := s.requireRole(w, r, teamID)
	return ok
}

func (s *Service) requireRole(w http.ResponseWriter, r *http.Request, teamID string) (string, bool) {
	identity, _ := auth.FromContext(r.Context())

	member, role, err := s.teamStore.IsMember(r.Context(), teamID, identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return "", false
	}
	if !member {
		writeError(w, http.StatusForbidden, "not a member of this team")
		return "", false
	}
	return role, true
}

// loadMemberPrompt fetches the prompt from the URL and verifies the
// caller belongs to its team.
func (s *Service) loadMemberPrompt(w http.ResponseWriter, r *http.Request) (*db.TeamPrompt, bool) {
	promptID := chi.URLParam(r, "promptID")

	prompt, err := s.promptStore.GetPrompt(r.Context(), promptID)
	if err != nil {
		if errors.Is(err, db.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load prompt")
		return nil, false
	}

	if !s.requireMember(w, r, prompt.TeamID) {
		return nil, false
	}
	return prompt, true
}

// promptResponse flattens the stored row into the wire shape: SQL null
// columns become plain optional fields.
func promptResponse(p *db.TeamPrompt) map[string]interface{} {
	out := map[string]interface{}{
		"prompt_id":   p.PromptID,
		"team_id":     p.TeamID,
		"owner_id":    p.OwnerID,
		"title":       p.Title,
		"text":        p.Text,
		"tags":        []string(p.Tags),
		"visibility":  p.Visibility,
		"outputs":     []models.Output(p.Outputs),
		"usage_count": p.UsageCount,
		"created_at":  p.CreatedAt,
		"updated_at":  p.UpdatedAt,
	}
	if p.MigratedFrom.Valid {
		out["migrated_from"] = p.MigratedFrom.String
	}
	if p.EnhancementType.Valid {
		out["enhancement_type"] = p.EnhancementType.String
		out["enhanced_for"] = p.EnhancedFor.String
		out["enhanced_at_epoch"] = p.EnhancedAtEpoch.Int64
	}
	return out
}
