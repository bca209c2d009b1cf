package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/api/shared"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/service"
)

// AIGCHandler handles the generation task API requests.
type AIGCHandler struct {
	aigcService service.AIGCService
}

// NewAIGCHandler creates a new AIGCHandler with the given dependencies.
func NewAIGCHandler(aigcService service.AIGCService) (*AIGCHandler, error) {
	if aigcService == nil {
		return nil, fmt.Errorf("aigc service cannot be nil")
	}
	return &AIGCHandler{aigcService: aigcService}, nil
}

// CreateTask handles POST /tasks. The authenticated tenant gets at most one
// active task; a second create conflicts.
func (h *AIGCHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := getTenantIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	t, err := h.aigcService.CreateTask(r.Context(), tenantID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, t)
}

// GetActiveTask handles GET /tasks/active.
func (h *AIGCHandler) GetActiveTask(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := getTenantIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	t, err := h.aigcService.GetActiveTask(r.Context(), tenantID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// GetTask handles GET /tasks/{taskID}.
func (h *AIGCHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	_, t, ok := h.authorizeTask(w, r)
	if !ok {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// SetBasicInfo handles PATCH /tasks/{taskID}/basic-info.
func (h *AIGCHandler) SetBasicInfo(w http.ResponseWriter, r *http.Request) {
	taskID, _, ok := h.authorizeTask(w, r)
	if !ok {
		return
	}

	var req BasicInfoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.aigcService.SetBasicInfo(r.Context(), taskID, service.BasicInfo{
		Gender:        req.Gender,
		Lang:          req.Lang,
		VoiceCloneURL: req.VoiceCloneURL,
		Slogan:        req.Slogan,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// RequestCover handles POST /tasks/{taskID}/cover.
func (h *AIGCHandler) RequestCover(w http.ResponseWriter, r *http.Request) {
	taskID, _, ok := h.authorizeTask(w, r)
	if !ok {
		return
	}

	var req CoverStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.aigcService.RequestCover(r.Context(), taskID, domain.CoverRequest{
		ProfileURL: req.ProfileURL,
		ImageURL:   req.ImageURL,
		StyleID:    req.StyleID,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start cover generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, t)
}

// RequestVideo handles POST /tasks/{taskID}/videos.
func (h *AIGCHandler) RequestVideo(w http.ResponseWriter, r *http.Request) {
	taskID, _, ok := h.authorizeTask(w, r)
	if !ok {
		return
	}

	var req VideoStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.aigcService.RequestVideo(r.Context(), taskID, domain.VideoRequest{
		Key: domain.VideoKey(req.Key),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start video generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, t)
}

// RequestLyrics handles POST /tasks/{taskID}/lyrics.
func (h *AIGCHandler) RequestLyrics(w http.ResponseWriter, r *http.Request) {
	taskID, _, ok := h.authorizeTask(w, r)
	if !ok {
		return
	}

	var req LyricsStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.aigcService.RequestLyrics(r.Context(), taskID, domain.LyricsRequest{
		Lang: req.Lang,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start lyrics generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, t)
}

// RequestMusic handles POST /tasks/{taskID}/music.
func (h *AIGCHandler) RequestMusic(w http.ResponseWriter, r *http.Request) {
	taskID, _, ok := h.authorizeTask(w, r)
	if !ok {
		return
	}

	var req MusicStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.aigcService.RequestMusic(r.Context(), taskID, domain.MusicRequest{
		Lyrics:            req.Lyrics,
		Style:             req.Style,
		Voice:             req.Voice,
		Model:             req.Model,
		ResponseFormat:    req.ResponseFormat,
		Speed:             req.Speed,
		ReferenceAudioURL: req.ReferenceAudioURL,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start music generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, t)
}

// RequestAudio handles POST /tasks/{taskID}/audios.
func (h *AIGCHandler) RequestAudio(w http.ResponseWriter, r *http.Request) {
	taskID, _, ok := h.authorizeTask(w, r)
	if !ok {
		return
	}

	var req AudioStageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.aigcService.RequestAudio(r.Context(), taskID, domain.AudioRequest{
		PostURLs: req.PostURLs,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start audio generation")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, t)
}

// authorizeTask loads the task from the path parameter and verifies the
// authenticated tenant owns it. A foreign task reads as not found so the
// endpoint does not leak task existence across tenants.
func (h *AIGCHandler) authorizeTask(
	w http.ResponseWriter,
	r *http.Request,
) (uuid.UUID, *domain.AIGCTask, bool) {
	tenantID, taskID, ok := requireTenantAndTaskID(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}

	t, err := h.aigcService.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return uuid.Nil, nil, false
	}
	if t.TenantID != tenantID {
		HandleAPIError(w, r, service.ErrTaskNotFound, "")
		return uuid.Nil, nil, false
	}

	return taskID, t, true
}

// decodeAndValidate decodes the JSON body into req and validates it. On
// failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return false
	}
	return true
}
