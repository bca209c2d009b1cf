package api

import (
	"fmt"
	"net/http"

	"github.com/soluna-labs/mirage-api/internal/api/shared"
	"github.com/soluna-labs/mirage-api/internal/service"
)

// PublishHandler handles the publish endpoint that reduces a finished task
// into its DigitalHuman record.
type PublishHandler struct {
	aigcService    service.AIGCService
	publishService service.PublishService
}

// NewPublishHandler creates a new PublishHandler with the given dependencies.
func NewPublishHandler(
	aigcService service.AIGCService,
	publishService service.PublishService,
) (*PublishHandler, error) {
	if aigcService == nil {
		return nil, fmt.Errorf("aigc service cannot be nil")
	}
	if publishService == nil {
		return nil, fmt.Errorf("publish service cannot be nil")
	}
	return &PublishHandler{
		aigcService:    aigcService,
		publishService: publishService,
	}, nil
}

// Publish handles POST /tasks/{taskID}/publish.
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	tenantID, taskID, ok := requireTenantAndTaskID(w, r)
	if !ok {
		return
	}

	// Ownership check before the publish pipeline runs.
	t, err := h.aigcService.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return
	}
	if t.TenantID != tenantID {
		HandleAPIError(w, r, service.ErrTaskNotFound, "")
		return
	}

	var req PublishTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	human, err := h.publishService.Publish(r.Context(), taskID, service.PublishRequest{
		Description:  req.Description,
		Region:       req.Region,
		Voice:        req.Voice,
		ExtraHandles: req.ExtraHandles,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to publish task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, human)
}
