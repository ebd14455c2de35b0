package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
)

// APIHandler serves system endpoints
type APIHandler struct {
	queue  interfaces.QueueManager
	logger arbor.ILogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(queue interfaces.QueueManager) *APIHandler {
	return &APIHandler{
		queue:  queue,
		logger: common.GetLogger(),
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler returns health check status, including queue depth
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	pending, err := h.queue.Pending(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Health check could not read queue depth")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"queue_pending": pending,
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"status": "error",
		"code":   "NOT_FOUND",
		"error":  "The requested endpoint does not exist",
		"path":   r.URL.Path,
	})
}
