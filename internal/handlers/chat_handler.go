package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/services/chat"
)

// ChatHandler serves message submission and history
type ChatHandler struct {
	chat   *chat.Service
	logger arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{
		chat:   chatService,
		logger: common.GetLogger(),
	}
}

type messageRequest struct {
	Message string `json:"message" validate:"required"`
}

// MessageHandler handles POST /api/chat/message. The reply is generated
// asynchronously; the response carries the PENDING turn for polling.
func (h *ChatHandler) MessageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	user := UserFrom(r.Context())
	if user == nil {
		WriteErrorStatus(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}

	var req messageRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	turn, err := h.chat.SubmitMessage(r.Context(), user.ID, req.Message)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, turn)
}

// TurnHandler handles GET /api/chat/turn/{id}: polling a single turn until
// it reaches a terminal status
func (h *ChatHandler) TurnHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	user := UserFrom(r.Context())
	if user == nil {
		WriteErrorStatus(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}

	turnID := strings.TrimPrefix(r.URL.Path, "/api/chat/turn/")
	if turnID == "" || strings.Contains(turnID, "/") {
		WriteErrorStatus(w, http.StatusNotFound, "NOT_FOUND", "unknown chat route")
		return
	}

	turn, err := h.chat.GetTurn(r.Context(), user.ID, turnID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, turn)
}

// HistoryHandler handles GET /api/chat/history
func (h *ChatHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	user := UserFrom(r.Context())
	if user == nil {
		WriteErrorStatus(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}

	page, pageSize := GetPaginationParams(r)
	turns, total, err := h.chat.ListHistory(r.Context(), user.ID, page, pageSize)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, NewPaginatedResponse(turns, total, page, pageSize))
}
