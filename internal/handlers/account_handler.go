package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/services/account"
)

// AccountHandler serves registration and login
type AccountHandler struct {
	accounts *account.Service
	logger   arbor.ILogger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *account.Service) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		logger:   common.GetLogger(),
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterHandler handles POST /api/account/register
func (h *AccountHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req registerRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, user)
}

// LoginHandler handles POST /api/account/login
func (h *AccountHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req loginRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	session, user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

// LogoutHandler handles POST /api/account/logout
func (h *AccountHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	token := BearerToken(r)
	if token == "" {
		WriteErrorStatus(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}

	if err := h.accounts.Logout(r.Context(), token); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
