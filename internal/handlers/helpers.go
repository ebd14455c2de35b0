package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/pdfchat/internal/models"
)

// validate checks request DTOs against their struct tags
var validate = validator.New()

type contextKey string

// userContextKey carries the authenticated user through the request context
const userContextKey contextKey = "pdfchat.user"

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom returns the authenticated user from the request context, or nil
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// BearerToken extracts the bearer token from the Authorization header.
// Returns an empty string when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteErrorStatus(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// statusForKind is the static mapping from error kinds to HTTP statuses
var statusForKind = map[models.ErrorKind]int{
	models.KindValidation:         http.StatusUnprocessableEntity,
	models.KindNotFound:           http.StatusNotFound,
	models.KindForbidden:          http.StatusForbidden,
	models.KindConflict:           http.StatusConflict,
	models.KindDocumentNotParsed:  http.StatusConflict,
	models.KindNoDocumentSelected: http.StatusBadRequest,
	models.KindUnauthorized:       http.StatusUnauthorized,
}

// WriteError maps a domain error to its HTTP status and writes the standard
// error envelope. Internal and transient faults are masked with a generic
// message so infrastructure detail never reaches the client.
func WriteError(w http.ResponseWriter, err error) error {
	kind := models.KindOf(err)
	status, ok := statusForKind[kind]
	if !ok {
		return WriteErrorStatus(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return WriteErrorStatus(w, status, models.CodeOf(err), err.Error())
}

// WriteErrorStatus writes the standard error envelope with an explicit status
func WriteErrorStatus(w http.ResponseWriter, statusCode int, code, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"code":   code,
		"error":  message,
	})
}

// DecodeAndValidate decodes a JSON request body into dst and validates it.
// Returns false after writing the error response when the body is bad.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteErrorStatus(w, http.StatusUnprocessableEntity, "INVALID_BODY", "request body is not valid JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteErrorStatus(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", err.Error())
		return false
	}
	return true
}

// PaginatedResponse is the envelope for list endpoints
type PaginatedResponse struct {
	TotalItems  int         `json:"total_items"`
	TotalPages  int         `json:"total_pages"`
	CurrentPage int         `json:"current_page"`
	PageSize    int         `json:"page_size"`
	Data        interface{} `json:"data"`
}

// NewPaginatedResponse builds the list envelope. Data must not be nil so the
// JSON field is always an array.
func NewPaginatedResponse(data interface{}, total, page, pageSize int) PaginatedResponse {
	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return PaginatedResponse{
		TotalItems:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
		Data:        data,
	}
}

// GetPaginationParams extracts page and page_size from the query string.
// Pages are 1-indexed; page_size defaults to 10 and is capped at 100.
func GetPaginationParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 10

	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
			if pageSize > 100 {
				pageSize = 100
			}
		}
	}
	return page, pageSize
}
