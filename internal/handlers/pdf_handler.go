package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/services/pdf"
)

// PDFHandler serves document upload, listing, parse requests and chat
// selection. All routes require an authenticated user in the context.
type PDFHandler struct {
	documents *pdf.Service
	logger    arbor.ILogger
}

// NewPDFHandler creates a new PDF handler
func NewPDFHandler(documents *pdf.Service) *PDFHandler {
	return &PDFHandler{
		documents: documents,
		logger:    common.GetLogger(),
	}
}

// CollectionHandler handles /api/pdf: POST uploads, GET lists
func (h *PDFHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		h.uploadHandler(w, r)
	case "GET":
		h.listHandler(w, r)
	default:
		WriteErrorStatus(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

// uploadHandler accepts a multipart upload with the PDF in the "file" field
func (h *PDFHandler) uploadHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		WriteErrorStatus(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.documents.MaxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		WriteErrorStatus(w, http.StatusUnprocessableEntity, "INVALID_UPLOAD", "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteErrorStatus(w, http.StatusUnprocessableEntity, "INVALID_UPLOAD", "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read uploaded file")
		WriteErrorStatus(w, http.StatusUnprocessableEntity, "INVALID_UPLOAD", "failed to read uploaded file")
		return
	}

	doc, err := h.documents.Upload(r.Context(), user.ID, header.Filename, content)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, doc)
}

// listHandler returns one page of the caller's documents, newest first
func (h *PDFHandler) listHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		WriteErrorStatus(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}

	page, pageSize := GetPaginationParams(r)
	docs, total, err := h.documents.ListDocuments(r.Context(), user.ID, page, pageSize)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, NewPaginatedResponse(docs, total, page, pageSize))
}

// ItemHandler handles /api/pdf/{id}/parse and /api/pdf/{id}/select
func (h *PDFHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		WriteErrorStatus(w, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/pdf/")
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || len(parts) > 2 || parts[0] == "" {
		WriteErrorStatus(w, http.StatusNotFound, "NOT_FOUND", "unknown document route")
		return
	}
	documentID := parts[0]

	// GET /api/pdf/{id} polls a single document's parse status
	if len(parts) == 1 {
		if !RequireMethod(w, r, "GET") {
			return
		}
		doc, err := h.documents.GetDocument(r.Context(), user.ID, documentID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, doc)
		return
	}
	action := parts[1]

	switch action {
	case "parse":
		if !RequireMethod(w, r, "POST") {
			return
		}
		doc, err := h.documents.RequestParse(r.Context(), user.ID, documentID)
		if err != nil {
			WriteError(w, err)
			return
		}
		// Parsing continues in the background; the client polls the list
		WriteJSON(w, http.StatusAccepted, doc)

	case "select":
		if !RequireMethod(w, r, "POST") {
			return
		}
		doc, err := h.documents.SelectForChat(r.Context(), user.ID, documentID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, doc)

	default:
		WriteErrorStatus(w, http.StatusNotFound, "NOT_FOUND", "unknown document route")
	}
}
