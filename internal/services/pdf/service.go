package pdf

import (
	"bytes"
	"context"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// pdfMagic is the file signature every PDF starts with
var pdfMagic = []byte("%PDF-")

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Service implements the document lifecycle: upload, parse request,
// listing and chat selection. Parse work itself happens in the worker.
type Service struct {
	storage  interfaces.StorageManager
	queue    interfaces.QueueManager
	maxBytes int64
	logger   arbor.ILogger
}

// NewService creates a new document service
func NewService(storage interfaces.StorageManager, queue interfaces.QueueManager, maxSizeMB int, logger arbor.ILogger) *Service {
	if maxSizeMB <= 0 {
		maxSizeMB = 25
	}
	return &Service{
		storage:  storage,
		queue:    queue,
		maxBytes: int64(maxSizeMB) << 20,
		logger:   logger,
	}
}

// MaxUploadBytes returns the configured upload size limit
func (s *Service) MaxUploadBytes() int64 {
	return s.maxBytes
}

// Upload stores the PDF bytes and creates an UNPARSED document record
func (s *Service) Upload(ctx context.Context, ownerID, filename string, content []byte) (*models.Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, models.NewDomainError(models.KindValidation, "FILENAME_REQUIRED", "filename is required")
	}
	if len(content) == 0 {
		return nil, models.NewDomainError(models.KindValidation, "EMPTY_FILE", "uploaded file is empty")
	}
	if int64(len(content)) > s.maxBytes {
		return nil, models.NewDomainError(models.KindValidation, "FILE_TOO_LARGE",
			"file exceeds the %d MB upload limit", s.maxBytes>>20)
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		return nil, models.NewDomainError(models.KindValidation, "NOT_A_PDF", "file does not look like a PDF")
	}

	doc := &models.Document{
		ID:          common.NewDocumentID(),
		OwnerID:     ownerID,
		Filename:    filename,
		UploadedAt:  nowUTC(),
		ParseStatus: models.ParseStatusUnparsed,
		UpdatedAt:   nowUTC(),
	}

	rawKey, err := s.storage.FileStorage().PutRaw(ctx, doc.ID, content)
	if err != nil {
		return nil, err
	}
	doc.RawKey = rawKey

	if err := s.storage.DocumentStorage().SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document_id", doc.ID).
		Str("owner_id", ownerID).
		Str("filename", filename).
		Int("size", len(content)).
		Msg("Document uploaded")

	return doc, nil
}

// RequestParse moves the document to PARSING and enqueues the parse job in
// the same transaction. A document that already left UNPARSED yields a
// Conflict, so parse work runs at most once per document.
func (s *Service) RequestParse(ctx context.Context, ownerID, id string) (*models.Document, error) {
	msg, err := models.NewParseMessage(common.NewJobID(), id, ownerID)
	if err != nil {
		return nil, err
	}

	doc, err := s.storage.DocumentStorage().BeginParse(ctx, ownerID, id, func(txn *badgerdb.Txn) error {
		return s.queue.EnqueueTx(txn, msg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document_id", id).
		Str("job_id", msg.JobID).
		Msg("Parse requested")

	return doc, nil
}

// GetDocument fetches a document owned by ownerID
func (s *Service) GetDocument(ctx context.Context, ownerID, id string) (*models.Document, error) {
	return s.storage.DocumentStorage().GetOwnedDocument(ctx, ownerID, id)
}

// ListDocuments returns one page of the owner's documents, newest first,
// together with the total document count
func (s *Service) ListDocuments(ctx context.Context, ownerID string, page, pageSize int) ([]*models.Document, int, error) {
	skip := (page - 1) * pageSize
	return s.storage.DocumentStorage().ListDocuments(ctx, ownerID, skip, pageSize)
}

// SelectForChat marks a successfully parsed document as the owner's chat
// context, replacing any previous selection
func (s *Service) SelectForChat(ctx context.Context, ownerID, id string) (*models.Document, error) {
	doc, err := s.storage.DocumentStorage().SelectForChat(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("document_id", id).
		Str("owner_id", ownerID).
		Msg("Document selected for chat")

	return doc, nil
}
