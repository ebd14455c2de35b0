package chat

import (
	"context"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// maxMessageLength bounds a single user message
const maxMessageLength = 4000

// Service implements chat submission and history. Replies are produced
// asynchronously by the LLM worker; submission only records the turn and
// queues the job.
type Service struct {
	storage interfaces.StorageManager
	queue   interfaces.QueueManager
	logger  arbor.ILogger
}

// NewService creates a new chat service
func NewService(storage interfaces.StorageManager, queue interfaces.QueueManager, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		queue:   queue,
		logger:  logger,
	}
}

// SubmitMessage records a PENDING turn against the owner's selected document
// and enqueues the LLM job in the same transaction. The turn snapshots the
// document id and filename that applied at submit time.
func (s *Service) SubmitMessage(ctx context.Context, ownerID, message string) (*models.ChatTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewDomainError(models.KindValidation, "MESSAGE_REQUIRED", "message is required")
	}
	if len(message) > maxMessageLength {
		return nil, models.NewDomainError(models.KindValidation, "MESSAGE_TOO_LONG",
			"message exceeds %d characters", maxMessageLength)
	}

	sel, err := s.storage.DocumentStorage().GetSelection(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return nil, models.NewDomainError(models.KindNoDocumentSelected, "NO_DOCUMENT_SELECTED",
			"select a parsed document before chatting")
	}

	// The selection row can outlive its document; treat that as the document
	// being gone rather than as a server fault.
	doc, err := s.storage.DocumentStorage().GetOwnedDocument(ctx, ownerID, sel.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.ParseStatus != models.ParseStatusSuccess {
		return nil, models.NewDomainError(models.KindDocumentNotParsed, "DOCUMENT_NOT_PARSED",
			"selected document %s is %s", doc.ID, doc.ParseStatus)
	}

	turn := &models.ChatTurn{
		ID:               common.NewTurnID(),
		OwnerID:          ownerID,
		DocumentID:       doc.ID,
		DocumentFilename: doc.Filename,
		Message:          message,
		Status:           models.LLMStatusPending,
		CreatedAt:        nowUTC(),
	}

	msg, err := models.NewLLMMessage(common.NewJobID(), turn.ID, doc.ID, ownerID)
	if err != nil {
		return nil, err
	}

	err = s.storage.ChatStorage().CreateTurn(ctx, turn, func(txn *badgerdb.Txn) error {
		return s.queue.EnqueueTx(txn, msg)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("turn_id", turn.ID).
		Str("document_id", doc.ID).
		Str("job_id", msg.JobID).
		Msg("Chat message submitted")

	return turn, nil
}

// GetTurn fetches a turn owned by ownerID
func (s *Service) GetTurn(ctx context.Context, ownerID, id string) (*models.ChatTurn, error) {
	turn, err := s.storage.ChatStorage().GetTurn(ctx, id)
	if err != nil {
		return nil, err
	}
	if turn.OwnerID != ownerID {
		return nil, models.NewDomainError(models.KindNotFound, "TURN_NOT_FOUND", "chat turn %s not found", id)
	}
	return turn, nil
}

// ListHistory returns one page of the owner's turns, newest first, together
// with the total turn count
func (s *Service) ListHistory(ctx context.Context, ownerID string, page, pageSize int) ([]*models.ChatTurn, int, error) {
	skip := (page - 1) * pageSize
	return s.storage.ChatStorage().ListHistory(ctx, ownerID, skip, pageSize)
}
