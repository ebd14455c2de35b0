package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// ChatStorage implements chat turn persistence on BadgerDB
type ChatStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChatStorage creates a new chat storage service
func NewChatStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChatStorage {
	return &ChatStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ChatStorage) updateWithRetry(fn func(txn *badgerdb.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		err = s.db.Badger().Update(fn)
		if err != badgerdb.ErrConflict {
			return err
		}
	}
	return fmt.Errorf("transaction conflict persisted after %d retries: %w", conflictRetries, err)
}

// CreateTurn inserts a PENDING turn and runs enqueue inside the same
// transaction so the turn and its LLM job commit together.
func (s *ChatStorage) CreateTurn(ctx context.Context, turn *models.ChatTurn, enqueue func(txn *badgerdb.Txn) error) error {
	err := s.updateWithRetry(func(txn *badgerdb.Txn) error {
		if err := s.db.Store().TxInsert(txn, turn.ID, turn); err != nil {
			if err == badgerhold.ErrKeyExists {
				return models.NewDomainError(models.KindConflict, "TURN_EXISTS", "chat turn %s already exists", turn.ID)
			}
			return fmt.Errorf("failed to insert chat turn: %w", err)
		}
		if enqueue != nil {
			if err := enqueue(txn); err != nil {
				return fmt.Errorf("failed to enqueue llm job: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Str("turn_id", turn.ID).Str("document_id", turn.DocumentID).Msg("Chat turn created")
	return nil
}

// GetTurn fetches a turn by id
func (s *ChatStorage) GetTurn(ctx context.Context, id string) (*models.ChatTurn, error) {
	var turn models.ChatTurn
	if err := s.db.Store().Get(id, &turn); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewDomainError(models.KindNotFound, "TURN_NOT_FOUND", "chat turn %s not found", id)
		}
		return nil, fmt.Errorf("failed to get chat turn: %w", err)
	}
	return &turn, nil
}

// ListHistory returns the owner's turns newest-first with the total count
func (s *ChatStorage) ListHistory(ctx context.Context, ownerID string, skip, limit int) ([]*models.ChatTurn, int, error) {
	count, err := s.db.Store().Count(&models.ChatTurn{}, badgerhold.Where("OwnerID").Eq(ownerID))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chat turns: %w", err)
	}

	query := badgerhold.Where("OwnerID").Eq(ownerID).SortBy("CreatedAt").Reverse()
	if skip > 0 {
		query = query.Skip(skip)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var turns []models.ChatTurn
	if err := s.db.Store().Find(&turns, query); err != nil {
		return nil, 0, fmt.Errorf("failed to list chat turns: %w", err)
	}

	result := make([]*models.ChatTurn, len(turns))
	for i := range turns {
		result[i] = &turns[i]
	}
	return result, int(count), nil
}

// CompleteTurn moves PENDING -> COMPLETED_SUCCESS with the reply text
func (s *ChatStorage) CompleteTurn(ctx context.Context, id, reply string, attempts int) error {
	return s.finishTurn(id, func(turn *models.ChatTurn) {
		turn.Status = models.LLMStatusSuccess
		turn.Reply = reply
		turn.Attempts = attempts
	})
}

// FailTurn moves PENDING -> FAILED_RETRIES_EXHAUSTED with an empty reply
func (s *ChatStorage) FailTurn(ctx context.Context, id string, attempts int) error {
	return s.finishTurn(id, func(turn *models.ChatTurn) {
		turn.Status = models.LLMStatusExhausted
		turn.Reply = ""
		turn.Attempts = attempts
	})
}

func (s *ChatStorage) finishTurn(id string, apply func(turn *models.ChatTurn)) error {
	return s.updateWithRetry(func(txn *badgerdb.Txn) error {
		var turn models.ChatTurn
		if err := s.db.Store().TxGet(txn, id, &turn); err != nil {
			if err == badgerhold.ErrNotFound {
				return models.NewDomainError(models.KindNotFound, "TURN_NOT_FOUND", "chat turn %s not found", id)
			}
			return fmt.Errorf("failed to get chat turn: %w", err)
		}
		if turn.Status.IsTerminal() {
			s.logger.Debug().Str("turn_id", id).Str("status", string(turn.Status)).
				Msg("LLM result for turn already terminal, skipping")
			return nil
		}

		apply(&turn)
		now := nowUTC()
		turn.CompletedAt = &now
		if err := s.db.Store().TxUpsert(txn, id, &turn); err != nil {
			return fmt.Errorf("failed to update chat turn: %w", err)
		}
		return nil
	})
}
