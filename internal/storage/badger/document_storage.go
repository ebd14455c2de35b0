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

// conflictRetries bounds the commit retry loop for compare-and-set
// transitions under Badger's SSI conflict detection.
const conflictRetries = 10

// DocumentStorage implements document persistence and the parse status
// state machine on BadgerDB
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new document storage service
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// updateWithRetry runs fn in a read-write transaction, retrying on commit
// conflicts. Domain errors pass through untouched so the caller sees the
// loser's Conflict rather than a storage failure.
func (s *DocumentStorage) updateWithRetry(fn func(txn *badgerdb.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		err = s.db.Badger().Update(fn)
		if err != badgerdb.ErrConflict {
			return err
		}
	}
	return fmt.Errorf("transaction conflict persisted after %d retries: %w", conflictRetries, err)
}

// SaveDocument inserts or updates a document record
func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument fetches a document by id regardless of owner
func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewDomainError(models.KindNotFound, "DOCUMENT_NOT_FOUND", "document %s not found", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// GetOwnedDocument fetches a document only if owned by ownerID. Documents
// belonging to other owners are reported as not found, not forbidden, so
// the response does not reveal their existence.
func (s *DocumentStorage) GetOwnedDocument(ctx context.Context, ownerID, id string) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, models.NewDomainError(models.KindNotFound, "DOCUMENT_NOT_FOUND", "document %s not found", id)
	}
	return doc, nil
}

// ListDocuments returns the owner's documents newest-first with the total count
func (s *DocumentStorage) ListDocuments(ctx context.Context, ownerID string, skip, limit int) ([]*models.Document, int, error) {
	count, err := s.db.Store().Count(&models.Document{}, badgerhold.Where("OwnerID").Eq(ownerID))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	query := badgerhold.Where("OwnerID").Eq(ownerID).SortBy("UploadedAt").Reverse()
	if skip > 0 {
		query = query.Skip(skip)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, int(count), nil
}

// BeginParse moves UNPARSED -> PARSING and runs enqueue inside the same
// transaction. Exactly one of any set of concurrent callers wins; the rest
// observe a Conflict.
func (s *DocumentStorage) BeginParse(ctx context.Context, ownerID, id string, enqueue func(txn *badgerdb.Txn) error) (*models.Document, error) {
	var result *models.Document
	err := s.updateWithRetry(func(txn *badgerdb.Txn) error {
		var doc models.Document
		if err := s.db.Store().TxGet(txn, id, &doc); err != nil {
			if err == badgerhold.ErrNotFound {
				return models.NewDomainError(models.KindNotFound, "DOCUMENT_NOT_FOUND", "document %s not found", id)
			}
			return fmt.Errorf("failed to get document: %w", err)
		}
		if doc.OwnerID != ownerID {
			return models.NewDomainError(models.KindNotFound, "DOCUMENT_NOT_FOUND", "document %s not found", id)
		}
		if doc.ParseStatus != models.ParseStatusUnparsed {
			return models.NewDomainError(models.KindConflict, "PARSE_ALREADY_REQUESTED",
				"document %s is %s, parse can only be requested once", id, doc.ParseStatus)
		}

		doc.MarkParsing()
		if err := s.db.Store().TxUpsert(txn, id, &doc); err != nil {
			return fmt.Errorf("failed to update document status: %w", err)
		}
		if enqueue != nil {
			if err := enqueue(txn); err != nil {
				return fmt.Errorf("failed to enqueue parse job: %w", err)
			}
		}
		result = &doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("document_id", id).Msg("Document moved to PARSING")
	return result, nil
}

// CompleteParse moves PARSING -> PARSED_SUCCESS and records the text key.
// Duplicate deliveries find a terminal status and leave it untouched.
func (s *DocumentStorage) CompleteParse(ctx context.Context, id, textKey string) error {
	return s.finishParse(id, func(doc *models.Document) {
		doc.MarkParseSuccess(textKey)
	})
}

// FailParse moves PARSING -> PARSED_FAILURE with a human-readable message
func (s *DocumentStorage) FailParse(ctx context.Context, id, errorMessage string) error {
	return s.finishParse(id, func(doc *models.Document) {
		doc.MarkParseFailure(errorMessage)
	})
}

func (s *DocumentStorage) finishParse(id string, apply func(doc *models.Document)) error {
	return s.updateWithRetry(func(txn *badgerdb.Txn) error {
		var doc models.Document
		if err := s.db.Store().TxGet(txn, id, &doc); err != nil {
			if err == badgerhold.ErrNotFound {
				return models.NewDomainError(models.KindNotFound, "DOCUMENT_NOT_FOUND", "document %s not found", id)
			}
			return fmt.Errorf("failed to get document: %w", err)
		}
		if doc.ParseStatus.IsTerminal() {
			s.logger.Debug().Str("document_id", id).Str("status", string(doc.ParseStatus)).
				Msg("Parse result for document already terminal, skipping")
			return nil
		}
		if doc.ParseStatus != models.ParseStatusParsing {
			s.logger.Warn().Str("document_id", id).Str("status", string(doc.ParseStatus)).
				Msg("Parse result arrived for document not in PARSING, skipping")
			return nil
		}

		apply(&doc)
		if err := s.db.Store().TxUpsert(txn, id, &doc); err != nil {
			return fmt.Errorf("failed to update document status: %w", err)
		}
		return nil
	})
}

// SelectForChat atomically clears the owner's previous selection, marks the
// target document and rewrites the per-owner Selection row. The document
// must have parsed successfully.
func (s *DocumentStorage) SelectForChat(ctx context.Context, ownerID, id string) (*models.Document, error) {
	var result *models.Document
	err := s.updateWithRetry(func(txn *badgerdb.Txn) error {
		var doc models.Document
		if err := s.db.Store().TxGet(txn, id, &doc); err != nil {
			if err == badgerhold.ErrNotFound {
				return models.NewDomainError(models.KindNotFound, "DOCUMENT_NOT_FOUND", "document %s not found", id)
			}
			return fmt.Errorf("failed to get document: %w", err)
		}
		if doc.OwnerID != ownerID {
			return models.NewDomainError(models.KindNotFound, "DOCUMENT_NOT_FOUND", "document %s not found", id)
		}
		if doc.ParseStatus != models.ParseStatusSuccess {
			return models.NewDomainError(models.KindDocumentNotParsed, "DOCUMENT_NOT_PARSED",
				"document %s is %s, only successfully parsed documents can be selected", id, doc.ParseStatus)
		}

		// Clear the previously selected document, if any
		var sel models.Selection
		err := s.db.Store().TxGet(txn, ownerID, &sel)
		if err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to get selection: %w", err)
		}
		if err == nil && sel.DocumentID != id {
			var prev models.Document
			if perr := s.db.Store().TxGet(txn, sel.DocumentID, &prev); perr == nil {
				prev.Selected = false
				if uerr := s.db.Store().TxUpsert(txn, prev.ID, &prev); uerr != nil {
					return fmt.Errorf("failed to clear previous selection: %w", uerr)
				}
			} else if perr != badgerhold.ErrNotFound {
				return fmt.Errorf("failed to get previously selected document: %w", perr)
			}
		}

		doc.Selected = true
		doc.UpdatedAt = nowUTC()
		if err := s.db.Store().TxUpsert(txn, id, &doc); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}

		sel = models.Selection{OwnerID: ownerID, DocumentID: id, UpdatedAt: nowUTC()}
		if err := s.db.Store().TxUpsert(txn, ownerID, &sel); err != nil {
			return fmt.Errorf("failed to update selection: %w", err)
		}

		result = &doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("document_id", id).Str("owner_id", ownerID).Msg("Document selected for chat")
	return result, nil
}

// GetSelection returns the owner's selection row, or nil when nothing is selected
func (s *DocumentStorage) GetSelection(ctx context.Context, ownerID string) (*models.Selection, error) {
	var sel models.Selection
	if err := s.db.Store().Get(ownerID, &sel); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	return &sel, nil
}
