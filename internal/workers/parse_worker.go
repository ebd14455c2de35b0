package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// ParseWorker consumes parse jobs: it loads the stored PDF bytes, extracts
// text and drives the document to a terminal parse status. Extraction
// failures are terminal; only infrastructure failures are surfaced as
// retryable.
type ParseWorker struct {
	storage   interfaces.StorageManager
	extractor interfaces.PDFExtractor
	logger    arbor.ILogger
}

// NewParseWorker creates a new parse worker
func NewParseWorker(storage interfaces.StorageManager, extractor interfaces.PDFExtractor, logger arbor.ILogger) *ParseWorker {
	return &ParseWorker{
		storage:   storage,
		extractor: extractor,
		logger:    logger,
	}
}

// Handle processes one parse job. Safe under at-least-once delivery: a
// document already in a terminal status is left untouched.
func (w *ParseWorker) Handle(ctx context.Context, msg *models.QueueMessage) error {
	var payload models.ParseJobPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid parse job payload: %w", err)
	}

	doc, err := w.storage.DocumentStorage().GetDocument(ctx, payload.DocumentID)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			// Document record vanished; nothing to parse
			w.logger.Warn().Str("document_id", payload.DocumentID).Msg("Parse job references missing document, dropping")
			return nil
		}
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}

	if doc.ParseStatus.IsTerminal() {
		// Duplicate delivery after the result was already written
		w.logger.Debug().Str("document_id", doc.ID).Str("status", string(doc.ParseStatus)).Msg("Document already terminal, skipping parse job")
		return nil
	}

	raw, err := w.storage.FileStorage().GetRaw(ctx, doc.RawKey)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			w.logger.Error().Str("document_id", doc.ID).Msg("Stored PDF bytes missing for document")
			return w.failParse(ctx, doc.ID, "stored PDF content is missing")
		}
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}

	text, err := w.extractor.ExtractTextFromBytes(ctx, raw)
	if err != nil {
		// Malformed input will not become valid on retry
		w.logger.Warn().Err(err).Str("document_id", doc.ID).Msg("Text extraction failed")
		return w.failParse(ctx, doc.ID, fmt.Sprintf("text extraction failed: %v", err))
	}

	textKey, err := w.storage.FileStorage().PutText(ctx, doc.ID, text)
	if err != nil {
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}

	if err := w.storage.DocumentStorage().CompleteParse(ctx, doc.ID, textKey); err != nil {
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}

	w.logger.Info().Str("document_id", doc.ID).Int("text_length", len(text)).Msg("Document parsed")
	return nil
}

func (w *ParseWorker) failParse(ctx context.Context, documentID, message string) error {
	if err := w.storage.DocumentStorage().FailParse(ctx, documentID, message); err != nil {
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}
	return nil
}
