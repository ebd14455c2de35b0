package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
	"github.com/ternarybob/pdfchat/internal/services/chat"
	"github.com/ternarybob/pdfchat/internal/services/llm"
)

// LLMWorker consumes LLM jobs: it builds the prompt from the turn's document
// text and drives the turn to a terminal status. Transient provider failures
// are retried inside the handler with backoff up to the configured attempt
// budget; exhaustion marks the turn FAILED_RETRIES_EXHAUSTED.
type LLMWorker struct {
	storage interfaces.StorageManager
	llm     interfaces.LLMService
	retry   *llm.RetryConfig
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewLLMWorker creates a new LLM worker. requestsPerMinute throttles calls
// across all jobs to stay inside provider quota.
func NewLLMWorker(storage interfaces.StorageManager, llmService interfaces.LLMService, retry *llm.RetryConfig, requestsPerMinute int, logger arbor.ILogger) *LLMWorker {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 15
	}
	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)

	return &LLMWorker{
		storage: storage,
		llm:     llmService,
		retry:   retry,
		limiter: limiter,
		logger:  logger,
	}
}

// Handle processes one LLM job. Safe under at-least-once delivery: a turn
// already in a terminal status is left untouched.
func (w *LLMWorker) Handle(ctx context.Context, msg *models.QueueMessage) error {
	var payload models.LLMJobPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid llm job payload: %w", err)
	}

	turn, err := w.storage.ChatStorage().GetTurn(ctx, payload.TurnID)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			w.logger.Warn().Str("turn_id", payload.TurnID).Msg("LLM job references missing turn, dropping")
			return nil
		}
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}

	if turn.Status.IsTerminal() {
		// Duplicate delivery after the result was already written
		w.logger.Debug().Str("turn_id", turn.ID).Str("status", string(turn.Status)).
			Msg("Turn already terminal, skipping llm job")
		return nil
	}

	text, err := w.documentText(ctx, payload.DocumentID)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			// Text gone between submit and processing; fail the turn rather
			// than answer without context
			w.logger.Error().Str("turn_id", turn.ID).Str("document_id", payload.DocumentID).
				Msg("Document text missing for llm job")
			return w.failTurn(ctx, turn.ID, turn.Attempts)
		}
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}

	messages := chat.BuildMessages(text, turn.Message)

	reply, attempts, err := w.generateWithRetry(ctx, turn.ID, messages)
	if err != nil {
		w.logger.Warn().
			Err(err).
			Str("turn_id", turn.ID).
			Int("attempts", attempts).
			Msg("LLM generation failed, marking turn failed")
		return w.failTurn(ctx, turn.ID, attempts)
	}

	if err := w.storage.ChatStorage().CompleteTurn(ctx, turn.ID, reply, attempts); err != nil {
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}

	w.logger.Info().
		Str("turn_id", turn.ID).
		Int("attempts", attempts).
		Int("reply_length", len(reply)).
		Msg("Chat turn completed")
	return nil
}

// generateWithRetry calls the provider up to the attempt budget, backing off
// between transient failures. Non-transient failures stop immediately.
func (w *LLMWorker) generateWithRetry(ctx context.Context, turnID string, messages []interfaces.Message) (string, int, error) {
	var lastErr error

	for attempt := 0; attempt < w.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := w.retry.CalculateBackoff(attempt-1, llm.ExtractRetryDelay(lastErr))
			w.logger.Debug().
				Str("turn_id", turnID).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying LLM generation")
			select {
			case <-ctx.Done():
				return "", attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return "", attempt, err
		}

		reply, err := w.llm.Chat(ctx, messages)
		if err == nil {
			return reply, attempt + 1, nil
		}
		lastErr = err

		if !models.IsRetryable(err) {
			// Provider rejected the request; retrying cannot help
			return "", attempt + 1, err
		}
	}

	return "", w.retry.MaxAttempts, fmt.Errorf("llm attempts exhausted: %w", lastErr)
}

// documentText loads the extracted text for a document
func (w *LLMWorker) documentText(ctx context.Context, documentID string) (string, error) {
	doc, err := w.storage.DocumentStorage().GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.TextKey == "" {
		return "", models.NewDomainError(models.KindNotFound, "TEXT_NOT_FOUND",
			"document %s has no extracted text", documentID)
	}
	return w.storage.FileStorage().GetText(ctx, doc.TextKey)
}

func (w *LLMWorker) failTurn(ctx context.Context, turnID string, attempts int) error {
	if err := w.storage.ChatStorage().FailTurn(ctx, turnID, attempts); err != nil {
		return models.WrapTransient("STORAGE_UNAVAILABLE", err)
	}
	return nil
}
