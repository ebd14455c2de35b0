package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
	"github.com/ternarybob/pdfchat/internal/services/llm"
)

// fakeLLM fails with errs in order, then succeeds with reply
type fakeLLM struct {
	reply string
	errs  []error
	calls int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return "", f.errs[f.calls-1]
	}
	return f.reply, nil
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) Close() error                          { return nil }

func fastRetry() *llm.RetryConfig {
	return &llm.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// seedPendingTurn stores a PARSED_SUCCESS document with text plus a PENDING turn
func seedPendingTurn(t *testing.T, storage interfaces.StorageManager, ownerID string) (*models.Document, *models.ChatTurn) {
	t.Helper()
	ctx := context.Background()

	doc := seedParsingDocument(t, storage, ownerID)
	textKey, err := storage.FileStorage().PutText(ctx, doc.ID, "Section 3 covers billing terms.")
	require.NoError(t, err)
	require.NoError(t, storage.DocumentStorage().CompleteParse(ctx, doc.ID, textKey))

	turn := &models.ChatTurn{
		ID:               common.NewTurnID(),
		OwnerID:          ownerID,
		DocumentID:       doc.ID,
		DocumentFilename: doc.Filename,
		Message:          "what does section 3 say?",
		Status:           models.LLMStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, storage.ChatStorage().CreateTurn(ctx, turn, nil))

	updated, err := storage.DocumentStorage().GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	return updated, turn
}

func llmMessage(t *testing.T, turnID, documentID, ownerID string) *models.QueueMessage {
	t.Helper()
	msg, err := models.NewLLMMessage(common.NewJobID(), turnID, documentID, ownerID)
	require.NoError(t, err)
	return &msg
}

func TestLLMWorkerSuccess(t *testing.T) {
	storage := newWorkerStorage(t)
	provider := &fakeLLM{reply: "Billing terms are net 30."}
	worker := NewLLMWorker(storage, provider, fastRetry(), 6000, arbor.NewLogger())
	ctx := context.Background()

	doc, turn := seedPendingTurn(t, storage, "usr_a")

	require.NoError(t, worker.Handle(ctx, llmMessage(t, turn.ID, doc.ID, "usr_a")))

	got, err := storage.ChatStorage().GetTurn(ctx, turn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusSuccess, got.Status)
	assert.Equal(t, "Billing terms are net 30.", got.Reply)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.CompletedAt)
}

func TestLLMWorkerRecoversAfterTransientFailures(t *testing.T) {
	storage := newWorkerStorage(t)
	provider := &fakeLLM{
		reply: "Recovered.",
		errs: []error{
			models.WrapTransient("LLM_UNAVAILABLE", fmt.Errorf("503 overloaded")),
			models.WrapTransient("LLM_UNAVAILABLE", fmt.Errorf("429 Please retry in 0.001s")),
		},
	}
	worker := NewLLMWorker(storage, provider, fastRetry(), 6000, arbor.NewLogger())
	ctx := context.Background()

	doc, turn := seedPendingTurn(t, storage, "usr_a")

	require.NoError(t, worker.Handle(ctx, llmMessage(t, turn.ID, doc.ID, "usr_a")))

	got, err := storage.ChatStorage().GetTurn(ctx, turn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusSuccess, got.Status)
	assert.Equal(t, 3, got.Attempts)
}

func TestLLMWorkerExhaustionFailsTurn(t *testing.T) {
	storage := newWorkerStorage(t)
	transient := models.WrapTransient("LLM_UNAVAILABLE", fmt.Errorf("503 overloaded"))
	provider := &fakeLLM{errs: []error{transient, transient, transient}}
	worker := NewLLMWorker(storage, provider, fastRetry(), 6000, arbor.NewLogger())
	ctx := context.Background()

	doc, turn := seedPendingTurn(t, storage, "usr_a")

	// Exhaustion is terminal: recorded on the turn, success to the queue
	require.NoError(t, worker.Handle(ctx, llmMessage(t, turn.ID, doc.ID, "usr_a")))
	assert.Equal(t, 3, provider.calls)

	got, err := storage.ChatStorage().GetTurn(ctx, turn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusExhausted, got.Status)
	assert.Empty(t, got.Reply)
	assert.Equal(t, 3, got.Attempts)
	require.NotNil(t, got.CompletedAt)
}

func TestLLMWorkerNonRetryableFailsImmediately(t *testing.T) {
	storage := newWorkerStorage(t)
	provider := &fakeLLM{errs: []error{fmt.Errorf("400 invalid request")}}
	worker := NewLLMWorker(storage, provider, fastRetry(), 6000, arbor.NewLogger())
	ctx := context.Background()

	doc, turn := seedPendingTurn(t, storage, "usr_a")

	require.NoError(t, worker.Handle(ctx, llmMessage(t, turn.ID, doc.ID, "usr_a")))
	assert.Equal(t, 1, provider.calls, "non-retryable provider errors must not burn the budget")

	got, err := storage.ChatStorage().GetTurn(ctx, turn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusExhausted, got.Status)
	assert.Equal(t, 1, got.Attempts)
}

func TestLLMWorkerDuplicateDeliveryNoOp(t *testing.T) {
	storage := newWorkerStorage(t)
	provider := &fakeLLM{reply: "Answer once."}
	worker := NewLLMWorker(storage, provider, fastRetry(), 6000, arbor.NewLogger())
	ctx := context.Background()

	doc, turn := seedPendingTurn(t, storage, "usr_a")
	msg := llmMessage(t, turn.ID, doc.ID, "usr_a")

	require.NoError(t, worker.Handle(ctx, msg))
	require.NoError(t, worker.Handle(ctx, msg))

	assert.Equal(t, 1, provider.calls, "terminal turns must not trigger another generation")
}

func TestLLMWorkerMissingTextFailsTurn(t *testing.T) {
	storage := newWorkerStorage(t)
	provider := &fakeLLM{reply: "unused"}
	worker := NewLLMWorker(storage, provider, fastRetry(), 6000, arbor.NewLogger())
	ctx := context.Background()

	doc, turn := seedPendingTurn(t, storage, "usr_a")
	require.NoError(t, storage.FileStorage().Delete(ctx, doc.TextKey))

	require.NoError(t, worker.Handle(ctx, llmMessage(t, turn.ID, doc.ID, "usr_a")))
	assert.Equal(t, 0, provider.calls)

	got, err := storage.ChatStorage().GetTurn(ctx, turn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusExhausted, got.Status)
}

func TestLLMWorkerMissingTurnDropped(t *testing.T) {
	storage := newWorkerStorage(t)
	worker := NewLLMWorker(storage, &fakeLLM{}, fastRetry(), 6000, arbor.NewLogger())

	err := worker.Handle(context.Background(), llmMessage(t, "turn_gone", "doc_gone", "usr_a"))
	assert.NoError(t, err, "jobs for vanished turns are dropped, not retried")
}
