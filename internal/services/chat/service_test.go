package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
	"github.com/ternarybob/pdfchat/internal/queue"
	storagebadger "github.com/ternarybob/pdfchat/internal/storage/badger"
)

func newTestService(t *testing.T) (*Service, interfaces.StorageManager, interfaces.QueueManager) {
	t.Helper()

	logger := arbor.NewLogger()
	storage, err := storagebadger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	q, err := queue.NewBadgerManager(storage.DB(), "jobs", time.Minute, 3)
	require.NoError(t, err)

	return NewService(storage, q, logger), storage, q
}

// seedSelectedDocument stores a PARSED_SUCCESS document and selects it
func seedSelectedDocument(t *testing.T, storage interfaces.StorageManager, ownerID string) *models.Document {
	t.Helper()
	ctx := context.Background()

	doc := &models.Document{
		ID:          common.NewDocumentID(),
		OwnerID:     ownerID,
		Filename:    "report.pdf",
		UploadedAt:  time.Now().UTC(),
		ParseStatus: models.ParseStatusUnparsed,
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, storage.DocumentStorage().SaveDocument(ctx, doc))
	_, err := storage.DocumentStorage().BeginParse(ctx, ownerID, doc.ID, nil)
	require.NoError(t, err)
	require.NoError(t, storage.DocumentStorage().CompleteParse(ctx, doc.ID, "pdftext:"+doc.ID))
	selected, err := storage.DocumentStorage().SelectForChat(ctx, ownerID, doc.ID)
	require.NoError(t, err)
	return selected
}

func TestSubmitMessageValidation(t *testing.T) {
	svc, _, q := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitMessage(ctx, "usr_a", "   ")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = svc.SubmitMessage(ctx, "usr_a", strings.Repeat("x", maxMessageLength+1))
	require.Error(t, err)
	assert.Equal(t, "MESSAGE_TOO_LONG", models.CodeOf(err))

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending, "rejected submissions must not queue work")
}

func TestSubmitMessageRequiresSelection(t *testing.T) {
	svc, _, q := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitMessage(ctx, "usr_a", "hello?")
	require.Error(t, err)
	assert.Equal(t, models.KindNoDocumentSelected, models.KindOf(err))
	assert.Equal(t, "NO_DOCUMENT_SELECTED", models.CodeOf(err))

	// Neither turn nor job may exist after the rejection
	_, total, err := svc.ListHistory(ctx, "usr_a", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestSubmitMessageCreatesPendingTurnAndJob(t *testing.T) {
	svc, storage, q := newTestService(t)
	ctx := context.Background()

	doc := seedSelectedDocument(t, storage, "usr_a")

	turn, err := svc.SubmitMessage(ctx, "usr_a", "what does section 3 say?")
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusPending, turn.Status)
	assert.Empty(t, turn.Reply)
	assert.Equal(t, doc.ID, turn.DocumentID)
	assert.Equal(t, doc.Filename, turn.DocumentFilename)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.JobTypeLLM, msg.Type)
	require.NoError(t, ack())
}

func TestSubmitMessageDanglingSelection(t *testing.T) {
	svc, storage, _ := newTestService(t)
	ctx := context.Background()

	doc := seedSelectedDocument(t, storage, "usr_a")

	// Simulate a selection row outliving the document it points at
	doc.OwnerID = "usr_gone"
	require.NoError(t, storage.DocumentStorage().SaveDocument(ctx, doc))

	_, err := svc.SubmitMessage(ctx, "usr_a", "still there?")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestGetTurnOwnership(t *testing.T) {
	svc, storage, _ := newTestService(t)
	ctx := context.Background()

	seedSelectedDocument(t, storage, "usr_a")
	turn, err := svc.SubmitMessage(ctx, "usr_a", "hello")
	require.NoError(t, err)

	_, err = svc.GetTurn(ctx, "usr_b", turn.ID)
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))

	got, err := svc.GetTurn(ctx, "usr_a", turn.ID)
	require.NoError(t, err)
	assert.Equal(t, turn.ID, got.ID)
}
