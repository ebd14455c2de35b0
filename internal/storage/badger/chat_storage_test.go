package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/models"
)

func newTestTurn(ownerID string) *models.ChatTurn {
	return &models.ChatTurn{
		ID:               common.NewTurnID(),
		OwnerID:          ownerID,
		DocumentID:       "doc_1",
		DocumentFilename: "report.pdf",
		Message:          "what does section 3 say?",
		Status:           models.LLMStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestCreateTurnEnqueueSameTransaction(t *testing.T) {
	mgr := newTestManager(t)
	chats := mgr.ChatStorage()
	ctx := context.Background()

	turn := newTestTurn("usr_a")
	boom := fmt.Errorf("enqueue exploded")
	err := chats.CreateTurn(ctx, turn, func(txn *badgerdb.Txn) error {
		return boom
	})
	require.Error(t, err)

	// The turn write rolled back with the enqueue
	_, err = chats.GetTurn(ctx, turn.ID)
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))

	require.NoError(t, chats.CreateTurn(ctx, turn, nil))

	got, err := chats.GetTurn(ctx, turn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusPending, got.Status)
	assert.Empty(t, got.Reply)
	assert.Nil(t, got.CompletedAt)

	// Re-inserting the same id is a conflict, not a silent overwrite
	err = chats.CreateTurn(ctx, turn, nil)
	require.Error(t, err)
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestTurnResultTerminalAndIdempotent(t *testing.T) {
	mgr := newTestManager(t)
	chats := mgr.ChatStorage()
	ctx := context.Background()

	success := newTestTurn("usr_a")
	require.NoError(t, chats.CreateTurn(ctx, success, nil))

	require.NoError(t, chats.CompleteTurn(ctx, success.ID, "Section 3 covers billing.", 2))
	got, err := chats.GetTurn(ctx, success.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusSuccess, got.Status)
	assert.Equal(t, "Section 3 covers billing.", got.Reply)
	assert.Equal(t, 2, got.Attempts)
	require.NotNil(t, got.CompletedAt)

	// Duplicate delivery after the result is written changes nothing
	require.NoError(t, chats.FailTurn(ctx, success.ID, 3))
	got, err = chats.GetTurn(ctx, success.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusSuccess, got.Status)
	assert.Equal(t, "Section 3 covers billing.", got.Reply)

	failure := newTestTurn("usr_a")
	require.NoError(t, chats.CreateTurn(ctx, failure, nil))

	require.NoError(t, chats.FailTurn(ctx, failure.ID, 3))
	got, err = chats.GetTurn(ctx, failure.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LLMStatusExhausted, got.Status)
	assert.Empty(t, got.Reply, "exhausted turns never carry a partial reply")
	assert.Equal(t, 3, got.Attempts)
	require.NotNil(t, got.CompletedAt)
}

func TestListHistoryOrderAndPagination(t *testing.T) {
	mgr := newTestManager(t)
	chats := mgr.ChatStorage()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 1; i <= 7; i++ {
		turn := newTestTurn("usr_a")
		turn.ID = fmt.Sprintf("turn_%02d", i)
		turn.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, chats.CreateTurn(ctx, turn, nil))
	}
	other := newTestTurn("usr_b")
	require.NoError(t, chats.CreateTurn(ctx, other, nil))

	page, total, err := chats.ListHistory(ctx, "usr_a", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, page, 5)
	assert.Equal(t, "turn_07", page[0].ID, "history is newest first")
	assert.Equal(t, "turn_03", page[4].ID)

	page, total, err = chats.ListHistory(ctx, "usr_a", 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, page, 2)
	assert.Equal(t, "turn_01", page[1].ID)
}
