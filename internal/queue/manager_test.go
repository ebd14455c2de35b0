package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pdfchat/internal/models"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func testMessage(jobID string) models.QueueMessage {
	payload, _ := json.Marshal(models.ParseJobPayload{DocumentID: "doc_1", OwnerID: "usr_a"})
	return models.QueueMessage{JobID: jobID, Type: models.JobTypeParse, Payload: payload}
}

func TestEnqueueReceiveAck(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewBadgerManager(db, "jobs", time.Minute, 3)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mgr.Enqueue(ctx, testMessage("job_1")))

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	msg, ack, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_1", msg.JobID)
	assert.Equal(t, models.JobTypeParse, msg.Type)

	// Claimed but unacked messages stay stored
	pending, err = mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	require.NoError(t, ack())
	require.NoError(t, ack(), "ack is idempotent")

	pending, err = mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	_, _, err = mgr.Receive(ctx)
	assert.Equal(t, models.ErrNoMessage, err)
}

func TestReceiveEmptyQueue(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewBadgerManager(db, "jobs", time.Minute, 3)
	require.NoError(t, err)

	_, _, err = mgr.Receive(context.Background())
	assert.Equal(t, models.ErrNoMessage, err)
}

func TestEnqueueTxVisibilityFollowsCommit(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewBadgerManager(db, "jobs", time.Minute, 3)
	require.NoError(t, err)
	ctx := context.Background()

	// A discarded transaction leaves no message behind
	txn := db.NewTransaction(true)
	require.NoError(t, mgr.EnqueueTx(txn, testMessage("job_discarded")))
	txn.Discard()

	_, _, err = mgr.Receive(ctx)
	assert.Equal(t, models.ErrNoMessage, err)

	// A committed transaction makes the message visible
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return mgr.EnqueueTx(txn, testMessage("job_committed"))
	}))

	msg, ack, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_committed", msg.JobID)
	require.NoError(t, ack())
}

func TestVisibilityTimeoutRedelivery(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewBadgerManager(db, "jobs", 50*time.Millisecond, 3)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mgr.Enqueue(ctx, testMessage("job_1")))

	// First receive claims the message without acking
	msg, _, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_1", msg.JobID)

	// While claimed, it is invisible
	_, _, err = mgr.Receive(ctx)
	assert.Equal(t, models.ErrNoMessage, err)

	// After the visibility timeout, it comes back
	time.Sleep(80 * time.Millisecond)

	msg, ack, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_1", msg.JobID)
	require.NoError(t, ack())
}

func TestPoisonMessageDropped(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewBadgerManager(db, "jobs", 10*time.Millisecond, 2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mgr.Enqueue(ctx, testMessage("job_poison")))

	// Burn the receive budget without acking
	for i := 0; i < 2; i++ {
		msg, _, err := mgr.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "job_poison", msg.JobID)
		time.Sleep(20 * time.Millisecond)
	}

	// Over budget: the next receive drops it instead of delivering
	_, _, err = mgr.Receive(ctx)
	assert.Equal(t, models.ErrNoMessage, err)

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestReceiveOrderFIFO(t *testing.T) {
	db := newTestDB(t)
	mgr, err := NewBadgerManager(db, "jobs", time.Minute, 3)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mgr.Enqueue(ctx, testMessage("job_first")))
	time.Sleep(2 * time.Millisecond) // Distinct enqueue timestamps
	require.NoError(t, mgr.Enqueue(ctx, testMessage("job_second")))

	msg, ack, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_first", msg.JobID)
	require.NoError(t, ack())

	msg, ack, err = mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job_second", msg.JobID)
	require.NoError(t, ack())
}
