package interfaces

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ternarybob/pdfchat/internal/models"
)

// JobHandler processes one queue message. A nil return acknowledges the
// message; a retryable error (models.IsRetryable) leaves it for redelivery
// after the visibility timeout; any other error drops the message.
type JobHandler func(ctx context.Context, msg *models.QueueMessage) error

// QueueManager is a durable at-least-once message queue. Delivery goes to
// exactly one worker at a time via a visibility timeout; there is no ordering
// guarantee between distinct messages.
type QueueManager interface {
	// Enqueue adds a message to the queue and returns immediately
	Enqueue(ctx context.Context, msg models.QueueMessage) error

	// EnqueueTx adds a message within a caller-owned transaction so the
	// enqueue commits or aborts together with entity writes.
	EnqueueTx(txn *badger.Txn, msg models.QueueMessage) error

	// Receive pulls the next visible message. The returned ack function
	// deletes the message; not acking makes it visible again after the
	// visibility timeout. Returns models.ErrNoMessage when empty.
	Receive(ctx context.Context) (*models.QueueMessage, func() error, error)

	// Pending returns the number of messages currently stored
	Pending(ctx context.Context) (int, error)

	Close() error
}
