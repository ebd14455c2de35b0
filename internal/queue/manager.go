package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// envelope wraps a queue message with delivery bookkeeping.
// The message body lives at queue:{name}:msg:{id}; a visibility index entry
// at queue:{name}:index:{visibleAt}:{id} orders delivery by readiness.
type envelope struct {
	ID           string              `json:"id"`
	Body         models.QueueMessage `json:"body"`
	EnqueuedAt   time.Time           `json:"enqueued_at"`
	VisibleAt    time.Time           `json:"visible_at"`
	ReceiveCount int                 `json:"receive_count"`
}

// BadgerManager implements a persistent at-least-once queue on a BadgerDB
// shared with entity storage, so enqueues can join entity transactions.
type BadgerManager struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
}

// NewBadgerManager creates a new Badger-backed queue manager
func NewBadgerManager(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxReceive int) (interfaces.QueueManager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &BadgerManager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
	}, nil
}

// Enqueue adds a message to the queue in its own transaction
func (m *BadgerManager) Enqueue(ctx context.Context, msg models.QueueMessage) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return m.EnqueueTx(txn, msg)
	})
}

// EnqueueTx adds a message within a caller-owned transaction. The message
// becomes visible only if the caller's transaction commits.
func (m *BadgerManager) EnqueueTx(txn *badger.Txn, msg models.QueueMessage) error {
	id := msg.JobID
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now()
	env := envelope{
		ID:         id,
		Body:       msg,
		EnqueuedAt: now,
		VisibleAt:  now, // Immediately visible
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	if err := txn.Set(m.msgKey(id), data); err != nil {
		return err
	}
	return txn.Set(m.indexKey(env.VisibleAt, id), []byte{})
}

// Receive pulls the next visible message. Claiming a message pushes its
// visibility out by the timeout and bumps the receive count; messages over
// the receive budget are dropped as poison.
func (m *BadgerManager) Receive(ctx context.Context) (*models.QueueMessage, func() error, error) {
	var claimed envelope

	err := m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := m.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			ts, id, err := m.parseIndexKey(key)
			if err != nil {
				continue // Skip malformed keys
			}
			if ts.After(now) {
				// Index keys sort by visibility time; nothing later is ready either
				break
			}

			msgItem, err := txn.Get(m.msgKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Dangling index entry, clean it up
					if derr := txn.Delete(key); derr != nil {
						return derr
					}
					continue
				}
				return err
			}

			var env envelope
			if err := msgItem.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}

			if env.ReceiveCount >= m.maxReceive {
				// Poison message, drop it so it cannot loop forever
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(m.msgKey(id)); err != nil {
					return err
				}
				continue
			}

			// Claim: bump receive count and push visibility out
			env.ReceiveCount++
			env.VisibleAt = time.Now().Add(m.visibilityTimeout)

			data, err := json.Marshal(env)
			if err != nil {
				return err
			}
			if err := txn.Set(m.msgKey(id), data); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Set(m.indexKey(env.VisibleAt, id), []byte{}); err != nil {
				return err
			}

			claimed = env
			return nil
		}

		return models.ErrNoMessage
	})
	if err != nil {
		return nil, nil, err
	}

	ack := func() error {
		return m.delete(claimed.ID)
	}
	return &claimed.Body, ack, nil
}

// delete removes a message and its index entry. Safe to call more than once.
func (m *BadgerManager) delete(id string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		msgKey := m.msgKey(id)
		item, err := txn.Get(msgKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil // Already gone
			}
			return err
		}

		var env envelope
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		}); err != nil {
			return err
		}

		if err := txn.Delete(m.indexKey(env.VisibleAt, id)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Delete(msgKey)
	})
}

// Pending returns the number of messages currently stored, visible or not
func (m *BadgerManager) Pending(ctx context.Context) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close is a no-op; the database is owned by the storage manager
func (m *BadgerManager) Close() error {
	return nil
}

func (m *BadgerManager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *BadgerManager) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
}

func (m *BadgerManager) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so lexical order matches numeric order
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, visibleAt.UnixNano(), id))
}

func (m *BadgerManager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := m.indexPrefix()
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid index key length")
	}

	suffix := string(key[len(prefix):])
	if len(suffix) < 22 { // 20 digit timestamp, colon, at least one id byte
		return time.Time{}, "", fmt.Errorf("invalid index key suffix")
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
