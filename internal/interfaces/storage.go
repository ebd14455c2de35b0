package interfaces

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ternarybob/pdfchat/internal/models"
)

// DocumentStorage persists document metadata and drives the parse status
// state machine. Status transitions are compare-and-set: concurrent writers
// racing on the same document resolve to exactly one winner.
type DocumentStorage interface {
	// SaveDocument inserts or updates a document record
	SaveDocument(ctx context.Context, doc *models.Document) error

	// GetDocument fetches a document by id regardless of owner (worker use)
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// GetOwnedDocument fetches a document only if owned by ownerID.
	// Returns a NotFound domain error otherwise.
	GetOwnedDocument(ctx context.Context, ownerID, id string) (*models.Document, error)

	// ListDocuments returns the owner's documents ordered by upload time
	// descending, with the total count for pagination.
	ListDocuments(ctx context.Context, ownerID string, skip, limit int) ([]*models.Document, int, error)

	// BeginParse moves UNPARSED -> PARSING and runs enqueue inside the same
	// transaction so a parse job is never observable without the status write.
	// Returns a Conflict domain error when the document is not UNPARSED.
	BeginParse(ctx context.Context, ownerID, id string, enqueue func(txn *badger.Txn) error) (*models.Document, error)

	// CompleteParse moves PARSING -> PARSED_SUCCESS and records the text key.
	// A document already in a terminal status is left untouched.
	CompleteParse(ctx context.Context, id, textKey string) error

	// FailParse moves PARSING -> PARSED_FAILURE with a human-readable message.
	// A document already in a terminal status is left untouched.
	FailParse(ctx context.Context, id, errorMessage string) error

	// SelectForChat atomically clears the owner's previous selection and marks
	// the target document, keeping the Selection index row consistent.
	// Returns a Conflict domain error unless the document is PARSED_SUCCESS.
	SelectForChat(ctx context.Context, ownerID, id string) (*models.Document, error)

	// GetSelection returns the owner's selection index row, or nil when the
	// owner has no selected document.
	GetSelection(ctx context.Context, ownerID string) (*models.Selection, error)
}

// ChatStorage persists chat turns. Turns are single-writer: created PENDING
// and finalized exactly once by the LLM worker.
type ChatStorage interface {
	// CreateTurn inserts a PENDING turn and runs enqueue inside the same
	// transaction - a turn never exists without its queued LLM job.
	CreateTurn(ctx context.Context, turn *models.ChatTurn, enqueue func(txn *badger.Txn) error) error

	// GetTurn fetches a turn by id
	GetTurn(ctx context.Context, id string) (*models.ChatTurn, error)

	// ListHistory returns the owner's turns ordered by creation time
	// descending, with the total count for pagination.
	ListHistory(ctx context.Context, ownerID string, skip, limit int) ([]*models.ChatTurn, int, error)

	// CompleteTurn moves PENDING -> COMPLETED_SUCCESS with the reply text.
	// A turn already terminal is left untouched (duplicate delivery safe).
	CompleteTurn(ctx context.Context, id, reply string, attempts int) error

	// FailTurn moves PENDING -> FAILED_RETRIES_EXHAUSTED, leaving the reply
	// empty. A turn already terminal is left untouched.
	FailTurn(ctx context.Context, id string, attempts int) error
}

// UserStorage persists accounts and login sessions
type UserStorage interface {
	// CreateUser inserts a user. Returns a Conflict domain error when the
	// email is already registered.
	CreateUser(ctx context.Context, user *models.User) error

	// UpdateUser overwrites an existing user record
	UpdateUser(ctx context.Context, user *models.User) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes sessions past their lifetime and returns
	// how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// FileStorage persists raw PDF bytes and extracted text by opaque key
type FileStorage interface {
	PutRaw(ctx context.Context, documentID string, content []byte) (string, error)
	GetRaw(ctx context.Context, key string) ([]byte, error)
	PutText(ctx context.Context, documentID, text string) (string, error)
	GetText(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// StorageManager provides access to all storage interfaces backed by a single
// BadgerDB instance. Update exposes the shared transaction boundary used to
// combine entity writes with queue enqueues.
type StorageManager interface {
	DocumentStorage() DocumentStorage
	ChatStorage() ChatStorage
	UserStorage() UserStorage
	FileStorage() FileStorage

	// DB returns the underlying BadgerDB shared with the queue
	DB() *badger.DB

	// Update runs fn inside a read-write badger transaction
	Update(fn func(txn *badger.Txn) error) error

	// RunGC triggers one round of value log garbage collection
	RunGC() error

	Close() error
}
