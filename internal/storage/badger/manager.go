package badger

import (
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	document interfaces.DocumentStorage
	chat     interfaces.ChatStorage
	user     interfaces.UserStorage
	file     interfaces.FileStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		document: NewDocumentStorage(db, logger),
		chat:     NewChatStorage(db, logger),
		user:     NewUserStorage(db, logger),
		file:     NewFileStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// ChatStorage returns the Chat storage interface
func (m *Manager) ChatStorage() interfaces.ChatStorage {
	return m.chat
}

// UserStorage returns the User storage interface
func (m *Manager) UserStorage() interfaces.UserStorage {
	return m.user
}

// FileStorage returns the File storage interface
func (m *Manager) FileStorage() interfaces.FileStorage {
	return m.file
}

// DB returns the raw Badger database shared with the queue
func (m *Manager) DB() *badgerdb.DB {
	return m.db.Badger()
}

// Update runs fn inside a read-write badger transaction
func (m *Manager) Update(fn func(txn *badgerdb.Txn) error) error {
	return m.db.Badger().Update(fn)
}

// RunGC triggers one round of value log garbage collection
func (m *Manager) RunGC() error {
	return m.db.RunGC()
}

// Close closes the storage manager and the underlying database
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing Badger storage manager")
	return m.db.Close()
}
