package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

const (
	rawKeyPrefix  = "pdfraw:"
	textKeyPrefix = "pdftext:"
)

// FileStorage stores raw PDF bytes and extracted text as plain Badger
// entries, outside the badgerhold index space. Values are referenced by the
// opaque keys recorded on the document.
type FileStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFileStorage creates a new file storage service
func NewFileStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FileStorage {
	return &FileStorage{
		db:     db,
		logger: logger,
	}
}

// PutRaw stores the uploaded PDF bytes and returns their key
func (s *FileStorage) PutRaw(ctx context.Context, documentID string, content []byte) (string, error) {
	key := rawKeyPrefix + documentID
	if err := s.put(key, content); err != nil {
		return "", fmt.Errorf("failed to store pdf bytes: %w", err)
	}
	s.logger.Debug().Str("key", key).Int("size", len(content)).Msg("Stored raw pdf")
	return key, nil
}

// GetRaw fetches uploaded PDF bytes by key
func (s *FileStorage) GetRaw(ctx context.Context, key string) ([]byte, error) {
	content, err := s.get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf bytes: %w", err)
	}
	return content, nil
}

// PutText stores extracted document text and returns its key
func (s *FileStorage) PutText(ctx context.Context, documentID, text string) (string, error) {
	key := textKeyPrefix + documentID
	if err := s.put(key, []byte(text)); err != nil {
		return "", fmt.Errorf("failed to store document text: %w", err)
	}
	s.logger.Debug().Str("key", key).Int("size", len(text)).Msg("Stored extracted text")
	return key, nil
}

// GetText fetches extracted document text by key
func (s *FileStorage) GetText(ctx context.Context, key string) (string, error) {
	content, err := s.get(key)
	if err != nil {
		return "", fmt.Errorf("failed to read document text: %w", err)
	}
	return string(content), nil
}

// Delete removes a stored value by key
func (s *FileStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete stored file: %w", err)
	}
	return nil
}

func (s *FileStorage) put(key string, content []byte) error {
	return s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), content)
	})
}

func (s *FileStorage) get(key string) ([]byte, error) {
	var content []byte
	err := s.db.Badger().View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badgerdb.ErrKeyNotFound {
				return models.NewDomainError(models.KindNotFound, "FILE_NOT_FOUND", "no stored content for key %s", key)
			}
			return err
		}
		content, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}
