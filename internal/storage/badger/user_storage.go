package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// UserStorage implements account and session persistence on BadgerDB
type UserStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewUserStorage creates a new user storage service
func NewUserStorage(db *BadgerDB, logger arbor.ILogger) interfaces.UserStorage {
	return &UserStorage{
		db:     db,
		logger: logger,
	}
}

// CreateUser inserts a user. Email uniqueness is checked inside the insert
// transaction so two concurrent registrations cannot both succeed.
func (s *UserStorage) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.Badger().Update(func(txn *badgerdb.Txn) error {
		var existing []models.User
		if err := s.db.Store().TxFind(txn, &existing, badgerhold.Where("Email").Eq(user.Email)); err != nil {
			return fmt.Errorf("failed to check existing email: %w", err)
		}
		if len(existing) > 0 {
			return models.NewDomainError(models.KindConflict, "EMAIL_TAKEN", "email %s is already registered", user.Email)
		}
		if err := s.db.Store().TxInsert(txn, user.ID, user); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Str("user_id", user.ID).Msg("User created")
	return nil
}

// UpdateUser overwrites an existing user record
func (s *UserStorage) UpdateUser(ctx context.Context, user *models.User) error {
	if err := s.db.Store().Update(user.ID, user); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.NewDomainError(models.KindNotFound, "USER_NOT_FOUND", "user %s not found", user.ID)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id
func (s *UserStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.Store().Get(id, &user); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewDomainError(models.KindNotFound, "USER_NOT_FOUND", "user %s not found", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail fetches a user by lowercased email
func (s *UserStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	if err := s.db.Store().Find(&users, badgerhold.Where("Email").Eq(email)); err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, models.NewDomainError(models.KindNotFound, "USER_NOT_FOUND", "no user with that email")
	}
	return &users[0], nil
}

// SaveSession stores a login session keyed by its token
func (s *UserStorage) SaveSession(ctx context.Context, session *models.Session) error {
	if err := s.db.Store().Upsert(session.Token, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession fetches a session by token
func (s *UserStorage) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Store().Get(token, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewDomainError(models.KindUnauthorized, "INVALID_SESSION", "session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session by token
func (s *UserStorage) DeleteSession(ctx context.Context, token string) error {
	if err := s.db.Store().Delete(token, &models.Session{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their lifetime
func (s *UserStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	var expired []models.Session
	if err := s.db.Store().Find(&expired, badgerhold.Where("ExpiresAt").Lt(now)); err != nil {
		return 0, fmt.Errorf("failed to find expired sessions: %w", err)
	}

	deleted := 0
	for i := range expired {
		if err := s.db.Store().Delete(expired[i].Token, &models.Session{}); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return deleted, fmt.Errorf("failed to delete expired session: %w", err)
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Debug().Int("count", deleted).Msg("Expired sessions removed")
	}
	return deleted, nil
}
