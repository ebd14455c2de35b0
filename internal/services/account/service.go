package account

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
)

// minPasswordLength is the shortest password accepted at registration
const minPasswordLength = 8

// Service implements account registration and bearer-token sessions
type Service struct {
	storage    interfaces.StorageManager
	sessionTTL time.Duration
	bcryptCost int
	logger     arbor.ILogger
}

// NewService creates a new account service
func NewService(storage interfaces.StorageManager, sessionTTL time.Duration, bcryptCost int, logger arbor.ILogger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		storage:    storage,
		sessionTTL: sessionTTL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a new active account. Emails are stored lowercased and
// must be unique.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.NewDomainError(models.KindValidation, "EMAIL_REQUIRED", "email is required")
	}
	if len(password) < minPasswordLength {
		return nil, models.NewDomainError(models.KindValidation, "PASSWORD_TOO_SHORT",
			"password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           common.NewUserID(),
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.storage.UserStorage().CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User registered")
	return user, nil
}

// Login verifies credentials and issues an opaque bearer token. Bad email
// and bad password produce the same error so the response does not reveal
// which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	invalid := models.NewDomainError(models.KindUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")

	user, err := s.storage.UserStorage().GetUserByEmail(ctx, email)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, nil, invalid
		}
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, invalid
	}

	now := time.Now().UTC()
	session := &models.Session{
		Token:     common.NewSessionToken(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.storage.UserStorage().SaveSession(ctx, session); err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User logged in")
	return session, user, nil
}

// Authenticate resolves a bearer token to its user. Expired sessions are
// removed on sight.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.NewDomainError(models.KindUnauthorized, "MISSING_TOKEN", "authentication required")
	}

	session, err := s.storage.UserStorage().GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now().UTC()) {
		if derr := s.storage.UserStorage().DeleteSession(ctx, token); derr != nil {
			s.logger.Warn().Err(derr).Msg("Failed to delete expired session")
		}
		return nil, models.NewDomainError(models.KindUnauthorized, "SESSION_EXPIRED", "session has expired")
	}

	user, err := s.storage.UserStorage().GetUser(ctx, session.UserID)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.NewDomainError(models.KindUnauthorized, "INVALID_SESSION", "session user no longer exists")
		}
		return nil, err
	}
	if !user.Active {
		return nil, models.NewDomainError(models.KindUnauthorized, "ACCOUNT_DISABLED", "account is disabled")
	}
	return user, nil
}

// Logout removes the session for a bearer token
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.storage.UserStorage().DeleteSession(ctx, token)
}

// CleanupExpiredSessions removes sessions past their lifetime. Called by the
// scheduler.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int, error) {
	return s.storage.UserStorage().DeleteExpiredSessions(ctx, time.Now().UTC())
}
