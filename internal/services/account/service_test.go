package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/interfaces"
	"github.com/ternarybob/pdfchat/internal/models"
	storagebadger "github.com/ternarybob/pdfchat/internal/storage/badger"
)

func newTestService(t *testing.T, sessionTTL time.Duration) (*Service, interfaces.StorageManager) {
	t.Helper()

	logger := arbor.NewLogger()
	storage, err := storagebadger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	// MinCost keeps the bcrypt work factor out of test runtime
	return NewService(storage, sessionTTL, bcrypt.MinCost, logger), storage
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, "  ", "long-enough-password")
	require.Error(t, err)
	assert.Equal(t, "EMAIL_REQUIRED", models.CodeOf(err))

	_, err = svc.Register(ctx, "alice@example.com", "short")
	require.Error(t, err)
	assert.Equal(t, "PASSWORD_TOO_SHORT", models.CodeOf(err))
}

func TestRegisterNormalizesAndRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Alice@Example.COM ", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.Active)

	_, err = svc.Register(ctx, "ALICE@example.com", "another password")
	require.Error(t, err)
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestLoginIssuesSession(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	session, user, err := svc.Login(ctx, "Alice@Example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	got, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestLoginRejectionsAreUniform(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	// Unknown email and wrong password must be indistinguishable
	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever password")
	require.Error(t, err)
	assert.Equal(t, "INVALID_CREDENTIALS", models.CodeOf(err))

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong password here")
	require.Error(t, err)
	assert.Equal(t, "INVALID_CREDENTIALS", models.CodeOf(err))
}

func TestAuthenticateTokenStates(t *testing.T) {
	svc, storage := newTestService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	require.Error(t, err)
	assert.Equal(t, "MISSING_TOKEN", models.CodeOf(err))

	_, err = svc.Authenticate(ctx, "tok_unknown")
	require.Error(t, err)
	assert.Equal(t, models.KindUnauthorized, models.KindOf(err))

	// An expired session is rejected and removed on sight
	now := time.Now().UTC()
	expired := &models.Session{
		Token:     "tok_expired",
		UserID:    "usr_a",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, storage.UserStorage().SaveSession(ctx, expired))

	_, err = svc.Authenticate(ctx, "tok_expired")
	require.Error(t, err)
	assert.Equal(t, "SESSION_EXPIRED", models.CodeOf(err))

	_, err = storage.UserStorage().GetSession(ctx, "tok_expired")
	require.Error(t, err, "expired sessions are deleted when seen")
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	svc, storage := newTestService(t, time.Hour)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	session, _, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	// Deactivating the account invalidates existing sessions
	user.Active = false
	require.NoError(t, storage.UserStorage().UpdateUser(ctx, user))

	_, err = svc.Authenticate(ctx, session.Token)
	require.Error(t, err)
	assert.Equal(t, "ACCOUNT_DISABLED", models.CodeOf(err))
}

func TestLogoutRemovesSession(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)
	session, _, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))

	_, err = svc.Authenticate(ctx, session.Token)
	require.Error(t, err)
	assert.Equal(t, models.KindUnauthorized, models.KindOf(err))
}
