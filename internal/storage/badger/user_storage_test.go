package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/pdfchat/internal/common"
	"github.com/ternarybob/pdfchat/internal/models"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	mgr := newTestManager(t)
	users := mgr.UserStorage()
	ctx := context.Background()

	user := &models.User{
		ID:           common.NewUserID(),
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, users.CreateUser(ctx, user))

	dup := &models.User{
		ID:        common.NewUserID(),
		Email:     "alice@example.com",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	err := users.CreateUser(ctx, dup)
	require.Error(t, err)
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	got, err := users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestSessionLifecycle(t *testing.T) {
	mgr := newTestManager(t)
	users := mgr.UserStorage()
	ctx := context.Background()
	now := time.Now().UTC()

	session := &models.Session{
		Token:     "tok_live",
		UserID:    "usr_a",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, users.SaveSession(ctx, session))

	got, err := users.GetSession(ctx, "tok_live")
	require.NoError(t, err)
	assert.Equal(t, "usr_a", got.UserID)

	require.NoError(t, users.DeleteSession(ctx, "tok_live"))
	_, err = users.GetSession(ctx, "tok_live")
	require.Error(t, err)
	assert.Equal(t, models.KindUnauthorized, models.KindOf(err))
}

func TestDeleteExpiredSessions(t *testing.T) {
	mgr := newTestManager(t)
	users := mgr.UserStorage()
	ctx := context.Background()
	now := time.Now().UTC()

	sessions := []*models.Session{
		{Token: "tok_expired_1", UserID: "usr_a", CreatedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(-2 * time.Hour)},
		{Token: "tok_expired_2", UserID: "usr_b", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Minute)},
		{Token: "tok_live", UserID: "usr_a", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, s := range sessions {
		require.NoError(t, users.SaveSession(ctx, s))
	}

	removed, err := users.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = users.GetSession(ctx, "tok_expired_1")
	require.Error(t, err)

	_, err = users.GetSession(ctx, "tok_live")
	require.NoError(t, err)
}
