package session

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/config"
	"github.com/Skotchmaster/marketplace/internal/models"
)

func initStore(t *testing.T, ttl time.Duration) (*Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return &Store{DB: db, TTL: ttl}, db
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	u := models.User{Email: "user@example.com", Name: "user", PasswordHash: "x", Role: models.RoleBuyer}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func TestCreateAndResolve(t *testing.T) {
	store, db := initStore(t, time.Hour)
	ctx := context.Background()
	user := createUser(t, db)

	sess, err := store.Create(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	got, resolved, err := store.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, sess.ID, resolved.ID)

	_, _, err = store.Resolve(ctx, "no-such-token")
	require.ErrorIs(t, err, ErrInvalid)
	_, _, err = store.Resolve(ctx, "")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestResolveExpiredDeletesRow(t *testing.T) {
	store, db := initStore(t, -time.Minute)
	ctx := context.Background()
	user := createUser(t, db)

	sess, err := store.Create(ctx, user.ID)
	require.NoError(t, err)

	_, _, err = store.Resolve(ctx, sess.Token)
	require.ErrorIs(t, err, ErrInvalid)

	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "expired session must be purged on resolve")
}

func TestDelete(t *testing.T) {
	store, db := initStore(t, time.Hour)
	ctx := context.Background()
	user := createUser(t, db)

	sess, err := store.Create(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, sess.Token))

	_, _, err = store.Resolve(ctx, sess.Token)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestCookieAttributes(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	c := Cookie("tok", exp)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "/", c.Path)

	gone := ExpiredCookie()
	assert.Empty(t, gone.Value)
	assert.True(t, gone.Expires.Before(time.Now()))
}
