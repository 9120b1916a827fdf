package testutil

import (
	"testing"

	"github.com/platemate/server/cache"
	"github.com/platemate/server/config"
	dbadapter "github.com/platemate/server/db"
	"github.com/platemate/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory database, runs AutoMigrate and seeds the
// friend status rows. It requires no external services and is safe to use
// in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeSQLiteMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	require.NoError(t, model.SeedFriendStatuses(db), "SetupTestDB: SeedFriendStatuses")
	return db
}

// SetupTestCache creates a LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := config.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}

// CreateUser inserts a user row with sensible defaults and returns it.
func CreateUser(t *testing.T, db *gorm.DB, handle, email, first, last string) model.User {
	t.Helper()
	u := model.User{
		Handle:       handle,
		Email:        email,
		PasswordHash: "x",
		FirstName:    first,
		LastName:     last,
	}
	require.NoError(t, db.Create(&u).Error, "CreateUser")
	return u
}
