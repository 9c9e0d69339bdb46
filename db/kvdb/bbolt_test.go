package kvdb

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rummage/config"
	"rummage/logger"
)

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func newTestDB(t *testing.T) *BoltDB {
	t.Helper()
	assert := require.New(t)

	t.Setenv("ENV", "test")
	t.Setenv("KVDB_PATH", filepath.Join(t.TempDir(), "metadata.db"))

	cfg, err := config.Load()
	assert.NoError(err, "could not load config")

	db, err := New(newTestLogger(), cfg)
	assert.NoError(err, "could not create kv database")
	t.Cleanup(func() { db.Close() })

	return db
}

func TestSetGetDelete(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)

	err := db.Set(FilesBucket, "/some/file.txt", "metadata")
	assert.NoError(err)

	value, err := db.Get(FilesBucket, "/some/file.txt")
	assert.NoError(err)
	assert.Equal("metadata", value)

	err = db.Delete(FilesBucket, "/some/file.txt")
	assert.NoError(err)

	_, err = db.Get(FilesBucket, "/some/file.txt")
	assert.ErrorIs(err, ErrNotFound)
}

func TestBucketsAreIsolated(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)

	err := db.Set(FilesBucket, "shared-key", "file value")
	assert.NoError(err)
	err = db.Set(RequestsBucket, "shared-key", "request value")
	assert.NoError(err)

	fileValue, err := db.Get(FilesBucket, "shared-key")
	assert.NoError(err)
	assert.Equal("file value", fileValue)

	requestValue, err := db.Get(RequestsBucket, "shared-key")
	assert.NoError(err)
	assert.Equal("request value", requestValue)
}

func TestEmptyKeyIsInvalid(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)

	err := db.Set(FilesBucket, "", "value")
	assert.ErrorIs(err, ErrInvalidKey)

	var invalidKeyErr *InvalidKeyError
	assert.True(errors.As(err, &invalidKeyErr))

	_, err = db.Get(FilesBucket, "")
	assert.ErrorIs(err, ErrInvalidKey)

	err = db.Delete(FilesBucket, "")
	assert.ErrorIs(err, ErrInvalidKey)
}

func TestGetAllKeys(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t)

	assert.NoError(db.Set(FilesBucket, "/a.txt", "1"))
	assert.NoError(db.Set(FilesBucket, "/b.txt", "2"))

	keys, err := db.GetAllKeys(FilesBucket)
	assert.NoError(err)
	assert.ElementsMatch([]string{"/a.txt", "/b.txt"}, keys)

	keys, err = db.GetAllKeys(RequestsBucket)
	assert.NoError(err)
	assert.Empty(keys)
}
