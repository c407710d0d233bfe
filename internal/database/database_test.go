package database

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/eduguide/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrate_UsesEmbeddedMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var gotDir string
	orig := gooseUp
	gooseUp = func(ctx context.Context, _ *sql.DB, dir string) error {
		gotDir = dir
		return nil
	}
	t.Cleanup(func() { gooseUp = orig })

	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, "migrations", gotDir)

	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestMigrate_PropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	t.Cleanup(func() { gooseUp = orig })

	err = Migrate(context.Background(), db)
	assert.ErrorContains(t, err, "boom")
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	rdb := OpenRedis(context.Background(), config.RedisConfig{Host: host, Port: port}, zap.NewNop())
	require.NotNil(t, rdb)
	defer rdb.Close()

	assert.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
}

func TestOpenRedis_Unreachable(t *testing.T) {
	rdb := OpenRedis(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: "1"}, zap.NewNop())
	assert.Nil(t, rdb)
}

func TestOpenMongo_EmptyURI(t *testing.T) {
	_, _, err := OpenMongo(context.Background(), config.MongoConfig{}, zap.NewNop())
	assert.Error(t, err)
}
