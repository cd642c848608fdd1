package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/config"
)

func TestOpenStoresSQLite(t *testing.T) {
	cfg := &config.Config{
		Store:  config.StoreConfig{Driver: config.StoreDriverSQLite},
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "tracker.db")},
	}
	ctx := context.Background()

	stores, err := OpenStores(ctx, cfg, zap.NewNop(), true)
	require.NoError(t, err)
	defer stores.Close()

	require.NoError(t, stores.Ping(ctx))
	counts, err := stores.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"requests": 0, "comments": 0, "agents": 0}, counts)
}

func TestOpenStoresMemory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreDriverMemory}}

	stores, err := OpenStores(context.Background(), cfg, zap.NewNop(), false)
	require.NoError(t, err)
	assert.NoError(t, stores.Ping(context.Background()))
	stores.Close()
}

func TestOpenStoresUnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "mongo"}}

	_, err := OpenStores(context.Background(), cfg, zap.NewNop(), false)
	assert.Error(t, err)
}
