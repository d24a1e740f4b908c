package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafepos/internal/cache"
	"cafepos/internal/config"
	"cafepos/internal/share"
)

func TestOpenRepositoryDrivers(t *testing.T) {
	ctx := context.Background()

	repo, closer, err := openRepository(ctx, config.Config{StoreDriver: "memory"})
	require.NoError(t, err)
	assert.Nil(t, closer)
	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 22)

	path := filepath.Join(t.TempDir(), "pos.db")
	repo, closer, err = openRepository(ctx, config.Config{StoreDriver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	require.NotNil(t, closer)
	t.Cleanup(func() { _ = closer() })
	settings, err := repo.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Still Café", settings.StoreName)

	_, _, err = openRepository(ctx, config.Config{StoreDriver: "mongo"})
	assert.Error(t, err)
}

func TestOpenCacheFallsBackToNoop(t *testing.T) {
	c, closer := openCache(context.Background(), config.Config{})
	assert.IsType(t, cache.NoopReportCache{}, c)
	assert.Nil(t, closer)
}

func TestBuildSharer(t *testing.T) {
	assert.Nil(t, buildSharer(config.Config{}))

	dir := buildSharer(config.Config{BackupDir: "/var/backups/pos"})
	assert.Equal(t, share.DirSharer{Dir: "/var/backups/pos"}, dir)

	mail := buildSharer(config.Config{SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPFrom: "till@example.com", BackupEmailTo: "a@example.com, b@example.com", BackupDir: "/tmp"})
	assert.IsType(t, &share.EmailSharer{}, mail)
}

func TestSetupLoggingProductionWritesJSON(t *testing.T) {
	saved := log.Logger
	t.Cleanup(func() { log.Logger = saved })

	var buf bytes.Buffer
	setupLogging(config.Config{Env: "production"}, &buf)
	log.Info().Str("k", "v").Msg("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
