package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://www.scottcountyiowa.us/sheriff/inmates.php", cfg.Source.RootURL)
	assert.Equal(t, []string{"https://www.scottcountyiowa.us/sheriff/inmates.php?comdate=today"}, cfg.Source.ListingURLs)
	assert.Equal(t, 75*time.Millisecond, cfg.Source.RequestDelay)
	assert.Equal(t, 500, cfg.Crawl.Window)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "scjailio-dev", cfg.MinIO.Bucket)
	assert.False(t, cfg.MinIO.Enabled())
	assert.False(t, cfg.Embedding.Enabled())
	assert.False(t, cfg.NATS.Enabled())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadReadsYAML(t *testing.T) {
	path := writeConfig(t, `
source:
  root_url: https://roster.example/inmates.php
  listing_urls:
    - https://roster.example/inmates.php?comdate=today
    - https://roster.example/inmates.php?comdate=yesterday
  request_delay: 250ms
crawl:
  window: 50
  schedule: "*/15 * * * *"
database:
  driver: memory
minio:
  endpoint: localhost:9000
  bucket: mugshots
logging:
  format: text
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://roster.example/inmates.php", cfg.Source.RootURL)
	assert.Len(t, cfg.Source.ListingURLs, 2)
	assert.Equal(t, 250*time.Millisecond, cfg.Source.RequestDelay)
	assert.Equal(t, 50, cfg.Crawl.Window)
	assert.Equal(t, "*/15 * * * *", cfg.Crawl.Schedule)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.MinIO.Enabled())
	assert.Equal(t, "mugshots", cfg.MinIO.Bucket)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestEnvOverridesWin(t *testing.T) {
	path := writeConfig(t, "crawl:\n  window: 50\n")
	t.Setenv("JAIL_CRAWL_WINDOW", "7")
	t.Setenv("JAIL_LISTING_URLS", "https://a.example/list, ,https://b.example/list")
	t.Setenv("JAIL_REQUEST_DELAY", "1s")
	t.Setenv("STOP_EARLY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Crawl.Window)
	assert.Equal(t, []string{"https://a.example/list", "https://b.example/list"}, cfg.Source.ListingURLs)
	assert.Equal(t, time.Second, cfg.Source.RequestDelay)
	assert.True(t, cfg.Crawl.StopEarly)
	assert.True(t, cfg.Embedding.Enabled())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  driver: mysql\n"))
	assert.ErrorContains(t, err, "database.driver")

	_, err = Load(writeConfig(t, "crawl:\n  window: -1\n"))
	assert.ErrorContains(t, err, "crawl.window")

	_, err = Load(writeConfig(t, "source: [not, a, map]\n"))
	assert.ErrorContains(t, err, "parse config")
}
