package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Scraping.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Scraping.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Scraping.DelayBetweenRequests)
	assert.Equal(t, 2*time.Second, cfg.Scraping.SettleTime)
	assert.Equal(t, 1*time.Second, cfg.Scraping.SubmitDelay)
	assert.Equal(t, 5, cfg.Scraping.MaxWorkers)
	assert.True(t, cfg.Scraping.Headless)
	assert.False(t, cfg.Proxy.Enabled)
	assert.Len(t, cfg.Platforms, len(models.KnownPlatforms))
	assert.NotNil(t, cfg.Scraping.Headers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_SecondsAndDurations(t *testing.T) {
	path := writeConfig(t, `
scraping:
  max_retries: 4
  timeout: 15
  delay_between_requests: 500ms
  settle_time: 1.5
proxy:
  enabled: true
  rotation: true
  providers:
    - url: http://127.0.0.1:8080
    - url: http://127.0.0.1:8081
platforms:
  - name: youtube
    search_queries: ["go tutorial"]
    render_with_browser: false
  - name: tiktok
    enabled: false
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scraping.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Scraping.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Scraping.DelayBetweenRequests)
	assert.Equal(t, 1500*time.Millisecond, cfg.Scraping.SettleTime)
	assert.Len(t, cfg.Proxy.Providers, 2)

	require.Len(t, cfg.Platforms, 2)
	assert.Equal(t, []string{"go tutorial"}, cfg.Platforms[0].Parameters())
	assert.False(t, cfg.Platforms[0].UseBrowser())
	assert.True(t, cfg.Platforms[0].IsEnabled())
	assert.False(t, cfg.Platforms[1].IsEnabled())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NICHEHARVEST_SCRAPING_MAX_RETRIES", "7")
	t.Setenv("NICHEHARVEST_SCRAPING_TIMEOUT", "45")

	cfg, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Scraping.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.Scraping.Timeout)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "scraping: [unclosed\n  max_retries: 3")

	_, err := NewLoader(path).Load()
	require.Error(t, err)

	var cfgErr *models.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "期望 ConfigError, 实际 %T", err)
}

func TestLoad_OversizedFile(t *testing.T) {
	path := writeConfig(t, "# "+strings.Repeat("x", MaxConfigFileSize+1))

	_, err := NewLoader(path).Load()
	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "配置文件过大")
}

func TestTemplateParsesToValidConfig(t *testing.T) {
	path := writeConfig(t, Template())

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Platforms, 4)
	assert.Equal(t, "en-US,en;q=0.9", cfg.Scraping.Headers["accept-language"])
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.yaml")

	created, err := WriteTemplate(path)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = WriteTemplate(path)
	require.NoError(t, err)
	assert.False(t, created, "已存在的配置不应被覆盖")
}
