package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = append([]string{"snowchat-server"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.NotEmpty(t, cfg.DatabaseDSN)
}

func TestLoadConfig_FlagsOverrideDefaults(t *testing.T) {
	withArgs(t, "-a", ":9090", "-d", "postgres://x/y", "-t", "600", "-m", "gpt-4o")

	cfg := LoadConfig()

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://x/y", cfg.DatabaseDSN)
	assert.Equal(t, 10*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "gpt-4o", cfg.LLMModel)
	// untouched fields keep their defaults
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_JsonOverlayThenFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	payload := `{
		"endpoint_addr_http": ":7070",
		"database_dsn": "postgres://json/db",
		"jwt_secret": "json-secret",
		"encryption_secret": "json-enc",
		"token_ttl": "30m",
		"request_timeout": "5s",
		"llm_base_url": "http://llm.local/v1",
		"llm_model": "json-model"
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	// the flag overlay must win over the JSON overlay
	withArgs(t, "-c", path, "-a", ":6060")

	cfg := LoadConfig()

	assert.Equal(t, ":6060", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://json/db", cfg.DatabaseDSN)
	assert.Equal(t, "json-secret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://llm.local/v1", cfg.LLMBaseURL)
	assert.Equal(t, "json-model", cfg.LLMModel)
}

func TestParseJson_PanicsOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o600))

	withArgs(t, "-c", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	assert.Panics(t, func() { parseJson(cfg) })
}
