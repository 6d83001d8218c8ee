package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/config"
)

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.New(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, config.DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, config.DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Debug)
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := "api_url: http://tasks.internal:8080/api\nrequest_timeout: 5s\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(yaml), 0644))

	cfg, err := config.New(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://tasks.internal:8080/api", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "api_url: http://from-file:8080/api\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(yaml), 0644))

	t.Setenv("TASKDECK_API_URL", "http://from-env:9090/api")

	cfg, err := config.New(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:9090/api", cfg.APIURL)
}

func TestMissingConfigFileIsFine(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAPIURL, cfg.APIURL)
}

func TestMalformedConfigFileErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("api_url: [unclosed"), 0644))

	_, err := config.New(dir)
	assert.Error(t, err)
}

func TestDefaultConfigDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	assert.Equal(t, filepath.Join("/tmp/xdg-test", config.AppName), config.DefaultConfigDir())
}

func TestTokenPathAndEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", config.AppName)
	cfg := &config.Config{Dir: dir}

	assert.Equal(t, filepath.Join(dir, config.TokenFile), cfg.TokenPath())
	assert.False(t, cfg.HasToken())

	require.NoError(t, cfg.EnsureDir())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, os.WriteFile(cfg.TokenPath(), []byte("{}"), 0600))
	assert.True(t, cfg.HasToken())
}
