package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/getcha/pkg/download"
	"github.com/cperrin88/getcha/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.Remotes)
	assert.Equal(t, ".", cfg.Settings.WorkDir)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Remotes)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	require.ErrorIs(t, err, errors.ErrEmptyConfigPath)
}

func TestLoadConfigFromReader(t *testing.T) {
	yaml := `
remotes:
  - name: fedora
    url: https://mirror.example.com/fedora/
    max_retries: 5
    rate_limit: 20
    headers:
      - User-Agent: sync-worker
      - Accept: application/octet-stream
  - name: internal
    url: https://packages.internal/
    tls_validation: false
    proxy_url: http://proxy.internal:3128
    connect_timeout: 30s
settings:
  work_dir: /var/tmp/getcha
  log_level: debug
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	require.Len(t, cfg.Remotes, 2)

	fedora, err := cfg.Remote("fedora")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.example.com/fedora/", fedora.URL)
	assert.Equal(t, 5, fedora.MaxRetries)
	assert.Equal(t, 20, fedora.RateLimit)
	assert.True(t, fedora.TLSValidation)
	assert.Equal(t, download.DefaultConcurrency, fedora.DownloadConcurrency)
	require.Len(t, fedora.Headers, 2)
	assert.Equal(t, "sync-worker", fedora.Headers[0]["User-Agent"])

	internal, err := cfg.Remote("internal")
	require.NoError(t, err)
	assert.False(t, internal.TLSValidation)
	assert.Equal(t, "http://proxy.internal:3128", internal.ProxyURL)
	assert.Equal(t, 30*time.Second, internal.ConnectTimeout)
	assert.Equal(t, DefaultMaxRetries, internal.MaxRetries)

	assert.Equal(t, "/var/tmp/getcha", cfg.Settings.WorkDir)
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
}

func TestLoadConfigFromReaderInvalidYAML(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("remotes: [unclosed"))
	require.ErrorIs(t, err, errors.ErrConfigParse)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "missing remote name",
			yaml:    "remotes:\n  - url: https://x/\n",
			wantErr: errors.ErrEmptyRemoteName,
		},
		{
			name:    "missing remote url",
			yaml:    "remotes:\n  - name: a\n",
			wantErr: errors.ErrRemoteURLEmpty,
		},
		{
			name:    "duplicate remote names",
			yaml:    "remotes:\n  - name: a\n    url: https://x/\n  - name: a\n    url: https://y/\n",
			wantErr: errors.ErrRemoteExists,
		},
		{
			name:    "negative timeout",
			yaml:    "remotes:\n  - name: a\n    url: https://x/\n    total_timeout: -1s\n",
			wantErr: errors.ErrConfigValidation,
		},
		{
			name:    "negative rate limit",
			yaml:    "remotes:\n  - name: a\n    url: https://x/\n    rate_limit: -2\n",
			wantErr: errors.ErrConfigValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(tt.yaml))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRemoteLookupNotFound(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.Remote("missing")
	require.ErrorIs(t, err, errors.ErrRemoteNotFound)
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Remotes = append(cfg.Remotes, &RemoteConfig{
		Name:                "mirror",
		URL:                 "https://mirror.example.com/",
		DownloadConcurrency: 4,
		MaxRetries:          2,
	})
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, loaded.Remotes, 1)

	remote, err := loaded.Remote("mirror")
	require.NoError(t, err)
	assert.Equal(t, 4, remote.DownloadConcurrency)
	assert.Equal(t, 2, remote.MaxRetries)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
