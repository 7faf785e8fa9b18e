package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, remoteName string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`
remotes:
  - name: %s
    url: http://unused.example.com/
    max_retries: 2
settings:
  work_dir: %s
  log_level: error
`, remoteName, dir)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestFetchCommand(t *testing.T) {
	content := []byte("integration artifact")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(content)
	}))
	defer server.Close()

	cfgPath := writeTestConfig(t, "mirror")
	outDir := t.TempDir()

	sum := sha256.Sum256(content)
	err := runCommand(t,
		"--config", cfgPath,
		"fetch", server.URL+"/artifact.bin",
		"--remote", "mirror",
		"--dir", outDir,
		"--checksum", "sha256:"+hex.EncodeToString(sum[:]),
		"--size", fmt.Sprint(len(content)),
	)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	downloaded, err := os.ReadFile(filepath.Join(outDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, content, downloaded)
}

func TestFetchCommandChecksumMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("unexpected"))
	}))
	defer server.Close()

	cfgPath := writeTestConfig(t, "mirror")

	err := runCommand(t,
		"--config", cfgPath,
		"fetch", server.URL+"/artifact.bin",
		"--dir", t.TempDir(),
		"--checksum", "sha256:"+hex.EncodeToString(make([]byte, 32)),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestFetchCommandUnknownRemote(t *testing.T) {
	cfgPath := writeTestConfig(t, "mirror")

	err := runCommand(t,
		"--config", cfgPath,
		"fetch", "http://host/x",
		"--remote", "nope",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote not found")
}

func TestFetchCommandChecksumWithMultipleURLs(t *testing.T) {
	cfgPath := writeTestConfig(t, "mirror")

	err := runCommand(t,
		"--config", cfgPath,
		"fetch", "http://host/a", "http://host/b",
		"--checksum", "sha256:aa",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single URL")
}

func TestRemotesCommand(t *testing.T) {
	cfgPath := writeTestConfig(t, "mirror")
	require.NoError(t, runCommand(t, "--config", cfgPath, "remotes"))
}

func TestVersionCommand(t *testing.T) {
	require.NoError(t, runCommand(t, "version"))
}
