package download

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/getcha/pkg/checksum"
)

func tmpFileOpts(dir string, content []byte) TmpFileOptions {
	return TmpFileOptions{
		Options: Options{
			ExpectedDigests: map[checksum.Algorithm]string{checksum.SHA256: sha256Hex(content)},
			ExpectedSize:    int64(len(content)),
			Dir:             dir,
		},
		Interval: 5 * time.Millisecond,
		MaxPolls: 20,
	}
}

func TestNewTmpFilePreconditions(t *testing.T) {
	tests := []struct {
		name    string
		opts    TmpFileOptions
		wantErr error
	}{
		{
			name:    "missing sha256",
			opts:    TmpFileOptions{Options: Options{ExpectedSize: 10}},
			wantErr: ErrDigestRequired,
		},
		{
			name: "missing size",
			opts: TmpFileOptions{Options: Options{
				ExpectedDigests: map[checksum.Algorithm]string{checksum.SHA256: sha256Hex([]byte("x"))},
			}},
			wantErr: ErrSizeRequired,
		},
		{
			name: "sha512 alone is not enough",
			opts: TmpFileOptions{Options: Options{
				ExpectedDigests: map[checksum.Algorithm]string{checksum.SHA512: "abc"},
				ExpectedSize:    10,
			}},
			wantErr: ErrDigestRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTmpFile("tmp://"+sha256Hex([]byte("x")), tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTmpFileRun(t *testing.T) {
	content := []byte("externally produced content")
	dir := t.TempDir()
	digest := sha256Hex(content)
	require.NoError(t, os.WriteFile(filepath.Join(dir, digest), content, 0o644))

	d, err := NewTmpFile("tmp://"+digest, tmpFileOpts(dir, content))
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.Equal(t, digest, res.Digests[checksum.SHA256])
	assert.Nil(t, res.Headers)
}

func TestTmpFileRunWaitsForAppearance(t *testing.T) {
	content := []byte("late file")
	dir := t.TempDir()
	digest := sha256Hex(content)
	backing := filepath.Join(dir, digest)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(backing, content, 0o644)
	}()

	d, err := NewTmpFile("tmp://"+digest, tmpFileOpts(dir, content))
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, digest, res.Digests[checksum.SHA256])
}

func TestTmpFileRunSlowProducer(t *testing.T) {
	content := []byte("written in two stages")
	dir := t.TempDir()
	digest := sha256Hex(content)
	backing := filepath.Join(dir, digest)

	// First half immediately, second half while the downloader is already
	// reading past a premature EOF.
	require.NoError(t, os.WriteFile(backing, content[:8], 0o644))
	go func() {
		time.Sleep(30 * time.Millisecond)
		f, err := os.OpenFile(backing, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		_, _ = f.Write(content[8:])
	}()

	d, err := NewTmpFile("tmp://"+digest, tmpFileOpts(dir, content))
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.Equal(t, digest, res.Digests[checksum.SHA256])
}

func TestTmpFileRunNeverAppears(t *testing.T) {
	content := []byte("never written")
	opts := tmpFileOpts(t.TempDir(), content)
	opts.MaxPolls = 3

	d, err := NewTmpFile("tmp://"+sha256Hex(content), opts)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, ErrTmpFileMissing)
}

func TestTmpFileRunStalledProducer(t *testing.T) {
	content := []byte("only half arrives")
	dir := t.TempDir()
	digest := sha256Hex(content)
	require.NoError(t, os.WriteFile(filepath.Join(dir, digest), content[:4], 0o644))

	opts := tmpFileOpts(dir, content)
	opts.MaxPolls = 3

	d, err := NewTmpFile("tmp://"+digest, opts)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, ErrTmpFileStalled)
}

func TestTmpFileSpoolDir(t *testing.T) {
	content := []byte("spooled")
	spool := t.TempDir()
	digest := sha256Hex(content)
	require.NoError(t, os.WriteFile(filepath.Join(spool, digest), content, 0o644))

	opts := tmpFileOpts(t.TempDir(), content)
	opts.SpoolDir = spool

	d, err := NewTmpFile("tmp://"+digest, opts)
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, digest, res.Digests[checksum.SHA256])
}
