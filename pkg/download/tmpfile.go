package download

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cperrin88/getcha/pkg/checksum"
	pkgerrors "github.com/cperrin88/getcha/pkg/errors"
)

// Polling defaults for adopting an externally produced file.
const (
	DefaultPollInterval = 1 * time.Second
	DefaultMaxPolls     = 60
)

// TmpFileOptions configures a TmpFile downloader. ExpectedDigests must
// contain a sha256 entry and ExpectedSize must be positive: the expected
// size is the only signal that the out-of-band producer has finished
// writing.
type TmpFileOptions struct {
	Options

	// SpoolDir is the directory the producer writes into; Options.Dir is
	// used when empty.
	SpoolDir string

	// Interval and MaxPolls tune the wait loop; package defaults apply
	// when zero.
	Interval time.Duration
	MaxPolls int
}

// TmpFile adopts a file that is being produced out-of-band, identified by
// a tmp://<sha256> URL. It polls for the backing file to appear and then
// streams it, treating a premature EOF as "producer still writing" until
// the expected size is reached. A producer that makes no progress for
// MaxPolls consecutive intervals fails with ErrTmpFileStalled.
type TmpFile struct {
	*Base

	path     string
	interval time.Duration
	maxPolls int
}

// NewTmpFile creates a downloader for a tmp://<sha256> URL.
func NewTmpFile(rawurl string, opts TmpFileOptions) (*TmpFile, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid URL %q", rawurl)
	}
	if opts.ExpectedDigests[checksum.SHA256] == "" {
		return nil, pkgerrors.Wrapf(ErrDigestRequired, "%s", rawurl)
	}
	if opts.ExpectedSize <= 0 {
		return nil, pkgerrors.Wrapf(ErrSizeRequired, "%s", rawurl)
	}

	base, err := newBase(rawurl, opts.Options)
	if err != nil {
		return nil, err
	}

	spool := opts.SpoolDir
	if spool == "" {
		spool = base.dir
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	return &TmpFile{
		Base:     base,
		path:     filepath.Join(spool, u.Host),
		interval: interval,
		maxPolls: maxPolls,
	}, nil
}

// Run waits for the backing file and streams it until the expected size is
// reached.
func (d *TmpFile) Run(ctx context.Context) (*Result, error) {
	return d.gate(ctx, func(ctx context.Context) (*Result, error) {
		if err := d.waitForFile(ctx); err != nil {
			return nil, err
		}

		f, err := os.Open(d.path)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "could not open %s", d.path)
		}
		defer func() { _ = f.Close() }()

		buf := make([]byte, DefaultChunkSize)
		stalls := 0
		for d.bytesSeen() < d.expectedSize {
			n, err := f.Read(buf)
			if n > 0 {
				if herr := d.HandleData(buf[:n]); herr != nil {
					return nil, herr
				}
				stalls = 0
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, pkgerrors.Wrapf(err, "could not read %s", d.path)
			}

			// EOF before the expected size: the producer may still be
			// writing. Wait and read again from the same offset.
			stalls++
			if stalls >= d.maxPolls {
				return nil, pkgerrors.Wrapf(ErrTmpFileStalled, "%s at %d of %d bytes",
					d.path, d.bytesSeen(), d.expectedSize)
			}
			if err := d.sleep(ctx); err != nil {
				return nil, err
			}
		}

		if err := d.Finalize(); err != nil {
			return nil, err
		}
		return d.result(nil), nil
	})
}

func (d *TmpFile) waitForFile(ctx context.Context) error {
	for polls := 0; ; polls++ {
		if _, err := os.Stat(d.path); err == nil {
			return nil
		}
		if polls+1 >= d.maxPolls {
			return pkgerrors.Wrapf(ErrTmpFileMissing, "%s after %d polls", d.path, polls+1)
		}
		if err := d.sleep(ctx); err != nil {
			return err
		}
	}
}

func (d *TmpFile) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.interval):
		return nil
	}
}
