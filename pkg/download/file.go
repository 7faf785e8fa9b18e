package download

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"

	pkgerrors "github.com/cperrin88/getcha/pkg/errors"
)

// File downloads file:// URLs by streaming a local path through the same
// digest and validation lifecycle as the network downloaders.
type File struct {
	*Base

	path string
}

// NewFile creates a downloader for a file:// URL.
func NewFile(rawurl string, opts Options) (*File, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid URL %q", rawurl)
	}
	if u.Path == "" {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidPath, "no path in %q", rawurl)
	}

	base, err := newBase(rawurl, opts)
	if err != nil {
		return nil, err
	}

	return &File{Base: base, path: u.Path}, nil
}

// Run streams the local file in fixed-size chunks and finalizes.
func (d *File) Run(ctx context.Context) (*Result, error) {
	return d.gate(ctx, func(ctx context.Context) (*Result, error) {
		f, err := os.Open(d.path)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "could not open %s", d.path)
		}
		defer func() { _ = f.Close() }()

		buf := make([]byte, DefaultChunkSize)
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			n, err := f.Read(buf)
			if n > 0 {
				if herr := d.HandleData(buf[:n]); herr != nil {
					return nil, herr
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, pkgerrors.Wrapf(err, "could not read %s", d.path)
			}
		}

		if err := d.Finalize(); err != nil {
			return nil, err
		}
		return d.result(nil), nil
	})
}
