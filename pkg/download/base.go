package download

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/cperrin88/getcha/pkg/checksum"
	pkgerrors "github.com/cperrin88/getcha/pkg/errors"
	"github.com/cperrin88/getcha/pkg/fsutil"
)

// Options configures the common downloader lifecycle.
type Options struct {
	// ExpectedDigests maps algorithm to expected lower-case hex digest.
	// At least one key must be in the trusted set when non-empty.
	ExpectedDigests map[checksum.Algorithm]string

	// ExpectedSize is the expected byte count; zero disables the check.
	ExpectedSize int64

	// Semaphore gates concurrent downloads. A nil semaphore leaves the
	// downloader effectively unthrottled.
	Semaphore *semaphore.Weighted

	// Trusted is the system-wide digest allow-list; checksum.DefaultSet
	// is used when nil. Every trusted digest is computed for each
	// download regardless of ExpectedDigests.
	Trusted checksum.Set

	// Dir is where temporary files are created; the current working
	// directory when empty.
	Dir string
}

// Base implements the lifecycle shared by every downloader: lazily open a
// uniquely named temporary file, write chunks while feeding the digest
// accumulator, then flush, fsync and validate. Concrete downloaders embed
// it and drive the transfer from their Run method.
type Base struct {
	url             string
	expectedDigests map[checksum.Algorithm]string
	expectedSize    int64
	sem             *semaphore.Weighted
	trusted         checksum.Set
	dir             string
	tempPattern     string

	file *os.File
	acc  *checksum.Accumulator
}

func newBase(rawurl string, opts Options) (*Base, error) {
	trusted := opts.Trusted
	if trusted == nil {
		trusted = checksum.DefaultSet()
	}

	if len(opts.ExpectedDigests) > 0 {
		algs := make([]checksum.Algorithm, 0, len(opts.ExpectedDigests))
		for alg := range opts.ExpectedDigests {
			algs = append(algs, alg)
		}
		if !trusted.Intersects(algs) {
			return nil, &UnsupportedDigestError{URL: rawurl, Algorithms: algs, Trusted: trusted}
		}
	}

	sem := opts.Semaphore
	if sem == nil {
		sem = semaphore.NewWeighted(math.MaxInt32)
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	return &Base{
		url:             rawurl,
		expectedDigests: opts.ExpectedDigests,
		expectedSize:    opts.ExpectedSize,
		sem:             sem,
		trusted:         trusted,
		dir:             dir,
		tempPattern:     fsutil.TempPattern(urlBasename(rawurl)),
	}, nil
}

// urlBasename extracts the last path component of a URL, or "" when the
// URL has no usable basename.
func urlBasename(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// URL returns the source URL.
func (b *Base) URL() string {
	return b.url
}

// HandleData writes a chunk to the temporary file and feeds it to the
// digest accumulator. The file and the accumulator are created on the
// first call. Chunks must arrive in stream order.
func (b *Base) HandleData(p []byte) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if _, err := b.file.Write(p); err != nil {
		return pkgerrors.Wrapf(err, "could not write to %s", b.file.Name())
	}
	_, _ = b.acc.Write(p)
	return nil
}

// Finalize flushes buffered writes with an OS-level sync, closes the file
// and validates digests and size. It must be called exactly once, after
// all HandleData calls.
func (b *Base) Finalize() error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	if err := b.file.Sync(); err != nil {
		_ = b.file.Close()
		return pkgerrors.Wrapf(err, "could not sync %s", b.file.Name())
	}
	if err := b.file.Close(); err != nil {
		return pkgerrors.Wrapf(err, "could not close %s", b.file.Name())
	}
	if err := b.ValidateDigests(); err != nil {
		return err
	}
	return b.ValidateSize()
}

// ValidateDigests compares the accumulated digests against every trusted
// expected digest and fails on the first mismatch. Idempotent once the
// accumulator state is settled.
func (b *Base) ValidateDigests() error {
	digests := b.acc.Digests()
	for alg, expected := range b.expectedDigests {
		actual, ok := digests[alg]
		if !ok {
			// Untrusted algorithms are never computed and cannot be
			// validated.
			continue
		}
		if actual != strings.ToLower(expected) {
			return &DigestError{URL: b.url, Algorithm: alg, Actual: actual, Expected: expected}
		}
	}
	return nil
}

// ValidateSize compares the accumulated size against the expected size,
// when one is set.
func (b *Base) ValidateSize() error {
	if b.expectedSize > 0 && b.acc.Size() != b.expectedSize {
		return &SizeError{URL: b.url, Actual: b.acc.Size(), Expected: b.expectedSize}
	}
	return nil
}

// Path returns the temporary file path, or "" before the first write.
func (b *Base) Path() string {
	if b.file == nil {
		return ""
	}
	return b.file.Name()
}

func (b *Base) ensureOpen() error {
	if b.file != nil {
		return nil
	}
	f, err := os.CreateTemp(b.dir, b.tempPattern)
	if err != nil {
		return pkgerrors.Wrapf(err, "could not create temp file in %s", b.dir)
	}
	acc, err := checksum.NewAccumulator(b.trusted)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	b.file = f
	b.acc = acc
	return nil
}

// reset discards the current temporary file and accumulator so a retry
// attempt starts from a clean state. Safe to call before the first write.
func (b *Base) reset() error {
	if b.file == nil {
		return nil
	}
	name := b.file.Name()
	_ = b.file.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "could not discard %s", name)
	}
	b.file = nil
	b.acc = nil
	return nil
}

// bytesSeen returns the number of bytes accumulated so far.
func (b *Base) bytesSeen() int64 {
	if b.acc == nil {
		return 0
	}
	return b.acc.Size()
}

// result assembles the Result for a finalized download.
func (b *Base) result(headers http.Header) *Result {
	return &Result{
		URL:     b.url,
		Path:    b.file.Name(),
		Size:    b.acc.Size(),
		Digests: b.acc.Digests(),
		Headers: headers,
	}
}

// gate runs attempt while holding the shared semaphore, so retry and
// backoff logic inside attempt stays protected against concurrency
// overruns. A context deadline surfacing from attempt is translated into a
// TimeoutError for the downloader's URL.
func (b *Base) gate(ctx context.Context, attempt func(context.Context) (*Result, error)) (*Result, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	res, err := attempt(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, &TimeoutError{URL: b.url}
	}
	return res, err
}
