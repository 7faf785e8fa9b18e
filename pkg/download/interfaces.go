// Package download implements the concurrent download engine: pluggable
// per-scheme downloaders that stream remote content to local temporary
// files while computing every trusted digest, validate the result against
// expected digests and sizes, and retry transient HTTP failures with
// exponential backoff. A Factory wires downloaders from a Remote's
// connection settings and shares one HTTP client and one concurrency
// semaphore across all downloads for that Remote.
package download

import (
	"context"
	"net/http"

	"github.com/cperrin88/getcha/pkg/checksum"
)

// DefaultChunkSize is the read size used when streaming response bodies
// and local files.
const DefaultChunkSize = 1 << 20

// Downloader fetches exactly one URL. Instances are single-use: create one
// per URL, drive it with Run, then discard it.
type Downloader interface {
	// URL returns the source URL this downloader was built for.
	URL() string

	// Run performs the transfer and returns the completed Result. The
	// shared concurrency semaphore is held for the full duration of the
	// call, including any retry attempts.
	Run(ctx context.Context) (*Result, error)
}

// Result is the value produced by a completed download. The caller takes
// ownership of the file at Path.
type Result struct {
	// URL is the source URL.
	URL string
	// Path is the filesystem path of the downloaded temporary file.
	Path string
	// Size is the total number of bytes downloaded.
	Size int64
	// Digests holds the lower-case hex digest for every trusted algorithm.
	Digests map[checksum.Algorithm]string
	// Headers holds the response headers, nil for non-HTTP downloads.
	Headers http.Header
}

// Fetch drives a downloader to completion without an external context. It
// is a convenience for one-off call sites that are not highly concurrent.
func Fetch(d Downloader) (*Result, error) {
	return d.Run(context.Background())
}
