package download

import (
	"fmt"

	"github.com/cperrin88/getcha/pkg/checksum"
)

// Sentinel errors for construction and dispatch failures.
var (
	// ErrUnsupportedScheme is returned by Factory.Build for URL schemes
	// with no registered downloader.
	ErrUnsupportedScheme = fmt.Errorf("unsupported URL scheme")

	// ErrDigestRequired is returned when a tmp downloader is constructed
	// without an expected sha256 digest.
	ErrDigestRequired = fmt.Errorf("an expected sha256 digest is required")

	// ErrSizeRequired is returned when a tmp downloader is constructed
	// without a positive expected size.
	ErrSizeRequired = fmt.Errorf("a positive expected size is required")

	// ErrTmpFileMissing is returned when the backing file of a tmp
	// download never appears.
	ErrTmpFileMissing = fmt.Errorf("backing file did not appear")

	// ErrTmpFileStalled is returned when the backing file of a tmp
	// download stops growing before reaching its expected size.
	ErrTmpFileStalled = fmt.Errorf("backing file stopped growing")
)

// UnsupportedDigestError is returned at downloader construction when none
// of the expected digest algorithms is in the trusted set. It is fatal and
// never retried.
type UnsupportedDigestError struct {
	URL        string
	Algorithms []checksum.Algorithm
	Trusted    checksum.Set
}

func (e *UnsupportedDigestError) Error() string {
	return fmt.Sprintf("none of the expected digest algorithms %v is trusted (trusted: %v): %s",
		e.Algorithms, e.Trusted, e.URL)
}

// DigestError reports a post-transfer digest mismatch.
type DigestError struct {
	URL       string
	Algorithm checksum.Algorithm
	Actual    string
	Expected  string
}

func (e *DigestError) Error() string {
	return fmt.Sprintf("%s digest mismatch for %s: got %s, expected %s",
		e.Algorithm, e.URL, e.Actual, e.Expected)
}

// SizeError reports a post-transfer size mismatch.
type SizeError struct {
	URL      string
	Actual   int64
	Expected int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("size mismatch for %s: got %d bytes, expected %d", e.URL, e.Actual, e.Expected)
}

// TimeoutError reports that a download timed out.
type TimeoutError struct {
	URL string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("download timed out: %s", e.URL)
}

// StatusError reports an HTTP error status received before the body was
// read. Statuses 429 and 5xx are considered transient; every other error
// status makes the retry loop give up immediately.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.URL)
}
