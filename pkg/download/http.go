package download

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"golang.org/x/time/rate"

	pkgerrors "github.com/cperrin88/getcha/pkg/errors"
)

// HTTPOptions configures an HTTP downloader on top of the common Options.
type HTTPOptions struct {
	Options

	// MaxRetries bounds additional attempts after the first failure.
	MaxRetries int

	// Headers are merged into every request.
	Headers http.Header

	// Username and Password enable basic auth when Username is set.
	Username string
	Password string

	// Throttle, when set, is awaited before each request is sent.
	Throttle *rate.Limiter

	// HeadersReady, when set, is invoked with the response headers before
	// the body is streamed.
	HeadersReady func(http.Header)
}

// HTTP downloads http:// and https:// URLs with bounded
// retry-with-backoff, shared connection reuse, proxy and auth support and
// optional request throttling.
type HTTP struct {
	*Base

	client       *http.Client
	ownsClient   bool
	policy       RetryPolicy
	headers      http.Header
	username     string
	password     string
	throttle     *rate.Limiter
	headersReady func(http.Header)
}

// NewHTTP creates a downloader for rawurl. A nil client makes the
// downloader create its own, which it closes after a successful transfer;
// a caller-supplied client is left open for reuse.
func NewHTTP(client *http.Client, rawurl string, opts HTTPOptions) (*HTTP, error) {
	base, err := newBase(rawurl, opts.Options)
	if err != nil {
		return nil, err
	}

	owns := false
	if client == nil {
		client = &http.Client{}
		owns = true
	}

	return &HTTP{
		Base:         base,
		client:       client,
		ownsClient:   owns,
		policy:       RetryPolicy{MaxRetries: opts.MaxRetries},
		headers:      opts.Headers,
		username:     opts.Username,
		password:     opts.Password,
		throttle:     opts.Throttle,
		headersReady: opts.HeadersReady,
	}, nil
}

// Run acquires the shared semaphore for the full duration of the download
// and drives the retry loop around single attempts.
func (d *HTTP) Run(ctx context.Context) (*Result, error) {
	return d.gate(ctx, func(ctx context.Context) (*Result, error) {
		res, err := d.policy.Do(ctx, d.url, d.attempt)
		if err != nil {
			_ = d.reset()
			return nil, err
		}
		if d.ownsClient {
			d.client.CloseIdleConnections()
		}
		return res, nil
	})
}

// attempt performs one GET: discard any partial state from a prior
// attempt, wait for a throttle slot, stream the body in fixed-size chunks
// and finalize. Any status >= 400 fails before the body is read.
func (d *HTTP) attempt(ctx context.Context) (*Result, error) {
	if err := d.reset(); err != nil {
		return nil, err
	}

	if d.throttle != nil {
		if err := d.throttle.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	for k, vs := range d.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if d.username != "" {
		req.SetBasicAuth(d.username, d.password)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, d.transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{URL: d.url, Code: resp.StatusCode}
	}

	if d.headersReady != nil {
		d.headersReady(resp.Header)
	}

	buf := make([]byte, DefaultChunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if herr := d.HandleData(buf[:n]); herr != nil {
				return nil, herr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, d.transportError(err)
		}
	}

	if err := d.Finalize(); err != nil {
		return nil, err
	}
	return d.result(resp.Header), nil
}

// transportError maps timeouts onto TimeoutError and wraps everything
// else. Both outcomes are retryable.
func (d *HTTP) transportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{URL: d.url}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: d.url}
	}
	return pkgerrors.Wrapf(err, "download failed for %s", d.url)
}
