package download

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/cperrin88/getcha/pkg/logger"
)

// Default backoff window for retried downloads.
const (
	DefaultRetryMinWait = 1 * time.Second
	DefaultRetryMaxWait = 30 * time.Second
)

// RetryPolicy separates retry mechanics from transfer mechanics: it runs a
// single attempt operation up to MaxRetries+1 times, sleeping between
// attempts according to the backoff function, and stops early when the
// retryable predicate rejects an error.
type RetryPolicy struct {
	// MaxRetries bounds additional attempts after the first failure.
	MaxRetries int

	// MinWait and MaxWait frame the backoff window; the package defaults
	// apply when zero.
	MinWait time.Duration
	MaxWait time.Duration

	// Backoff computes the sleep before a retry;
	// retryablehttp.DefaultBackoff (exponential) when nil.
	Backoff retryablehttp.Backoff

	// Retryable decides whether an error is worth another attempt;
	// RetryableError when nil.
	Retryable func(error) bool
}

// Do runs attempt until it succeeds, exhausts the attempt budget, or fails
// with a non-retryable error. The context cancels both in-flight attempts
// and backoff sleeps.
func (p RetryPolicy) Do(ctx context.Context, url string, attempt func(context.Context) (*Result, error)) (*Result, error) {
	backoff := p.Backoff
	if backoff == nil {
		backoff = retryablehttp.DefaultBackoff
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = RetryableError
	}
	minWait := p.MinWait
	if minWait <= 0 {
		minWait = DefaultRetryMinWait
	}
	maxWait := p.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultRetryMaxWait
	}

	var lastErr error
	for i := 0; i <= p.MaxRetries; i++ {
		if i > 0 {
			wait := backoff(minWait, maxWait, i-1, nil)
			logger.Debug("retrying download", logrus.Fields{
				"url":     url,
				"attempt": i + 1,
				"backoff": wait.String(),
			})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		res, err := attempt(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// RetryableError is the default retryable predicate for HTTP downloads.
// Connection, TLS, payload and timeout errors as well as digest and size
// validation failures are transient; HTTP error statuses retry only for
// 429 and 5xx; context cancellation never retries.
func RetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError
	}

	var digestErr *UnsupportedDigestError
	if errors.As(err, &digestErr) {
		return false
	}

	return true
}
