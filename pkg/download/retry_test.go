package download

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDo(t *testing.T) {
	shortBackoff := func(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
		return time.Millisecond
	}

	tests := []struct {
		name         string
		maxRetries   int
		failures     int   // attempts that fail before one succeeds
		failWith     error // error returned by failing attempts
		wantAttempts int
		wantErr      error
	}{
		{
			name:         "success on first attempt",
			maxRetries:   3,
			failures:     0,
			wantAttempts: 1,
		},
		{
			name:         "retryable failures then success",
			maxRetries:   3,
			failures:     2,
			failWith:     &StatusError{URL: "u", Code: http.StatusServiceUnavailable},
			wantAttempts: 3,
		},
		{
			name:         "budget exhausted",
			maxRetries:   2,
			failures:     10,
			failWith:     &StatusError{URL: "u", Code: http.StatusBadGateway},
			wantAttempts: 3,
			wantErr:      &StatusError{URL: "u", Code: http.StatusBadGateway},
		},
		{
			name:         "non-retryable gives up after one attempt",
			maxRetries:   5,
			failures:     10,
			failWith:     &StatusError{URL: "u", Code: http.StatusNotFound},
			wantAttempts: 1,
			wantErr:      &StatusError{URL: "u", Code: http.StatusNotFound},
		},
		{
			name:         "zero retries means single attempt",
			maxRetries:   0,
			failures:     10,
			failWith:     &TimeoutError{URL: "u"},
			wantAttempts: 1,
			wantErr:      &TimeoutError{URL: "u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			policy := RetryPolicy{MaxRetries: tt.maxRetries, Backoff: shortBackoff}

			res, err := policy.Do(context.Background(), "u", func(context.Context) (*Result, error) {
				attempts++
				if attempts <= tt.failures {
					return nil, tt.failWith
				}
				return &Result{URL: "u"}, nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErr.Error())
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, res)
		})
	}
}

func TestRetryPolicyDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 5}

	attempts := 0
	_, err := policy.Do(ctx, "u", func(context.Context) (*Result, error) {
		attempts++
		cancel()
		return nil, &StatusError{URL: "u", Code: http.StatusInternalServerError}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "429 retries", err: &StatusError{Code: http.StatusTooManyRequests}, want: true},
		{name: "500 retries", err: &StatusError{Code: http.StatusInternalServerError}, want: true},
		{name: "503 retries", err: &StatusError{Code: http.StatusServiceUnavailable}, want: true},
		{name: "404 gives up", err: &StatusError{Code: http.StatusNotFound}, want: false},
		{name: "400 gives up", err: &StatusError{Code: http.StatusBadRequest}, want: false},
		{name: "408 gives up", err: &StatusError{Code: http.StatusRequestTimeout}, want: false},
		{name: "digest mismatch retries", err: &DigestError{URL: "u"}, want: true},
		{name: "size mismatch retries", err: &SizeError{URL: "u"}, want: true},
		{name: "timeout retries", err: &TimeoutError{URL: "u"}, want: true},
		{name: "wrapped status honored", err: fmt.Errorf("attempt: %w", &StatusError{Code: http.StatusForbidden}), want: false},
		{name: "connection error retries", err: fmt.Errorf("connection reset"), want: true},
		{name: "canceled gives up", err: context.Canceled, want: false},
		{name: "deadline gives up", err: context.DeadlineExceeded, want: false},
		{name: "unsupported digest gives up", err: &UnsupportedDigestError{URL: "u"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryableError(tt.err))
		})
	}
}
