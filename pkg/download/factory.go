package download

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/cperrin88/getcha/pkg/checksum"
	pkgerrors "github.com/cperrin88/getcha/pkg/errors"
	"github.com/cperrin88/getcha/pkg/logger"
)

// userAgentProduct is the product token leading every User-Agent header.
const userAgentProduct = "getcha/0.1.0"

// Scheme identifies a URL scheme with a registered downloader.
type Scheme string

// Schemes supported out of the box. tmp:// is an internal scheme handled
// by NewTmpFile directly and is not part of the factory dispatch.
const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeFile  Scheme = "file"
)

// BuildOptions configures a single Build call.
type BuildOptions struct {
	Options

	// MaxRetries overrides the Remote's retry budget for this download;
	// zero inherits the Remote's setting.
	MaxRetries int

	// HeadersReady, when set, is invoked with the response headers before
	// the body is streamed (HTTP downloads only).
	HeadersReady func(http.Header)
}

// BuildFunc builds a downloader for a URL; injected per scheme to override
// the built-in dispatch.
type BuildFunc func(f *Factory, rawurl string, opts BuildOptions) (Downloader, error)

// FactoryOptions configures a Factory beyond its Remote.
type FactoryOptions struct {
	// Overrides replaces the built-in builder for the given schemes.
	Overrides map[Scheme]BuildFunc

	// Trusted is the system-wide digest allow-list; checksum.DefaultSet
	// when nil.
	Trusted checksum.Set

	// Dir is where downloaders create temporary files; the current
	// working directory when empty.
	Dir string
}

// Factory translates a Remote's declarative configuration into correctly
// wired downloaders, amortizing the TLS context and connection settings
// across all downloads for that Remote. Every built downloader shares the
// factory's HTTP client and concurrency semaphore. Call Close when the
// sync work driving the factory is done.
type Factory struct {
	remote    *Remote
	client    *http.Client
	sem       *semaphore.Weighted
	trusted   checksum.Set
	headers   http.Header
	userAgent string
	throttle  *rate.Limiter
	overrides map[Scheme]BuildFunc
	dir       string
}

// NewFactory builds a factory for the given remote.
func NewFactory(remote *Remote, opts FactoryOptions) (*Factory, error) {
	client, err := newClient(remote)
	if err != nil {
		return nil, err
	}

	concurrency := remote.DownloadConcurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var throttle *rate.Limiter
	if remote.RateLimit > 0 {
		throttle = rate.NewLimiter(rate.Limit(remote.RateLimit), 1)
	}

	trusted := opts.Trusted
	if trusted == nil {
		trusted = checksum.DefaultSet()
	}

	f := &Factory{
		remote:    remote,
		client:    client,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		trusted:   trusted,
		throttle:  throttle,
		overrides: opts.Overrides,
		dir:       opts.Dir,
	}
	f.headers, f.userAgent = buildHeaders(remote)
	return f, nil
}

// Build resolves the URL's scheme to a downloader wired with the factory's
// shared client, semaphore, headers, auth and throttle. Overrides win over
// the built-in dispatch.
func (f *Factory) Build(rawurl string, opts BuildOptions) (Downloader, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid URL %q", rawurl)
	}
	scheme := Scheme(strings.ToLower(u.Scheme))

	if opts.Semaphore == nil {
		opts.Semaphore = f.sem
	}
	if opts.Trusted == nil {
		opts.Trusted = f.trusted
	}
	if opts.Dir == "" {
		opts.Dir = f.dir
	}

	if build, ok := f.overrides[scheme]; ok {
		return build(f, rawurl, opts)
	}

	switch scheme {
	case SchemeHTTP, SchemeHTTPS:
		return f.buildHTTP(rawurl, opts)
	case SchemeFile:
		return NewFile(rawurl, opts.Options)
	default:
		return nil, pkgerrors.Wrapf(ErrUnsupportedScheme, "%q", rawurl)
	}
}

// UserAgent returns the composed User-Agent header value.
func (f *Factory) UserAgent() string {
	return f.userAgent
}

// Close releases the factory's connections. Built downloaders must not be
// run afterwards.
func (f *Factory) Close() {
	f.client.CloseIdleConnections()
	logger.Debug("download factory closed", logrus.Fields{"remote": f.remote.Name})
}

func (f *Factory) buildHTTP(rawurl string, opts BuildOptions) (Downloader, error) {
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = f.remote.MaxRetries
	}

	return NewHTTP(f.client, rawurl, HTTPOptions{
		Options:      opts.Options,
		MaxRetries:   retries,
		Headers:      f.headers,
		Username:     f.remote.Username,
		Password:     f.remote.Password,
		Throttle:     f.throttle,
		HeadersReady: opts.HeadersReady,
	})
}

// newClient builds the shared HTTP client from the remote's TLS, proxy and
// timeout settings. Keep-alives are disabled: keep-alive behavior across
// third-party servers is inconsistent enough that closing after each
// request is the safer trade-off.
func newClient(remote *Remote) (*http.Client, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !remote.TLSValidation, //nolint:gosec // peer validation is a remote setting
	}
	if remote.CACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(remote.CACert)) {
			return nil, fmt.Errorf("no certificates parsed from ca_cert for remote %s", remote.Name)
		}
		tlsCfg.RootCAs = pool
	}
	if remote.ClientCert != "" {
		cert, err := tls.X509KeyPair([]byte(remote.ClientCert), []byte(remote.ClientKey))
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "invalid client certificate for remote %s", remote.Name)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	dialer := &net.Dialer{Timeout: connectTimeout(remote)}
	transport := &http.Transport{
		TLSClientConfig:       tlsCfg,
		DialContext:           dialer.DialContext,
		DisableKeepAlives:     true,
		ResponseHeaderTimeout: sockReadTimeout(remote),
	}

	if remote.ProxyURL != "" {
		proxyURL, err := url.Parse(remote.ProxyURL)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "invalid proxy URL for remote %s", remote.Name)
		}
		if remote.ProxyUsername != "" {
			proxyURL.User = url.UserPassword(remote.ProxyUsername, remote.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   remote.TotalTimeout,
	}, nil
}

func connectTimeout(remote *Remote) time.Duration {
	if remote.ConnectTimeout > 0 {
		return remote.ConnectTimeout
	}
	if remote.SockConnectTimeout > 0 {
		return remote.SockConnectTimeout
	}
	return DefaultConnectTimeout
}

func sockReadTimeout(remote *Remote) time.Duration {
	if remote.SockReadTimeout > 0 {
		return remote.SockReadTimeout
	}
	return DefaultSockReadTimeout
}

// buildHeaders merges the remote's header entries into the session
// defaults. A User-Agent entry extends the computed default instead of
// replacing it.
func buildHeaders(remote *Remote) (http.Header, string) {
	headers := http.Header{}
	ua := defaultUserAgent()
	for _, entry := range remote.Headers {
		for k, v := range entry {
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				ua = ua + ", " + v
				continue
			}
			headers.Set(k, v)
		}
	}
	headers.Set("User-Agent", ua)
	return headers, ua
}

// defaultUserAgent assembles the product, runtime and OS tokens.
func defaultUserAgent() string {
	return fmt.Sprintf("%s (%s, %s %s)", userAgentProduct, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
