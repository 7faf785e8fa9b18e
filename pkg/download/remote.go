package download

import "time"

// Default connection tunables for remotes that do not configure their own.
// The defaults are deliberately generous compared to typical HTTP client
// settings: a long individual transfer with dead-connection detection
// through the connect and header-read timeouts is preferred over a single
// wall-clock cutoff.
const (
	// DefaultConcurrency bounds simultaneous downloads per remote.
	DefaultConcurrency = 10
	// DefaultConnectTimeout bounds establishing a TCP connection.
	DefaultConnectTimeout = 5 * time.Minute
	// DefaultSockReadTimeout bounds waiting for response headers.
	DefaultSockReadTimeout = 5 * time.Minute
)

// Remote describes an upstream source to download content from. The engine
// consumes a Remote read-only; one Factory is built per Remote and shares
// its connection settings across all downloads.
type Remote struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	// TLS material, PEM encoded.
	CACert        string `yaml:"ca_cert,omitempty"`
	ClientCert    string `yaml:"client_cert,omitempty"`
	ClientKey     string `yaml:"client_key,omitempty"`
	TLSValidation bool   `yaml:"tls_validation"`

	// Proxy settings. Credentials are folded into the proxy URL.
	ProxyURL      string `yaml:"proxy_url,omitempty"`
	ProxyUsername string `yaml:"proxy_username,omitempty"`
	ProxyPassword string `yaml:"proxy_password,omitempty"`

	// Basic auth for the upstream itself.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Headers is an ordered list of single-entry header maps merged into
	// every request. A User-Agent entry is appended to the computed
	// default User-Agent rather than replacing it.
	Headers []map[string]string `yaml:"headers,omitempty"`

	// DownloadConcurrency bounds simultaneous downloads for this remote;
	// DefaultConcurrency is used when unset.
	DownloadConcurrency int `yaml:"download_concurrency,omitempty"`

	// MaxRetries bounds additional attempts after the first failure.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// Timeout tunables. Zero values select the package defaults; a zero
	// TotalTimeout means no wall-clock limit.
	TotalTimeout       time.Duration `yaml:"total_timeout,omitempty"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout,omitempty"`
	SockConnectTimeout time.Duration `yaml:"sock_connect_timeout,omitempty"`
	SockReadTimeout    time.Duration `yaml:"sock_read_timeout,omitempty"`

	// RateLimit caps requests per second; zero disables throttling.
	RateLimit int `yaml:"rate_limit,omitempty"`
}
