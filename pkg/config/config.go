// Package config provides configuration management for getcha. It loads
// and validates YAML configuration describing remotes (upstream sources
// with their TLS, proxy, auth and throughput settings) plus general
// application settings, applying sensible defaults for everything left
// unset.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cperrin88/getcha/pkg/download"
	"github.com/cperrin88/getcha/pkg/errors"
	"github.com/cperrin88/getcha/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	// Remote configuration
	Remotes []*RemoteConfig `yaml:"remotes"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// RemoteConfig is the YAML shape of a remote. It mirrors download.Remote
// except that booleans defaulting to true are pointers, so an absent key
// can be told apart from an explicit false.
type RemoteConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	CACert        string `yaml:"ca_cert,omitempty"`
	ClientCert    string `yaml:"client_cert,omitempty"`
	ClientKey     string `yaml:"client_key,omitempty"`
	TLSValidation *bool  `yaml:"tls_validation,omitempty"`

	ProxyURL      string `yaml:"proxy_url,omitempty"`
	ProxyUsername string `yaml:"proxy_username,omitempty"`
	ProxyPassword string `yaml:"proxy_password,omitempty"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	Headers []map[string]string `yaml:"headers,omitempty"`

	DownloadConcurrency int      `yaml:"download_concurrency,omitempty"`
	MaxRetries          int      `yaml:"max_retries,omitempty"`
	TotalTimeout        Duration `yaml:"total_timeout,omitempty"`
	ConnectTimeout      Duration `yaml:"connect_timeout,omitempty"`
	SockConnectTimeout  Duration `yaml:"sock_connect_timeout,omitempty"`
	SockReadTimeout     Duration `yaml:"sock_read_timeout,omitempty"`
	RateLimit           int      `yaml:"rate_limit,omitempty"`
}

// Duration wraps time.Duration so YAML configs can use human-readable
// values like "30s" or "5m". Plain integers are read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Settings represents general application settings.
type Settings struct {
	// WorkDir is where downloads create their temporary files.
	WorkDir string `yaml:"work_dir,omitempty"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // json, table, yaml
	LogLevel     string `yaml:"log_level"`     // panic, fatal, error, warn, info, debug, trace
}

// Default configuration values.
const (
	// DefaultMaxRetries is the default retry budget for remotes.
	DefaultMaxRetries = 3

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Remotes: []*RemoteConfig{},
		Settings: Settings{
			WorkDir:      ".",
			OutputFormat: "table",
			LogLevel:     "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to rename temporary config file")
	}

	return nil
}

// applyDefaults fills unset values.
func (c *Config) applyDefaults() {
	if c.Settings.WorkDir == "" {
		c.Settings.WorkDir = "."
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = "table"
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = "info"
	}
	for _, remote := range c.Remotes {
		if remote.DownloadConcurrency == 0 {
			remote.DownloadConcurrency = download.DefaultConcurrency
		}
		if remote.MaxRetries == 0 {
			remote.MaxRetries = DefaultMaxRetries
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	names := make(map[string]bool)
	for i, remote := range c.Remotes {
		if remote.Name == "" {
			return errors.Wrapf(errors.ErrEmptyRemoteName, "remote %d", i)
		}
		if remote.URL == "" {
			return errors.Wrapf(errors.ErrRemoteURLEmpty, "remote %q", remote.Name)
		}
		if names[remote.Name] {
			return errors.Wrapf(errors.ErrRemoteExists, "remote %q", remote.Name)
		}
		names[remote.Name] = true

		if remote.DownloadConcurrency < 1 {
			return errors.Wrapf(errors.ErrConfigValidation,
				"remote %q: download_concurrency must be at least 1", remote.Name)
		}
		if remote.MaxRetries < 0 {
			return errors.Wrapf(errors.ErrConfigValidation,
				"remote %q: max_retries cannot be negative", remote.Name)
		}
		for _, d := range []Duration{
			remote.TotalTimeout, remote.ConnectTimeout,
			remote.SockConnectTimeout, remote.SockReadTimeout,
		} {
			if d < 0 {
				return errors.Wrapf(errors.ErrConfigValidation,
					"remote %q: timeouts cannot be negative", remote.Name)
			}
		}
		if remote.RateLimit < 0 {
			return errors.Wrapf(errors.ErrConfigValidation,
				"remote %q: rate_limit cannot be negative", remote.Name)
		}
	}
	return nil
}

// Remote looks up a remote by name and converts it for the download
// engine.
func (c *Config) Remote(name string) (*download.Remote, error) {
	for _, remote := range c.Remotes {
		if remote.Name == name {
			return remote.ToRemote(), nil
		}
	}
	return nil, errors.ErrRemoteNotFoundWithName(name)
}

// ToRemote converts the YAML shape into the engine's read-only Remote.
func (rc *RemoteConfig) ToRemote() *download.Remote {
	tlsValidation := true
	if rc.TLSValidation != nil {
		tlsValidation = *rc.TLSValidation
	}
	return &download.Remote{
		Name:                rc.Name,
		URL:                 rc.URL,
		CACert:              rc.CACert,
		ClientCert:          rc.ClientCert,
		ClientKey:           rc.ClientKey,
		TLSValidation:       tlsValidation,
		ProxyURL:            rc.ProxyURL,
		ProxyUsername:       rc.ProxyUsername,
		ProxyPassword:       rc.ProxyPassword,
		Username:            rc.Username,
		Password:            rc.Password,
		Headers:             rc.Headers,
		DownloadConcurrency: rc.DownloadConcurrency,
		MaxRetries:          rc.MaxRetries,
		TotalTimeout:        time.Duration(rc.TotalTimeout),
		ConnectTimeout:      time.Duration(rc.ConnectTimeout),
		SockConnectTimeout:  time.Duration(rc.SockConnectTimeout),
		SockReadTimeout:     time.Duration(rc.SockReadTimeout),
		RateLimit:           rc.RateLimit,
	}
}
