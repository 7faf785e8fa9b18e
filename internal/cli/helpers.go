package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cperrin88/getcha/pkg/checksum"
	"github.com/cperrin88/getcha/pkg/config"
	"github.com/cperrin88/getcha/pkg/errors"
	"github.com/cperrin88/getcha/pkg/logger"
)

// Global flag bindings, set up by the root command.
var (
	ConfigPath   *string
	Verbose      *bool
	NoColor      *bool
	OutputFormat *string
)

// loadConfig loads the configuration from the --config flag or the default
// location, and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	noColor := NoColor != nil && *NoColor
	logger.InitLogger(level, noColor)

	return cfg, nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "getcha", "config.yaml")
}

// parseChecksums turns repeated "alg:hex" flag values into an expected
// digest map.
func parseChecksums(values []string) (map[checksum.Algorithm]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	digests := make(map[checksum.Algorithm]string, len(values))
	for _, v := range values {
		alg, hexDigest, found := strings.Cut(v, ":")
		if !found || alg == "" || hexDigest == "" {
			return nil, errors.Wrapf(errors.ErrConfigValidation,
				"checksum %q must have the form <algorithm>:<hex>", v)
		}
		digests[checksum.Algorithm(strings.ToLower(alg))] = strings.ToLower(hexDigest)
	}
	return digests, nil
}
