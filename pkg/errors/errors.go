// Package errors provides the common error handling helpers for getcha.
// It defines sentinel errors shared across packages and wrapping utilities
// for adding context as errors propagate up the call stack. Errors that
// carry data (digest mismatches, HTTP statuses) are typed errors in the
// package that produces them.
package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")

	// Remote errors.
	ErrEmptyRemoteName = fmt.Errorf("remote name cannot be empty")
	ErrRemoteURLEmpty  = fmt.Errorf("remote URL cannot be empty")
	ErrRemoteExists    = fmt.Errorf("remote already exists")
	ErrRemoteNotFound  = fmt.Errorf("remote not found")

	// Download errors.
	ErrInvalidPath    = fmt.Errorf("invalid path")
	ErrDownloadFailed = fmt.Errorf("download failed")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrRemoteNotFoundWithName creates an error for when a remote with the
// given name is not configured.
func ErrRemoteNotFoundWithName(name string) error {
	return fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
}
