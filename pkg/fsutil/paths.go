package fsutil

import "strings"

// LegalFilename reports whether name can safely be used as a single path
// component: non-empty, length-bounded, no separators or NUL bytes, and not
// one of the dot directories.
func LegalFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if len(name) > MaxFilenameLength {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// TempPattern derives an os.CreateTemp pattern from a preferred filename.
// A legal name yields "<name>.*" so the temp file remains recognizable;
// anything else falls back to a generic pattern.
func TempPattern(name string) string {
	if LegalFilename(name) {
		return name + ".*"
	}
	return "download-*"
}
