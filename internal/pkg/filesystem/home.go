package filesystem

import (
	"os"
	"path/filepath"
)

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// AppDir returns ~/.retrace joined with any sub-path elements.
func AppDir(elem ...string) string {
	return filepath.Join(append([]string{UserHomeDir(), ".retrace"}, elem...)...)
}
