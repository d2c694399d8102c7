package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeName makes s safe as a file name and EDL title. Control
// characters are dropped, other disallowed runes become '_', and the result
// is cut to maxLen runes when maxLen > 0.
func SanitizeName(s string, maxLen int) string {
	cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case strings.ContainsRune(" -_.,()", r):
			return r
		}
		return '_'
	}, s))

	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

// ValidateOutputDir requires an existing, clean directory path without
// parent references.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("output directory is required")
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return errors.New("output directory cannot contain path traversal")
		}
	}
	if filepath.Clean(dir) != dir {
		return errors.New("output directory must be a clean path")
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return errors.New("output directory does not exist")
	}
	if err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}
	if !info.IsDir() {
		return errors.New("output directory is not a directory")
	}
	return nil
}
