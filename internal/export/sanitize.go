package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeName strips characters that are unsafe in export filenames,
// replacing them with underscores. maxLen 0 means unlimited.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// ValidateDestDir rejects empty, traversing, or non-directory destinations
// before any export work begins.
func ValidateDestDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("destination directory is required")
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("destination cannot contain path traversal")
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("destination does not exist")
		}
		return fmt.Errorf("invalid destination: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination is not a directory")
	}

	return nil
}
