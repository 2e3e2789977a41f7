package slug

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-z0-9._]+`)

// Make lowercases input and collapses anything outside [a-z0-9._] into dashes.
// Scoped package names such as "@acme/selector" become "acme-selector".
func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = unsafeChars.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		return "untitled"
	}
	return s
}

// Join slugs every segment and joins them under base.
func Join(base string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, base)
	for _, segment := range segments {
		parts = append(parts, Make(segment))
	}
	return filepath.Join(parts...)
}
