// Package guard validates untrusted identity strings before they address
// storage, and confines resolved paths to an allowed root.
package guard

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const maxIdentityLen = 128

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidIdentity reports whether key is safe to use as a storage key.
func IsValidIdentity(key string) bool {
	if key == "" || len(key) > maxIdentityLen {
		return false
	}
	if strings.Contains(key, "..") ||
		strings.ContainsAny(key, "/\\\x00") {
		return false
	}
	return identityPattern.MatchString(key)
}

// ConfinePath resolves candidate against allowedRoot and fails unless the
// result stays inside the root. Callers must refuse the operation on error;
// there is no partial read or write fallback.
func ConfinePath(candidate, allowedRoot string) (string, error) {
	root, err := filepath.Abs(allowedRoot)
	if err != nil {
		return "", fmt.Errorf("resolve allowed root: %w", err)
	}
	resolved, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve candidate path: %w", err)
	}
	root = filepath.Clean(root)
	resolved = filepath.Clean(resolved)
	if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes allowed root")
	}
	return resolved, nil
}

// SanitizeForLog reduces an untrusted string to printable ASCII and caps its
// length so identity keys can appear in log messages.
func SanitizeForLog(s string) string {
	const maxLen = 64
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
		if b.Len() >= maxLen {
			break
		}
	}
	return b.String()
}
