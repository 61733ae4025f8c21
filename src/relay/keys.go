package relay

import (
	"strings"
)

// DirPrefix turns a key prefix into a directory: empty stays empty, anything
// else ends in exactly one "/".
func DirPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}

// Matches reports whether key follows the input convention: below the
// InputPrefix directory, inside TenantSegment when one is set, and not a
// folder marker.
func (settings Settings) Matches(key string) bool {
	if key == "" || strings.HasSuffix(key, "/") {
		return false
	}
	inputPrefix := DirPrefix(settings.InputPrefix)
	if !strings.HasPrefix(key, inputPrefix) {
		return false
	}
	if settings.TenantSegment == "" {
		return true
	}
	rest := strings.TrimPrefix(key, inputPrefix)
	return strings.HasPrefix(rest, settings.TenantSegment+"/")
}

// OutputKey derives the destination key of a matching input key.
func (settings Settings) OutputKey(key string) string {
	if settings.OutputPrefix == "" {
		return key
	}
	return DirPrefix(settings.OutputPrefix) + strings.TrimPrefix(key, DirPrefix(settings.InputPrefix))
}
