package orchestrator

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	nonAlnumRun  = regexp.MustCompile(`[^a-z0-9]+`)
	leadingDigit = regexp.MustCompile(`^[^a-z]`)
)

// maxSlugNameLen bounds the human-readable portion of a slug before the
// trailing hex suffix is appended.
const maxSlugNameLen = 50

// NewSlug derives a URL- and filesystem-safe scenario slug from a
// user-supplied name: lowercase, collapse every run of non-alphanumeric
// characters to a single underscore, trim leading/trailing underscores,
// fall back to "scenario" if nothing alphanumeric survives, prefix "s_"
// if the result doesn't start with a letter, truncate to
// maxSlugNameLen, and append a random 6-hex-digit suffix so concurrent
// scenarios sharing a name never collide on disk.
//
// Matches `[a-z][a-z0-9_]{0,55}_[0-9a-f]{6}`.
func NewSlug(name string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	collapsed := nonAlnumRun.ReplaceAllString(lower, "_")
	trimmed := strings.Trim(collapsed, "_")
	if trimmed == "" {
		trimmed = "scenario"
	}
	if leadingDigit.MatchString(trimmed) {
		trimmed = "s_" + trimmed
	}
	if len(trimmed) > maxSlugNameLen {
		trimmed = trimmed[:maxSlugNameLen]
		trimmed = strings.TrimRight(trimmed, "_")
	}

	suffix, err := randomHex6()
	if err != nil {
		return "", err
	}
	return trimmed + "_" + suffix, nil
}

func randomHex6() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
