// Package slug provides URL-friendly slug generation from arbitrary strings,
// with collision avoidance against already-published slugs.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// maxUniqueAttempts bounds suffix probing in Unique. Beyond this the caller
// gets an error instead of an unbounded loop against the store.
const maxUniqueAttempts = 1000

// Checker reports whether a slug is already taken. Implemented by the post
// store; kept as an interface so slug generation stays store-agnostic.
type Checker interface {
	SlugExists(slug string) (bool, error)
}

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.ReplaceAll(result, " ", "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// Unique derives a slug from title that does not collide with any existing
// slug known to the checker. On collision a numeric suffix is appended:
// "my-novel", "my-novel-2", "my-novel-3", ...
func Unique(checker Checker, title string) (string, error) {
	base := Generate(title)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for i := 2; i <= maxUniqueAttempts; i++ {
		taken, err := checker.SlugExists(candidate)
		if err != nil {
			return "", fmt.Errorf("slug uniqueness check: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	return "", fmt.Errorf("slug uniqueness check: no free slug for %q", base)
}
