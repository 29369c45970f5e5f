// Package slug derives URL-safe identifiers from titles.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a title has no ASCII letters or digits left after normalisation.
const Fallback = "survey"

// maxAttempts bounds the suffix search.
const maxAttempts = 10000

// ErrExhausted is returned when no free suffix was found within maxAttempts.
var ErrExhausted = errors.New("slug: no free suffix")

var (
	invalidChars = regexp.MustCompile(`[^\w\s-]`)
	separators   = regexp.MustCompile(`[-\s]+`)
)

// ExistsFunc reports whether any stored slug starts with prefix, compared
// case-insensitively, ignoring the entity being saved.
type ExistsFunc func(ctx context.Context, prefix string) (bool, error)

// Make converts title to a slug: NFKD-normalised, ASCII only, lowercase,
// whitespace and hyphen runs collapsed to a single hyphen.
func Make(title string) string {
	decomposed := norm.NFKD.String(title)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	s := invalidChars.ReplaceAllString(strings.ToLower(b.String()), "")
	s = separators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	if s == "" {
		return Fallback
	}
	return s
}

// Unique returns Make(title), or Make(title) with the first numeric suffix
// ("-1", "-2", ...) for which exists reports no match. Reserved words are
// treated as taken.
func Unique(ctx context.Context, title string, exists ExistsFunc, reserved ...string) (string, error) {
	base := Make(title)
	candidate := base
	for n := 1; n <= maxAttempts; n++ {
		if !isReserved(candidate, reserved) {
			taken, err := exists(ctx, candidate)
			if err != nil {
				return "", fmt.Errorf("check slug %q: %w", candidate, err)
			}
			if !taken {
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", ErrExhausted
}

func isReserved(s string, reserved []string) bool {
	for _, r := range reserved {
		if strings.EqualFold(s, r) {
			return true
		}
	}
	return false
}
