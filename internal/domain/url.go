package domain

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned for structurally invalid URLs (bad syntax,
// missing host, or a scheme other than http/https). It is the only
// submission error treated as fatal; everything else degrades gracefully.
var ErrInvalidURL = errors.New("invalid url")

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ExtractURL returns the first http(s) URL found in free-form text.
// Trailing punctuation that commonly sticks to pasted links is stripped.
func ExtractURL(text string) (string, bool) {
	match := urlPattern.FindString(text)
	if match == "" {
		return "", false
	}
	match = strings.TrimRight(match, `.,;:!?)'"`)
	return match, true
}

// ValidateURL checks that raw is an absolute http/https URL.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
