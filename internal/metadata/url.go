package metadata

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL marks a submitted URL that cannot be normalized into
// something fetchable.
var ErrInvalidURL = errors.New("invalid url")

var schemePattern = regexp.MustCompile(`^(?:f|ht)tps?://`)

// NormalizeURL turns user input into the canonical stored form: "http://" is
// prepended when no scheme is present, trailing slashes and whitespace are
// stripped, and a bare host gets its root path back, so "google.com" and
// "http://google.com" both normalize to "http://google.com/".
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidURL
	}

	if !schemePattern.MatchString(trimmed) {
		trimmed = "http://" + trimmed
	}
	trimmed = strings.TrimRight(trimmed, "/ \t")

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", ErrInvalidURL
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}

	return parsed.String(), nil
}

// Hostname returns the host part of a normalized URL, without the port.
func Hostname(normalizedURL string) (string, error) {
	parsed, err := url.Parse(normalizedURL)
	if err != nil || parsed.Hostname() == "" {
		return "", ErrInvalidURL
	}
	return parsed.Hostname(), nil
}
