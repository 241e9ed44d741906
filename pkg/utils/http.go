// Package utils provides common utility functions.
package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrNotAbsolute is returned when a URL lacks a scheme or host.
var ErrNotAbsolute = errors.New("url is not absolute")

// UserAgent is sent by the plain HTTP fetcher.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// IsValidURL reports whether raw is an absolute http or https URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveURL resolves ref against base. Absolute refs are returned unchanged.
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base url: %w", err)
	}

	if !b.IsAbs() {
		return "", fmt.Errorf("%w: %s", ErrNotAbsolute, base)
	}

	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", ref, err)
	}

	if r.IsAbs() {
		return ref, nil
	}

	return b.ResolveReference(r).String(), nil
}

// BuildHeaders creates HTTP headers with defaults.
func BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	headers.Set("User-Agent", UserAgent)
	headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
