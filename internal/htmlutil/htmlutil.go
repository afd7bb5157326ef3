// Package htmlutil holds the string helpers used wherever text is
// interpolated into markup.
package htmlutil

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeHTML escapes s for use in element text and double-quoted attributes.
func EscapeHTML(s string) string {
	return escaper.Replace(s)
}

// GetDomain returns the hostname of rawURL, or "localhost" when rawURL is
// not an absolute URL.
func GetDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}

// TruncateText shortens s to at most max runes, ending in "...".
func TruncateText(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// IsScriptURL reports whether s is a javascript: URL. Leading spaces and
// control characters, and tabs or newlines inside the scheme, are ignored
// the way browsers ignore them.
func IsScriptURL(s string) bool {
	s = strings.TrimLeftFunc(s, func(r rune) bool { return r <= ' ' })
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	return strings.HasPrefix(strings.ToLower(s), "javascript:")
}

// IsValidURL reports whether s parses as an absolute URL with a host.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
