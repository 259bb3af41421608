package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (Salesforce access tokens). Tokens show up in
	// logs via downstream libraries and HTTP error messages.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Matches "Basic <credentials>" (the service-desk API uses basic auth).
	basicAuthRe = regexp.MustCompile(`(?i)\bBasic\s+[A-Za-z0-9+/=]+`)

	// Common key=value formats that sometimes leak in error strings.
	secretKVRe = regexp.MustCompile(`(?i)\b(api[_-]?token|client[_-]?secret|access[_-]?token)\b\s*[:=]\s*[^\s"'&]+`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log strings.
//
// This is intentionally conservative: it should be safe to call on any message,
// including upstream error strings and response snippets.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = basicAuthRe.ReplaceAllString(out, "Basic <redacted>")
	out = secretKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}
