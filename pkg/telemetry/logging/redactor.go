package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization", "private_key",
}

var bearerPattern = regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`)

// IsSensitiveKey reports whether an attribute key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactValue masks a credential, keeping a four character prefix of longer
// values for debugging.
func RedactValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}

// RedactString masks bearer tokens embedded in free text.
func RedactString(s string) string {
	return bearerPattern.ReplaceAllString(s, "Bearer ***")
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		if IsSensitiveKey(a.Key) && a.Value.Kind() != slog.KindGroup {
			return slog.String(a.Key, "***")
		}
		return a
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactValue(a.Value.String()))
	}
	if s := a.Value.String(); strings.Contains(s, "Bearer") {
		return slog.String(a.Key, RedactString(s))
	}
	return a
}
