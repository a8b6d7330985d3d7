package httpclient

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// RedactedValue replaces sensitive header values in log records.
const RedactedValue = "<redacted>"

// MaxBodySnippet caps non-JSON bodies, in characters, in logs and error payloads.
const MaxBodySnippet = 500

var sensitiveHeaders = map[string]struct{}{
	"AppApiToken":   {},
	"Cookie":        {},
	"Authorization": {},
}

// RedactHeaders returns a copy of headers with sensitive non-empty values replaced.
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if _, ok := sensitiveHeaders[k]; ok && v != "" {
			out[k] = RedactedValue
			continue
		}
		out[k] = v
	}
	return out
}

// DecodeBody returns the body decoded as JSON, or the trimmed text capped at
// MaxBodySnippet characters when it is not JSON.
func DecodeBody(body []byte) any {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		return decoded
	}
	return Snippet(body)
}

// Snippet trims body and caps it at MaxBodySnippet runes, never splitting one.
func Snippet(body []byte) string {
	cut, n := 0, 0
	for cut < len(body) && n < MaxBodySnippet {
		_, size := utf8.DecodeRune(body[cut:])
		cut += size
		n++
	}
	return strings.TrimSpace(string(body[:cut]))
}
