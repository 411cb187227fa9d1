package audit

import (
	"encoding/json"
	"strings"
)

const (
	// RedactionMarker replaces the value of any sensitive field in the
	// recorded request body.
	RedactionMarker = "[REDACTED]"

	maxBodyBytes = 8 << 10
)

var sensitiveFragments = []string{"password", "token", "secret"}

// RedactBody returns a JSON rendering of body with sensitive fields masked.
// Non-JSON or oversized bodies are not echoed into the trail at all.
func RedactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxBodyBytes {
		return `{"_omitted":"body too large"}`
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return `{"_omitted":"non-json body"}`
	}

	redacted, err := json.Marshal(redactValue(payload))
	if err != nil {
		return `{"_omitted":"unserializable body"}`
	}
	return string(redacted)
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if sensitiveKey(k) {
				out[k] = RedactionMarker
				continue
			}
			out[k] = redactValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner)
		}
		return out
	default:
		return v
	}
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
