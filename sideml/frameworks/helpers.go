package frameworks

import (
	"encoding/json"
	"strings"
)

func attrStr(attrs map[string]any, key string) (string, bool) {
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func attrSlice(attrs map[string]any, key string) ([]any, bool) {
	v, ok := attrs[key]
	if !ok {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

// anyPrefixed reports whether any attribute key carries the given prefix —
// the attribute-presence detection gate most C4 handlers use.
func anyPrefixed(attrs map[string]any, prefix string) bool {
	for k := range attrs {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

func hasAnyKey(attrs map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := attrs[k]; ok {
			return true
		}
	}
	return false
}

// parseJSONValue decodes a JSON-encoded attribute string. Many conventions
// store structured payloads (OTLP attribute values are scalar) as a JSON
// string; handlers that need the parsed shape call this first and fall
// back to treating the attribute as plain text on failure.
func parseJSONValue(raw string) (any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, false
	}
	return v, true
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func mapString(m map[string]any, key string) string {
	if s, ok := asString(m[key]); ok {
		return s
	}
	return ""
}

func attrEvent(source MessageSource, content any) RawMessage {
	return RawMessage{Source: source, Content: content}
}
