package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// autogenRoles maps AutoGen message/event "type" to a message role (spec
// §4.4 AutoGen row).
var autogenRoles = map[string]string{
	"TextMessage":                    "assistant",
	"AssistantMessage":               "assistant",
	"UserMessage":                    "user",
	"SystemMessage":                  "system",
	"FunctionExecutionResultMessage": "tool",
	"LLMCall":                        "assistant",
	"LLMStreamEnd":                   "assistant",
	"ToolCallRequestEvent":           "assistant",
	"ToolCall":                       "tool",
}

func extractAutoGen(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	raw, ok := attrStr(attrs, "message")
	if !ok {
		raw, ok = attrStr(attrs, "body")
	}
	if !ok {
		return nil, nil, false
	}
	parsed, ok := parseJSONValue(raw)
	if !ok {
		return nil, nil, false
	}
	m, ok := asMap(parsed)
	if !ok {
		return nil, nil, false
	}
	typ := mapString(m, "type")
	role, known := autogenRoles[typ]
	if !known {
		return nil, nil, false
	}

	content := m["content"]
	if thought := mapString(m, "thought"); thought != "" {
		content = []any{
			map[string]any{"type": "thinking", "text": thought},
			content,
		}
	}

	msg := RawMessage{
		Source:  MessageSource{Kind: "attribute", Role: role},
		Content: content,
	}
	return []RawMessage{msg}, nil, true
}
