package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractPydanticAI handles PydanticAI's tool-call attribute convention
// (spec §4.4 PydanticAI row). Broader message history on the same spans
// comes through gen_ai.input.messages/pydantic_ai.all_messages, handled by
// extractOTELGenAI — this handler only claims the tool-call-only shape.
func extractPydanticAI(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !hasAnyKey(attrs, "tool_arguments", "tool_response", "logfire_msg") {
		return nil, nil, false
	}

	var messages []RawMessage
	if raw, ok := attrStr(attrs, "tool_arguments"); ok {
		parsed, ok := parseJSONValue(raw)
		if !ok {
			parsed = raw
		}
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, map[string]any{"type": "tool_call", "arguments": parsed}))
	}
	if raw, ok := attrStr(attrs, "tool_response"); ok {
		parsed, ok := parseJSONValue(raw)
		if !ok {
			parsed = raw
		}
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "tool"}, map[string]any{"type": "tool_result", "result": parsed}))
	}
	if msg, ok := attrStr(attrs, "logfire_msg"); ok {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, msg))
	}

	if len(messages) == 0 {
		return nil, nil, false
	}
	return messages, nil, true
}
