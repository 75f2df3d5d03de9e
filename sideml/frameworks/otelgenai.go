package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractOTELGenAI handles the OTEL GenAI semantic-convention standard
// (spec §4.4 "OTEL GenAI (standard)" row). Each attribute's array value is
// stored as ONE raw message at ingest. Nothing here or in the query
// package expands it into per-entry messages.
func extractOTELGenAI(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !hasAnyKey(attrs, "gen_ai.input.messages", "gen_ai.output.messages", "gen_ai.system_instructions",
		"gen_ai.tool.call.arguments", "gen_ai.tool.call.result", "pydantic_ai.all_messages") {
		return nil, nil, false
	}

	var messages []RawMessage
	addArrayAttr := func(key, role string) {
		raw, ok := attrStr(attrs, key)
		if !ok {
			return
		}
		content, ok := parseJSONValue(raw)
		if !ok {
			content = raw
		}
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: role}, content))
	}

	addArrayAttr("gen_ai.system_instructions", "system")
	addArrayAttr("gen_ai.input.messages", "user")
	addArrayAttr("gen_ai.output.messages", "assistant")
	addArrayAttr("pydantic_ai.all_messages", "assistant")

	if args, ok := attrStr(attrs, "gen_ai.tool.call.arguments"); ok {
		parsed, ok := parseJSONValue(args)
		if !ok {
			parsed = args
		}
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, map[string]any{"type": "tool_call", "arguments": parsed}))
	}
	if result, ok := attrStr(attrs, "gen_ai.tool.call.result"); ok {
		parsed, ok := parseJSONValue(result)
		if !ok {
			parsed = result
		}
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "tool"}, map[string]any{"type": "tool_result", "result": parsed}))
	}

	if len(messages) == 0 {
		return nil, nil, false
	}
	return messages, nil, true
}
