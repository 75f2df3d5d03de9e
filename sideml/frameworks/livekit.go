package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractLiveKit handles LiveKit voice-agent spans (spec §4.4 LiveKit row).
func extractLiveKit(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !anyPrefixed(attrs, "lk.") {
		return nil, nil, false
	}

	var messages []RawMessage
	if text, ok := attrStr(attrs, "lk.input_text"); ok {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "user"}, text))
	}
	if text, ok := attrStr(attrs, "lk.response.text"); ok {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, text))
	}
	if raw, ok := attrStr(attrs, "lk.response.function_calls"); ok {
		if parsed, ok := parseJSONValue(raw); ok {
			messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, parsed))
		}
	}

	if hasAnyKey(attrs, "lk.function_tool.name", "lk.function_tool.output") {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "tool"}, map[string]any{
			"name":      attrs["lk.function_tool.name"],
			"id":        attrs["lk.function_tool.id"],
			"arguments": attrs["lk.function_tool.arguments"],
			"output":    attrs["lk.function_tool.output"],
			"is_error":  attrs["lk.function_tool.is_error"],
		}))
	}

	var tools []sideml.ToolDefinition
	if raw, ok := attrStr(attrs, "lk.function_tools"); ok {
		if parsed, ok := parseJSONValue(raw); ok {
			if list, ok := asSlice(parsed); ok {
				for _, item := range list {
					m, ok := asMap(item)
					if !ok {
						continue
					}
					name := mapString(m, "name")
					if name == "" {
						continue
					}
					tools = append(tools, sideml.ToolDefinition{
						Type: "function",
						Function: sideml.ToolFunctionSchema{
							Name:        name,
							Description: mapString(m, "description"),
							Parameters:  m["parameters"],
						},
					})
				}
			}
		}
	}

	if len(messages) == 0 && len(tools) == 0 {
		return nil, nil, false
	}
	return messages, tools, true
}
