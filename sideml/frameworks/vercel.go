package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractVercelAI handles Vercel AI SDK spans (spec §4.4 Vercel AI row).
// The AI SDK's own "text" field is normalized to SideML's "content" key so
// downstream C2/C3 see the same shape it expects from every other
// convention.
func extractVercelAI(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !hasAnyKey(attrs, "ai.prompt.messages", "ai.response.text", "ai.response.toolCalls", "ai.result.text", "ai.result.toolCalls") {
		return nil, nil, false
	}

	var messages []RawMessage
	if raw, ok := attrStr(attrs, "ai.prompt.messages"); ok {
		if parsed, ok := parseJSONValue(raw); ok {
			if list, ok := asSlice(parsed); ok {
				for _, item := range list {
					role := "user"
					if m, ok := asMap(item); ok {
						if r := mapString(m, "role"); r != "" {
							role = r
						}
					}
					messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: role}, item))
				}
			}
		}
	}

	assistantContent := vercelAssistantContent(attrs, "ai.response.text", "ai.response.toolCalls")
	if assistantContent == nil {
		assistantContent = vercelAssistantContent(attrs, "ai.result.text", "ai.result.toolCalls")
	}
	if assistantContent != nil {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, assistantContent))
	}

	var tools []sideml.ToolDefinition
	if raw, ok := attrStr(attrs, "ai.prompt.tools"); ok {
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

// vercelAssistantContent renames the SDK's "text" field to "content" (spec
// §4.4: "normalizes text→content for SideML compatibility") and folds in
// any tool calls found under the matching toolCalls attribute.
func vercelAssistantContent(attrs map[string]any, textKey, toolCallsKey string) map[string]any {
	text, hasText := attrStr(attrs, textKey)
	toolCallsRaw, hasToolCalls := attrStr(attrs, toolCallsKey)
	if !hasText && !hasToolCalls {
		return nil
	}

	out := map[string]any{}
	if hasText {
		out["content"] = text
	}
	if hasToolCalls {
		if parsed, ok := parseJSONValue(toolCallsRaw); ok {
			out["tool_calls"] = parsed
		}
	}
	return out
}
