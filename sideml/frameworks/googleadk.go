package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

const googleADKPrefix = "gcp.vertex.agent."

// extractGoogleADK handles Google ADK / Vertex AI agent spans (spec §4.4
// Google ADK row). llm_request/llm_response carry the conversation when
// present and non-empty; an empty `{}` llm_request means the span is a
// tool call/response instead, so the handler falls back to
// tool_call_args/tool_response. `data` (conversation history) gets wrapped
// per the one documented C4 exception to "no injected metadata keys".
func extractGoogleADK(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !anyPrefixed(attrs, googleADKPrefix) {
		return nil, nil, false
	}

	var messages []RawMessage
	var tools []sideml.ToolDefinition

	llmReqEmpty := true
	if req, ok := attrStr(attrs, googleADKPrefix+"llm_request"); ok {
		if parsed, ok := parseJSONValue(req); ok {
			if m, ok := asMap(parsed); !ok || len(m) > 0 {
				llmReqEmpty = false
				messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "user"}, parsed))
				if m, ok := asMap(parsed); ok {
					if instr := mapString(m, "system_instruction"); instr != "" {
						messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "system"}, instr))
					}
					if rawTools, ok := asSlice(m["tools"]); ok {
						tools = append(tools, googleADKToolDefs(rawTools)...)
					}
				}
			}
		}
	}
	if resp, ok := attrStr(attrs, googleADKPrefix+"llm_response"); ok {
		if parsed, ok := parseJSONValue(resp); ok {
			messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, parsed))
		}
	}

	if llmReqEmpty {
		if args, ok := attrStr(attrs, googleADKPrefix+"tool_call_args"); ok {
			if parsed, ok := parseJSONValue(args); ok {
				messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, parsed))
			}
		}
		if resp, ok := attrStr(attrs, googleADKPrefix+"tool_response"); ok {
			if parsed, ok := parseJSONValue(resp); ok {
				messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "tool"}, parsed))
			}
		}
	}

	if dataRaw, ok := attrStr(attrs, googleADKPrefix+"data"); ok {
		if parsed, ok := parseJSONValue(dataRaw); ok {
			if history, ok := asSlice(parsed); ok {
				messages = append(messages, RawMessage{
					Source: MessageSource{Kind: "attribute", Role: "data"},
					Content: map[string]any{
						"role":    "data",
						"type":    "conversation_history",
						"content": history,
					},
				})
			}
		}
	}

	if rawTools, ok := attrSlice(attrs, googleADKPrefix+"tools"); ok {
		tools = append(tools, googleADKToolDefs(rawTools)...)
	}

	if len(messages) == 0 && len(tools) == 0 {
		return nil, nil, false
	}
	return messages, tools, true
}

func googleADKToolDefs(raw []any) []sideml.ToolDefinition {
	var out []sideml.ToolDefinition
	for _, item := range raw {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		name := mapString(m, "name")
		if name == "" {
			continue
		}
		out = append(out, sideml.ToolDefinition{
			Type: "function",
			Function: sideml.ToolFunctionSchema{
				Name:        name,
				Description: mapString(m, "description"),
				Parameters:  m["parameters"],
			},
		})
	}
	return out
}
