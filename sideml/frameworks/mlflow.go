package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractMLflow handles MLflow-traced spans (spec §4.4 MLflow row).
// Session/user attribution from mlflow.trace.{session,user} is C5's
// concern (genai.Extract), not C4's.
func extractMLflow(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !anyPrefixed(attrs, "mlflow.") {
		return nil, nil, false
	}

	var messages []RawMessage
	if in, ok := attrStr(attrs, "mlflow.spanInputs"); ok {
		if parsed, ok := parseJSONValue(in); ok {
			messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "user"}, parsed))
		} else {
			messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "user"}, in))
		}
	}
	if out, ok := attrStr(attrs, "mlflow.spanOutputs"); ok {
		if parsed, ok := parseJSONValue(out); ok {
			messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, parsed))
		} else {
			messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, out))
		}
	}

	var tools []sideml.ToolDefinition
	if raw, ok := attrStr(attrs, "mlflow.chat.tools"); ok {
		if parsed, ok := parseJSONValue(raw); ok {
			if list, ok := asSlice(parsed); ok {
				for _, item := range list {
					m, ok := asMap(item)
					if !ok {
						continue
					}
					fn, ok := asMap(m["function"])
					if !ok {
						continue
					}
					name := mapString(fn, "name")
					if name == "" {
						continue
					}
					tools = append(tools, sideml.ToolDefinition{
						Type: "function",
						Function: sideml.ToolFunctionSchema{
							Name:        name,
							Description: mapString(fn, "description"),
							Parameters:  fn["parameters"],
						},
						Source: sideml.ToolDefSourceOpenAISchema,
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
