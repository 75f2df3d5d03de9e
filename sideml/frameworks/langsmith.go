package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractLangSmith handles LangSmith-traced spans (spec §4.4 LangSmith
// row): gated by langsmith.* attributes, content rides on gen_ai.prompt
// (a message array) and gen_ai.completion (an OpenAI choices[] shape).
func extractLangSmith(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !anyPrefixed(attrs, "langsmith.") {
		return nil, nil, false
	}

	var messages []RawMessage
	if raw, ok := attrStr(attrs, "gen_ai.prompt"); ok {
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

	if raw, ok := attrStr(attrs, "gen_ai.completion"); ok {
		if parsed, ok := parseJSONValue(raw); ok {
			if m, ok := asMap(parsed); ok {
				if choices, ok := asSlice(m["choices"]); ok {
					for _, c := range choices {
						cm, ok := asMap(c)
						if !ok {
							continue
						}
						msg := cm["message"]
						role := "assistant"
						if mm, ok := asMap(msg); ok {
							if r := mapString(mm, "role"); r != "" {
								role = r
							}
						}
						messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: role}, msg))
					}
				}
			}
		}
	}

	if len(messages) == 0 {
		return nil, nil, false
	}
	return messages, nil, true
}
