package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractCrewAI handles CrewAI's crew_* attribute convention (spec §4.4
// CrewAI row): conversation content rides on the same input.value/
// output.value attributes as the generic Raw I/O fallback, but tool
// descriptions arrive as Python str()-of-dict literals that need the
// Python-repr parser rather than plain JSON.
func extractCrewAI(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	if !anyPrefixed(attrs, "crew_") {
		return nil, nil, false
	}

	var messages []RawMessage
	if in, ok := attrStr(attrs, "input.value"); ok {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "user"}, in))
	}
	if out, ok := attrStr(attrs, "output.value"); ok {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, out))
	}

	var tools []sideml.ToolDefinition
	tools = append(tools, crewAIToolsFrom(attrs, "input.value.tools")...)
	tools = append(tools, crewAIToolsFrom(attrs, "agent.tools")...)
	tools = append(tools, crewAIToolsFrom(attrs, "task.tools")...)

	if len(messages) == 0 && len(tools) == 0 {
		return nil, nil, false
	}
	return messages, tools, true
}

// crewAIToolsFrom parses a CrewAI tool-list attribute, which is a Python
// str()-of-list-of-dicts describing each tool (name/description/args).
func crewAIToolsFrom(attrs map[string]any, key string) []sideml.ToolDefinition {
	raw, ok := attrStr(attrs, key)
	if !ok {
		return nil
	}
	parsed, ok := sideml.ParsePythonRepr(raw)
	if !ok {
		return nil
	}
	list, ok := asSlice(parsed)
	if !ok {
		return nil
	}

	var out []sideml.ToolDefinition
	for _, item := range list {
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
				Parameters:  m["args_schema"],
			},
			Source: sideml.ToolDefSourcePythonRepr,
		})
	}
	return out
}
