package frameworks

import (
	"strings"
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractLangGraph handles LangGraph spans (spec §4.4 LangGraph row):
// triggered either by langgraph.* attributes directly, or by a metadata
// blob containing langgraph_* keys (LangGraph stamps every node
// invocation with langgraph_node/langgraph_step/... in its run metadata).
func extractLangGraph(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	triggered := anyPrefixed(attrs, "langgraph.")
	if !triggered {
		if meta, ok := attrStr(attrs, "metadata"); ok && strings.Contains(meta, "langgraph_") {
			triggered = true
		}
	}
	if !triggered {
		return nil, nil, false
	}

	var messages []RawMessage
	messages = append(messages, langGraphMessagesFrom(attrs, "input.value", "user")...)
	messages = append(messages, langGraphMessagesFrom(attrs, "output.value", "assistant")...)

	if len(messages) == 0 {
		return nil, nil, false
	}
	return messages, nil, true
}

func langGraphMessagesFrom(attrs map[string]any, key, defaultRole string) []RawMessage {
	raw, ok := attrStr(attrs, key)
	if !ok {
		return nil
	}
	parsed, ok := parseJSONValue(raw)
	if !ok {
		return nil
	}
	m, ok := asMap(parsed)
	if !ok {
		return nil
	}
	list, ok := asSlice(m["messages"])
	if !ok {
		return nil
	}

	var out []RawMessage
	for _, item := range list {
		unwrapped := langChainUnwrapKwargs(item)
		role := defaultRole
		if im, ok := asMap(unwrapped); ok {
			if r := mapString(im, "role"); r != "" {
				role = r
			} else if t := mapString(im, "type"); t != "" {
				role = t
			}
		}
		out = append(out, attrEvent(MessageSource{Kind: "attribute", Role: role}, unwrapped))
	}
	return out
}

// langChainUnwrapKwargs unwraps a serialized LangChain object
// ({"lc":1,"type":"constructor","id":[...],"kwargs":{...}}) to its kwargs,
// the convention LangChain/LangGraph use to serialize message objects.
func langChainUnwrapKwargs(v any) any {
	m, ok := asMap(v)
	if !ok {
		return v
	}
	if _, isLC := m["lc"]; !isLC {
		return v
	}
	kwargs, ok := asMap(m["kwargs"])
	if !ok {
		return v
	}
	return kwargs
}
