package frameworks

import (
	"strconv"
	"strings"
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// openInferencePrefixes are the attribute-presence gates for the
// OpenInference convention (spec §4.4 OpenInference row): dotted, flat,
// indexed keys rather than nested JSON.
var openInferencePrefixes = []string{
	"llm.input_messages.", "llm.output_messages.", "llm.invocation_parameters",
	"llm.tools", "retrieval.documents.", "reranker.", "embedding.",
}

// extractOpenInference handles the OpenInference semantic convention.
// Messages arrive as flattened dotted keys (llm.input_messages.0.message.role,
// llm.input_messages.0.message.content, ...); this handler groups by index
// and hands the sub-map of flattened keys straight through as
// RawMessage.Content — unflattening is deferred to C2/C3 (spec §4.4:
// "preserves flattened keys for later unflatten").
func extractOpenInference(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	triggered := false
	for _, p := range openInferencePrefixes {
		if anyPrefixed(attrs, p) {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil, nil, false
	}

	var messages []RawMessage
	messages = append(messages, openInferenceIndexedMessages(attrs, "llm.input_messages.", "user")...)
	messages = append(messages, openInferenceIndexedMessages(attrs, "llm.output_messages.", "assistant")...)

	if ctx := openInferenceFlatContext(attrs, "retrieval.documents."); ctx != nil {
		messages = append(messages, RawMessage{Source: MessageSource{Kind: "attribute", Role: "context"}, Content: map[string]any{"type": "context", "subtype": "retrieval", "content": ctx}})
	}
	if ctx := openInferenceFlatContext(attrs, "reranker."); ctx != nil {
		messages = append(messages, RawMessage{Source: MessageSource{Kind: "attribute", Role: "context"}, Content: map[string]any{"type": "context", "subtype": "reranker", "content": ctx}})
	}
	if ctx := openInferenceFlatContext(attrs, "embedding."); ctx != nil {
		messages = append(messages, RawMessage{Source: MessageSource{Kind: "attribute", Role: "context"}, Content: map[string]any{"type": "context", "subtype": "embedding", "content": ctx}})
	}

	var tools []sideml.ToolDefinition
	if raw, ok := attrStr(attrs, "llm.tools"); ok {
		if parsed, ok := parseJSONValue(raw); ok {
			if list, ok := asSlice(parsed); ok {
				for _, item := range list {
					m, ok := asMap(item)
					if !ok {
						continue
					}
					fn, ok := asMap(m["function"])
					if !ok {
						fn = m
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

// openInferenceIndexedMessages groups flattened "<prefix><n>.<rest>" keys
// by index n, preserving each sub-key verbatim (no unflatten at C4 time).
func openInferenceIndexedMessages(attrs map[string]any, prefix, defaultRole string) []RawMessage {
	byIndex := map[int]map[string]any{}
	for k, v := range attrs {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		dot := strings.IndexByte(rest, '.')
		if dot < 0 {
			continue
		}
		idx, err := strconv.Atoi(rest[:dot])
		if err != nil {
			continue
		}
		sub := rest[dot+1:]
		if byIndex[idx] == nil {
			byIndex[idx] = map[string]any{}
		}
		byIndex[idx][sub] = v
	}
	if len(byIndex) == 0 {
		return nil
	}

	indices := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sortInts(indices)

	out := make([]RawMessage, 0, len(indices))
	for _, idx := range indices {
		flat := byIndex[idx]
		role := defaultRole
		if r, ok := asString(flat["message.role"]); ok && r != "" {
			role = r
		}
		out = append(out, attrEvent(MessageSource{Kind: "attribute", Role: role}, flat))
	}
	return out
}

func openInferenceFlatContext(attrs map[string]any, prefix string) map[string]any {
	out := map[string]any{}
	for k, v := range attrs {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
