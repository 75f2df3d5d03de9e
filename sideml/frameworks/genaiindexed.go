package frameworks

import (
	"strconv"
	"strings"
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractGenAIIndexed handles the "GenAI indexed" convention (spec §4.4
// row): gen_ai.prompt.N.role / gen_ai.completion.N.* flattened per-index
// attributes, distinct from the OTEL GenAI standard's whole-array-per-
// attribute shape. Content arrays nested under an index (e.g.
// gen_ai.prompt.0.content.0.type) are grouped the same way OpenInference's
// indexed messages are.
func extractGenAIIndexed(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	triggered := false
	for k := range attrs {
		if strings.HasPrefix(k, "gen_ai.prompt.") || strings.HasPrefix(k, "gen_ai.completion.") {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil, nil, false
	}

	var messages []RawMessage
	messages = append(messages, genAIIndexedMessages(attrs, "gen_ai.prompt.", "user")...)
	messages = append(messages, genAIIndexedMessages(attrs, "gen_ai.completion.", "assistant")...)

	if len(messages) == 0 {
		return nil, nil, false
	}
	return messages, nil, true
}

func genAIIndexedMessages(attrs map[string]any, prefix, defaultRole string) []RawMessage {
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
		if r, ok := asString(flat["role"]); ok && r != "" {
			role = r
		}
		out = append(out, attrEvent(MessageSource{Kind: "attribute", Role: role}, flat))
	}
	return out
}
