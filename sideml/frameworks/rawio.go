package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractRawIO is the generic fallback (spec §4.4 "Raw I/O" row): wraps
// input.value/output.value as user/assistant when no convention-specific
// handler claimed the span. Always "found" once either attribute exists,
// since it's the end of the chain.
func extractRawIO(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	var messages []RawMessage
	if in, ok := attrStr(attrs, "input.value"); ok {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "user"}, in))
	}
	if out, ok := attrStr(attrs, "output.value"); ok {
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, out))
	}
	if len(messages) == 0 {
		return nil, nil, false
	}
	return messages, nil, true
}
