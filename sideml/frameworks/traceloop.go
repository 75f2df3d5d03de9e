package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// extractTraceloop handles Traceloop (OpenLLMetry) spans (spec §4.4
// Traceloop row).
func extractTraceloop(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	in, hasIn := attrStr(attrs, "traceloop.entity.input")
	out, hasOut := attrStr(attrs, "traceloop.entity.output")
	if !hasIn && !hasOut {
		return nil, nil, false
	}

	var messages []RawMessage
	if hasIn {
		content, ok := parseJSONValue(in)
		if !ok {
			content = in
		}
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "user"}, content))
	}
	if hasOut {
		content, ok := parseJSONValue(out)
		if !ok {
			content = out
		}
		messages = append(messages, attrEvent(MessageSource{Kind: "attribute", Role: "assistant"}, content))
	}
	return messages, nil, true
}
