package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// logfireArrayAttrs are the JSON-array attributes Logfire stores message
// history under (spec §4.4 "Logfire events" row).
var logfireArrayAttrs = []string{"events", "all_messages_events", "prompt"}

// extractLogfireEvents handles Logfire's event-array convention. Each
// array entry keeps its own event name and no role is set here; the
// ingest package derives the role from that name before the span is
// stored.
func extractLogfireEvents(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	var messages []RawMessage
	for _, key := range logfireArrayAttrs {
		raw, ok := attrStr(attrs, key)
		if !ok {
			continue
		}
		parsed, ok := parseJSONValue(raw)
		if !ok {
			continue
		}
		list, ok := asSlice(parsed)
		if !ok {
			continue
		}
		for _, item := range list {
			name := ""
			if m, ok := asMap(item); ok {
				name = mapString(m, "event")
				if name == "" {
					name = mapString(m, "name")
				}
			}
			messages = append(messages, RawMessage{Source: MessageSource{Kind: "event", EventName: name}, Content: item})
		}
	}

	if len(messages) == 0 {
		return nil, nil, false
	}
	return messages, nil, true
}
