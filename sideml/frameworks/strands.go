package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// strandsEventNames are the span-event names the Strands/Bedrock convention
// uses (spec §4.4 Strands row): message history rides on OTel span events,
// not attributes.
var strandsEventNames = map[string]bool{
	"gen_ai.user.message":                       true,
	"gen_ai.assistant.message":                  true,
	"gen_ai.tool.message":                       true,
	"gen_ai.choice":                             true,
	"gen_ai.client.inference.operation.details": true,
	"gen_ai.tool.result":                        true,
}

// extractStrands handles Strands/Bedrock event-sourced spans. The one
// documented quirk: a gen_ai.choice event carrying a tool.result attribute
// emits TWO raw messages — the assistant's tool_use choice itself, plus a
// separately synthesized gen_ai.tool.result event-source message. Without
// the synthesized second message, downstream history filtering that keys
// on event name would drop the tool result entirely (spec §4.4 note).
func extractStrands(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	var matched []Event
	for _, e := range events {
		if strandsEventNames[e.Name] {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return nil, nil, false
	}

	var messages []RawMessage
	for _, e := range matched {
		messages = append(messages, RawMessage{Source: MessageSource{Kind: "event", EventName: e.Name}, Content: e.Attrs})

		if e.Name == "gen_ai.choice" {
			if result, ok := e.Attrs["tool.result"]; ok {
				messages = append(messages, RawMessage{
					Source:  MessageSource{Kind: "event", EventName: "gen_ai.tool.result"},
					Content: map[string]any{"tool.result": result},
				})
			}
		}
	}

	return messages, nil, true
}
