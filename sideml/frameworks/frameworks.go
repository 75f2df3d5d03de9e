// Package frameworks implements C4, the per-convention raw-message
// extractors (spec §4.4): a fixed-order chain of handlers, each gated by
// convention-specific attribute presence, that pulls literal conversation
// content and tool definitions out of a span's attributes/events before
// C2/C3 normalize them into SideML.
package frameworks

import (
	"time"

	"github.com/sideseat/sideseat/sideml"
)

// Event is one span event: a named, timestamped attribute bag. Several
// conventions (Strands, Logfire) source messages from events rather than
// span-level attributes.
type Event struct {
	Name  string
	Attrs map[string]any
	Time  time.Time
}

// MessageSource records where a RawMessage came from. Attribute-sourced
// messages carry a role directly; event-sourced messages carry only the
// event name and no role here. The ingest package derives their role from
// the event name (roleFromEvent) before the span is stored; the event name
// is not kept on the stored message.
type MessageSource struct {
	Kind      string // "attribute" | "event"
	Role      string // set only when Kind == "attribute"
	EventName string // set only when Kind == "event"
}

// RawMessage is one message as a handler extracted it: the literal
// attribute/event value, not yet run through C2/C3 normalization.
type RawMessage struct {
	Source  MessageSource
	Content any
}

// ExtractFunc is the per-convention handler contract (spec §4.4): read
// attrs/events/span_name/ts, return the messages and tool definitions it
// claims, or found=false to let the next handler in the chain try.
type ExtractFunc func(attrs map[string]any, events []Event, spanName string, ts time.Time) (messages []RawMessage, tools []sideml.ToolDefinition, found bool)

// chain is tried in this fixed order; the first handler whose detection
// gate matches wins (spec §4.4 table order). rawIO is the generic fallback,
// run only when nothing else claimed the span.
var chain = []ExtractFunc{
	extractAutoGen,
	extractCrewAI,
	extractGoogleADK,
	extractLangGraph,
	extractLangSmith,
	extractLiveKit,
	extractMLflow,
	extractOpenInference,
	extractOTELGenAI,
	extractGenAIIndexed,
	extractLogfireEvents,
	extractPydanticAI,
	extractStrands,
	extractTraceloop,
	extractVercelAI,
}

// Extract runs the C4 handler chain against one span, falling back to the
// raw input.value/output.value extractor when no convention-specific
// handler claims it.
func Extract(attrs map[string]any, events []Event, spanName string, ts time.Time) ([]RawMessage, []sideml.ToolDefinition, bool) {
	for _, h := range chain {
		if msgs, tools, ok := h(attrs, events, spanName, ts); ok {
			return msgs, tools, true
		}
	}
	return extractRawIO(attrs, events, spanName, ts)
}
