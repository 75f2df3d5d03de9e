package ingest

import (
	"strings"

	"github.com/sideseat/sideseat/sideml"
	"github.com/sideseat/sideseat/sideml/frameworks"
)

// eventRoles maps known event-sourced MessageSource.EventName values to a
// role, for conventions (Strands, Logfire) that defer role assignment to
// ingest time rather than baking one in at C4 (spec §4.4 "Role is not set
// at extraction time for event-sourced messages").
var eventRoles = map[string]string{
	"gen_ai.user.message":                       "user",
	"gen_ai.assistant.message":                   "assistant",
	"gen_ai.tool.message":                        "tool",
	"gen_ai.tool.result":                         "tool",
	"gen_ai.choice":                              "assistant",
	"gen_ai.client.inference.operation.details":  "system",
}

// roleFromEvent derives a role for an event-sourced RawMessage. Known
// event names map directly; anything unrecognized falls back to a
// substring heuristic over the event name, and failing that, "assistant"
// — an event reaching this point already carries conversational content,
// so treating it as assistant output is the least-surprising default.
func roleFromEvent(name string) string {
	if role, ok := eventRoles[name]; ok {
		return role
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "user"):
		return "user"
	case strings.Contains(lower, "system"):
		return "system"
	case strings.Contains(lower, "tool"):
		return "tool"
	case strings.Contains(lower, "assistant"), strings.Contains(lower, "choice"):
		return "assistant"
	default:
		return "assistant"
	}
}

// toMessageMap reconciles one frameworks.RawMessage into the map shape
// sideml.NormalizeMessage expects. Handlers emit Content in two shapes:
// a bare value needing a role wrapped around it (a plain string, an array,
// or a convention's native JSON like Google ADK's llm_request), or a map
// that is already message-shaped with its own "content" key (LangGraph's
// unwrapped LangChain kwargs, Vercel's renamed text->content, a Strands
// event's raw Attrs). The bare case always gets wrapped; the already-
// shaped case is merged so any role the source itself carried is kept,
// falling back to the derived role only when the source didn't set one.
func toMessageMap(rm frameworks.RawMessage) map[string]any {
	role := rm.Source.Role
	if rm.Source.Kind == "event" {
		role = roleFromEvent(rm.Source.EventName)
	}

	if m, ok := rm.Content.(map[string]any); ok {
		if _, hasContent := m["content"]; hasContent {
			merged := make(map[string]any, len(m)+1)
			for k, v := range m {
				merged[k] = v
			}
			if _, hasRole := merged["role"]; !hasRole {
				merged["role"] = role
			}
			return merged
		}
	}
	return map[string]any{"role": role, "content": rm.Content}
}

// previewFromMessages derives the trace-list preview strings (spec §3.1
// input_preview/output_preview): the first text block of the first user
// message, and the first text block of the last assistant message.
func previewFromMessages(messages []sideml.Message) (input string, output string) {
	for _, m := range messages {
		if m.Role == sideml.RoleUser {
			if text := firstText(m.Content); text != "" {
				input = text
				break
			}
		}
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == sideml.RoleAssistant {
			if text := firstText(messages[i].Content); text != "" {
				output = text
				break
			}
		}
	}
	return truncatePreview(input), truncatePreview(output)
}

func firstText(blocks []sideml.Block) string {
	for _, b := range blocks {
		if b["type"] == "text" {
			if s, ok := b["text"].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

const previewMaxLen = 500

func truncatePreview(s string) string {
	if len(s) <= previewMaxLen {
		return s
	}
	return s[:previewMaxLen] + "..."
}
