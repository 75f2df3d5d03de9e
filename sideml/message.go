package sideml

import "strings"

// finishReasonKeys and toolUseIDKeys encode the raw-attribute alias
// priority orders from spec §4.3.
var finishReasonKeys = []string{"finish_reason", "finishReason"}
var toolUseIDKeys = []string{"tool_use_id", "tool_call_id", "id", "call_id"}

// NormalizeMessage runs C3 over one raw provider message object: it
// extracts the canonical top-level fields, normalizes content via C2,
// materializes tool-call arrays as tool_use blocks, and applies the
// tool-result role-rewriting rule.
func NormalizeMessage(raw map[string]any) Message {
	msg := Message{}

	rawRole, _ := str(raw, "role")
	msg.Role = NormalizeRole(rawRole)

	if name, ok := str(raw, "name"); ok {
		msg.Name = name
	}

	for _, key := range finishReasonKeys {
		if fr, ok := str(raw, key); ok {
			msg.FinishReason = string(NormalizeFinishReason(fr))
			break
		}
	}

	if idx, ok := raw["index"].(float64); ok {
		i := int(idx)
		msg.Index = &i
	}

	msg.ToolUseID = extractToolUseID(raw, msg.Role)

	if model, ok := str(raw, "model"); ok {
		msg.Model = model
	}

	if tc, ok := raw["tool_choice"]; ok {
		msg.ToolChoice = normalizeToolChoice(tc)
	}

	msg.ResponseFormat = extractResponseFormat(raw)

	if cc, ok := raw["cache_control"]; ok {
		msg.CacheControl = cc
	}

	if stop, ok := raw["stop"]; ok {
		msg.Stop = stop
	} else if stop, ok := raw["stop_sequences"]; ok {
		msg.Stop = stop
	}

	if parallel, ok := raw["parallel_tool_calls"].(bool); ok {
		msg.ParallelToolCalls = &parallel
	}

	if refusal, ok := str(raw, "refusal"); ok && refusal != "" {
		msg.Refusal = refusal
	}

	content := NormalizeContent(raw["content"])

	if calls, ok := raw["tool_calls"].([]any); ok {
		toolUseBlocks := make([]Block, 0, len(calls))
		for _, c := range calls {
			if cm, ok := asMap(c); ok {
				toolUseBlocks = append(toolUseBlocks, materializeToolCall(cm))
			}
		}
		msg.ToolCalls = toolUseBlocks
		content = append(content, toolUseBlocks...)
	}

	msg.Content = applyToolResultRewriting(msg.Role, content)

	return msg
}

func extractToolUseID(raw map[string]any, role Role) string {
	for _, key := range toolUseIDKeys {
		if key == "id" && role != RoleTool {
			continue
		}
		if v, ok := str(raw, key); ok && v != "" {
			return v
		}
	}
	return ""
}

func normalizeToolChoice(v any) any {
	switch tc := v.(type) {
	case string:
		switch tc {
		case "auto", "required", "none":
			return tc
		}
		return tc
	case map[string]any:
		if fn, ok := asMap(tc["function"]); ok {
			name, _ := str(fn, "name")
			return map[string]any{"type": "function", "function": map[string]any{"name": name}}
		}
		return tc
	default:
		return v
	}
}

func extractResponseFormat(raw map[string]any) string {
	rf, ok := raw["response_format"]
	if !ok {
		return ""
	}
	switch v := rf.(type) {
	case string:
		return v
	case map[string]any:
		if t, ok := str(v, "type"); ok {
			return t
		}
	}
	return ""
}

// materializeToolCall converts an OpenAI-style tool-call entry — either
// nested {function:{name,arguments}} or flat {name,arguments} — into a
// canonical tool_use content block.
func materializeToolCall(c map[string]any) Block {
	id := c["id"]
	if fn, ok := asMap(c["function"]); ok {
		name, _ := str(fn, "name")
		return Block{"type": "tool_use", "id": id, "name": name, "input": parseToolArguments(fn["arguments"])}
	}
	name, _ := str(c, "name")
	return Block{"type": "tool_use", "id": id, "name": name, "input": parseToolArguments(c["arguments"])}
}

// parseToolArguments accepts either an already-structured JSON value or a
// JSON/Python-repr-encoded string, matching the heterogeneous shapes
// providers emit for tool call arguments.
func parseToolArguments(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return v
	}
	if parsed, ok := parsePythonRepr(trimmed); ok {
		return parsed
	}
	return v
}

// applyToolResultRewriting implements spec §4.2's tool-result role
// rewriting rule. Triggering is role-based (tool messages only), never
// based on the presence of a tool_use_id, since assistant messages may
// legitimately carry one.
func applyToolResultRewriting(role Role, content []Block) []Block {
	if role != RoleTool {
		return content
	}
	if containsToolUse(content) {
		return content
	}

	var results []Block
	var siblings []Block
	for _, b := range content {
		if b["type"] == "tool_result" {
			results = append(results, b)
		} else {
			siblings = append(siblings, b)
		}
	}

	switch len(results) {
	case 0:
		return []Block{synthesizeToolResult(content)}
	case 1:
		if len(siblings) > 0 {
			merged := cloneBlock(results[0])
			var existing []any
			switch c := merged["content"].(type) {
			case []any:
				existing = append(existing, c...)
			case []Block:
				for _, cb := range c {
					existing = append(existing, cb)
				}
			case nil:
			default:
				existing = []any{c}
			}
			for _, s := range siblings {
				existing = append(existing, any(s))
			}
			merged["content"] = existing
			return []Block{merged}
		}
		return results
	default:
		return content
	}
}

func containsToolUse(content []Block) bool {
	for _, b := range content {
		if b["type"] == "tool_use" {
			return true
		}
	}
	return false
}

// synthesizeToolResult wraps an entire tool message's content into a single
// tool_result block when the provider emitted no explicit tool_result shape
// (spec §4.2): a lone text block collapses to a string, a lone json/unknown
// block collapses to its raw value, anything else stays an array.
func synthesizeToolResult(content []Block) Block {
	var inner any
	switch len(content) {
	case 0:
		inner = ""
	case 1:
		b := content[0]
		switch b["type"] {
		case "text":
			inner = b["text"]
		case "json":
			inner = b["data"]
		case "unknown":
			inner = b["raw"]
		default:
			inner = []any{b}
		}
	default:
		arr := make([]any, len(content))
		for i, b := range content {
			arr[i] = b
		}
		inner = arr
	}
	return Block{"type": "tool_result", "content": inner, "is_error": false}
}
