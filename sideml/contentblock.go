package sideml

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/sideseat/sideseat/fileuri"
)

// providerContentFields gates the conservative branch of the unknown
// fallback (spec §4.2 step 9): an object carrying one of these keys looks
// like a provider content block that simply didn't match any handler, so
// it is kept as unknown{raw} rather than reinterpreted as opaque json.
var providerContentFields = map[string]bool{
	"source": true, "media_type": true, "mime_type": true, "mimeType": true,
	"image_url": true, "input_image": true, "input_audio": true, "input_file": true,
	"tool_use_id": true, "toolCallId": true, "is_error": true, "isError": true,
	"reasoningContent": true, "reasoning_content": true, "redactedContent": true,
	"toolUse": true, "toolResult": true, "functionCall": true, "function_call": true,
	"functionResponse": true, "function_response": true, "inline_data": true, "file_data": true,
	"signature": true, "data": true,
}

// NormalizeContent maps a raw JSON "content" value into an ordered list of
// canonical ContentBlocks (spec §4.2 contract).
func NormalizeContent(raw any) []Block {
	switch v := raw.(type) {
	case nil:
		return []Block{}
	case string:
		return normalizeStringContent(v)
	case []any:
		return normalizeArrayContent(v)
	case map[string]any:
		return []Block{normalizeBlock(v)}
	default:
		return []Block{{"type": "unknown", "raw": v}}
	}
}

func normalizeStringContent(s string) []Block {
	if s == "" {
		return []Block{}
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			switch parsed.(type) {
			case map[string]any, []any:
				return NormalizeContent(parsed)
			}
		}
		if v, ok := parsePythonRepr(s); ok {
			switch v.(type) {
			case map[string]any, []any:
				return NormalizeContent(v)
			}
		}
	}
	return []Block{{"type": "text", "text": s}}
}

func normalizeArrayContent(arr []any) []Block {
	filtered := filterSparsePlaceholders(arr)
	out := make([]Block, 0, len(filtered))
	for _, item := range filtered {
		out = append(out, normalizeBlock(item))
	}
	return out
}

// filterSparsePlaceholders drops empty-object gaps left by OTLP's unflatten
// step, but ONLY when the array mixes placeholders with real elements — an
// array of nothing but `{}` is meaningful structured output and must survive
// (spec §4.2 step 2).
func filterSparsePlaceholders(arr []any) []any {
	hasPlaceholder := false
	hasReal := false
	for _, item := range arr {
		if isSparsePlaceholder(item) {
			hasPlaceholder = true
		} else {
			hasReal = true
		}
	}
	if !hasPlaceholder || !hasReal {
		return arr
	}
	out := make([]any, 0, len(arr))
	for _, item := range arr {
		if !isSparsePlaceholder(item) {
			out = append(out, item)
		}
	}
	return out
}

func isSparsePlaceholder(v any) bool {
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

// normalizeBlock runs the fixed-order dispatch chain (spec §4.2 "Block
// dispatch order") against a single content element and always returns a
// block — the chain bottoms out at the unknown fallback.
func normalizeBlock(v any) Block {
	switch val := v.(type) {
	case map[string]any:
		if b, ok := trySideMLPassthrough(val); ok {
			return b
		}
		if b, ok := tryWrapperUnwrap(val); ok {
			return b
		}
		if b, ok := tryOpenAIFormat(val); ok {
			return b
		}
		if b, ok := tryAnthropicFormat(val); ok {
			return b
		}
		if b, ok := tryBedrockFormat(val); ok {
			return b
		}
		if b, ok := tryGeminiFormat(val); ok {
			return b
		}
		if b, ok := tryVercelFormat(val); ok {
			return b
		}
		if b, ok := tryMediaFallback(val); ok {
			return b
		}
		return unknownFallback(val)
	default:
		return Block{"type": "unknown", "raw": v}
	}
}

func str(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asBool(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// 1. SideML passthrough: already-canonical blocks pass through only when
// structurally consistent with their own tag, so a malformed block with
// a recognized type name still falls through to the remaining handlers
// (and ultimately unknown{raw}) rather than being accepted half-formed.
func trySideMLPassthrough(m map[string]any) (Block, bool) {
	t, ok := str(m, "type")
	if !ok {
		return nil, false
	}
	switch t {
	case "text":
		if _, ok := str(m, "text"); ok {
			return Block{"type": "text", "text": m["text"]}, true
		}
	case "image", "audio", "video", "document", "file":
		if _, hasSource := m["source"]; hasSource {
			if _, hasData := m["data"]; hasData {
				return cloneBlock(m), true
			}
		}
	case "tool_use":
		if _, nameOK := str(m, "name"); nameOK {
			if _, hasInput := m["input"]; hasInput {
				return cloneBlock(m), true
			}
		}
	case "tool_result":
		_, hasToolUseID := m["tool_use_id"]
		_, hasContent := m["content"]
		if hasToolUseID || hasContent {
			b := cloneBlock(m)
			switch c := m["content"].(type) {
			case []any:
				b["content"] = normalizeArrayContent(c)
			case map[string]any:
				b["content"] = normalizeBlock(c)
			}
			return b, true
		}
	case "refusal":
		if _, ok := str(m, "message"); ok {
			return cloneBlock(m), true
		}
	case "json":
		if _, hasData := m["data"]; hasData {
			return cloneBlock(m), true
		}
	case "thinking":
		// A "thinking" sibling field would collide with Gemini's bare
		// {thinking:<string>} shape (step 6) — require its absence so the
		// two don't both claim a block with type:"thinking".
		if _, ok := str(m, "text"); ok {
			if _, hasThinkingField := m["thinking"]; !hasThinkingField {
				return cloneBlock(m), true
			}
		}
	case "redacted_thinking":
		if _, hasData := m["data"]; hasData {
			return cloneBlock(m), true
		}
	case "unknown":
		if _, hasRaw := m["raw"]; hasRaw {
			return cloneBlock(m), true
		}
	case "context", "tool_definitions":
		return cloneBlock(m), true
	}
	return nil, false
}

func cloneBlock(m map[string]any) Block {
	out := make(Block, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// 2. OpenInference/LangChain wrappers. Only unwraps when the wrapped value
// is itself a nested block shape (object/array) — a bare string under
// "value" is Vercel's {type:"text", value:<string>} block (step 7), not a
// wrapper, so it must fall through instead of being swallowed here.
func tryWrapperUnwrap(m map[string]any) (Block, bool) {
	for _, key := range []string{"message_content", "value", "kwargs"} {
		if inner, ok := m[key]; ok && len(m) <= 2 {
			switch inner.(type) {
			case map[string]any, []any:
				return normalizeBlock(inner), true
			}
		}
	}
	if rc, ok := str(m, "reasoning_content"); ok {
		return Block{"type": "thinking", "text": rc}, true
	}
	return nil, false
}

// 3. OpenAI family.
func tryOpenAIFormat(m map[string]any) (Block, bool) {
	t, _ := str(m, "type")
	switch t {
	case "text", "input_text", "output_text":
		if text, ok := str(m, "text"); ok {
			return Block{"type": "text", "text": text}, true
		}
	case "image_url", "input_image":
		url, source := extractOpenAIImageURL(m)
		if url == "" {
			return nil, false
		}
		block := Block{"type": "image", "source": source, "data": url}
		if detail, ok := m["detail"]; ok {
			block["detail"] = detail
		}
		return block, true
	case "input_audio", "audio":
		audio, ok := asMap(m["input_audio"])
		if !ok {
			audio, ok = asMap(m["audio"])
		}
		if !ok {
			return nil, false
		}
		data, _ := str(audio, "data")
		return Block{"type": "audio", "source": "base64", "data": data, "media_type": audio["format"]}, true
	case "input_file":
		return buildOpenAIFileBlock(m)
	case "refusal":
		if msg, ok := str(m, "refusal"); ok {
			return Block{"type": "refusal", "message": msg}, true
		}
	case "output_json", "json_object":
		if data, ok := m["json"]; ok {
			return Block{"type": "json", "data": data}, true
		}
		return Block{"type": "json", "data": m}, true
	case "thinking":
		if text, ok := str(m, "thinking"); ok {
			return Block{"type": "thinking", "text": text}, true
		}
	case "redacted_thinking":
		if data, ok := m["data"]; ok {
			return Block{"type": "redacted_thinking", "data": data}, true
		}
	}
	return nil, false
}

func extractOpenAIImageURL(m map[string]any) (string, string) {
	if inner, ok := asMap(m["image_url"]); ok {
		if url, ok := str(inner, "url"); ok {
			return url, classifyImageSource(url)
		}
	}
	if url, ok := str(m, "image_url"); ok {
		return url, classifyImageSource(url)
	}
	return "", ""
}

func classifyImageSource(url string) string {
	if fileuri.Is(url) || strings.HasPrefix(url, "data:") {
		return "base64"
	}
	return "url"
}

func buildOpenAIFileBlock(m map[string]any) (Block, bool) {
	if data, ok := str(m, "file_data"); ok {
		return Block{"type": "file", "source": "base64", "data": data, "name": m["filename"]}, true
	}
	if url, ok := str(m, "file_url"); ok {
		return Block{"type": "file", "source": "url", "data": url, "name": m["filename"]}, true
	}
	if id, ok := str(m, "file_id"); ok {
		return Block{"type": "file", "source": "file", "data": id, "name": m["filename"]}, true
	}
	return nil, false
}

// 4. Anthropic.
func tryAnthropicFormat(m map[string]any) (Block, bool) {
	t, _ := str(m, "type")
	switch t {
	case "image", "document":
		source, ok := asMap(m["source"])
		if !ok {
			return nil, false
		}
		srcType, _ := str(source, "type")
		data, _ := str(source, "data")
		if data == "" {
			data, _ = str(source, "url")
		}
		return Block{
			"type": t, "source": srcType, "data": data,
			"media_type": source["media_type"], "name": m["name"],
		}, true
	case "tool_use":
		name, nameOK := str(m, "name")
		if !nameOK {
			return nil, false
		}
		return Block{"type": "tool_use", "id": m["id"], "name": name, "input": m["input"]}, true
	case "tool_result":
		toolUseID, _ := str(m, "tool_use_id")
		content := m["content"]
		switch c := content.(type) {
		case []any:
			content = normalizeArrayContent(c)
		case map[string]any:
			content = normalizeBlock(c)
		}
		return Block{
			"type": "tool_result", "tool_use_id": toolUseID,
			"content": content, "is_error": asBool(m["is_error"], false),
		}, true
	}
	return nil, false
}

// 5. Bedrock/Strands. STRICT single-key {text} guards against colliding
// with the SideML passthrough or OpenAI shapes that carry additional keys.
func tryBedrockFormat(m map[string]any) (Block, bool) {
	if len(m) == 1 {
		if text, ok := str(m, "text"); ok {
			return Block{"type": "text", "text": text}, true
		}
	}
	if rc, ok := asMap(m["reasoningContent"]); ok {
		if rt, ok := asMap(rc["reasoningText"]); ok {
			text, _ := str(rt, "text")
			return Block{"type": "thinking", "text": text, "signature": rt["signature"]}, true
		}
		if redacted, ok := rc["redactedContent"]; ok {
			return Block{"type": "redacted_thinking", "data": redacted}, true
		}
	}
	for _, kind := range []string{"image", "document", "video"} {
		if inner, ok := asMap(m[kind]); ok {
			if source, ok := asMap(inner["source"]); ok {
				if bytes, hasBytes := source["bytes"]; hasBytes {
					return Block{"type": kind, "source": "base64", "data": bytes, "media_type": inner["format"]}, true
				}
			}
		}
	}
	if tu, ok := asMap(m["toolUse"]); ok {
		name, _ := str(tu, "name")
		return Block{"type": "tool_use", "id": tu["toolUseId"], "name": name, "input": tu["input"]}, true
	}
	if tr, ok := asMap(m["toolResult"]); ok {
		content := tr["content"]
		if arr, ok := content.([]any); ok {
			content = normalizeArrayContent(arr)
		}
		status, _ := str(tr, "status")
		return Block{
			"type": "tool_result", "tool_use_id": tr["toolUseId"],
			"content": content, "is_error": status == "error",
		}, true
	}
	return nil, false
}

// 6. Gemini.
func tryGeminiFormat(m map[string]any) (Block, bool) {
	if len(m) == 1 {
		if text, ok := str(m, "thinking"); ok {
			return Block{"type": "thinking", "text": text}, true
		}
	}
	if text, ok := str(m, "text"); ok && asBool(m["thought"], false) {
		return Block{"type": "thinking", "text": text}, true
	}
	if inline, ok := asMap(m["inline_data"]); ok {
		mimeType, _ := str(inline, "mime_type")
		return Block{"type": classifyGeminiMedia(mimeType), "source": "base64", "data": inline["data"], "media_type": mimeType}, true
	}
	if fd, ok := asMap(m["file_data"]); ok {
		mimeType, _ := str(fd, "mime_type")
		return Block{"type": classifyGeminiMedia(mimeType), "source": "url", "data": fd["file_uri"], "media_type": mimeType}, true
	}
	for _, key := range []string{"functionCall", "function_call"} {
		if fc, ok := asMap(m[key]); ok {
			name, _ := str(fc, "name")
			args := fc["args"]
			id, hasID := str(fc, "id")
			if !hasID || id == "" {
				id = fmt.Sprintf("gemini_%s_call_%s", name, fnv1aHex(args))
			}
			return Block{"type": "tool_use", "id": id, "name": name, "input": args}, true
		}
	}
	for _, key := range []string{"functionResponse", "function_response"} {
		if fr, ok := asMap(m[key]); ok {
			name, _ := str(fr, "name")
			response := fr["response"]
			id, hasID := str(fr, "id")
			if !hasID || id == "" {
				id = fmt.Sprintf("gemini_%s_result_%s", name, fnv1aHex(response))
			}
			return Block{"type": "tool_result", "tool_use_id": id, "content": response, "is_error": false}, true
		}
	}
	return nil, false
}

func classifyGeminiMedia(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return "file"
	}
}

// fnv1aHex hashes a canonical JSON encoding of v with FNV-1a, for Gemini's
// deterministic synthetic tool-call/result ids (spec §4.2 step 6) — Gemini
// function calls carry no id of their own, so the driver needs a stable
// synthetic one to correlate tool_use/tool_result pairs across normalizes.
func fnv1aHex(v any) string {
	h := fnv.New64a()
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte(fmt.Sprintf("%v", v))
	}
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum64())
}

// 7. Vercel AI.
func tryVercelFormat(m map[string]any) (Block, bool) {
	t, _ := str(m, "type")
	switch t {
	case "tool-call":
		name, _ := str(m, "toolName")
		input := firstPresent(m, "args", "input")
		id := m["toolCallId"]
		return Block{"type": "tool_use", "id": id, "name": name, "input": input}, true
	case "tool-result":
		result := firstPresent(m, "result", "output")
		isErr := m["isError"]
		if isErr == nil {
			isErr = m["is_error"]
		}
		return Block{"type": "tool_result", "tool_use_id": m["toolCallId"], "content": result, "is_error": asBool(isErr, false)}, true
	case "json":
		if data, ok := m["value"]; ok {
			return Block{"type": "json", "data": data}, true
		}
	case "text":
		if text, ok := str(m, "value"); ok {
			return Block{"type": "text", "text": text}, true
		}
	case "file":
		mediaType := firstPresent(m, "mediaType", "mimeType")
		if data, ok := m["data"]; ok {
			return Block{"type": "file", "source": "base64", "data": data, "media_type": mediaType}, true
		}
	}
	if content, ok := m["content"]; ok {
		if role, ok := str(m, "role"); ok && role == "assistant" {
			if _, hasFinish := m["finishReason"]; hasFinish {
				return normalizeBlock(content), true
			}
		}
	}
	return nil, false
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// 8. Media fallback.
func tryMediaFallback(m map[string]any) (Block, bool) {
	if mimeType, ok := str(m, "mime_type"); ok {
		if data, ok := m["data"]; ok {
			return Block{"type": classifyGeminiMedia(mimeType), "source": "base64", "data": data, "media_type": mimeType}, true
		}
	}
	if len(m) == 1 {
		if data, ok := str(m, "data"); ok && fileuri.Is(data) {
			if uri, ok := fileuri.Parse(data); ok {
				return Block{"type": classifyGeminiMedia(uri.MediaType), "source": "file", "data": data, "media_type": uri.MediaType}, true
			}
		}
	}
	if t, ok := str(m, "type"); ok && t == "image" {
		if inner, ok := asMap(m["image"]); ok {
			if v := firstPresent(inner, "url", "data"); v != nil {
				src := "url"
				if _, hasData := inner["data"]; hasData {
					src = "base64"
				}
				return Block{"type": "image", "source": src, "data": v}, true
			}
			if nested, ok := asMap(inner["image"]); ok {
				if v := firstPresent(nested, "url", "data"); v != nil {
					src := "url"
					if _, hasData := nested["data"]; hasData {
						src = "base64"
					}
					return Block{"type": "image", "source": src, "data": v}, true
				}
			}
		}
	}
	return nil, false
}

// 9. Unknown fallback.
func unknownFallback(m map[string]any) Block {
	if _, hasType := str(m, "type"); hasType {
		return Block{"type": "unknown", "raw": m}
	}
	for field := range m {
		if providerContentFields[field] {
			return Block{"type": "unknown", "raw": m}
		}
	}
	return Block{"type": "json", "data": m}
}
