// Package extract implements C1, the File Extractor: it scans a raw span's
// JSON attributes for base64-encoded binary payloads and replaces them with
// content-addressed file URIs (spec §4.1, §3.4).
package extract

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sideseat/sideseat/fileuri"
)

// extractableFields are leaf key names (last dotted segment) that may carry
// base64 payloads.
var extractableFields = map[string]bool{
	"data": true, "bytes": true, "base64": true, "b64": true,
	"url": true, "image_url": true, "image_data": true,
	"audio_data": true, "file_data": true,
}

// protectedFields are leaf key names that must never be treated as binary,
// even if their value happens to look like base64.
var protectedFields = map[string]bool{
	"text": true, "content": true, "message": true, "name": true,
	"description": true, "thinking": true, "reasoning": true,
	"title": true, "prompt": true, "system": true,
}

var placeholderTokens = map[string]bool{
	"<replaced>": true, "<binary>": true, "<truncated>": true, "<omitted>": true,
	"<redacted>": true, "<image>": true, "<audio>": true, "<video>": true, "<file>": true,
	"[binary]": true, "[replaced]": true, "[truncated]": true, "[omitted]": true,
	"[redacted]": true, "[image]": true, "[audio]": true, "[video]": true, "[file]": true,
	"...": true, "…": true,
}

// ExtractedFile is a file pulled out of a span, ready for the (external)
// content-addressed byte store.
type ExtractedFile struct {
	Hash      string
	Data      []byte
	MediaType string // "" when undetected
	Size      int
}

// Result is the outcome of extracting files from one document.
type Result struct {
	Files    []ExtractedFile
	Modified bool
}

// Limits bounds which decoded payload sizes qualify for extraction
// (spec §4.1 "Size policy"); sourced from internal/config in production.
type Limits struct {
	MinBytes int
	MaxBytes int
}

// DefaultLimits matches FILES_MIN=1024 and a generous upper bound.
var DefaultLimits = Limits{MinBytes: 1024, MaxBytes: 50 * 1024 * 1024}

// ExtractAndReplace scans doc (typically the result of json.Unmarshal into
// `any`) for qualifying base64 payloads and returns a new document with
// them replaced by file URIs, alongside the files found. It never mutates
// doc: a map or slice that holds a change is rebuilt as a new container,
// and unchanged ones are returned as they are.
func ExtractAndReplace(doc any, limits Limits) (any, Result) {
	res := &Result{}
	seen := map[string]bool{}
	out, modified := walk(doc, "", limits, res, seen)
	res.Modified = modified
	return out, *res
}

func leaf(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func walk(v any, parentKey string, limits Limits, res *Result, seen map[string]bool) (any, bool) {
	switch val := v.(type) {
	case string:
		return walkString(val, parentKey, limits, res, seen)
	case []any:
		modified := false
		out := make([]any, len(val))
		for i, item := range val {
			nv, m := walk(item, "", limits, res, seen)
			out[i] = nv
			modified = modified || m
		}
		if !modified {
			return val, false
		}
		return out, true
	case map[string]any:
		modified := false
		out := make(map[string]any, len(val))
		for k, item := range val {
			nv, m := walk(item, k, limits, res, seen)
			out[k] = nv
			modified = modified || m
		}
		if !modified {
			return val, false
		}
		return out, true
	default:
		return v, false
	}
}

func walkString(s string, parentKey string, limits Limits, res *Result, seen map[string]bool) (any, bool) {
	// Nested JSON is checked before the protected-field check: a protected
	// field may still carry a stringified JSON document whose own keys get
	// their own classification (spec §3 "File extraction nested-JSON-first
	// rule").
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		var nested any
		if err := json.Unmarshal([]byte(s), &nested); err == nil {
			newNested, modified := walk(nested, "", limits, res, seen)
			if modified {
				if b, err := json.Marshal(newNested); err == nil {
					return string(b), true
				}
			}
			return s, false
		}
	}

	if out, ok := extractEmbeddedDataURLs(s, limits, res, seen); ok {
		return out, true
	}

	if parentKey == "" {
		return s, false
	}
	lf := leaf(parentKey)
	if protectedFields[lf] {
		return s, false
	}
	if !extractableFields[lf] {
		return s, false
	}

	data, mediaType, ok := tryExtractBase64(s, limits)
	if !ok {
		return s, false
	}
	return replace(data, mediaType, res, seen), true
}

// tryExtractBase64 implements the detection pipeline of spec §4.1 steps 1-4
// for a standalone (non-embedded) string.
func tryExtractBase64(s string, limits Limits) (data []byte, mediaType string, ok bool) {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return nil, "", false
	}
	if fileuri.Is(s) {
		return nil, "", false
	}
	if isPlaceholder(s) {
		return nil, "", false
	}

	if strings.HasPrefix(s, "data:") {
		return parseDataURL(s, limits)
	}

	if len(s) < 1400 {
		return nil, "", false
	}
	if !isValidBase64Charset(s) {
		return nil, "", false
	}
	cleaned := stripWhitespace(s)
	decoded, ok := decodeBase64Flexible(cleaned)
	if !ok {
		return nil, "", false
	}
	if len(decoded) < limits.MinBytes || len(decoded) > limits.MaxBytes {
		return nil, "", false
	}
	return decoded, DetectMediaType(decoded), true
}

func isPlaceholder(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return true
	}
	if placeholderTokens[trimmed] {
		return true
	}
	if strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") && len(trimmed) < 50 {
		return true
	}
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") && len(trimmed) < 50 {
		return true
	}
	return false
}

// parseDataURL parses "data:[mediatype];base64,<payload>". Returns ok=false
// when the ";base64," marker is absent (e.g. percent-encoded text data).
func parseDataURL(url string, limits Limits) (data []byte, mediaType string, ok bool) {
	rest, found := strings.CutPrefix(url, "data:")
	if !found {
		return nil, "", false
	}
	marker := ";base64,"
	idx := strings.Index(rest, marker)
	if idx < 0 {
		return nil, "", false
	}
	mt := rest[:idx]
	payload := stripWhitespace(rest[idx+len(marker):])
	decoded, ok := decodeBase64Flexible(payload)
	if !ok {
		return nil, "", false
	}
	if len(decoded) < limits.MinBytes || len(decoded) > limits.MaxBytes {
		return nil, "", false
	}
	if mt == "" {
		mt = DetectMediaType(decoded)
	}
	return decoded, mt, true
}

func decodeBase64Flexible(s string) ([]byte, bool) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, true
	}
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, true
	}
	if data, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return data, true
	}
	return nil, false
}

func isValidBase64Charset(s string) bool {
	for _, b := range []byte(s) {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		case b == '+' || b == '/' || b == '-' || b == '_' || b == '=':
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
		default:
			return false
		}
	}
	return true
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isValidMimeType(s string) bool {
	if strings.Count(s, "/") != 1 {
		return false
	}
	for _, b := range []byte(s) {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		case b == '/' || b == '.' || b == '-' || b == '+' || b == '_':
		default:
			return false
		}
	}
	return true
}

// findBase64End returns the index one past the last base64 character
// starting at start: whitespace (and anything else) terminates the scan,
// unlike standalone base64 where whitespace is stripped (spec §4.1
// "Embedded data URLs").
func findBase64End(s string, start int) int {
	i := start
	for i < len(s) {
		b := s[i]
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		case b == '+' || b == '/' || b == '-' || b == '_' || b == '=':
		default:
			return i
		}
		i++
	}
	return i
}

// extractEmbeddedDataURLs scans s for "data:<mime?>;base64,<payload>"
// occurrences regardless of field name or protection, stitching the
// surrounding text back together. Requires a word boundary before "data:"
// so "metadata:" is never mistaken for a data URL (spec §4.1).
func extractEmbeddedDataURLs(s string, limits Limits, res *Result, seen map[string]bool) (string, bool) {
	if !strings.Contains(s, "data:") || !strings.Contains(s, ";base64,") {
		return s, false
	}

	var out strings.Builder
	modified := false
	pos := 0
	for pos < len(s) {
		rel := strings.Index(s[pos:], "data:")
		if rel < 0 {
			out.WriteString(s[pos:])
			break
		}
		dataStart := pos + rel
		if dataStart > 0 {
			prev := s[dataStart-1]
			isWordByte := (prev >= 'a' && prev <= 'z') || (prev >= 'A' && prev <= 'Z') || (prev >= '0' && prev <= '9') || prev == '_'
			if isWordByte {
				out.WriteString(s[pos : dataStart+5])
				pos = dataStart + 5
				continue
			}
		}

		afterPrefix := dataStart + 5
		markerRel := strings.Index(s[afterPrefix:], ";base64,")
		if markerRel < 0 {
			out.WriteString(s[pos:afterPrefix])
			pos = afterPrefix
			continue
		}
		mime := s[afterPrefix : afterPrefix+markerRel]
		if mime != "" && !isValidMimeType(mime) {
			out.WriteString(s[pos:afterPrefix])
			pos = afterPrefix
			continue
		}
		b64Start := afterPrefix + markerRel + len(";base64,")
		b64End := findBase64End(s, b64Start)

		payload := stripWhitespace(s[b64Start:b64End])
		decoded, ok := decodeBase64Flexible(payload)
		if !ok || len(decoded) < limits.MinBytes || len(decoded) > limits.MaxBytes {
			out.WriteString(s[pos:afterPrefix])
			pos = afterPrefix
			continue
		}
		mediaType := mime
		if mediaType == "" {
			mediaType = DetectMediaType(decoded)
		}

		out.WriteString(s[pos:dataStart])
		out.WriteString(replace(decoded, mediaType, res, seen))
		modified = true
		pos = b64End
	}

	if !modified {
		return s, false
	}
	return out.String(), true
}

// replace records (if unseen) and mints the URI for a decoded payload.
func replace(data []byte, mediaType string, res *Result, seen map[string]bool) string {
	hash := sha256Hex(data)
	if !seen[hash] {
		seen[hash] = true
		res.Files = append(res.Files, ExtractedFile{
			Hash: hash, Data: data, MediaType: mediaType, Size: len(data),
		})
	}
	return fileuri.New(hash, mediaType)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
