package extract

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBase64Image(size int) string {
	data := make([]byte, size)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func makeRawBase64(size int) string {
	data := make([]byte, size)
	return base64.StdEncoding.EncodeToString(data)
}

func TestExtractAndReplace_DataURLUnderExtractableField(t *testing.T) {
	doc := map[string]any{
		"type": "image",
		"source": map[string]any{
			"type": "base64",
			"data": makeBase64Image(2000),
		},
	}

	out, res := ExtractAndReplace(doc, DefaultLimits)

	require.True(t, res.Modified)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "image/png", res.Files[0].MediaType)

	outMap := out.(map[string]any)
	source := outMap["source"].(map[string]any)
	assert.Contains(t, source["data"], "#!B64!#image/png::")
}

func TestExtractAndReplace_ProtectedFieldNeverExtracted(t *testing.T) {
	raw := makeRawBase64(2000)
	doc := map[string]any{
		"text": raw,
	}

	out, res := ExtractAndReplace(doc, DefaultLimits)

	assert.False(t, res.Modified)
	assert.Empty(t, res.Files)
	assert.Equal(t, raw, out.(map[string]any)["text"])
}

func TestExtractAndReplace_DottedKeyLeafExtractable(t *testing.T) {
	doc := map[string]any{
		"llm.input_messages.0.message.contents.1.message_content.image.source.data": makeBase64Image(2000),
	}

	_, res := ExtractAndReplace(doc, DefaultLimits)

	assert.True(t, res.Modified)
	assert.Len(t, res.Files, 1)
}

func TestExtractAndReplace_PlaceholderSkipped(t *testing.T) {
	for _, placeholder := range []string{"<replaced>", "[truncated]", "...", "<binary data>"} {
		doc := map[string]any{"data": placeholder}
		_, res := ExtractAndReplace(doc, DefaultLimits)
		assert.False(t, res.Modified, "placeholder %q should not be extracted", placeholder)
	}
}

func TestExtractAndReplace_TooSmallNotExtracted(t *testing.T) {
	doc := map[string]any{"data": makeBase64Image(10)}
	_, res := ExtractAndReplace(doc, DefaultLimits)
	assert.False(t, res.Modified)
}

func TestExtractAndReplace_HTTPURLNotExtracted(t *testing.T) {
	doc := map[string]any{"url": "https://example.com/image.png"}
	_, res := ExtractAndReplace(doc, DefaultLimits)
	assert.False(t, res.Modified)
}

// P2: re-running extraction on the rewritten document is a no-op.
func TestExtractAndReplace_Idempotent(t *testing.T) {
	doc := map[string]any{
		"data": makeBase64Image(2000),
	}

	out1, res1 := ExtractAndReplace(doc, DefaultLimits)
	require.True(t, res1.Modified)

	_, res2 := ExtractAndReplace(out1, DefaultLimits)
	assert.False(t, res2.Modified)
	assert.Empty(t, res2.Files)
}

// Nested JSON inside a protected field is still descended into.
func TestExtractAndReplace_NestedJSONInsideProtectedField(t *testing.T) {
	nested, err := json.Marshal(map[string]any{
		"image": map[string]any{"data": makeBase64Image(2000)},
	})
	require.NoError(t, err)

	doc := map[string]any{
		"content": string(nested),
	}

	out, res := ExtractAndReplace(doc, DefaultLimits)

	require.True(t, res.Modified)
	require.Len(t, res.Files, 1)

	var reparsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.(map[string]any)["content"].(string)), &reparsed))
	image := reparsed["image"].(map[string]any)
	assert.Contains(t, image["data"], "#!B64!#")
}

// Embedded data URL inside arbitrary (Python repr) text, field-independent.
func TestExtractAndReplace_EmbeddedDataURLInText(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(make([]byte, 2000))
	doc := map[string]any{
		"text": "{'status': 'ok', 'image': 'data:image/png;base64," + b64 + "', 'flag': True}",
	}

	out, res := ExtractAndReplace(doc, DefaultLimits)

	require.True(t, res.Modified)
	require.Len(t, res.Files, 1)
	s := out.(map[string]any)["text"].(string)
	assert.True(t, strings.Contains(s, "#!B64!#image/png::"))
	assert.True(t, strings.Contains(s, "'flag': True}"), "surrounding text preserved after the terminator")
}

func TestExtractAndReplace_MetadataPrefixNotMistakenForDataURL(t *testing.T) {
	doc := map[string]any{
		"text": "metadata:image/png;base64,not-really-base64-data-here",
	}
	_, res := ExtractAndReplace(doc, DefaultLimits)
	assert.False(t, res.Modified)
}

// Scenario #6: the same bytes referenced from a dotted attribute AND a
// nested JSON string are deduplicated but BOTH locations are rewritten.
func TestExtractAndReplace_DedupAcrossDottedKeyAndNestedJSON(t *testing.T) {
	b64 := makeBase64Image(2000)
	nestedJSON, err := json.Marshal(map[string]any{"data": b64})
	require.NoError(t, err)

	doc := map[string]any{
		"llm.input_messages.0.message.contents.1.message_content.image.source.data": b64,
		"output.value": string(nestedJSON),
	}

	out, res := ExtractAndReplace(doc, DefaultLimits)

	require.True(t, res.Modified)
	require.Len(t, res.Files, 1, "same bytes must be emitted exactly once")

	outMap := out.(map[string]any)
	dotted := outMap["llm.input_messages.0.message.contents.1.message_content.image.source.data"].(string)
	assert.Contains(t, dotted, "#!B64!#")

	var reparsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(outMap["output.value"].(string)), &reparsed))
	assert.Contains(t, reparsed["data"], "#!B64!#")
	assert.Equal(t, dotted, reparsed["data"], "both locations rewrite to the identical URI")
}

func TestDetectMediaType(t *testing.T) {
	assert.Equal(t, "image/png", DetectMediaType([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}))
	assert.Equal(t, "image/jpeg", DetectMediaType([]byte{0xFF, 0xD8, 0xFF, 0, 0}))
	assert.Equal(t, "application/pdf", DetectMediaType([]byte("%PDF-1.4")))
	assert.Equal(t, "", DetectMediaType([]byte{0, 1, 2, 3}))
}
