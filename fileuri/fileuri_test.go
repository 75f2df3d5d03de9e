package fileuri

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const hash64 = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNew_WithMediaType(t *testing.T) {
	uri := New(hash64, "image/png")
	assert.Equal(t, "#!B64!#image/png::"+hash64, uri)
}

func TestNew_WithoutMediaType(t *testing.T) {
	uri := New(hash64, "")
	assert.Equal(t, "#!B64!#::"+hash64, uri)
}

func TestParse_RoundTrip(t *testing.T) {
	uri := New(hash64, "audio/wav")
	parsed, ok := Parse(uri)
	assert.True(t, ok)
	assert.Equal(t, hash64, parsed.Hash)
	assert.Equal(t, "audio/wav", parsed.MediaType)
}

func TestParse_NoMediaType(t *testing.T) {
	parsed, ok := Parse("#!B64!#::" + hash64)
	assert.True(t, ok)
	assert.Equal(t, hash64, parsed.Hash)
	assert.Equal(t, "", parsed.MediaType)
}

func TestParse_RejectsEmptyHash(t *testing.T) {
	_, ok := Parse("#!B64!#image/png::")
	assert.False(t, ok)
}

func TestParse_RejectsMissingSeparator(t *testing.T) {
	_, ok := Parse("#!B64!#image/png" + hash64)
	assert.False(t, ok)
}

func TestParse_RejectsWrongPrefix(t *testing.T) {
	_, ok := Parse("https://example.com/file.png")
	assert.False(t, ok)
}

func TestIs(t *testing.T) {
	assert.True(t, Is("#!B64!#::"+hash64))
	assert.False(t, Is("https://example.com"))
	assert.False(t, Is("not a uri"))
}
