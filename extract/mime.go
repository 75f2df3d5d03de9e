package extract

import "bytes"

// DetectMediaType sniffs a MIME type from magic bytes when the source
// didn't provide one explicitly (spec §4.1 step 4). Returns "" when no
// known signature matches; the caller leaves MediaType unset rather than
// guessing.
func DetectMediaType(data []byte) string {
	switch {
	case hasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case hasPrefix(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	case hasPrefix(data, []byte("GIF87a")), hasPrefix(data, []byte("GIF89a")):
		return "image/gif"
	case hasPrefix(data, []byte("%PDF")):
		return "application/pdf"
	case len(data) >= 12 && hasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	case len(data) >= 12 && hasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "audio/wav"
	case hasPrefix(data, []byte{0x49, 0x44, 0x33}): // "ID3"
		return "audio/mpeg"
	case len(data) >= 3 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")):
		return "video/mp4"
	case hasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "video/webm"
	default:
		return ""
	}
}

func hasPrefix(data, prefix []byte) bool {
	return len(data) >= len(prefix) && bytes.Equal(data[:len(prefix)], prefix)
}
