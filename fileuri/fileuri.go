// Package fileuri mints and parses the content-addressed file reference URIs
// that replace extracted binary payloads (spec §3.4). The byte store itself
// is an external collaborator; this package only knows the URI grammar.
package fileuri

import "strings"

// Prefix is the literal marker for a sideseat file reference.
const Prefix = "#!B64!#"

// URI is the bit-exact grammar: "#!B64!#" [mime "/" subtype] "::" hash.
// Hash is always 64 lowercase hex characters (SHA-256).
type URI struct {
	Hash      string
	MediaType string // empty when the URI carries no MIME type
}

// New mints a URI string for the given hash and optional media type.
func New(hash, mediaType string) string {
	if mediaType == "" {
		return Prefix + "::" + hash
	}
	return Prefix + mediaType + "::" + hash
}

// Parse splits a file URI into its components. It returns ok=false for any
// string that isn't a well-formed URI, including one with an empty hash.
func Parse(s string) (URI, bool) {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return URI{}, false
	}
	sep := strings.Index(rest, "::")
	if sep < 0 {
		return URI{}, false
	}
	mediaType, hash := rest[:sep], rest[sep+2:]
	if len(hash) != 64 {
		return URI{}, false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return URI{}, false
		}
	}
	return URI{Hash: hash, MediaType: mediaType}, true
}

// Is reports whether s looks like a sideseat file URI (prefix + separator
// present), without validating the hash shape. Used by extractors to skip
// already-extracted values.
func Is(s string) bool {
	return strings.HasPrefix(s, Prefix) && strings.Contains(s, "::")
}
