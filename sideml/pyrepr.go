package sideml

import "encoding/json"

// ParsePythonRepr exports the Python-repr parser for other packages (e.g.
// sideml/frameworks' CrewAI handler, which meets the same
// Python str()-of-dict tool-description strings).
func ParsePythonRepr(s string) (any, bool) {
	return parsePythonRepr(s)
}

// parsePythonRepr converts a Python str()-style dict/list literal
// (single-quoted, True/False/None) into JSON and parses it. Returns
// (nil, false) for anything that doesn't look like a Python literal or
// that fails to parse as JSON after conversion — callers fall back to
// treating the string as plain text (spec §4.2 "Python-repr parser").
//
// Single-pass byte scanner, grounded on the original implementation's
// try_parse_python_repr: tracks an in-string/quote-char state machine so
// quote conversion and True/False/None substitution never cross a string
// boundary.
func parsePythonRepr(s string) (any, bool) {
	if len(s) == 0 || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}

	bytes := []byte(s)
	n := len(bytes)
	out := make([]byte, 0, n+32)

	inString := false
	var quoteChar byte

	i := 0
	for i < n {
		b := bytes[i]

		if inString {
			switch {
			case b == quoteChar:
				out = append(out, '"')
				inString = false
				i++
			case b == '"' && quoteChar == '\'':
				out = append(out, '\\', '"')
				i++
			case b == '\\' && i+1 < n:
				next := bytes[i+1]
				switch next {
				case '\'':
					out = append(out, '\'')
					i += 2
				case '"':
					out = append(out, '\\', '"')
					i += 2
				case '\\', '/', 'n', 't', 'r', 'b', 'f':
					out = append(out, '\\', next)
					i += 2
				case 'u':
					out = append(out, '\\', 'u')
					i += 2
				default:
					// Other Python-only escapes (\x, \N, \0, ...) pass
					// through verbatim; may yield invalid JSON, in which
					// case the caller falls back to plain text.
					out = append(out, '\\')
					i++
				}
			default:
				out = append(out, b)
				i++
			}
			continue
		}

		switch {
		case b == '\'' || b == '"':
			out = append(out, '"')
			inString = true
			quoteChar = b
			i++
		case b == 'T' && matchesPythonLiteral(bytes, i, "True"):
			out = append(out, "true"...)
			i += 4
		case b == 'F' && matchesPythonLiteral(bytes, i, "False"):
			out = append(out, "false"...)
			i += 5
		case b == 'N' && matchesPythonLiteral(bytes, i, "None"):
			out = append(out, "null"...)
			i += 4
		default:
			out = append(out, b)
			i++
		}
	}

	var parsed any
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// matchesPythonLiteral checks literal at position i has word boundaries on
// both sides, so "Trueness" or "_True" never get rewritten.
func matchesPythonLiteral(b []byte, i int, literal string) bool {
	end := i + len(literal)
	if end > len(b) || string(b[i:end]) != literal {
		return false
	}
	if end < len(b) && isWordByte(b[end]) {
		return false
	}
	if i > 0 && isWordByte(b[i-1]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}
