package genai

import "encoding/json"

// parseInvocationParamsJSON decodes OpenInference's llm.invocation_parameters
// attribute, which SDKs emit as a JSON-encoded string rather than a nested
// attribute map.
func parseInvocationParamsJSON(raw string) (map[string]any, bool) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
