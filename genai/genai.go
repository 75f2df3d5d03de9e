// Package genai implements C5, the GenAI Semantic Extractor: flat field
// extraction of token counters, costs, model/request parameters, and
// session/user identity from a span's attribute map (spec §4.5).
package genai

import "strings"

// Fields is the set of semantic fields C5 extracts from one span's
// attributes. Token and cost counters are left unset (nil) rather than
// zeroed when absent; span.Span stores them as plain numbers, so an absent
// counter is persisted as 0.
type Fields struct {
	System      string
	RequestModel string
	AgentName   string
	SessionID   string
	UserID      string

	FinishReasons []string

	Temperature *float64
	TopP        *float64
	MaxTokens   *int64

	InputTokens      *int64
	OutputTokens     *int64
	TotalTokens      *int64
	CacheReadTokens  *int64
	CacheWriteTokens *int64
	ReasoningTokens  *int64

	InputCost      *float64
	OutputCost     *float64
	CacheReadCost  *float64
	CacheWriteCost *float64
	ReasoningCost  *float64
	TotalCost      *float64
}

// Extract reads attrs (a flattened OTLP attribute map, string/number/bool/
// array values) and produces Fields. Explicit gen_ai.* fields always win
// over legacy/vendor equivalents (spec §4.5 invariant).
func Extract(attrs map[string]any) Fields {
	f := Fields{}

	f.System = getString(attrs, "gen_ai.system")
	f.RequestModel = getString(attrs, "gen_ai.request.model")
	f.AgentName = getString(attrs, "gen_ai.agent.name")

	f.SessionID = firstNonEmpty(
		getString(attrs, "session.id"),
		getString(attrs, "mlflow.trace.session"),
		getString(attrs, "ai.telemetry.metadata.sessionId"),
	)
	f.UserID = firstNonEmpty(
		getString(attrs, "user.id"),
		getString(attrs, "mlflow.trace.user"),
		getString(attrs, "ai.telemetry.metadata.userId"),
	)

	f.FinishReasons = getStringArray(attrs, "gen_ai.response.finish_reasons")

	f.InputTokens = getInt(attrs, "gen_ai.usage.input_tokens")
	f.OutputTokens = getInt(attrs, "gen_ai.usage.output_tokens")
	f.TotalTokens = getInt(attrs, "gen_ai.usage.total_tokens")
	f.CacheReadTokens = getInt(attrs, "gen_ai.usage.cache_read_tokens")
	f.CacheWriteTokens = getInt(attrs, "gen_ai.usage.cache_write_tokens")
	f.ReasoningTokens = getInt(attrs, "gen_ai.usage.reasoning_tokens")

	f.InputCost = getFloat(attrs, "gen_ai.cost.input")
	f.OutputCost = getFloat(attrs, "gen_ai.cost.output")
	f.CacheReadCost = getFloat(attrs, "gen_ai.cost.cache_read")
	f.CacheWriteCost = getFloat(attrs, "gen_ai.cost.cache_write")
	f.ReasoningCost = getFloat(attrs, "gen_ai.cost.reasoning")
	f.TotalCost = getFloat(attrs, "gen_ai.cost.total")

	f.Temperature = getFloat(attrs, "gen_ai.request.temperature")
	f.TopP = getFloat(attrs, "gen_ai.request.top_p")
	f.MaxTokens = getInt(attrs, "gen_ai.request.max_tokens")

	applyLegacyInvocationParams(attrs, &f)

	return f
}

// applyLegacyInvocationParams fills temperature/top_p/max_tokens from
// OpenInference's llm.invocation_parameters JSON blob ONLY when the
// explicit gen_ai.request.* fields were absent (precedence invariant).
func applyLegacyInvocationParams(attrs map[string]any, f *Fields) {
	raw, ok := attrs["llm.invocation_parameters"]
	if !ok {
		return
	}
	params, ok := asParamsMap(raw)
	if !ok {
		return
	}
	if f.Temperature == nil {
		f.Temperature = getFloat(params, "temperature")
	}
	if f.TopP == nil {
		f.TopP = getFloat(params, "top_p")
	}
	if f.MaxTokens == nil {
		f.MaxTokens = getInt(params, "max_tokens")
	}
}

func asParamsMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case string:
		return parseInvocationParamsJSON(v)
	default:
		return nil, false
	}
}

func getString(attrs map[string]any, key string) string {
	v, ok := attrs[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func getStringArray(attrs map[string]any, key string) []string {
	v, ok := attrs[key]
	if !ok {
		return nil
	}
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.Contains(arr, ",") {
			parts := strings.Split(arr, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
		return []string{arr}
	default:
		return nil
	}
}

func getInt(attrs map[string]any, key string) *int64 {
	v, ok := attrs[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case int64:
		return &n
	case int:
		i := int64(n)
		return &i
	case float64:
		i := int64(n)
		return &i
	}
	return nil
}

func getFloat(attrs map[string]any, key string) *float64 {
	v, ok := attrs[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case int64:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	}
	return nil
}
