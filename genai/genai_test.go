package genai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_BasicUsageAndCost(t *testing.T) {
	f := Extract(map[string]any{
		"gen_ai.system":            "anthropic",
		"gen_ai.request.model":     "claude-3-opus",
		"gen_ai.usage.input_tokens": float64(120),
		"gen_ai.usage.output_tokens": float64(40),
		"gen_ai.cost.total":        0.0123,
	})
	assert.Equal(t, "anthropic", f.System)
	assert.Equal(t, "claude-3-opus", f.RequestModel)
	require.NotNil(t, f.InputTokens)
	assert.Equal(t, int64(120), *f.InputTokens)
	require.NotNil(t, f.TotalCost)
	assert.InDelta(t, 0.0123, *f.TotalCost, 1e-9)
}

func TestExtract_SessionUserFallbackChain(t *testing.T) {
	f := Extract(map[string]any{
		"mlflow.trace.session": "sess-1",
		"mlflow.trace.user":    "user-1",
	})
	assert.Equal(t, "sess-1", f.SessionID)
	assert.Equal(t, "user-1", f.UserID)
}

func TestExtract_ExplicitFieldsTakePrecedenceOverLegacy(t *testing.T) {
	f := Extract(map[string]any{
		"gen_ai.request.temperature": float64(0.2),
		"llm.invocation_parameters":  `{"temperature": 0.9, "top_p": 0.5}`,
	})
	require.NotNil(t, f.Temperature)
	assert.InDelta(t, 0.2, *f.Temperature, 1e-9)
	require.NotNil(t, f.TopP)
	assert.InDelta(t, 0.5, *f.TopP, 1e-9)
}

func TestExtract_LegacyInvocationParamsUsedWhenExplicitAbsent(t *testing.T) {
	f := Extract(map[string]any{
		"llm.invocation_parameters": `{"temperature": 0.7, "max_tokens": 512}`,
	})
	require.NotNil(t, f.Temperature)
	assert.InDelta(t, 0.7, *f.Temperature, 1e-9)
	require.NotNil(t, f.MaxTokens)
	assert.Equal(t, int64(512), *f.MaxTokens)
}

func TestExtract_FinishReasonsArray(t *testing.T) {
	f := Extract(map[string]any{
		"gen_ai.response.finish_reasons": []any{"stop", "tool_calls"},
	})
	assert.Equal(t, []string{"stop", "tool_calls"}, f.FinishReasons)
}

func TestExtract_AbsentFieldsAreNilNotZero(t *testing.T) {
	f := Extract(map[string]any{})
	assert.Nil(t, f.InputTokens)
	assert.Nil(t, f.TotalCost)
	assert.Empty(t, f.System)
}

func TestExtract_MalformedInvocationParamsIgnored(t *testing.T) {
	f := Extract(map[string]any{"llm.invocation_parameters": "not json"})
	assert.Nil(t, f.Temperature)
}
