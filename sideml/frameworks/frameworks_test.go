package frameworks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_AutoGenTextMessage(t *testing.T) {
	attrs := map[string]any{
		"message": `{"type":"AssistantMessage","content":"hello","thought":"thinking about it"}`,
	}
	msgs, tools, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 1)
	assert.Equal(t, "attribute", msgs[0].Source.Kind)
	assert.Equal(t, "assistant", msgs[0].Source.Role)
	assert.Empty(t, tools)
}

func TestExtract_CrewAIParsesPythonReprTools(t *testing.T) {
	attrs := map[string]any{
		"crew_agent_id":    "agent-1",
		"input.value.tools": `[{'name': 'search', 'description': 'web search', 'args_schema': {'query': 'str'}}]`,
	}
	msgs, tools, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Empty(t, msgs)
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].Function.Name)
}

func TestExtract_GoogleADKFallsBackToToolCallWhenLLMRequestEmpty(t *testing.T) {
	attrs := map[string]any{
		"gcp.vertex.agent.llm_request":   `{}`,
		"gcp.vertex.agent.tool_call_args": `{"query":"weather"}`,
		"gcp.vertex.agent.tool_response":  `{"result":"sunny"}`,
	}
	msgs, _, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[0].Source.Role)
	assert.Equal(t, "tool", msgs[1].Source.Role)
}

func TestExtract_LangGraphUnwrapsLangChainKwargs(t *testing.T) {
	attrs := map[string]any{
		"langgraph.step": "1",
		"input.value":    `{"messages":[{"lc":1,"type":"constructor","id":["HumanMessage"],"kwargs":{"content":"hi","type":"human"}}]}`,
	}
	msgs, _, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 1)
	content, ok := msgs[0].Content.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", content["content"])
}

func TestExtract_OpenInferenceGroupsIndexedMessages(t *testing.T) {
	attrs := map[string]any{
		"llm.input_messages.0.message.role":    "user",
		"llm.input_messages.0.message.content": "hi",
		"llm.input_messages.1.message.role":    "assistant",
		"llm.input_messages.1.message.content": "hello",
	}
	msgs, _, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Source.Role)
	assert.Equal(t, "assistant", msgs[1].Source.Role)
}

func TestExtract_StrandsToolResultEmitsTwoMessages(t *testing.T) {
	events := []Event{
		{Name: "gen_ai.choice", Attrs: map[string]any{"content": "calling tool", "tool.result": map[string]any{"output": "42"}}},
	}
	msgs, _, found := Extract(nil, events, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 2)
	assert.Equal(t, "gen_ai.choice", msgs[0].Source.EventName)
	assert.Equal(t, "gen_ai.tool.result", msgs[1].Source.EventName)
	assert.Empty(t, msgs[0].Source.Role, "event-sourced messages must not carry a role at extraction time")
}

func TestExtract_VercelNormalizesTextToContent(t *testing.T) {
	attrs := map[string]any{
		"ai.response.text": "the answer is 42",
	}
	msgs, _, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 1)
	content, ok := msgs[0].Content.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "the answer is 42", content["content"])
}

func TestExtract_FallsBackToRawIO(t *testing.T) {
	attrs := map[string]any{
		"input.value":  "plain question",
		"output.value": "plain answer",
	}
	msgs, tools, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 2)
	assert.Empty(t, tools)
}

func TestExtract_EmptyAttrsNoEventsFindsNothing(t *testing.T) {
	_, _, found := Extract(map[string]any{}, nil, "span", time.Now())
	assert.False(t, found)
}

func TestExtract_MLflowToolsKeptSeparateFromMessages(t *testing.T) {
	attrs := map[string]any{
		"mlflow.spanInputs": `{"question":"hi"}`,
		"mlflow.chat.tools": `[{"type":"function","function":{"name":"lookup","parameters":{}}}]`,
	}
	msgs, tools, found := Extract(attrs, nil, "span", time.Now())
	require.True(t, found)
	require.Len(t, msgs, 1)
	require.Len(t, tools, 1)
	assert.Equal(t, "lookup", tools[0].Function.Name)
}
