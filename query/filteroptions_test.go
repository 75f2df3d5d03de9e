package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat/span"
)

func TestFilterOptions_WhitelistedColumnsOnly(t *testing.T) {
	src := &fakeStatsSource{spans: []span.Span{
		{Environment: "prod", Framework: "langgraph", Tags: []string{"beta"}},
		{Environment: "staging", Framework: "crewai", Tags: []string{"beta", "internal"}},
	}}

	out, err := FilterOptions(context.Background(), src, "proj1", []string{"environment", "framework", "not_a_real_column"}, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"prod", "staging"}, out["environment"])
	assert.ElementsMatch(t, []string{"crewai", "langgraph"}, out["framework"])
	_, present := out["not_a_real_column"]
	assert.False(t, present, "non-whitelisted column must be silently dropped")
}

func TestFilterOptions_TagsFlattenedAcrossSpans(t *testing.T) {
	src := &fakeStatsSource{spans: []span.Span{
		{Tags: []string{"beta", "internal"}},
		{Tags: []string{"beta"}},
	}}

	out, err := FilterOptions(context.Background(), src, "proj1", []string{"tags"}, 100)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"beta", "internal"}, out["tags"])
}

func TestFilterOptions_BoundedByMaxSuggestions(t *testing.T) {
	src := &fakeStatsSource{spans: []span.Span{
		{Environment: "a"}, {Environment: "b"}, {Environment: "c"},
	}}

	out, err := FilterOptions(context.Background(), src, "proj1", []string{"environment"}, 2)
	require.NoError(t, err)
	assert.Len(t, out["environment"], 2)
}
