package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat/span"
)

type fakeDeleteStore struct {
	spans             []span.Span
	deletedTraceIDs   []string
	deletedSpanKeys   []span.Key
	deletedProjectIDs []string
}

func (f *fakeDeleteStore) ListSpansForProject(ctx context.Context, projectID string, limit int) ([]span.Span, error) {
	return f.spans, nil
}

func (f *fakeDeleteStore) ListSpansForTrace(ctx context.Context, projectID, traceID string, limit int) ([]span.Span, error) {
	return nil, nil
}

func (f *fakeDeleteStore) DeleteTraces(ctx context.Context, projectID string, traceIDs []string) error {
	f.deletedTraceIDs = append(f.deletedTraceIDs, traceIDs...)
	return nil
}

func (f *fakeDeleteStore) DeleteSpans(ctx context.Context, projectID string, keys []span.Key) error {
	f.deletedSpanKeys = append(f.deletedSpanKeys, keys...)
	return nil
}

func (f *fakeDeleteStore) DeleteProject(ctx context.Context, projectID string) error {
	f.deletedProjectIDs = append(f.deletedProjectIDs, projectID)
	return nil
}

func TestDeleteTraces_RequiresProjectID(t *testing.T) {
	err := DeleteTraces(context.Background(), &fakeDeleteStore{}, "", []string{"t1"})
	assert.Error(t, err)
}

func TestDeleteTraces_Delegates(t *testing.T) {
	store := &fakeDeleteStore{}
	err := DeleteTraces(context.Background(), store, "proj1", []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, store.deletedTraceIDs)
}

func TestDeleteSessions_ResolvesToTraceIDsFirst(t *testing.T) {
	store := &fakeDeleteStore{spans: []span.Span{
		{TraceID: "t1", SessionID: "sess1"},
		{TraceID: "t2", SessionID: "sess1"},
		{TraceID: "t3", SessionID: "sess2"},
	}}

	err := DeleteSessions(context.Background(), store, "proj1", []string{"sess1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, store.deletedTraceIDs)
}

func TestDeleteSessions_NoMatchingSessionIsNoop(t *testing.T) {
	store := &fakeDeleteStore{spans: []span.Span{{TraceID: "t1", SessionID: "sess1"}}}
	err := DeleteSessions(context.Background(), store, "proj1", []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, store.deletedTraceIDs)
}

func TestDeleteSpans_Delegates(t *testing.T) {
	store := &fakeDeleteStore{}
	keys := []span.Key{{ProjectID: "proj1", TraceID: "t1", SpanID: "s1"}}
	err := DeleteSpans(context.Background(), store, "proj1", keys)
	require.NoError(t, err)
	assert.Equal(t, keys, store.deletedSpanKeys)
}

func TestDeleteProject_Delegates(t *testing.T) {
	store := &fakeDeleteStore{}
	err := DeleteProject(context.Background(), store, "proj1")
	require.NoError(t, err)
	assert.Equal(t, []string{"proj1"}, store.deletedProjectIDs)
}

func TestDeleteProject_RequiresProjectID(t *testing.T) {
	err := DeleteProject(context.Background(), &fakeDeleteStore{}, "")
	assert.Error(t, err)
}
