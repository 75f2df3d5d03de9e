package query

import (
	"context"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// deleteStore is the store dependency deletion needs: read access to resolve
// sessions to trace_ids, plus the batched delete operations themselves.
type deleteStore interface {
	spanSource
	DeleteTraces(ctx context.Context, projectID string, traceIDs []string) error
	DeleteSpans(ctx context.Context, projectID string, keys []span.Key) error
	DeleteProject(ctx context.Context, projectID string) error
}

// DeleteTraces removes the named traces (spec §6 "DELETE /projects/{id}/traces").
func DeleteTraces(ctx context.Context, store deleteStore, projectID string, traceIDs []string) error {
	if projectID == "" {
		return apierr.Validation("query: project_id is required")
	}
	return store.DeleteTraces(ctx, projectID, traceIDs)
}

// DeleteSessions implements spec §4.8 "Deletion": a session delete resolves
// to the set of trace_ids it spans, then deletes all matching spans.
func DeleteSessions(ctx context.Context, store deleteStore, projectID string, sessionIDs []string) error {
	if projectID == "" {
		return apierr.Validation("query: project_id is required")
	}
	if len(sessionIDs) == 0 {
		return nil
	}

	spans, err := store.ListSpansForProject(ctx, projectID, 1_000_000)
	if err != nil {
		return err
	}
	wanted := map[string]bool{}
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	traceIDs := map[string]bool{}
	for _, s := range spans {
		if wanted[s.SessionID] {
			traceIDs[s.TraceID] = true
		}
	}
	if len(traceIDs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(traceIDs))
	for id := range traceIDs {
		ids = append(ids, id)
	}
	return store.DeleteTraces(ctx, projectID, ids)
}

// DeleteSpans removes exactly the named spans (spec §6 "DELETE /projects/{id}/spans").
func DeleteSpans(ctx context.Context, store deleteStore, projectID string, keys []span.Key) error {
	if projectID == "" {
		return apierr.Validation("query: project_id is required")
	}
	return store.DeleteSpans(ctx, projectID, keys)
}

// DeleteProject removes every span for a project (spec §6 "DELETE /projects/{id}").
func DeleteProject(ctx context.Context, store deleteStore, projectID string) error {
	if projectID == "" {
		return apierr.Validation("query: project_id is required")
	}
	return store.DeleteProject(ctx, projectID)
}
