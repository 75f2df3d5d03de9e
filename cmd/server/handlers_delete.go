package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/query"
	"github.com/sideseat/sideseat/span"
)

type idsRequest struct {
	IDs []string `json:"ids"`
}

type spanKeyRequest struct {
	TraceID string `json:"trace_id"`
	SpanID  string `json:"span_id"`
}

type spanKeysRequest struct {
	Keys []spanKeyRequest `json:"keys"`
}

func decodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apierr.Validation("server: malformed request body: %v", err)
	}
	return nil
}

func (s *Server) handleDeleteTraces(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	var req idsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := query.DeleteTraces(r.Context(), s.store, projectID, req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleDeleteSessions(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	var req idsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := query.DeleteSessions(r.Context(), s.store, projectID, req.IDs); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleDeleteSpans(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	var req spanKeysRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	keys := make([]span.Key, len(req.Keys))
	for i, k := range req.Keys {
		keys[i] = span.Key{ProjectID: projectID, TraceID: k.TraceID, SpanID: k.SpanID}
	}
	if err := query.DeleteSpans(r.Context(), s.store, projectID, keys); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	if err := query.DeleteProject(r.Context(), s.store, projectID); err != nil {
		writeError(w, err)
		return
	}
	writeNoContent(w)
}
