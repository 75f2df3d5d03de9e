package main

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sideseat/sideseat/otlpadapter"
)

func (s *Server) handleOTLPTraces(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	contentType := r.Header.Get("Content-Type")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	req, err := otlpadapter.DecodeTraceRequest(contentType, body)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	for _, raw := range otlpadapter.ToRawSpans(req, projectID) {
		if err := s.pipeline.Ingest(r.Context(), s.store, raw, now); err != nil {
			writeError(w, err)
			return
		}
	}

	resp, err := otlpadapter.EncodeTraceResponse(contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

// handleOTLPLogs accepts and validates an OTLP logs payload without
// persisting it; see otlpadapter.DecodeLogsRequest.
func (s *Server) handleOTLPLogs(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if _, err := otlpadapter.DecodeLogsRequest(contentType, body); err != nil {
		writeError(w, err)
		return
	}

	if s.logsPublisher != nil {
		if _, err := s.logsPublisher.Publish(r.Context(), logsStreamKey, map[string]any{
			"project_id": mux.Vars(r)["project_id"], "content_type": contentType, "payload": body,
		}); err != nil {
			s.log.Warn("server: failed to publish logs", "error", err)
		}
	}

	resp, err := otlpadapter.EncodeLogsResponse(contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

// handleOTLPMetrics accepts and validates an OTLP metrics payload without
// persisting it; see otlpadapter.DecodeMetricsRequest.
func (s *Server) handleOTLPMetrics(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if _, err := otlpadapter.DecodeMetricsRequest(contentType, body); err != nil {
		writeError(w, err)
		return
	}

	if s.metricsPublisher != nil {
		if _, err := s.metricsPublisher.Publish(r.Context(), metricsStreamKey, map[string]any{
			"project_id": mux.Vars(r)["project_id"], "content_type": contentType, "payload": body,
		}); err != nil {
			s.log.Warn("server: failed to publish metrics", "error", err)
		}
	}

	resp, err := otlpadapter.EncodeMetricsResponse(contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}
