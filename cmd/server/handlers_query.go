package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/query"
)

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func queryParamInt(r *http.Request, key string, def int) int {
	v := queryParam(r, key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryParamBool(r *http.Request, key string, def bool) bool {
	v := queryParam(r, key)
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true")
}

func queryParamTime(r *http.Request, key string) time.Time {
	v := queryParam(r, key)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func queryParamList(r *http.Request, key string) []string {
	v := queryParam(r, key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) filterFromRequest(r *http.Request) query.Filter {
	return query.Filter{
		ProjectID:       mux.Vars(r)["project_id"],
		SessionID:       queryParam(r, "session_id"),
		UserID:          queryParam(r, "user_id"),
		Environments:    queryParamList(r, "environment"),
		From:            queryParamTime(r, "from"),
		To:              queryParamTime(r, "to"),
		IncludeNonGenAI: queryParamBool(r, "include_nongenai", s.cfg.IncludeNonGenAIDefault),
		OrderBy:         queryParam(r, "order_by"),
		Page:            queryParamInt(r, "page", 1),
		Limit:           queryParamInt(r, "limit", 0),
	}
}

func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	page, err := query.ListTraces(r.Context(), s.store, s.filterFromRequest(r), s.cfg.QueryMaxSpansPerTrace)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newTracePageDTO(page))
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	summary, _, err := query.GetTrace(r.Context(), s.store, vars["project_id"], vars["trace_id"], s.cfg.QueryMaxSpansPerTrace)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newTraceDTO(summary))
}

func (s *Server) handleGetTraceSpans(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, spans, err := query.GetTrace(r.Context(), s.store, vars["project_id"], vars["trace_id"], s.cfg.QueryMaxSpansPerTrace)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newSpanDTOs(spans))
}

func (s *Server) handleListSpans(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	limit := queryParamInt(r, "limit", s.cfg.QueryMaxSpansPerTrace)
	spans, err := s.store.ListSpansForProject(r.Context(), projectID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newSpanDTOs(spans))
}

func (s *Server) handleSpansFeed(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	limit := queryParamInt(r, "limit", 100)

	var cursor *query.FeedCursor
	if raw := queryParam(r, "cursor"); raw != "" {
		c, err := query.ParseFeedCursor(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		cursor = &c
	}

	spans, next, err := query.Feed(r.Context(), s.store, projectID, cursor, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := feedDTO{Items: newSpanDTOs(spans)}
	if next != nil {
		resp.Cursor = next.String()
	}
	writeJSON(w, resp)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	page, err := query.ListSessions(r.Context(), s.store, s.filterFromRequest(r), s.cfg.QueryMaxSpansPerTrace)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newSessionPageDTO(page))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	summary, err := query.GetSession(r.Context(), s.store, vars["project_id"], vars["session_id"], s.cfg.QueryMaxSpansPerTrace)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newSessionDTO(summary))
}

func (s *Server) handleGetSessionTraces(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	traces, err := query.GetTracesForSession(r.Context(), s.store, vars["project_id"], vars["session_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]traceDTO, len(traces))
	for i, t := range traces {
		out[i] = newTraceDTO(t)
	}
	writeJSON(w, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filter := query.StatsFilter{
		ProjectID: mux.Vars(r)["project_id"],
		From:      queryParamTime(r, "from"),
		To:        queryParamTime(r, "to"),
		Timezone:  queryParam(r, "timezone"),
	}
	stats, err := query.GetProjectStats(r.Context(), s.store, filter, s.cfg.QueryMaxTopStats)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, newStatsDTO(stats))
}

func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["project_id"]
	columns := queryParamList(r, "columns")
	if len(columns) == 0 {
		writeError(w, apierr.Validation("query: columns is required"))
		return
	}
	opts, err := query.FilterOptions(r.Context(), s.store, projectID, columns, s.cfg.QueryMaxFilterSuggestions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, opts)
}
