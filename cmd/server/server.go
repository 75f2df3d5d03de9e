// Command server runs the sideseat HTTP interface (spec §6): OTLP trace
// receivers and the aggregation query API, backed by the reference
// sqlite-backed store and in-process ingest pipeline.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/sideseat/sideseat/ingest"
	"github.com/sideseat/sideseat/internal/config"
	"github.com/sideseat/sideseat/internal/logger"
	"github.com/sideseat/sideseat/internal/telemetry"
	"github.com/sideseat/sideseat/pubsub"
	"github.com/sideseat/sideseat/store"
)

// ServerConfig holds the HTTP listener settings. Everything else the
// server needs comes from *config.Config.
type ServerConfig struct {
	// Host is the hostname to listen on (default: "0.0.0.0")
	Host string
	// Port is the port to listen on (default: 8090)
	Port int
}

// Server is the sideseat HTTP interface: OTLP ingest endpoints plus the
// aggregation query API, wired to a Store, a Pipeline, and (optionally) a
// pub/sub Manager backing the logs/metrics topic publishers.
type Server struct {
	httpCfg ServerConfig
	cfg     *config.Config
	log     logger.Logger

	router           *mux.Router
	store            *store.Store
	pipeline         *ingest.Pipeline
	manager          *pubsub.Manager
	logsPublisher    *pubsub.Publisher
	metricsPublisher *pubsub.Publisher
}

// logsStreamKey and metricsStreamKey name the Redis Streams logs/metrics
// are published to instead of being run through the span pipeline (spec
// §3.1's data model defines spans only; the original server's otlp_collector
// routes hand logs/metrics to their own topic publishers the same way).
const (
	logsStreamKey    = "sideseat:otlp:logs"
	metricsStreamKey = "sideseat:otlp:metrics"
)

// New builds a Server and registers every handler. store and pipeline must
// be non-nil; manager may be nil, which disables the logs/metrics topic
// publish (they fall back to accept-and-discard). The span feed reads from
// the store and does not depend on manager.
func New(httpCfg ServerConfig, cfg *config.Config, st *store.Store, pipeline *ingest.Pipeline, manager *pubsub.Manager) *Server {
	if httpCfg.Host == "" {
		httpCfg.Host = "0.0.0.0"
	}
	if httpCfg.Port == 0 {
		httpCfg.Port = 8090
	}

	s := &Server{
		httpCfg:  httpCfg,
		cfg:      cfg,
		log:      cfg.Logger,
		router:   mux.NewRouter(),
		store:    st,
		pipeline: pipeline,
		manager:  manager,
	}
	if manager != nil {
		s.logsPublisher = pubsub.NewPublisher(manager.Client(), 0, cfg.BackpressureRetryAfterSecs)
		s.metricsPublisher = pubsub.NewPublisher(manager.Client(), 0, cfg.BackpressureRetryAfterSecs)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/v1/otlp/{project_id}/traces", s.handleOTLPTraces).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/otlp/{project_id}/logs", s.handleOTLPLogs).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/otlp/{project_id}/metrics", s.handleOTLPMetrics).Methods(http.MethodPost)

	s.router.HandleFunc("/projects/{project_id}/traces", s.handleListTraces).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{project_id}/traces", s.handleDeleteTraces).Methods(http.MethodDelete)
	s.router.HandleFunc("/projects/{project_id}/traces/{trace_id}", s.handleGetTrace).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{project_id}/traces/{trace_id}/spans", s.handleGetTraceSpans).Methods(http.MethodGet)

	s.router.HandleFunc("/projects/{project_id}/spans", s.handleListSpans).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{project_id}/spans", s.handleDeleteSpans).Methods(http.MethodDelete)
	s.router.HandleFunc("/projects/{project_id}/spans/feed", s.handleSpansFeed).Methods(http.MethodGet)

	s.router.HandleFunc("/projects/{project_id}/sessions", s.handleListSessions).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{project_id}/sessions", s.handleDeleteSessions).Methods(http.MethodDelete)
	s.router.HandleFunc("/projects/{project_id}/sessions/{session_id}", s.handleGetSession).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{project_id}/sessions/{session_id}/traces", s.handleGetSessionTraces).Methods(http.MethodGet)

	s.router.HandleFunc("/projects/{project_id}/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/projects/{project_id}/filter-options", s.handleFilterOptions).Methods(http.MethodGet)

	s.router.HandleFunc("/projects/{project_id}", s.handleDeleteProject).Methods(http.MethodDelete)
}

// Handler returns the server's handler with middleware applied, for use by
// both Start and httptest-based handler tests.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.corsMiddleware(s.router))
}

// Start runs the HTTP server and blocks until ctx is cancelled or
// ListenAndServe returns a fatal error.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.httpCfg.Host, s.httpCfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func main() {
	cfg := config.FromEnv()
	log := cfg.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(cfg.SelfTraceEnabled)
	if err != nil {
		log.Error("server: failed to start tracer provider", "error", err)
		os.Exit(1)
	}
	defer telemetry.Shutdown(context.Background(), tp)

	st, err := store.Open(ctx, cfg.StoreDSN, log)
	if err != nil {
		log.Error("server: failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	pipeline := ingest.New(cfg)

	var manager *pubsub.Manager
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		hostname, _ := os.Hostname()
		manager = pubsub.NewManager(client, "sideseat-server-"+hostname, log)
		defer manager.Shutdown()
	}

	srv := New(ServerConfig{}, cfg, st, pipeline, manager)
	if err := srv.Start(ctx); err != nil {
		log.Error("server: exited with error", "error", err)
		os.Exit(1)
	}
}
