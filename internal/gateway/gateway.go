// Package gateway is the request orchestration pipeline.
//
// DESIGN: Request flow:
//   - sanitizeMiddleware: replaces the inbound header set before anything
//     downstream can observe it
//   - handleSearch: Sanitized -> Transport -> Aggregate -> best-effort
//     Summarize
//   - handleChat:   Sanitized -> session lease -> append user turn ->
//     optional fresh lookup -> best-effort ChatReply -> append reply
//
// The controller is the only component that calls two components in one
// request; it owns the partial-failure policy (degrade, not abort).
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/veilsearch/gateway/internal/aggregator"
	"github.com/veilsearch/gateway/internal/config"
	"github.com/veilsearch/gateway/internal/conversation"
	"github.com/veilsearch/gateway/internal/monitoring"
	"github.com/veilsearch/gateway/internal/sanitize"
	"github.com/veilsearch/gateway/internal/transport"
)

// SessionTokenHeader carries the caller's opaque session token. Session
// correlation is the caller's responsibility; nothing is inferred from
// transport metadata.
const SessionTokenHeader = "X-Session-Token"

// RequestIDHeader echoes the per-request ID back to the caller.
const RequestIDHeader = "X-Request-Id"

// Searcher is the anonymizing transport capability the controller needs.
type Searcher interface {
	Search(ctx context.Context, params transport.SearchParams) ([]byte, error)
}

// Generator is the completion service capability the controller needs.
type Generator interface {
	Summarize(ctx context.Context, results []aggregator.ResultItem) (string, error)
	ChatReply(ctx context.Context, window []conversation.Message, freshContext []aggregator.ResultItem) (string, error)
}

// Gateway sequences the pipeline stages and shapes the outward response.
type Gateway struct {
	cfg       *config.Config
	searcher  Searcher
	generator Generator
	sessions  *conversation.Manager
	metrics   *monitoring.MetricsCollector
	server    *http.Server
}

// New creates a gateway controller. A nil metrics collector gets a fresh
// one; passing a shared collector lets the transport layer report into the
// same counters.
func New(cfg *config.Config, searcher Searcher, generator Generator, sessions *conversation.Manager, metrics *monitoring.MetricsCollector) *Gateway {
	if metrics == nil {
		metrics = monitoring.NewMetricsCollector()
	}
	return &Gateway{
		cfg:       cfg,
		searcher:  searcher,
		generator: generator,
		sessions:  sessions,
		metrics:   metrics,
	}
}

// Router builds the HTTP routes.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(g.cfg.Server.WriteTimeout.Std()))
	r.Use(g.requestIDMiddleware)
	r.Use(g.corsMiddleware)
	r.Use(g.sanitizeMiddleware)

	r.Get("/search", g.handleSearch)
	r.Post("/chat", g.handleChat)
	r.Get("/health", g.handleHealth)
	r.Get("/stats", g.handleStats)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.cfg.Server.Host, g.cfg.Server.Port)
	g.server = &http.Server{
		Addr:         addr,
		Handler:      g.Router(),
		ReadTimeout:  g.cfg.Server.ReadTimeout.Std(),
		WriteTimeout: g.cfg.Server.WriteTimeout.Std(),
	}
	log.Info().Str("addr", addr).Msg("starting gateway")
	return g.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server != nil {
		return g.server.Shutdown(ctx)
	}
	return nil
}

// sanitizeMiddleware replaces the inbound header set with its sanitized
// form. Downstream stages never see identifying headers; they are gone
// before dispatch.
func (g *Gateway) sanitizeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header = sanitize.Sanitize(r.Header)
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware assigns a server-generated request ID. Inbound IDs
// are ignored: correlation handles must not originate from the client path.
func (g *Gateway) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// corsMiddleware answers preflight and tags allowed origins. No
// credentials, no cookies.
func (g *Gateway) corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(g.cfg.CORS.Origins))
	for _, o := range g.cfg.CORS.Origins {
		allowed[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Read Origin before the sanitizer strips it; CORS is the one
		// consumer that legitimately needs it, and it never travels
		// further than this middleware.
		if origin := r.Header.Get("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SessionTokenHeader)
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns gateway health status.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStats returns operational counters. No per-request data.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.metrics.FullStats())
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
