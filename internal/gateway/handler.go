package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veilsearch/gateway/internal/aggregator"
	"github.com/veilsearch/gateway/internal/conversation"
	"github.com/veilsearch/gateway/internal/orchestrator"
	"github.com/veilsearch/gateway/internal/transport"
)

// handleSearch runs the search pipeline: transport -> aggregate ->
// best-effort summarize. A generation failure degrades to summary: null; a
// transport failure after retry is fatal since results are the core value.
func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, verr := g.parseSearchRequest(r)
	if verr != nil {
		g.metrics.RecordRejected()
		writeError(w, http.StatusBadRequest, "validation_error", verr.Error())
		return
	}

	raw, err := g.searcher.Search(r.Context(), transport.SearchParams{
		Query:    req.Query,
		Language: req.Language,
		Category: req.Category.Upstream(),
	})
	if err != nil {
		g.metrics.RecordTransportFailure()
		g.metrics.RecordRequest(false)
		kind := transportKind(err)
		log.Warn().
			Str("request_id", requestIDFrom(r.Context())).
			Str("kind", kind).
			Msg("aggregator unreachable")
		writeError(w, http.StatusBadGateway, kind, "error contacting search aggregator")
		return
	}

	results := aggregator.Aggregate(raw, req.Category, req.Count)

	resp := searchResponse{Query: req.Query, Results: results}
	summary, err := g.generator.Summarize(r.Context(), results)
	if err != nil {
		resp.Degraded = degradedFor("summarize", err)
		g.metrics.RecordGenerationFailure()
		g.metrics.RecordDegraded()
		log.Warn().
			Str("request_id", requestIDFrom(r.Context())).
			Str("kind", resp.Degraded.Kind).
			Msg("summary unavailable, degrading")
	} else {
		resp.Summary = &summary
	}

	g.metrics.RecordRequest(true)
	log.Info().
		Str("request_id", requestIDFrom(r.Context())).
		Int("results", len(results)).
		Bool("degraded", resp.Degraded != nil).
		Dur("latency", time.Since(start)).
		Msg("search completed")
	writeJSON(w, resp)
}

// handleChat runs the chat pipeline. The user message joins the window
// before generation, the assistant reply after it, and neither append is
// committed to the session until the full exchange succeeds.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, verr := g.parseChatRequest(r)
	if verr != nil {
		g.metrics.RecordRejected()
		writeError(w, http.StatusBadRequest, "validation_error", verr.Error())
		return
	}

	var lease *conversation.Lease
	token := r.Header.Get(SessionTokenHeader)
	if token != "" {
		var err error
		lease, err = g.sessions.Acquire(token)
		if err != nil {
			g.metrics.RecordSessionBusy()
			writeError(w, http.StatusConflict, "session_busy", "another chat exchange is in progress for this session")
			return
		}
		defer lease.Release()
	}

	userMsg := req.Messages[len(req.Messages)-1]

	// The caller's view seeds a fresh session; afterwards the server-side
	// window is authoritative. Both sides share the truncate-to-capacity
	// rule in conversation.FromMessages.
	var window conversation.Window
	if lease != nil && lease.Window().Len() > 0 {
		window = lease.Window().Append(userMsg)
	} else {
		window = conversation.FromMessages(req.Messages)
	}

	// Fresh aggregator context is best-effort: chat still works from the
	// window alone when the anonymized circuit is down.
	var freshContext []aggregator.ResultItem
	var ctxMarker *degradedMarker
	raw, err := g.searcher.Search(r.Context(), transport.SearchParams{
		Query:    userMsg.Content,
		Language: req.Language,
	})
	if err != nil {
		g.metrics.RecordTransportFailure()
		ctxMarker = &degradedMarker{Stage: "context", Kind: transportKind(err)}
		log.Warn().
			Str("request_id", requestIDFrom(r.Context())).
			Str("kind", ctxMarker.Kind).
			Msg("fresh context lookup failed, replying from window only")
	} else {
		freshContext = aggregator.Aggregate(raw, aggregator.CategoryGeneral, req.Count)
	}

	resp := chatResponse{}
	reply, err := g.generator.ChatReply(r.Context(), window.Messages(), freshContext)
	if err != nil {
		resp.Degraded = degradedFor("generate", err)
		g.metrics.RecordGenerationFailure()
		g.metrics.RecordDegraded()
		g.metrics.RecordRequest(true)
		log.Warn().
			Str("request_id", requestIDFrom(r.Context())).
			Str("kind", resp.Degraded.Kind).
			Msg("reply unavailable, degrading")
		writeJSON(w, resp)
		return
	}

	// Complete round-trip: commit both turns to the session.
	if lease != nil {
		lease.SetWindow(window.Append(conversation.Message{
			Role:    conversation.RoleAssistant,
			Content: reply,
		}))
	}

	resp.Reply = &reply
	if ctxMarker != nil {
		resp.Degraded = ctxMarker
		g.metrics.RecordDegraded()
	}
	g.metrics.RecordRequest(true)
	log.Info().
		Str("request_id", requestIDFrom(r.Context())).
		Int("window", window.Len()).
		Bool("fresh_context", len(freshContext) > 0).
		Dur("latency", time.Since(start)).
		Msg("chat completed")
	writeJSON(w, resp)
}

// degradedFor builds the stage-failure marker from a typed generation
// error.
func degradedFor(stage string, err error) *degradedMarker {
	kind := "unavailable"
	var gerr *orchestrator.GenerationError
	if errors.As(err, &gerr) {
		kind = string(gerr.Kind)
	}
	return &degradedMarker{Stage: stage, Kind: kind}
}

// transportKind extracts the failure kind from a typed transport error.
func transportKind(err error) string {
	var terr *transport.TransportError
	if errors.As(err, &terr) {
		return string(terr.Kind)
	}
	return "transport_error"
}
