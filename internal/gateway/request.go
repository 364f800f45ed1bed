// Request parsing, validation, and response shaping.
//
// Validation rejects bad input before ANY network call: empty query or
// message, out-of-range result count, unknown category.
package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/veilsearch/gateway/internal/aggregator"
	"github.com/veilsearch/gateway/internal/config"
	"github.com/veilsearch/gateway/internal/conversation"
)

// ValidationError is a precise, user-visible input rejection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// searchRequest is a validated search request.
type searchRequest struct {
	Query    string
	Category aggregator.Category
	Language string
	Count    int
}

// chatRequest is a validated chat request.
type chatRequest struct {
	Messages []conversation.Message
	Language string
	Count    int
}

// parseSearchRequest validates the search query parameters.
func (g *Gateway) parseSearchRequest(r *http.Request) (*searchRequest, *ValidationError) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return nil, &ValidationError{Field: "q", Reason: "query must not be empty"}
	}

	category := aggregator.CategoryGeneral
	if raw := r.URL.Query().Get("category"); raw != "" {
		category = aggregator.Category(strings.ToLower(raw))
		if !category.Valid() {
			return nil, &ValidationError{Field: "category", Reason: "unknown category " + strconv.Quote(raw)}
		}
	}

	count, verr := parseCount(r, g.cfg.Search.DefaultCount)
	if verr != nil {
		return nil, verr
	}

	return &searchRequest{
		Query:    q,
		Category: category,
		Language: strings.TrimSpace(r.URL.Query().Get("language")),
		Count:    count,
	}, nil
}

// parseChatRequest validates the chat body and query parameters.
func (g *Gateway) parseChatRequest(r *http.Request) (*chatRequest, *ValidationError) {
	r.Body = http.MaxBytesReader(nil, r.Body, config.MaxRequestBodySize)

	var body struct {
		Messages []conversation.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, &ValidationError{Field: "body", Reason: "invalid JSON body"}
	}
	if len(body.Messages) == 0 {
		return nil, &ValidationError{Field: "messages", Reason: "messages must not be empty"}
	}
	for i, m := range body.Messages {
		if !m.Role.Valid() {
			return nil, &ValidationError{Field: "messages", Reason: "unknown role at index " + strconv.Itoa(i)}
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, &ValidationError{Field: "messages", Reason: "empty content at index " + strconv.Itoa(i)}
		}
	}
	last := body.Messages[len(body.Messages)-1]
	if last.Role != conversation.RoleUser {
		return nil, &ValidationError{Field: "messages", Reason: "last message must be from the user"}
	}

	count, verr := parseCount(r, g.cfg.Search.DefaultCount)
	if verr != nil {
		return nil, verr
	}

	return &chatRequest{
		Messages: body.Messages,
		Language: strings.TrimSpace(r.URL.Query().Get("language")),
		Count:    count,
	}, nil
}

// parseCount validates the result-count preference. Out-of-range values
// are rejected, not clamped, so the caller learns about the bound.
func parseCount(r *http.Request, fallback int) (int, *ValidationError) {
	raw := r.URL.Query().Get("num_results")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: "num_results", Reason: "must be an integer"}
	}
	if n < config.MinResultCount || n > config.MaxResultCount {
		return 0, &ValidationError{
			Field:  "num_results",
			Reason: "must be between " + strconv.Itoa(config.MinResultCount) + " and " + strconv.Itoa(config.MaxResultCount),
		}
	}
	return n, nil
}

// degradedMarker tells the caller which stage failed without failing the
// request.
type degradedMarker struct {
	Stage string `json:"stage"`
	Kind  string `json:"kind"`
}

// searchResponse is the outward shape of a search request.
type searchResponse struct {
	Query    string                  `json:"query"`
	Results  []aggregator.ResultItem `json:"results"`
	Summary  *string                 `json:"summary"`
	Degraded *degradedMarker         `json:"degraded,omitempty"`
}

// chatResponse is the outward shape of a chat request.
type chatResponse struct {
	Reply    *string         `json:"reply"`
	Degraded *degradedMarker `json:"degraded,omitempty"`
}

// writeError writes the structured error object.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"kind": kind, "message": message},
	})
}

// writeJSON writes a 200 response body.
func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
