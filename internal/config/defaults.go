// Package config - defaults.go centralizes magic numbers and default values.
package config

import "time"

// =============================================================================
// HTTP SERVER
// =============================================================================

// DefaultServerHost is the listen address for the gateway.
const DefaultServerHost = "127.0.0.1"

// DefaultServerPort is the listen port for the gateway.
const DefaultServerPort = 8085

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout must cover both upstream calls plus margin.
const DefaultServerWriteTimeout = 60 * time.Second

// MaxRequestBodySize is the maximum allowed chat request body (1MB).
const MaxRequestBodySize = 1 * 1024 * 1024

// =============================================================================
// ANONYMIZING TRANSPORT
// =============================================================================

// DefaultProxyTimeout bounds a single aggregator call. Anonymized circuits
// add latency and variance, so this is deliberately generous.
const DefaultProxyTimeout = 15 * time.Second

// DefaultAggregatorURL is the metasearch endpoint (SearXNG JSON API).
const DefaultAggregatorURL = "http://localhost:8080/search"

// TransportMaxRetries is the number of automatic retries on proxy
// unavailability or timeout. Upstream errors are never retried.
const TransportMaxRetries = 1

// =============================================================================
// RESULTS
// =============================================================================

// DefaultResultCount is the number of results returned when the caller
// does not specify one.
const DefaultResultCount = 5

// MinResultCount and MaxResultCount bound the caller's result-count
// preference. Out-of-range values are rejected before any network call.
const (
	MinResultCount = 1
	MaxResultCount = 20
)

// DefaultSummarySourceLimit caps how many results feed the summary prompt,
// independent of how many are returned to the caller.
const DefaultSummarySourceLimit = 5

// =============================================================================
// COMPLETION SERVICE
// =============================================================================

// DefaultCompletionModel is the completion service model name.
const DefaultCompletionModel = "gpt-3.5-turbo"

// DefaultCompletionTimeout bounds a single completion call.
const DefaultCompletionTimeout = 30 * time.Second

// DefaultMaxSummaryTokens limits generated summary length.
const DefaultMaxSummaryTokens = 300

// DefaultMaxReplyTokens limits generated chat reply length.
const DefaultMaxReplyTokens = 400

// DefaultMaxPromptTokens bounds the prompt we build from result snippets
// and conversation turns, measured with the model's tokenizer.
const DefaultMaxPromptTokens = 3000

// DefaultTemperature for both summarization and chat generation.
const DefaultTemperature = 0.7

// =============================================================================
// SESSIONS
// =============================================================================

// WindowCapacity is the conversation window size: the most recent turns
// kept as chat context. FIFO eviction beyond this.
const WindowCapacity = 10

// DefaultSessionTTL is how long an idle session's window is retained.
const DefaultSessionTTL = 30 * time.Minute

// DefaultSessionSweepInterval is the frequency of the idle-session sweeper.
const DefaultSessionSweepInterval = 5 * time.Minute
