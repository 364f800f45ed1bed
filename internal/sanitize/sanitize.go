// Package sanitize strips client-identifying metadata from inbound requests.
//
// DESIGN: The sanitizer is the privacy boundary. Everything downstream of it
// (transport, aggregator adapter, orchestrator) only ever sees the sanitized
// header set, so the denylist here is the single place that decides what may
// cross to the outside.
package sanitize

import (
	"net/http"
	"net/textproto"
	"strings"
)

// deniedHeaders is the identifying-header denylist. Any header whose
// canonical name appears here is dropped. Sec-CH-UA* client hints are
// handled by prefix below.
var deniedHeaders = map[string]struct{}{
	// Client network path
	"X-Forwarded-For":     {},
	"X-Forwarded-Host":    {},
	"X-Forwarded-Proto":   {},
	"X-Real-Ip":           {},
	"Forwarded":           {},
	"Via":                 {},
	"True-Client-Ip":      {},
	"Cf-Connecting-Ip":    {},
	"X-Client-Ip":         {},
	"Fastly-Client-Ip":    {},
	"X-Cluster-Client-Ip": {},

	// Client identity and state
	"User-Agent":    {},
	"Cookie":        {},
	"Set-Cookie":    {},
	"Authorization": {},
	"Referer":       {},
	"Origin":        {},

	// Fingerprinting surface. The explicit locale parameter the user chose
	// travels as a query parameter, never as Accept-Language.
	"Accept-Language": {},
	"Dnt":             {},

	// Upstream tracing
	"X-Amzn-Trace-Id": {},
	"X-Request-Start": {},
}

// IsDenied reports whether a header name is on the identifying-header
// denylist. Matching is case-insensitive.
func IsDenied(name string) bool {
	canonical := textproto.CanonicalMIMEHeaderKey(name)
	if _, ok := deniedHeaders[canonical]; ok {
		return true
	}
	return strings.HasPrefix(canonical, "Sec-Ch-Ua")
}

// Sanitize returns a copy of raw with every identifying header removed.
// It is a pure transform: raw is never mutated, the output is deterministic,
// and a nil or empty input degrades to an empty header set.
func Sanitize(raw http.Header) http.Header {
	clean := make(http.Header, len(raw))
	for name, values := range raw {
		if IsDenied(name) {
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		clean[textproto.CanonicalMIMEHeaderKey(name)] = copied
	}
	return clean
}
