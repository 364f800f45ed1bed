package monitoring

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// scrubbedFields are JSON paths that may carry user query or message text.
// Upstream error payloads sometimes echo the request back; those fields
// must not reach the logs.
var scrubbedFields = []string{
	"q",
	"query",
	"message",
	"messages",
	"results",
	"detail",
}

// maxScrubbedLen bounds scrubbed payloads in logs.
const maxScrubbedLen = 500

// Scrub removes query and message content from a JSON payload destined for
// logs. Non-JSON input is replaced wholesale, since it cannot be inspected.
func Scrub(payload []byte) string {
	if !gjson.ValidBytes(payload) {
		return "[unparseable payload redacted]"
	}
	out := payload
	for _, field := range scrubbedFields {
		if gjson.GetBytes(out, field).Exists() {
			if cleaned, err := sjson.SetBytes(out, field, "[redacted]"); err == nil {
				out = cleaned
			}
		}
	}
	if len(out) > maxScrubbedLen {
		out = out[:maxScrubbedLen]
	}
	return string(out)
}
