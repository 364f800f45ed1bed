package monitoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestScrubRedactsQueryFields(t *testing.T) {
	payload := []byte(`{"q": "embarrassing medical question", "status": 400, "detail": "bad query"}`)

	out := Scrub(payload)
	assert.NotContains(t, out, "embarrassing")
	assert.Equal(t, "[redacted]", gjson.Get(out, "q").String())
	assert.Equal(t, "[redacted]", gjson.Get(out, "detail").String())
	assert.Equal(t, int64(400), gjson.Get(out, "status").Int())
}

func TestScrubRedactsMessages(t *testing.T) {
	payload := []byte(`{"messages": [{"role": "user", "content": "private chat"}], "model": "gpt-3.5-turbo"}`)

	out := Scrub(payload)
	assert.NotContains(t, out, "private chat")
	assert.Equal(t, "gpt-3.5-turbo", gjson.Get(out, "model").String())
}

func TestScrubLeavesCleanPayloadsAlone(t *testing.T) {
	payload := []byte(`{"status": 502, "code": "upstream_error"}`)
	assert.JSONEq(t, string(payload), Scrub(payload))
}

func TestScrubNonJSON(t *testing.T) {
	assert.Equal(t, "[unparseable payload redacted]", Scrub([]byte("<html>502 Bad Gateway</html>")))
	assert.Equal(t, "[unparseable payload redacted]", Scrub(nil))
}

func TestScrubBoundsLength(t *testing.T) {
	payload := []byte(`{"code": "` + strings.Repeat("x", 2000) + `"}`)
	assert.LessOrEqual(t, len(Scrub(payload)), maxScrubbedLen)
}
