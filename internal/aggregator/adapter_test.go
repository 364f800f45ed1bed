package aggregator

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadWith(items []map[string]string) []byte {
	p := map[string]any{"results": items}
	raw, _ := json.Marshal(p)
	return raw
}

func TestAggregatePreservesRankOrder(t *testing.T) {
	raw := payloadWith([]map[string]string{
		{"title": "first", "url": "https://a", "content": "a"},
		{"title": "second", "url": "https://b", "content": "b"},
		{"title": "third", "url": "https://c", "content": "c"},
	})

	items := Aggregate(raw, CategoryGeneral, 5)
	require.Len(t, items, 3)
	assert.Equal(t, "first", items[0].Title)
	assert.Equal(t, "second", items[1].Title)
	assert.Equal(t, "third", items[2].Title)
}

func TestAggregateTruncatesToLimit(t *testing.T) {
	var entries []map[string]string
	for i := 0; i < 8; i++ {
		entries = append(entries, map[string]string{"title": fmt.Sprintf("r%d", i)})
	}

	items := Aggregate(payloadWith(entries), CategoryGeneral, 3)
	require.Len(t, items, 3)
	assert.Equal(t, "r0", items[0].Title)
	assert.Equal(t, "r2", items[2].Title)
}

func TestAggregateClampsLimit(t *testing.T) {
	var entries []map[string]string
	for i := 0; i < 30; i++ {
		entries = append(entries, map[string]string{"title": fmt.Sprintf("r%d", i)})
	}
	raw := payloadWith(entries)

	assert.Len(t, Aggregate(raw, CategoryGeneral, 0), 1, "below range clamps to minimum")
	assert.Len(t, Aggregate(raw, CategoryGeneral, 100), 20, "above range clamps to maximum")
}

// The category filter applies before the limit counts, so a scoped query can
// still fill its quota from matching items further down the ranking.
func TestAggregateFiltersCategoryBeforeTruncation(t *testing.T) {
	raw := payloadWith([]map[string]string{
		{"title": "n1", "category": "news"},
		{"title": "x1", "category": "images"},
		{"title": "n2", "category": "news"},
		{"title": "x2", "category": "videos"},
		{"title": "n3", "category": "news"},
	})

	items := Aggregate(raw, CategoryNews, 3)
	require.Len(t, items, 3)
	assert.Equal(t, "n1", items[0].Title)
	assert.Equal(t, "n2", items[1].Title)
	assert.Equal(t, "n3", items[2].Title)
}

func TestAggregateGeneralKeepsAllCategories(t *testing.T) {
	raw := payloadWith([]map[string]string{
		{"title": "a", "category": "news"},
		{"title": "b", "category": "science"},
		{"title": "c"},
	})

	items := Aggregate(raw, CategoryGeneral, 5)
	assert.Len(t, items, 3)
}

func TestAggregateUntaggedItemsSurviveScopedQuery(t *testing.T) {
	raw := payloadWith([]map[string]string{
		{"title": "tagged", "category": "news"},
		{"title": "untagged"},
	})

	items := Aggregate(raw, CategoryNews, 5)
	require.Len(t, items, 2)
}

func TestAggregateThumbnailFallback(t *testing.T) {
	raw := payloadWith([]map[string]string{
		{"title": "with", "thumbnail": "https://img.example/t.png"},
		{"title": "without"},
	})

	items := Aggregate(raw, CategoryNews, 5)
	require.Len(t, items, 2)
	assert.Equal(t, "https://img.example/t.png", items[0].Image)
	assert.Equal(t, PlaceholderImage(CategoryNews), items[1].Image)
}

func TestAggregateMalformedPayload(t *testing.T) {
	for _, raw := range [][]byte{
		nil,
		[]byte(""),
		[]byte("<html>not json</html>"),
		[]byte(`{"results": "not an array"}`),
		[]byte(`{}`),
	} {
		items := Aggregate(raw, CategoryGeneral, 5)
		require.NotNil(t, items)
		assert.Empty(t, items)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	raw := payloadWith([]map[string]string{
		{"title": "a", "url": "https://a", "content": "x"},
		{"title": "b", "url": "https://b", "content": "y"},
	})

	first := Aggregate(raw, CategoryGeneral, 5)
	second := Aggregate(raw, CategoryGeneral, 5)
	assert.Equal(t, first, second)
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryGeneral.Valid())
	assert.True(t, CategoryResearch.Valid())
	assert.False(t, Category("images").Valid())
	assert.False(t, Category("").Valid())
}

func TestCategoryUpstream(t *testing.T) {
	assert.Equal(t, "", CategoryGeneral.Upstream())
	assert.Equal(t, "science", CategoryResearch.Upstream())
	assert.Equal(t, "news", CategoryNews.Upstream())
	assert.Equal(t, "technology", CategoryTechnology.Upstream())
}
