// Package aggregator normalizes metasearch output into ranked result items.
//
// The adapter is a pure function over the raw aggregator payload: same
// payload and limit in, same ordered items out. Malformed or empty payloads
// yield an empty slice - "no results" is a terminal state, not a failure.
package aggregator

import (
	"github.com/tidwall/gjson"

	"github.com/veilsearch/gateway/internal/config"
)

// Category is the user-facing search category.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryNews       Category = "news"
	CategoryResearch   Category = "research"
	CategoryTechnology Category = "technology"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryNews, CategoryResearch, CategoryTechnology:
		return true
	}
	return false
}

// Upstream returns the aggregator-side category parameter, empty for
// general (the aggregator's default scope).
func (c Category) Upstream() string {
	switch c {
	case CategoryGeneral:
		return ""
	case CategoryResearch:
		return "science"
	default:
		return string(c)
	}
}

// categoryImages maps categories to placeholder thumbnails used when a
// result carries no media of its own.
var categoryImages = map[Category]string{
	CategoryGeneral:    "https://via.placeholder.com/100x100?text=General",
	CategoryNews:       "https://via.placeholder.com/100x100?text=News",
	CategoryResearch:   "https://via.placeholder.com/100x100?text=Research",
	CategoryTechnology: "https://via.placeholder.com/100x100?text=Tech",
}

// PlaceholderImage returns the fallback thumbnail for a category.
func PlaceholderImage(c Category) string {
	if img, ok := categoryImages[c]; ok {
		return img
	}
	return categoryImages[CategoryGeneral]
}

// ResultItem is one normalized search result in aggregator rank order.
type ResultItem struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Content  string `json:"content"`
	Image    string `json:"image,omitempty"`
	Category string `json:"-"`
}

// Aggregate parses the raw aggregator payload into ResultItems, preserving
// source rank order. The category filter applies before truncation; limit is
// clamped to [MinResultCount, MaxResultCount] to bound downstream
// summarization cost.
func Aggregate(raw []byte, category Category, limit int) []ResultItem {
	if limit < config.MinResultCount {
		limit = config.MinResultCount
	}
	if limit > config.MaxResultCount {
		limit = config.MaxResultCount
	}

	if !gjson.ValidBytes(raw) {
		return []ResultItem{}
	}

	results := gjson.GetBytes(raw, "results")
	if !results.IsArray() {
		return []ResultItem{}
	}

	upstream := category.Upstream()
	items := make([]ResultItem, 0, limit)
	results.ForEach(func(_, r gjson.Result) bool {
		itemCategory := r.Get("category").String()
		// A category-scoped query may still return items tagged with a
		// different category; drop those before counting toward the limit.
		if upstream != "" && itemCategory != "" && itemCategory != upstream {
			return true
		}

		image := r.Get("thumbnail").String()
		if image == "" {
			image = PlaceholderImage(category)
		}
		items = append(items, ResultItem{
			Title:    r.Get("title").String(),
			URL:      r.Get("url").String(),
			Content:  r.Get("content").String(),
			Image:    image,
			Category: itemCategory,
		})
		return len(items) < limit
	})
	return items
}
