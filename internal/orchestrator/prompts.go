package orchestrator

import (
	"fmt"
	"strings"

	"github.com/veilsearch/gateway/internal/aggregator"
)

// NoResultsSummary is returned for an empty result set without calling the
// completion service.
const NoResultsSummary = "No results found."

const summaryInstruction = "You are a research assistant. Provide a concise summary of the following search results:"

const summaryFormat = "Write the summary as 3-5 bullet points focusing on key insights."

const chatSystemPrompt = "You are a helpful assistant. Answer clearly and factually. " +
	"When search context is provided, ground your answer in it."

// snippetBlock renders one result for the prompt. Titles and content only:
// URLs and media references never enter the prompt.
func snippetBlock(item aggregator.ResultItem) string {
	return fmt.Sprintf("Title: %s\nSnippet: %s\n", item.Title, item.Content)
}

// buildSummaryPrompt assembles the summarization prompt from at most limit
// results, trimming whole snippets from the tail until the prompt fits
// within budget tokens.
func (o *Orchestrator) buildSummaryPrompt(results []aggregator.ResultItem, limit int) string {
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	for len(results) > 0 {
		var b strings.Builder
		b.WriteString(summaryInstruction)
		b.WriteString("\n\n")
		for _, r := range results {
			b.WriteString(snippetBlock(r))
		}
		b.WriteString("\n")
		b.WriteString(summaryFormat)

		prompt := b.String()
		if len(results) == 1 || o.countTokens(prompt) <= o.maxPromptTokens {
			return prompt
		}
		results = results[:len(results)-1]
	}
	return summaryInstruction + "\n\n" + summaryFormat
}

// buildContextDigest renders fresh aggregator results as a compact digest
// for the chat system prompt.
func buildContextDigest(results []aggregator.ResultItem) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Search context:\n")
	for _, r := range results {
		b.WriteString(snippetBlock(r))
	}
	return b.String()
}
