package usecase

import (
	"strings"

	"genapp-chat/internal/domain"
)

// defaultFraming is the fixed system sentence opening every prompt.
const defaultFraming = "You are a helpful assistant with memory of our conversation."

// formatHistory renders turns as alternating User:/Assistant: lines. Turns
// must already be in chronological order.
func formatHistory(turns []domain.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		label := "Assistant"
		if t.Role == domain.RoleUser {
			label = "User"
		}
		lines = append(lines, label+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// buildPrompt assembles the generation prompt from the framing sentence, the
// optional conversation history and the optional document context. Exactly
// one of the two closing branches applies: grounded answering when any
// passage survived filtering, open-domain answering otherwise.
func buildPrompt(framing, history, docContext, query string) string {
	var b strings.Builder
	b.WriteString(framing)
	b.WriteString("\n")
	if history != "" {
		b.WriteString("\nPrevious conversation:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}
	if docContext != "" {
		b.WriteString("\nDocument context:\n")
		b.WriteString(docContext)
		b.WriteString("\n\nUser: ")
		b.WriteString(query)
		b.WriteString("\n\nProvide a helpful answer based on the context and our conversation:")
	} else {
		b.WriteString("\nUser: ")
		b.WriteString(query)
		b.WriteString("\n\nAnswer using your general knowledge:")
	}
	return b.String()
}

// filterByScore keeps results at or above the relevance threshold.
func filterByScore(results []domain.RetrievalResult, threshold float64) []domain.RetrievalResult {
	kept := make([]domain.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// joinContexts concatenates surviving passage texts with blank-line
// separation. Results with empty text contribute nothing.
func joinContexts(results []domain.RetrievalResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Text != "" {
			parts = append(parts, r.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// collectSources returns the trailing path segment of each result's source
// location, deduplicated, in first-seen order.
func collectSources(results []domain.RetrievalResult) []string {
	seen := make(map[string]struct{}, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		if r.SourceURI == "" {
			continue
		}
		name := r.SourceURI[strings.LastIndex(r.SourceURI, "/")+1:]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	return sources
}
