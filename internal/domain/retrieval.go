package domain

// RetrievalResult is one knowledge-base passage scored against a query.
// Produced per request and never persisted.
type RetrievalResult struct {
	Text      string
	Score     float64
	SourceURI string
}
