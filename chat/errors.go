package chat

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRetrieverRequired is returned when no retriever is provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when no generator is provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrEmptyQuery is returned for a question with no text.
	ErrEmptyQuery = errors.New("empty query")

	// ErrTurnPanicked wraps a panic recovered at the turn boundary.
	ErrTurnPanicked = errors.New("turn panicked")
)

// Fixed replies shown to the user.
const (
	// NoResultsNotice is shown when retrieval found nothing.
	NoResultsNotice = "No relevant information found. Try rephrasing your question."

	// GenerationErrorAnswer replaces the answer when generation failed.
	GenerationErrorAnswer = "Sorry, I encountered an error generating a response. Please try again."

	// RateLimitedAnswer replaces the answer when generation stayed rate limited.
	RateLimitedAnswer = "Sorry, the service is temporarily unavailable due to rate limits. Please try again in a moment."
)
