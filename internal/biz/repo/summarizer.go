package repo

import "context"

// SummarizerRepo condenses the transcript of a channel with a language model
type SummarizerRepo interface {
	// SummarizeChannel returns a short paragraph for the given transcript
	// (one "author: content" line per message)
	SummarizeChannel(ctx context.Context, transcript string, maxLength int) (string, error)

	// IsEnabled reports whether a model is configured
	IsEnabled() bool
}
