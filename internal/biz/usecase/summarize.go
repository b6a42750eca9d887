package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

// SummaryTimeout bounds one model call
const SummaryTimeout = 30 * time.Second

// LLMCondenser condenses channels with a language model and falls back to the naive
// condenser on any error
type LLMCondenser struct {
	summarizer repo.SummarizerRepo
	fallback   ChannelCondenser
	noise      *NoiseFilter
	ellipsis   string
}

// NewLLMCondenser returns fallback unchanged when no model is configured
func NewLLMCondenser(summarizer repo.SummarizerRepo, fallback *Condenser) ChannelCondenser {
	if summarizer == nil || !summarizer.IsEnabled() {
		return fallback
	}
	return &LLMCondenser{
		summarizer: summarizer,
		fallback:   fallback,
		noise:      fallback.Noise,
		ellipsis:   fallback.Ellipsis,
	}
}

// CondenseChannel sends the non-noise transcript to the model
func (c *LLMCondenser) CondenseChannel(messages []domain.StoredMessage, maxLength int) string {
	var lines []string
	for _, m := range messages {
		if c.noise.IsNoise(m.Content) {
			continue
		}
		lines = append(lines, m.Author+": "+CleanText(m.Content))
	}
	if len(lines) == 0 {
		return c.fallback.CondenseChannel(messages, maxLength)
	}

	ctx, cancel := context.WithTimeout(context.Background(), SummaryTimeout)
	defer cancel()

	summary, err := c.summarizer.SummarizeChannel(ctx, strings.Join(lines, "\n"), maxLength)
	if err != nil {
		fmt.Printf("[Summarize] Model failed, using extractive summary: %v\n", err)
		return c.fallback.CondenseChannel(messages, maxLength)
	}
	summary = CleanText(summary)
	if summary == "" {
		return c.fallback.CondenseChannel(messages, maxLength)
	}
	return truncateRunes(summary, maxLength, c.ellipsis)
}
