package data

import (
	"context"
	"strconv"
	"strings"

	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
	"github.com/devricklin/feishu-digest-bot/internal/infra/moonshot"
)

// Completer is the chat completion call used for summaries
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string, maxTokens int) (string, error)
}

// moonshotRepo implements the summarizer repository with Moonshot
type moonshotRepo struct {
	client Completer
	prompt string
}

// NewMoonshotRepo creates a summarizer repository. prompt may use the {{max_length}} placeholder.
func NewMoonshotRepo(client *moonshot.Client, prompt string) repo.SummarizerRepo {
	if client == nil {
		return &moonshotRepo{}
	}
	return &moonshotRepo{client: client, prompt: prompt}
}

// IsEnabled reports whether a client is configured
func (r *moonshotRepo) IsEnabled() bool {
	return r.client != nil
}

// SummarizeChannel asks the model for a short paragraph about the transcript
func (r *moonshotRepo) SummarizeChannel(ctx context.Context, transcript string, maxLength int) (string, error) {
	system := strings.ReplaceAll(r.prompt, "{{max_length}}", strconv.Itoa(maxLength))

	// A token is roughly three characters of French or English text
	maxTokens := maxLength/3 + 50
	return r.client.Complete(ctx, system, transcript, maxTokens)
}
