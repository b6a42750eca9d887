package usecase

import (
	"regexp"
	"strings"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

const (
	// ChannelSentences is the number of sentences kept when condensing a channel
	ChannelSentences = 3
	channelSeparator = " | "
)

var sentenceSplitPattern = regexp.MustCompile(`[.!?]`)

// ChannelCondenser turns the messages of one channel into a short paragraph
type ChannelCondenser interface {
	CondenseChannel(messages []domain.StoredMessage, maxLength int) string
}

// Condenser is the naive extractive condenser. The limits are always applied in the same
// order: sentence count, then character length, then the summarized marker.
type Condenser struct {
	Ellipsis  string
	Marker    string
	NoContent string
	Sentences int
	Separator string
	Noise     *NoiseFilter
}

// NewCondenser creates a condenser using the wording of labels
func NewCondenser(labels domain.ReportLabels, noise *NoiseFilter) *Condenser {
	if noise == nil {
		noise = defaultNoiseFilter
	}
	return &Condenser{
		Ellipsis:  labels.Ellipsis,
		Marker:    labels.Summarized,
		NoContent: labels.ChannelNoContent,
		Sentences: ChannelSentences,
		Separator: channelSeparator,
		Noise:     noise,
	}
}

var defaultCondenser = NewCondenser(domain.EnglishLabels(), nil)

// Condense keeps the first maxUnits sentences of text, capped at maxLength runes
func Condense(text string, maxUnits, maxLength int) string {
	return defaultCondenser.Condense(text, maxUnits, maxLength)
}

// CondenseChannel condenses the non-noise messages of a channel
func CondenseChannel(messages []domain.StoredMessage, maxLength int) string {
	return defaultCondenser.CondenseChannel(messages, maxLength)
}

// Condense keeps the first maxUnits sentences of text, capped at maxLength runes.
// Text without any sentence is returned unchanged.
func (c *Condenser) Condense(text string, maxUnits, maxLength int) string {
	var sentences []string
	for _, s := range sentenceSplitPattern.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return text
	}

	if maxUnits < 1 {
		maxUnits = 1
	}
	cut := len(sentences) > maxUnits
	if cut {
		sentences = sentences[:maxUnits]
	}

	extracted := strings.Join(sentences, ". ")
	if cut {
		extracted += "."
	}

	if maxLength > 0 {
		if runes := []rune(extracted); len(runes) > maxLength {
			extracted = string(runes[:maxLength]) + c.Ellipsis
		}
	}

	if cut {
		extracted += " " + c.Marker
	}
	return extracted
}

// CondenseChannel joins "author: content" for each non-noise message and condenses the result
func (c *Condenser) CondenseChannel(messages []domain.StoredMessage, maxLength int) string {
	var parts []string
	for _, m := range messages {
		if c.Noise.IsNoise(m.Content) {
			continue
		}
		parts = append(parts, m.Author+": "+CleanText(m.Content))
	}
	if len(parts) == 0 {
		return c.NoContent
	}

	sentences := c.Sentences
	if sentences <= 0 {
		sentences = ChannelSentences
	}
	return c.Condense(strings.Join(parts, c.Separator), sentences, maxLength)
}
