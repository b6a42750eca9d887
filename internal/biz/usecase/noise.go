package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinContentRunes is the shortest cleaned text that can carry information
const MinContentRunes = 4

var (
	bareURLPattern   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	whitespaceRunPat = regexp.MustCompile(`\s+`)
)

// DefaultAcknowledgements are low-content replies dropped from reports
var DefaultAcknowledgements = []string{
	"ok", "okay", "oki", "k", "kk",
	"thanks", "thank you", "thx", "ty", "+1", "-1",
	"lol", "yes", "no", "yep", "nope", "cool", "nice", "great",
	"merci", "merci beaucoup", "mdr", "oui", "non", "d'accord", "dac",
	"ça marche", "ca marche", "top", "parfait", "super",
}

// NoiseFilter decides whether a message is substantive enough for a report
type NoiseFilter struct {
	acks map[string]struct{}
}

// NewNoiseFilter creates a filter with the default acknowledgements plus extra words
func NewNoiseFilter(extra ...string) *NoiseFilter {
	f := &NoiseFilter{acks: make(map[string]struct{}, len(DefaultAcknowledgements)+len(extra))}
	for _, w := range DefaultAcknowledgements {
		f.acks[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.acks[w] = struct{}{}
		}
	}
	return f
}

var defaultNoiseFilter = NewNoiseFilter()

// IsNoise reports whether text is noise according to the default filter
func IsNoise(text string) bool {
	return defaultNoiseFilter.IsNoise(text)
}

// CleanText trims, strips bare URLs and collapses internal whitespace
func CleanText(text string) string {
	text = bareURLPattern.ReplaceAllString(text, " ")
	text = whitespaceRunPat.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// IsNoise reports whether text is empty, an acknowledgement, symbols only, or too short
func (f *NoiseFilter) IsNoise(text string) bool {
	cleaned := CleanText(text)
	if cleaned == "" {
		return true
	}

	key := strings.ToLower(strings.TrimRight(cleaned, ".!? "))
	if _, ok := f.acks[key]; ok {
		return true
	}

	if !hasWordRune(cleaned) {
		return true
	}

	return utf8.RuneCountInString(cleaned) < MinContentRunes
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
