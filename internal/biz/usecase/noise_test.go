package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

func TestIsNoise(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"ok", true},
		{"OK!", true},
		{"Merci.", true},
		{"👍", true},
		{"hi", true},
		{"?!...", true},
		{"https://example.com/foo", true},
		{"Hello there", false},
		{"Deploy is done, see https://ci.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNoise(tt.text))
		})
	}
}

func TestNoiseFilter_ExtraWords(t *testing.T) {
	f := NewNoiseFilter("Bonne journée", " ")
	assert.True(t, f.IsNoise("bonne journée!"))
	assert.False(t, IsNoise("bonne journée!"))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "see for details", CleanText("  see   www.example.com\n for\tdetails "))
}

func TestCondense_SentenceLimit(t *testing.T) {
	out := Condense("Phrase1. Phrase2. Phrase3.", 2, 50)

	assert.Contains(t, out, "Phrase1")
	assert.Contains(t, out, "Phrase2")
	assert.NotContains(t, out, "Phrase3")
	assert.Contains(t, out, "(summarized)")
}

func TestCondense_LengthLimit(t *testing.T) {
	long := "Ceci est un message extrêmement long " + strings.Repeat("bla ", 50)

	out := Condense(long, 3, 60)

	assert.LessOrEqual(t, utf8.RuneCountInString(out), 70)
	assert.True(t, strings.HasSuffix(out, "[...]"))
}

func TestCondense_NoSentences(t *testing.T) {
	assert.Equal(t, "...", Condense("...", 3, 10))
}

func TestCondense_Uncut(t *testing.T) {
	assert.Equal(t, "One. Two", Condense("One. Two.", 3, 100))
}

func TestCondenseChannel(t *testing.T) {
	msgs := []domain.StoredMessage{
		{Author: "alice", Content: "We ship on Friday"},
		{Author: "bob", Content: "ok"},
		{Author: "carol", Content: "I will update the changelog"},
	}

	out := CondenseChannel(msgs, 400)
	assert.Equal(t, "alice: We ship on Friday | carol: I will update the changelog", out)

	assert.Equal(t, "(no relevant content)", CondenseChannel([]domain.StoredMessage{{Author: "x", Content: "👍"}}, 400))
}

func TestCondenser_FrenchMarker(t *testing.T) {
	c := NewCondenser(domain.FrenchLabels(), nil)
	out := c.Condense("Un. Deux. Trois. Quatre.", 1, 100)
	assert.Equal(t, "Un. (résumé...)", out)
}
