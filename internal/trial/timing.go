package trial

import (
	"strings"
	"time"
	"unicode"
)

// CountTokens counts the words of text. Punctuation separates words;
// apostrophes and hyphens inside a word do not.
func CountTokens(text string) int {
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	}))
}

// SentenceTokens returns the token count of the current sentence, or 0.
func (t *Trial) SentenceTokens() int {
	s := t.Sentence()
	if s == nil {
		return 0
	}
	return CountTokens(s.Text)
}

// ReadDuration is how long the current sentence is shown.
func (t *Trial) ReadDuration() time.Duration {
	return t.cfg.ReadFactor * time.Duration(t.SentenceTokens())
}

// WriteDuration is how long the player has to rewrite the current sentence.
func (t *Trial) WriteDuration() time.Duration {
	return t.cfg.WriteFactor * time.Duration(t.SentenceTokens())
}

// DistractDuration is how long the distraction lasts.
func (t *Trial) DistractDuration() time.Duration {
	return t.cfg.DistractDuration
}

// MinTokens is the minimum length of a reformulation.
func (t *Trial) MinTokens() int {
	return t.cfg.MinTokens
}
