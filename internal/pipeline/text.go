package pipeline

import "strings"

// IsCompleteSentence reports whether text ends in terminal punctuation or is
// long enough to read as a standalone phrase. Short unterminated fragments are
// held back so they merge with the following utterance instead of flashing on
// screen.
func IsCompleteSentence(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return true
	}
	return len(strings.Fields(text)) >= 5
}
