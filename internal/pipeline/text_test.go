package pipeline

import "testing"

func TestIsCompleteSentence(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"Done.", true},
		{"Really?", true},
		{"Stop!", true},
		{"so anyway", false},
		{"one two three four", false},
		{"one two three four five", true},
		{"this sentence trails off without punctuation but is long", true},
	}
	for _, tt := range tests {
		if got := IsCompleteSentence(tt.text); got != tt.want {
			t.Fatalf("IsCompleteSentence(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
