package recognize

import (
	"errors"
	"testing"

	"github.com/antoniostano/traduttore/internal/pipeline"
)

func TestPrepareRejectsSilence(t *testing.T) {
	if _, err := prepare(nil); !errors.Is(err, pipeline.ErrNoSpeech) {
		t.Fatalf("empty input: %v, want ErrNoSpeech", err)
	}
	if _, err := prepare(make([]float32, 16000)); !errors.Is(err, pipeline.ErrNoSpeech) {
		t.Fatalf("zero input: %v, want ErrNoSpeech", err)
	}

	faint := make([]float32, 16000)
	for i := range faint {
		faint[i] = 0.00005
	}
	// Normalization leaves sub-unit peaks alone, so this stays below the gate.
	if _, err := prepare(faint); !errors.Is(err, pipeline.ErrNoSpeech) {
		t.Fatalf("faint input: %v, want ErrNoSpeech", err)
	}
}

func TestPrepareScalesClippedAudio(t *testing.T) {
	loud := make([]float32, 100)
	for i := range loud {
		loud[i] = 2.0
	}
	out, err := prepare(loud)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, s := range out {
		if s > 1 || s < -1 {
			t.Fatalf("sample %v out of range after normalization", s)
		}
	}
	if loud[0] != 2.0 {
		t.Fatal("input mutated")
	}
}

func TestCleanTranscript(t *testing.T) {
	tests := []struct{ in, want string }{
		{"[BLANK_AUDIO]", ""},
		{" (applause) ", ""},
		{"Hello there. [MUSIC] How are you?", "Hello there. How are you?"},
		{"♪♪ la la la", "la la la"},
		{"  plain   text  ", "plain text"},
	}
	for _, tt := range tests {
		if got := cleanTranscript(tt.in); got != tt.want {
			t.Fatalf("cleanTranscript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDetectedLanguage(t *testing.T) {
	stderr := "whisper_init_state: compute buffer\nauto-detected language: it (p = 0.974)\n"
	if got := parseDetectedLanguage(stderr); got != "it" {
		t.Fatalf("got %q, want it", got)
	}
	if got := parseDetectedLanguage("no detection line here"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestLangFlag(t *testing.T) {
	w := &Whisper{language: "en"}
	if got := w.langFlag("Italian"); got != "it" {
		t.Fatalf("name hint = %q, want it", got)
	}
	if got := w.langFlag("DE"); got != "de" {
		t.Fatalf("code hint = %q, want de", got)
	}
	if got := w.langFlag(""); got != "en" {
		t.Fatalf("fallback = %q, want en", got)
	}

	auto := &Whisper{}
	if got := auto.langFlag(""); got != "auto" {
		t.Fatalf("auto fallback = %q", got)
	}
}
