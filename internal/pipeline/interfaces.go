package pipeline

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by a Recognizer when the audio carries no usable
// speech (pure silence, near-zero energy). It is not treated as a failure.
var ErrNoSpeech = errors.New("no speech detected")

// RecognitionResult is the transcript of one utterance.
type RecognitionResult struct {
	Text     string
	Language string // ISO 639-1 code when the recognizer detected one
}

// Recognizer converts an utterance's samples into text. Implementations must
// be safe for sequential calls from a single session goroutine.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int, languageHint string) (RecognitionResult, error)
}

// Translator renders text from one language into another.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang, model string) (string, error)
}

// Synthesizer speaks a translation and returns a URL where the rendered audio
// can be fetched by listeners.
type Synthesizer interface {
	Speak(ctx context.Context, text, voice string) (string, error)
}

// LanguageDetector resolves the language of a transcript when the recognizer
// reported none.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}
