package translate

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Detector guesses the language of a transcript when the recognizer did not
// report one. The underlying models are large, so the detector is built
// lazily on first use.
type Detector struct {
	once sync.Once
	det  lingua.LanguageDetector
}

func NewDetector() *Detector {
	return &Detector{}
}

var detectorLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Polish,
	lingua.Czech,
	lingua.Romanian,
	lingua.Greek,
	lingua.Turkish,
	lingua.Swedish,
	lingua.Danish,
	lingua.Finnish,
	lingua.Arabic,
	lingua.Hebrew,
	lingua.Persian,
	lingua.Hindi,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Vietnamese,
	lingua.Thai,
	lingua.Indonesian,
}

// Detect returns the display name of the detected language. Short or
// ambiguous text reports false.
func (d *Detector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 4 {
		return "", false
	}
	d.once.Do(func() {
		d.det = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectorLanguages...).
			Build()
	})
	lang, ok := d.det.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	name := lang.String()
	// lingua spells a few languages differently from the prompt tables.
	if name == "Persian" {
		name = "Persian (Farsi)"
	}
	return name, true
}
