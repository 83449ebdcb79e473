package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/antoniostano/traduttore/internal/audio"
	"github.com/antoniostano/traduttore/internal/language"
	"github.com/antoniostano/traduttore/internal/pipeline"
)

// minTranscribableEnergy rejects segments whose mean amplitude is effectively
// zero after normalization. Feeding such audio to Whisper produces
// hallucinated text.
const minTranscribableEnergy = 0.0001

type Config struct {
	CLI       string
	ModelPath string
	// Language is the fallback ISO code when the session gives no hint.
	// Empty means auto-detect.
	Language string
	Threads  int
	BeamSize int
	BestOf   int
}

// Whisper transcribes utterances by invoking the whisper.cpp CLI on a
// temporary WAV file.
type Whisper struct {
	cliPath   string
	modelPath string
	language  string
	threads   int
	beamSize  int
	bestOf    int
}

func New(cfg Config) (*Whisper, error) {
	cli := strings.TrimSpace(cfg.CLI)
	if cli == "" {
		cli = "whisper-cli"
	}
	cliPath, err := exec.LookPath(cli)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp CLI not found (%s)", cli)
	}

	modelPath := strings.TrimSpace(cfg.ModelPath)
	if modelPath == "" {
		return nil, fmt.Errorf("whisper model path is required")
	}
	if !filepath.IsAbs(modelPath) {
		if wd, err := os.Getwd(); err == nil {
			modelPath = filepath.Join(wd, modelPath)
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found: %s", modelPath)
	}

	threads := cfg.Threads
	if threads < 0 {
		return nil, fmt.Errorf("whisper threads must be >= 0")
	}
	if threads == 0 {
		threads = 4
		if n := runtime.NumCPU(); n > 0 {
			threads = n
		}
		if threads > 8 {
			threads = 8
		}
		if threads < 2 {
			threads = 2
		}
	}
	beamSize := cfg.BeamSize
	if beamSize <= 0 {
		beamSize = 1
	}
	bestOf := cfg.BestOf
	if bestOf <= 0 {
		bestOf = 1
	}

	return &Whisper{
		cliPath:   cliPath,
		modelPath: modelPath,
		language:  strings.TrimSpace(cfg.Language),
		threads:   threads,
		beamSize:  beamSize,
		bestOf:    bestOf,
	}, nil
}

func (w *Whisper) Transcribe(ctx context.Context, samples []float32, sampleRate int, languageHint string) (pipeline.RecognitionResult, error) {
	prepared, err := prepare(samples)
	if err != nil {
		return pipeline.RecognitionResult{}, err
	}
	if sampleRate <= 0 {
		sampleRate = pipeline.TargetRate
	}
	if sampleRate != pipeline.TargetRate {
		prepared = audio.Resample(prepared, sampleRate, pipeline.TargetRate)
		sampleRate = pipeline.TargetRate
	}

	tmpDir, err := os.MkdirTemp("", "traduttore-whisper-*")
	if err != nil {
		return pipeline.RecognitionResult{}, err
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "utterance.wav")
	if err := audio.WriteWAVPCM16LEFile(wavPath, audio.Float32ToPCM16LE(prepared), sampleRate); err != nil {
		return pipeline.RecognitionResult{}, err
	}
	outPrefix := filepath.Join(tmpDir, "out")

	lang := w.langFlag(languageHint)
	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-l", lang,
		"-otxt",
		"-of", outPrefix,
		"-nt",
		"-np",
	}
	if w.threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.threads))
	}
	if w.beamSize > 0 {
		args = append(args, "-bs", strconv.Itoa(w.beamSize))
	}
	if w.bestOf > 0 {
		args = append(args, "-bo", strconv.Itoa(w.bestOf))
	}

	cmd := exec.CommandContext(ctx, w.cliPath, args...)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return pipeline.RecognitionResult{}, context.Canceled
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return pipeline.RecognitionResult{}, fmt.Errorf("whisper.cpp timed out; consider a smaller model")
		}
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 8<<10 {
			detail = strings.TrimSpace(detail[len(detail)-(8<<10):])
		}
		if detail == "" {
			detail = err.Error()
		}
		return pipeline.RecognitionResult{}, fmt.Errorf("whisper.cpp failed: %s", detail)
	}

	b, err := os.ReadFile(outPrefix + ".txt")
	if err != nil {
		return pipeline.RecognitionResult{}, err
	}
	text := cleanTranscript(string(b))
	if text == "" {
		return pipeline.RecognitionResult{}, pipeline.ErrNoSpeech
	}

	detected := lang
	if lang == "auto" {
		detected = parseDetectedLanguage(stderr.String())
	}
	return pipeline.RecognitionResult{Text: text, Language: detected}, nil
}

// prepare normalizes a copy of the samples and rejects segments without
// usable speech energy.
func prepare(samples []float32) ([]float32, error) {
	if len(samples) == 0 {
		return nil, pipeline.ErrNoSpeech
	}
	out := make([]float32, len(samples))
	copy(out, samples)
	audio.Normalize(out)
	if audio.MeanAbs(out) < minTranscribableEnergy {
		return nil, pipeline.ErrNoSpeech
	}
	return out, nil
}

// langFlag resolves the -l argument from the session hint or the configured
// fallback. Hints may be display names or ISO codes.
func (w *Whisper) langFlag(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint != "" {
		if code, ok := language.Code(hint); ok {
			return code
		}
		if _, ok := language.Name(hint); ok {
			return strings.ToLower(hint)
		}
	}
	if w.language != "" {
		return w.language
	}
	return "auto"
}

var detectedLangRe = regexp.MustCompile(`auto-detected language:\s*([a-z]{2,3})`)

// parseDetectedLanguage pulls the language whisper.cpp reports on stderr when
// running with -l auto.
func parseDetectedLanguage(stderr string) string {
	m := detectedLangRe.FindStringSubmatch(stderr)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

var bracketedRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|♪+`)

// cleanTranscript strips non-speech annotations whisper emits for music or
// background noise, such as [BLANK_AUDIO] or (applause).
func cleanTranscript(text string) string {
	text = bracketedRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
