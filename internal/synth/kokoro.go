package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	SpoolDir string
	Timeout  time.Duration
}

// Kokoro renders speech through a Kokoro-FastAPI server, which exposes the
// OpenAI audio/speech API. Rendered clips are spooled as MP3 files and served
// to listeners over HTTP.
type Kokoro struct {
	api      oai.Client
	model    string
	spoolDir string
	logger   *log.Logger
}

// spoolMaxAge bounds how long rendered clips are kept on disk.
const spoolMaxAge = time.Hour

func NewKokoro(cfg Config, logger *log.Logger) (*Kokoro, error) {
	if logger == nil {
		logger = log.Default()
	}
	spoolDir := strings.TrimSpace(cfg.SpoolDir)
	if spoolDir == "" {
		spoolDir = "temp_audio"
	}
	if err := os.MkdirAll(spoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "kokoro"
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	k := &Kokoro{
		api:      oai.NewClient(opts...),
		model:    model,
		spoolDir: spoolDir,
		logger:   logger,
	}
	if n := k.cleanSpool(0); n > 0 {
		logger.Printf("synth: removed %d leftover spool files", n)
	}
	return k, nil
}

// Speak renders text with the given voice and returns the URL path of the
// spooled clip.
func (k *Kokoro) Speak(ctx context.Context, text, voice string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("nothing to speak")
	}
	if !IsKnownVoice(voice) {
		return "", fmt.Errorf("unknown voice %q", voice)
	}

	resp, err := k.api.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(k.model),
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return "", fmt.Errorf("kokoro synthesis: %w", err)
	}
	defer resp.Body.Close()

	name := "tts_" + uuid.NewString() + ".mp3"
	path := filepath.Join(k.spoolDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return "", copyErr
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return "", closeErr
	}
	if n == 0 {
		_ = os.Remove(path)
		return "", errors.New("kokoro returned no audio")
	}

	k.cleanSpool(spoolMaxAge)
	return "/audio/" + name, nil
}

// Ping verifies the TTS server answers the models endpoint.
func (k *Kokoro) Ping(ctx context.Context) error {
	_, err := k.api.Models.List(ctx)
	return err
}

// SpoolDir returns the directory holding rendered clips, for the HTTP file
// server.
func (k *Kokoro) SpoolDir() string { return k.spoolDir }

// cleanSpool removes spooled clips older than maxAge and reports how many
// were deleted. A zero maxAge removes everything.
func (k *Kokoro) cleanSpool(maxAge time.Duration) int {
	matches, err := filepath.Glob(filepath.Join(k.spoolDir, "tts_*.mp3"))
	if err != nil {
		return 0
	}
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if maxAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		} else {
			k.logger.Printf("synth: failed to remove %s: %v", path, err)
		}
	}
	return removed
}
