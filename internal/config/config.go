package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the translation service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// ProviderMode selects real or mock providers: auto, local, mock.
	ProviderMode string

	WhisperCLI       string
	WhisperModelPath string
	WhisperLanguage  string
	WhisperThreads   int
	WhisperBeamSize  int
	WhisperBestOf    int

	TranslateBaseURL string
	TranslateAPIKey  string
	TranslateModel   string
	TranslateTimeout time.Duration

	TTSBaseURL string
	TTSAPIKey  string
	TTSModel   string
	TTSVoice   string

	AudioSpoolDir    string
	AudioOutputDelay time.Duration

	// Segmentation tuning applied to new sessions.
	BlockDuration time.Duration
	MinSilence    time.Duration
	MinSpeech     time.Duration
	MaxSpeech     time.Duration
	Overlap       time.Duration
	MaxBuffer     time.Duration
	PoolSize      int

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "traduttore"),
		AllowAnyOrigin:   false,
		ProviderMode:     envOrDefault("PROVIDER_MODE", "auto"),
		WhisperCLI:       envOrDefault("WHISPER_CLI", "whisper-cli"),
		WhisperModelPath: envOrDefault("WHISPER_MODEL_PATH", ".models/whisper/ggml-small.bin"),
		WhisperLanguage:  stringsTrimSpace("WHISPER_LANGUAGE"),
		// 0 means "auto" (picked based on CPU count).
		WhisperThreads:  0,
		WhisperBeamSize: 1,
		WhisperBestOf:   1,
		// Ollama serves the OpenAI chat API under /v1.
		TranslateBaseURL: envOrDefault("TRANSLATE_BASE_URL", "http://localhost:11434/v1"),
		TranslateAPIKey:  envOrDefault("TRANSLATE_API_KEY", "ollama"),
		TranslateModel:   envOrDefault("TRANSLATE_MODEL", "llama3.2:3b-instruct-q4_K_M"),
		TranslateTimeout: 60 * time.Second,
		TTSBaseURL:       envOrDefault("TTS_BASE_URL", "http://localhost:8880/v1"),
		TTSAPIKey:        envOrDefault("TTS_API_KEY", "not-needed"),
		TTSModel:         envOrDefault("TTS_MODEL", "kokoro"),
		TTSVoice:         envOrDefault("TTS_VOICE", "em_alex"),
		AudioSpoolDir:    envOrDefault("AUDIO_SPOOL_DIR", "temp_audio"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:  15 * time.Second,
		BlockDuration:    50 * time.Millisecond,
		MinSilence:       800 * time.Millisecond,
		MinSpeech:        1500 * time.Millisecond,
		MaxSpeech:        8 * time.Second,
		Overlap:          500 * time.Millisecond,
		MaxBuffer:        20 * time.Second,
		PoolSize:         2,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.TranslateTimeout, err = durationFromEnv("TRANSLATE_TIMEOUT", cfg.TranslateTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AudioOutputDelay, err = durationFromEnv("AUDIO_OUTPUT_DELAY", cfg.AudioOutputDelay)
	if err != nil {
		return Config{}, err
	}

	cfg.WhisperThreads, err = intFromEnv("WHISPER_THREADS", cfg.WhisperThreads)
	if err != nil {
		return Config{}, err
	}
	cfg.WhisperBeamSize, err = intFromEnv("WHISPER_BEAM_SIZE", cfg.WhisperBeamSize)
	if err != nil {
		return Config{}, err
	}
	cfg.WhisperBestOf, err = intFromEnv("WHISPER_BEST_OF", cfg.WhisperBestOf)
	if err != nil {
		return Config{}, err
	}

	cfg.BlockDuration, err = durationFromEnv("SEG_BLOCK_DURATION", cfg.BlockDuration)
	if err != nil {
		return Config{}, err
	}
	cfg.MinSilence, err = durationFromEnv("SEG_MIN_SILENCE", cfg.MinSilence)
	if err != nil {
		return Config{}, err
	}
	cfg.MinSpeech, err = durationFromEnv("SEG_MIN_SPEECH", cfg.MinSpeech)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxSpeech, err = durationFromEnv("SEG_MAX_SPEECH", cfg.MaxSpeech)
	if err != nil {
		return Config{}, err
	}
	cfg.Overlap, err = durationFromEnv("SEG_OVERLAP", cfg.Overlap)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxBuffer, err = durationFromEnv("SEG_MAX_BUFFER", cfg.MaxBuffer)
	if err != nil {
		return Config{}, err
	}
	cfg.PoolSize, err = intFromEnv("TRANSLATE_POOL_SIZE", cfg.PoolSize)
	if err != nil {
		return Config{}, err
	}

	switch cfg.ProviderMode {
	case "auto", "local", "mock":
	default:
		return Config{}, fmt.Errorf("PROVIDER_MODE must be auto, local or mock")
	}
	if cfg.WhisperThreads < 0 {
		return Config{}, fmt.Errorf("WHISPER_THREADS must be >= 0")
	}
	if cfg.WhisperBeamSize <= 0 {
		return Config{}, fmt.Errorf("WHISPER_BEAM_SIZE must be positive")
	}
	if cfg.WhisperBestOf <= 0 {
		return Config{}, fmt.Errorf("WHISPER_BEST_OF must be positive")
	}
	if cfg.PoolSize <= 0 {
		return Config{}, fmt.Errorf("TRANSLATE_POOL_SIZE must be positive")
	}
	if cfg.AudioOutputDelay < 0 {
		return Config{}, fmt.Errorf("AUDIO_OUTPUT_DELAY must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
