package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/antoniostano/traduttore/internal/config"
	"github.com/antoniostano/traduttore/internal/history"
	"github.com/antoniostano/traduttore/internal/httpapi"
	"github.com/antoniostano/traduttore/internal/observability"
	"github.com/antoniostano/traduttore/internal/pipeline"
	"github.com/antoniostano/traduttore/internal/recognize"
	"github.com/antoniostano/traduttore/internal/reliability"
	"github.com/antoniostano/traduttore/internal/synth"
	"github.com/antoniostano/traduttore/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	logger := log.Default()

	ctx := context.Background()
	store, err := history.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer store.Close()

	var (
		recognizer     pipeline.Recognizer
		translator     pipeline.Translator
		synthesizer    pipeline.Synthesizer
		audioDir       string
		translateReady *reliability.Gate
		speechReady    *reliability.Gate
	)

	tryWhisper := func(fatal bool) bool {
		w, err := recognize.New(recognize.Config{
			CLI:       cfg.WhisperCLI,
			ModelPath: cfg.WhisperModelPath,
			Language:  cfg.WhisperLanguage,
			Threads:   cfg.WhisperThreads,
			BeamSize:  cfg.WhisperBeamSize,
			BestOf:    cfg.WhisperBestOf,
		})
		if err != nil {
			if fatal {
				log.Fatalf("whisper init failed: %v", err)
			}
			log.Printf("whisper unavailable: %v", err)
			return false
		}
		recognizer = w
		log.Printf("recognizer: whisper (%s)", cfg.WhisperModelPath)
		return true
	}

	wireRemote := func() {
		client := translate.NewClient(translate.Config{
			BaseURL: cfg.TranslateBaseURL,
			APIKey:  cfg.TranslateAPIKey,
			Model:   cfg.TranslateModel,
			Timeout: cfg.TranslateTimeout,
		}, logger)
		translator = client
		translateReady = reliability.NewGate(client.Ping)

		kokoro, err := synth.NewKokoro(synth.Config{
			BaseURL:  cfg.TTSBaseURL,
			APIKey:   cfg.TTSAPIKey,
			Model:    cfg.TTSModel,
			SpoolDir: cfg.AudioSpoolDir,
		}, logger)
		if err != nil {
			log.Fatalf("tts init failed: %v", err)
		}
		synthesizer = kokoro
		audioDir = kokoro.SpoolDir()
		speechReady = reliability.NewGate(kokoro.Ping)
		log.Printf("translator: %s via %s, tts: %s", cfg.TranslateModel, cfg.TranslateBaseURL, cfg.TTSModel)
	}

	switch cfg.ProviderMode {
	case "local":
		_ = tryWhisper(true)
		wireRemote()
	case "mock":
		recognizer = &pipeline.MockRecognizer{}
		translator = &pipeline.MockTranslator{}
		synthesizer = &pipeline.MockSynthesizer{}
		log.Printf("providers: mock")
	case "auto":
		if tryWhisper(false) {
			wireRemote()
		} else {
			recognizer = &pipeline.MockRecognizer{}
			translator = &pipeline.MockTranslator{}
			synthesizer = &pipeline.MockSynthesizer{}
			log.Printf("providers: mock (whisper unavailable)")
		}
	}

	engine := pipeline.NewEngine(recognizer, translator, synthesizer,
		pipeline.WithDetector(translate.NewDetector()),
		pipeline.WithHistory(history.NewSink(store)),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(logger),
	)

	api := httpapi.New(cfg, httpapi.Deps{
		Engine:         engine,
		History:        store,
		Metrics:        metrics,
		Logger:         logger,
		AudioDir:       audioDir,
		TranslateReady: translateReady,
		SpeechReady:    speechReady,
	})
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	if sess := engine.Active(); sess != nil {
		sess.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
