package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/antoniostano/traduttore/internal/capture"
	"github.com/antoniostano/traduttore/internal/config"
	"github.com/antoniostano/traduttore/internal/pipeline"
	"github.com/antoniostano/traduttore/internal/recognize"
	"github.com/antoniostano/traduttore/internal/translate"
)

// segtool replays a WAV file through the segmentation and translation
// pipeline and prints every display update. Useful for tuning presets
// against recorded speech without a microphone or a browser.

type options struct {
	wavPath  string
	source   string
	target   string
	preset   string
	realtime bool
	live     bool
	timeout  time.Duration
}

func main() {
	opts := parseFlags()
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "segtool: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	var timeoutS int
	flag.StringVar(&opts.wavPath, "wav", "", "path to a PCM16 WAV file to replay (required)")
	flag.StringVar(&opts.source, "source", pipeline.SourceAuto, "source language")
	flag.StringVar(&opts.target, "target", "Spanish", "target language")
	flag.StringVar(&opts.preset, "preset", "", "segmentation preset: "+strings.Join(pipeline.PresetNames(), ", "))
	flag.BoolVar(&opts.realtime, "realtime", false, "pace blocks at recording speed instead of replaying as fast as possible")
	flag.BoolVar(&opts.live, "live", false, "use the configured translation backend instead of an echo stub")
	flag.IntVar(&timeoutS, "timeout-s", 300, "abort the replay after this many seconds")
	flag.Parse()
	opts.timeout = time.Duration(timeoutS) * time.Second

	if opts.wavPath == "" {
		fmt.Fprintln(os.Stderr, "segtool: -wav is required")
		flag.Usage()
		os.Exit(2)
	}
	return opts
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	params := pipeline.DefaultParams()
	if opts.preset != "" {
		p, ok := pipeline.PresetParams(opts.preset)
		if !ok {
			return fmt.Errorf("unknown preset %q", opts.preset)
		}
		params = p
	}

	var recognizer pipeline.Recognizer
	w, err := recognize.New(recognize.Config{
		CLI:       cfg.WhisperCLI,
		ModelPath: cfg.WhisperModelPath,
		Language:  cfg.WhisperLanguage,
		Threads:   cfg.WhisperThreads,
		BeamSize:  cfg.WhisperBeamSize,
		BestOf:    cfg.WhisperBestOf,
	})
	if err != nil {
		log.Printf("whisper unavailable, using scripted recognizer: %v", err)
		recognizer = &pipeline.MockRecognizer{}
	} else {
		recognizer = w
	}

	var translator pipeline.Translator = &pipeline.MockTranslator{}
	if opts.live {
		translator = translate.NewClient(translate.Config{
			BaseURL: cfg.TranslateBaseURL,
			APIKey:  cfg.TranslateAPIKey,
			Model:   cfg.TranslateModel,
			Timeout: cfg.TranslateTimeout,
		}, log.Default())
	}

	engine := pipeline.NewEngine(recognizer, translator, &pipeline.MockSynthesizer{},
		pipeline.WithDetector(translate.NewDetector()),
	)
	engine.SetOnDisplay(func(state pipeline.DisplayState) {
		fmt.Printf("#%-3d heard: %s\n", state.Seq, state.Transcript)
		if state.Translation != "" {
			fmt.Printf("     %s\n", state.Translation)
		}
	})

	source, err := capture.NewWAVSource(opts.wavPath, params.BlockDuration, opts.realtime)
	if err != nil {
		return err
	}
	fmt.Printf("replaying %s (%s)\n", opts.wavPath, source.Duration().Round(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	sess, err := engine.Start(ctx, source, pipeline.SessionOptions{
		SourceLang: opts.source,
		TargetLang: opts.target,
		Model:      cfg.TranslateModel,
		Voice:      "none",
		Params:     params,
	})
	if err != nil {
		return err
	}

	<-sess.Done()
	if err := sess.Err(); err != nil {
		return err
	}

	state := engine.Display()
	fmt.Printf("done, last line #%d\n", state.Seq)
	return nil
}
