package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/traduttore/internal/audio"
	"github.com/antoniostano/traduttore/internal/capture"
	"github.com/antoniostano/traduttore/internal/observability"
)

// SourceAuto asks the session to detect the spoken language per utterance.
const SourceAuto = "Auto-Detect"

// HistoryEntry is one finished translation handed to the history sink.
type HistoryEntry struct {
	SessionID   string
	Seq         uint64
	Transcript  string
	Translation string
	SourceLang  string
	TargetLang  string
	Model       string
	CreatedAt   time.Time
}

// HistorySink persists finished translations. Saves are best effort; a
// failing sink never stalls the pipeline.
type HistorySink interface {
	Save(ctx context.Context, entry HistoryEntry) error
}

// SessionOptions selects languages, model and voice for one session.
type SessionOptions struct {
	SourceLang string
	TargetLang string
	Model      string
	Voice      string
	Params     Params
}

// ErrSessionActive is returned by Engine.Start while a session is running.
var ErrSessionActive = errors.New("a translation session is already active")

// Engine owns the providers and runs at most one translation session at a
// time. The last display state survives session end so listeners keep seeing
// the final line.
type Engine struct {
	recognizer Recognizer
	translator Translator
	synth      Synthesizer
	detector   LanguageDetector
	history    HistorySink
	metrics    *observability.Metrics
	logger     *log.Logger

	mu          sync.Mutex
	active      *Session
	lastDisplay DisplayState
	onDisplay   func(DisplayState)
}

func NewEngine(recognizer Recognizer, translator Translator, synth Synthesizer, opts ...EngineOption) *Engine {
	e := &Engine{
		recognizer: recognizer,
		translator: translator,
		synth:      synth,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type EngineOption func(*Engine)

func WithDetector(d LanguageDetector) EngineOption {
	return func(e *Engine) { e.detector = d }
}

func WithHistory(h HistorySink) EngineOption {
	return func(e *Engine) { e.history = h }
}

func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// SetOnDisplay registers the push callback invoked on every accepted display
// update. Must be set before the first session starts.
func (e *Engine) SetOnDisplay(fn func(DisplayState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onDisplay = fn
}

// Display returns the current (sticky) display state.
func (e *Engine) Display() DisplayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return e.active.reconciler.Snapshot()
	}
	return e.lastDisplay
}

// Active returns the running session, or nil.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Start launches a session reading from source. Only one session may run at a
// time.
func (e *Engine) Start(ctx context.Context, source capture.Source, opts SessionOptions) (*Session, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if strings.TrimSpace(opts.TargetLang) == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if strings.TrimSpace(opts.SourceLang) == "" {
		opts.SourceLang = SourceAuto
	}

	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, ErrSessionActive
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:         uuid.NewString(),
		engine:     e,
		opts:       opts,
		source:     source,
		segmenter:  NewSegmenter(opts.Params),
		dispatcher: NewDispatcher(e.translator, opts.Params.PoolSize),
		speech:     NewSpeechQueue(e.synth, opts.Params.SpeechDelay),
		paramsCh:   make(chan Params, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
		startedAt:  time.Now(),
	}
	s.reconciler = NewReconciler(e.displayUpdated)
	e.active = s
	e.mu.Unlock()

	blocks, err := source.Start(ctx)
	if err != nil {
		cancel()
		e.mu.Lock()
		e.active = nil
		e.mu.Unlock()
		return nil, fmt.Errorf("start capture: %w", err)
	}

	if e.metrics != nil {
		e.metrics.ActiveSessions.Inc()
	}
	s.speech.Start(ctx)
	go s.run(ctx, blocks)
	e.logger.Printf("session %s started: %s -> %s (model=%s voice=%s)",
		s.id, opts.SourceLang, opts.TargetLang, opts.Model, opts.Voice)
	return s, nil
}

func (e *Engine) displayUpdated(state DisplayState) {
	e.mu.Lock()
	e.lastDisplay = state
	notify := e.onDisplay
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.DisplayUpdates.Inc()
	}
	if notify != nil {
		notify(state)
	}
}

func (e *Engine) sessionEnded(s *Session) {
	e.mu.Lock()
	if e.active == s {
		e.lastDisplay = s.reconciler.Snapshot()
		e.active = nil
	}
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.ActiveSessions.Dec()
	}
}

// Session is one live capture-to-display run.
type Session struct {
	id     string
	engine *Engine
	opts   SessionOptions
	source capture.Source

	segmenter  *Segmenter
	dispatcher *Dispatcher
	reconciler *Reconciler
	speech     *SpeechQueue

	paramsCh chan Params
	cancel   context.CancelFunc

	stopOnce sync.Once
	done     chan struct{}

	startedAt time.Time

	mu  sync.Mutex
	err error
}

func (s *Session) ID() string           { return s.id }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Options() SessionOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Err reports why the session ended. Nil means a clean stop.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done closes when the session loop has fully exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop ends the session. Safe to call repeatedly and concurrently.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		_ = s.source.Close()
	})
	<-s.done
}

// UpdateParams applies new tuning to the running loop. The most recent call
// wins when several arrive between blocks.
func (s *Session) UpdateParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	select {
	case s.paramsCh <- p:
	default:
		select {
		case <-s.paramsCh:
		default:
		}
		select {
		case s.paramsCh <- p:
		default:
		}
	}
	return nil
}

const idleTick = 200 * time.Millisecond

func (s *Session) run(ctx context.Context, blocks <-chan capture.Block) {
	defer close(s.done)
	defer s.engine.sessionEnded(s)
	defer s.speech.Stop()
	defer s.dispatcher.Close()

	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()
	lastBlockAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case p := <-s.paramsCh:
			s.applyParams(p)

		case res, ok := <-s.dispatcher.Results():
			if !ok {
				continue
			}
			s.handleTranslation(ctx, res)

		case sr, ok := <-s.speech.Results():
			if !ok {
				continue
			}
			s.handleSpeech(sr)

		case b, ok := <-blocks:
			if !ok {
				if err := s.source.Err(); err != nil {
					s.fail(fmt.Errorf("audio capture failed: %w", err))
					return
				}
				s.flushTail(ctx)
				return
			}
			lastBlockAt = time.Now()
			samples := audio.Resample(b.Samples, b.Rate, TargetRate)
			if u, done := s.segmenter.Push(samples); done {
				s.handleUtterance(ctx, u)
			}

		case <-ticker.C:
			if time.Since(lastBlockAt) < idleTick {
				continue
			}
			if u, done := s.segmenter.Tick(idleTick); done {
				s.handleUtterance(ctx, u)
			}
		}
	}
}

func (s *Session) applyParams(p Params) {
	s.segmenter.SetParams(p)
	s.dispatcher.Resize(p.PoolSize)
	s.speech.SetDelay(p.SpeechDelay)
	s.mu.Lock()
	s.opts.Params = p
	s.mu.Unlock()
	s.engine.logger.Printf("session %s: params updated (silence=%v speech=%v/%v pool=%d)",
		s.id, p.MinSilence, p.MinSpeech, p.MaxSpeech, p.PoolSize)
}

// flushTail gives the segmenter a final chance to emit whatever speech is
// still buffered when the source ends.
func (s *Session) flushTail(ctx context.Context) {
	if !s.segmenter.Speaking() {
		return
	}
	if u, done := s.segmenter.Tick(s.opts.Params.MinSilence); done {
		s.handleUtterance(ctx, u)
	}
	// Give already-submitted jobs a moment to land on the display.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case res, ok := <-s.dispatcher.Results():
			if !ok {
				return
			}
			s.handleTranslation(ctx, res)
		case <-deadline:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) handleUtterance(ctx context.Context, u Utterance) {
	e := s.engine
	if e.metrics != nil {
		e.metrics.UtterancesFinalized.WithLabelValues(string(u.Reason)).Inc()
	}

	start := time.Now()
	rec, err := e.recognizer.Transcribe(ctx, u.Samples, u.Rate, s.languageHint())
	e.metrics.ObserveRecognitionLatency(time.Since(start))
	if err != nil {
		if errors.Is(err, ErrNoSpeech) || errors.Is(err, context.Canceled) {
			return
		}
		e.logger.Printf("session %s: recognition failed: %v", s.id, err)
		return
	}

	cause, ok := s.segmenter.AcceptTranscript(rec.Text, u.Reason)
	if !ok {
		if e.metrics != nil && cause != "" {
			e.metrics.TranscriptsRejected.WithLabelValues(string(cause)).Inc()
		}
		return
	}

	job := TranslationJob{
		Seq:        s.dispatcher.NextSeq(),
		Transcript: strings.TrimSpace(rec.Text),
		SourceLang: s.resolveSourceLang(rec),
		TargetLang: s.opts.TargetLang,
		Model:      s.opts.Model,
	}
	s.dispatcher.Submit(ctx, job)
}

func (s *Session) languageHint() string {
	if s.opts.SourceLang == SourceAuto {
		return ""
	}
	return s.opts.SourceLang
}

// resolveSourceLang picks the language name sent to the translator. An
// explicit source language always wins; otherwise the recognizer's detected
// code is preferred, with the text detector as fallback.
func (s *Session) resolveSourceLang(rec RecognitionResult) string {
	if s.opts.SourceLang != SourceAuto {
		return s.opts.SourceLang
	}
	if rec.Language != "" {
		return rec.Language
	}
	if s.engine.detector != nil {
		if lang, ok := s.engine.detector.Detect(rec.Text); ok {
			return lang
		}
	}
	return "auto"
}

func (s *Session) handleTranslation(ctx context.Context, res TranslationResult) {
	e := s.engine
	outcome := "ok"
	if res.Err != nil {
		outcome = "error"
		e.logger.Printf("session %s: translation #%d failed: %v", s.id, res.Seq, res.Err)
	}
	if e.metrics != nil {
		e.metrics.TranslationResults.WithLabelValues(outcome).Inc()
		if res.Err == nil {
			e.metrics.ObserveTranslationLatency(res.Latency)
		}
	}

	if !s.reconciler.Apply(res) {
		if e.metrics != nil {
			e.metrics.StaleResultsDropped.Inc()
		}
		return
	}

	if res.Err == nil && res.Translation != "" {
		s.saveHistory(ctx, res)
		s.speech.Enqueue(SpeechJob{Seq: res.Seq, Text: res.Translation, Voice: s.opts.Voice})
	}
}

func (s *Session) saveHistory(ctx context.Context, res TranslationResult) {
	e := s.engine
	if e.history == nil {
		return
	}
	entry := HistoryEntry{
		SessionID:   s.id,
		Seq:         res.Seq,
		Transcript:  res.Transcript,
		Translation: res.Translation,
		SourceLang:  s.opts.SourceLang,
		TargetLang:  s.opts.TargetLang,
		Model:       s.opts.Model,
		CreatedAt:   time.Now(),
	}
	go func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := e.history.Save(saveCtx, entry); err != nil {
			e.logger.Printf("session %s: history save failed: %v", s.id, err)
		}
	}()
}

func (s *Session) handleSpeech(sr SpeechResult) {
	e := s.engine
	outcome := "ok"
	switch {
	case sr.Err != nil:
		outcome = "error"
		e.logger.Printf("session %s: synthesis #%d failed: %v", s.id, sr.Seq, sr.Err)
	case sr.Skipped:
		outcome = "skipped"
	}
	if e.metrics != nil {
		e.metrics.SpeechJobs.WithLabelValues(outcome).Inc()
	}
	if sr.Err == nil && !sr.Skipped {
		s.reconciler.AttachAudio(sr.Seq, sr.AudioURL)
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.engine.logger.Printf("session %s: %v", s.id, err)
}
