package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/antoniostano/traduttore/internal/capture"
)

type memorySink struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (m *memorySink) Save(_ context.Context, e HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memorySink) Entries() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryEntry(nil), m.entries...)
}

func sessionOptions() SessionOptions {
	return SessionOptions{
		SourceLang: "English",
		TargetLang: "Spanish",
		Model:      "test-model",
		Voice:      "none",
		Params:     testParams(),
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func feedUtterance(t *testing.T, src *capture.ChannelSource) {
	t.Helper()
	for i := 0; i < 8; i++ {
		if err := src.Push(speechBlock(), TargetRate); err != nil {
			t.Fatalf("push speech: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		if err := src.Push(silenceBlock(), TargetRate); err != nil {
			t.Fatalf("push silence: %v", err)
		}
	}
}

func TestSessionEndToEnd(t *testing.T) {
	rec := &MockRecognizer{Scripts: []RecognitionResult{
		{Text: "Good morning everyone, welcome to the talk.", Language: "en"},
	}}
	tr := &MockTranslator{}
	sink := &memorySink{}
	e := NewEngine(rec, tr, &MockSynthesizer{}, WithHistory(sink))

	src := capture.NewChannelSource(64)
	s, err := e.Start(context.Background(), src, sessionOptions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	feedUtterance(t, src)

	waitFor(t, 5*time.Second, func() bool {
		return e.Display().Translation != ""
	})

	state := e.Display()
	if state.Transcript != "Good morning everyone, welcome to the talk." {
		t.Fatalf("transcript = %q", state.Transcript)
	}
	if !strings.HasPrefix(state.Translation, "[Spanish]") {
		t.Fatalf("translation = %q", state.Translation)
	}
	if state.Seq != 1 {
		t.Fatalf("seq = %d, want 1", state.Seq)
	}

	waitFor(t, 2*time.Second, func() bool { return len(sink.Entries()) == 1 })
	entry := sink.Entries()[0]
	if entry.SessionID != s.ID() || entry.TargetLang != "Spanish" {
		t.Fatalf("history entry = %+v", entry)
	}
}

func TestSessionVoiceSpeaksTranslation(t *testing.T) {
	rec := &MockRecognizer{}
	synth := &MockSynthesizer{}
	e := NewEngine(rec, &MockTranslator{}, synth)

	opts := sessionOptions()
	opts.Voice = "em_alex"
	src := capture.NewChannelSource(64)
	s, err := e.Start(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	feedUtterance(t, src)

	waitFor(t, 5*time.Second, func() bool {
		return e.Display().AudioURL != ""
	})
	if len(synth.Spoken()) != 1 {
		t.Fatalf("spoken = %v, want one line", synth.Spoken())
	}
}

func TestSessionTranslationFailureKeepsTranscript(t *testing.T) {
	rec := &MockRecognizer{Scripts: []RecognitionResult{
		{Text: "This one will not translate well."},
	}}
	tr := &MockTranslator{Errs: map[string]error{
		"This one will not translate well.": errors.New("backend down"),
	}}
	synth := &MockSynthesizer{}
	e := NewEngine(rec, tr, synth)

	opts := sessionOptions()
	opts.Voice = "em_alex"
	src := capture.NewChannelSource(64)
	s, err := e.Start(context.Background(), src, opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	feedUtterance(t, src)

	waitFor(t, 5*time.Second, func() bool {
		return e.Display().Transcript != ""
	})
	state := e.Display()
	if state.Translation != "" {
		t.Fatalf("translation = %q, want empty", state.Translation)
	}
	time.Sleep(100 * time.Millisecond)
	if len(synth.Spoken()) != 0 {
		t.Fatalf("failed translation was spoken: %v", synth.Spoken())
	}
}

func TestEngineSingleActiveSession(t *testing.T) {
	e := NewEngine(&MockRecognizer{}, &MockTranslator{}, &MockSynthesizer{})

	src := capture.NewChannelSource(4)
	s, err := e.Start(context.Background(), src, sessionOptions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := e.Start(context.Background(), capture.NewChannelSource(4), sessionOptions()); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start = %v, want ErrSessionActive", err)
	}

	s.Stop()
	waitFor(t, 2*time.Second, func() bool { return e.Active() == nil })

	s2, err := e.Start(context.Background(), capture.NewChannelSource(4), sessionOptions())
	if err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	s2.Stop()
}

func TestSessionStopIsIdempotent(t *testing.T) {
	e := NewEngine(&MockRecognizer{}, &MockTranslator{}, &MockSynthesizer{})
	src := capture.NewChannelSource(4)
	s, err := e.Start(context.Background(), src, sessionOptions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	s.Stop()
	s.Stop()

	select {
	case <-s.Done():
	default:
		t.Fatal("session not done after Stop")
	}
	if s.Err() != nil {
		t.Fatalf("Err after clean stop = %v", s.Err())
	}
}

func TestSessionCaptureFailureIsFatal(t *testing.T) {
	e := NewEngine(&MockRecognizer{}, &MockTranslator{}, &MockSynthesizer{})
	src := capture.NewChannelSource(4)
	s, err := e.Start(context.Background(), src, sessionOptions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	boom := errors.New("device unplugged")
	src.Fail(boom)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end on capture failure")
	}
	if !errors.Is(s.Err(), boom) {
		t.Fatalf("Err = %v, want %v", s.Err(), boom)
	}
	waitFor(t, 2*time.Second, func() bool { return e.Active() == nil })
}

func TestSessionDisplayStickyAfterEnd(t *testing.T) {
	rec := &MockRecognizer{Scripts: []RecognitionResult{
		{Text: "The final line of the talk today."},
	}}
	e := NewEngine(rec, &MockTranslator{}, &MockSynthesizer{})

	src := capture.NewChannelSource(64)
	s, err := e.Start(context.Background(), src, sessionOptions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	feedUtterance(t, src)
	waitFor(t, 5*time.Second, func() bool { return e.Display().Translation != "" })
	want := e.Display()

	s.Stop()
	got := e.Display()
	if got.Transcript != want.Transcript || got.Translation != want.Translation {
		t.Fatalf("display after stop = %+v, want %+v", got, want)
	}
}

func TestSessionUpdateParams(t *testing.T) {
	e := NewEngine(&MockRecognizer{}, &MockTranslator{}, &MockSynthesizer{})
	src := capture.NewChannelSource(4)
	s, err := e.Start(context.Background(), src, sessionOptions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	p := testParams()
	p.PoolSize = 4
	if err := s.UpdateParams(p); err != nil {
		t.Fatalf("UpdateParams: %v", err)
	}

	bad := testParams()
	bad.PoolSize = 0
	if err := s.UpdateParams(bad); err == nil {
		t.Fatal("invalid params accepted")
	}

	waitFor(t, 2*time.Second, func() bool {
		return s.Options().Params.PoolSize == 4
	})
}

func TestSessionOnDisplayCallback(t *testing.T) {
	rec := &MockRecognizer{}
	e := NewEngine(rec, &MockTranslator{}, &MockSynthesizer{})

	var mu sync.Mutex
	var updates []DisplayState
	e.SetOnDisplay(func(s DisplayState) {
		mu.Lock()
		updates = append(updates, s)
		mu.Unlock()
	})

	src := capture.NewChannelSource(64)
	s, err := e.Start(context.Background(), src, sessionOptions())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	feedUtterance(t, src)
	waitFor(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) > 0
	})
}
