package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockRecognizer returns canned transcripts in order. Used when no local
// speech model is installed and by tests.
type MockRecognizer struct {
	mu      sync.Mutex
	Scripts []RecognitionResult
	Errs    []error
	calls   int
}

func (m *MockRecognizer) Transcribe(_ context.Context, samples []float32, _ int, _ string) (RecognitionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.Errs) && m.Errs[i] != nil {
		return RecognitionResult{}, m.Errs[i]
	}
	if i < len(m.Scripts) {
		return m.Scripts[i], nil
	}
	return RecognitionResult{Text: fmt.Sprintf("simulated utterance %d spoken aloud.", i+1)}, nil
}

func (m *MockRecognizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockTranslator echoes the transcript with a tag, optionally delayed per
// call to exercise out-of-order completion.
type MockTranslator struct {
	mu     sync.Mutex
	Delays map[string]time.Duration
	Errs   map[string]error
	calls  []string
}

func (m *MockTranslator) Translate(ctx context.Context, text, _, targetLang, _ string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	delay := m.Delays[text]
	err := m.Errs[text]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}

func (m *MockTranslator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockSynthesizer records spoken texts and returns fake audio URLs.
type MockSynthesizer struct {
	mu     sync.Mutex
	Err    error
	spoken []string
}

func (m *MockSynthesizer) Speak(_ context.Context, text, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.spoken = append(m.spoken, text)
	return fmt.Sprintf("/audio/mock_%d.mp3", len(m.spoken)), nil
}

func (m *MockSynthesizer) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}
