package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// SpeechJob is one translation waiting to be spoken.
type SpeechJob struct {
	Seq   uint64
	Text  string
	Voice string
}

// SpeechResult reports the outcome of a synthesis.
type SpeechResult struct {
	Seq      uint64
	AudioURL string
	Err      error
	Skipped  bool
}

// SpeechQueue speaks translations one at a time in the order they were
// enqueued. A single worker keeps playback serial; the optional result channel
// lets the session attach audio URLs to the display.
type SpeechQueue struct {
	synth   Synthesizer
	jobs    chan SpeechJob
	results chan SpeechResult
	delay   atomic.Int64 // nanoseconds before each synthesis

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	cancel    context.CancelFunc
}

func NewSpeechQueue(synth Synthesizer, delay time.Duration) *SpeechQueue {
	q := &SpeechQueue{
		synth:   synth,
		jobs:    make(chan SpeechJob, 32),
		results: make(chan SpeechResult, 32),
		done:    make(chan struct{}),
	}
	q.delay.Store(int64(delay))
	return q
}

// Start launches the worker. Safe to call once per queue.
func (q *SpeechQueue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		ctx, q.cancel = context.WithCancel(ctx)
		go q.worker(ctx)
	})
}

// Enqueue adds a job. It reports false when the queue is full or stopped;
// speech is best-effort and never blocks the pipeline.
func (q *SpeechQueue) Enqueue(job SpeechJob) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.jobs <- job:
		return true
	default:
		return false
	}
}

// Results delivers one entry per processed job.
func (q *SpeechQueue) Results() <-chan SpeechResult {
	return q.results
}

// SetDelay changes the pause inserted before each spoken line.
func (q *SpeechQueue) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	q.delay.Store(int64(d))
}

// Stop cancels the worker. Pending jobs are abandoned.
func (q *SpeechQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.done)
		if q.cancel != nil {
			q.cancel()
		}
	})
}

func (q *SpeechQueue) worker(ctx context.Context) {
	defer close(q.results)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

func (q *SpeechQueue) process(ctx context.Context, job SpeechJob) {
	if job.Voice == "" || job.Voice == "none" || job.Text == "" {
		q.deliver(SpeechResult{Seq: job.Seq, Skipped: true})
		return
	}

	// Pre-playback pause so listeners see the text before the audio lands.
	if d := time.Duration(q.delay.Load()); d > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
	}

	url, err := q.synth.Speak(ctx, job.Text, job.Voice)
	res := SpeechResult{Seq: job.Seq, AudioURL: url}
	if err != nil {
		res.Err = err
		res.AudioURL = ""
	}
	q.deliver(res)
}

func (q *SpeechQueue) deliver(res SpeechResult) {
	select {
	case q.results <- res:
	default:
		// A listener that stops draining must not wedge synthesis.
	}
}
