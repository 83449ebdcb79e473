package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// TranslationJob is one accepted transcript headed for translation.
type TranslationJob struct {
	Seq        uint64
	Transcript string
	SourceLang string
	TargetLang string
	Model      string
}

// TranslationResult carries a finished job back to the reconciler. A failed
// translation has an empty Translation and a non-nil Err; the transcript is
// still forwarded so the display can show it.
type TranslationResult struct {
	Seq         uint64
	Transcript  string
	Translation string
	Err         error
	Latency     time.Duration
}

// Dispatcher runs translations concurrently under a bounded worker pool while
// stamping every job with a monotonically increasing sequence number. Jobs may
// finish out of order; ordering is restored downstream by the reconciler.
type Dispatcher struct {
	translator Translator

	seq     atomic.Uint64
	results chan TranslationResult

	mu   sync.Mutex
	sem  *semaphore.Weighted
	size int

	wg     sync.WaitGroup
	closed atomic.Bool
	done   chan struct{}
}

func NewDispatcher(translator Translator, poolSize int) *Dispatcher {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Dispatcher{
		translator: translator,
		results:    make(chan TranslationResult, 64),
		sem:        semaphore.NewWeighted(int64(poolSize)),
		size:       poolSize,
		done:       make(chan struct{}),
	}
}

// NextSeq reserves the next sequence number. Numbers are assigned at
// submission time so they reflect utterance order, not completion order.
func (d *Dispatcher) NextSeq() uint64 {
	return d.seq.Add(1)
}

// Submit queues a job. The job waits for a pool slot in its own goroutine so
// the caller never blocks behind slow translations.
func (d *Dispatcher) Submit(ctx context.Context, job TranslationJob) {
	if d.closed.Load() {
		return
	}
	d.mu.Lock()
	sem := d.sem
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := sem.Acquire(ctx, 1); err != nil {
			d.deliver(TranslationResult{Seq: job.Seq, Transcript: job.Transcript, Err: err})
			return
		}
		defer sem.Release(1)

		start := time.Now()
		translated, err := d.translator.Translate(ctx, job.Transcript, job.SourceLang, job.TargetLang, job.Model)
		res := TranslationResult{
			Seq:        job.Seq,
			Transcript: job.Transcript,
			Latency:    time.Since(start),
		}
		if err != nil {
			res.Err = err
		} else {
			res.Translation = translated
		}
		d.deliver(res)
	}()
}

// Resize swaps in a pool of the new size. Jobs already holding a slot on the
// old pool run to completion; only new submissions see the new bound.
func (d *Dispatcher) Resize(poolSize int) {
	if poolSize < 1 {
		poolSize = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if poolSize == d.size {
		return
	}
	d.sem = semaphore.NewWeighted(int64(poolSize))
	d.size = poolSize
}

// PoolSize reports the current worker bound.
func (d *Dispatcher) PoolSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Results is the stream of finished jobs in completion order.
func (d *Dispatcher) Results() <-chan TranslationResult {
	return d.results
}

// Close waits for in-flight jobs and closes the result stream. Submit calls
// after Close are dropped. Results nobody read are discarded so workers can
// always finish.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	close(d.done)
	d.wg.Wait()
	close(d.results)
}

func (d *Dispatcher) deliver(res TranslationResult) {
	defer func() { _ = recover() }()
	select {
	case d.results <- res:
		return
	default:
	}
	// Buffer full: wait for the reader, or give up once Close has run so
	// workers never wedge behind undrained results.
	select {
	case d.results <- res:
	case <-d.done:
	}
}
