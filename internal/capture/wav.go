package capture

import (
	"context"
	"sync"
	"time"

	"github.com/antoniostano/traduttore/internal/audio"
)

// WAVSource replays a mono PCM16 WAV file as capture blocks. Used by segtool
// and by tests that need deterministic audio input.
type WAVSource struct {
	samples  []float32
	rate     int
	blockDur time.Duration
	realtime bool

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

func NewWAVSource(path string, blockDur time.Duration, realtime bool) (*WAVSource, error) {
	samples, rate, err := audio.ReadWAVFile(path)
	if err != nil {
		return nil, err
	}
	if blockDur <= 0 {
		blockDur = 50 * time.Millisecond
	}
	return &WAVSource{
		samples:  samples,
		rate:     rate,
		blockDur: blockDur,
		realtime: realtime,
	}, nil
}

func (s *WAVSource) Start(ctx context.Context) (<-chan Block, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	blocks := make(chan Block, 8)
	blockSamples := int(float64(s.rate) * s.blockDur.Seconds())
	if blockSamples < 1 {
		blockSamples = 1
	}

	go func() {
		defer close(blocks)
		var ticker *time.Ticker
		if s.realtime {
			ticker = time.NewTicker(s.blockDur)
			defer ticker.Stop()
		}
		for off := 0; off < len(s.samples); off += blockSamples {
			end := off + blockSamples
			if end > len(s.samples) {
				end = len(s.samples)
			}
			if ticker != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
			select {
			case blocks <- Block{Samples: s.samples[off:end], Rate: s.rate}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return blocks, nil
}

// Err always returns nil: reaching the end of a file is a normal stop.
func (s *WAVSource) Err() error { return nil }

func (s *WAVSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Duration reports the total audio length in the file.
func (s *WAVSource) Duration() time.Duration {
	if s.rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.samples)) / float64(s.rate) * float64(time.Second))
}
