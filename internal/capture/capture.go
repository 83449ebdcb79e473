package capture

import (
	"context"
	"errors"
	"sync"
)

// Block is one chunk of mono audio captured at Rate.
type Block struct {
	Samples []float32
	Rate    int
}

// Source delivers audio blocks to a translation session. The returned channel
// closes when the source ends; Err reports why. A nil Err after close means the
// input simply finished.
type Source interface {
	Start(ctx context.Context) (<-chan Block, error)
	Err() error
	Close() error
}

// ErrSourceClosed is returned by Push after the source has been closed.
var ErrSourceClosed = errors.New("capture source closed")

// ChannelSource is a Source fed externally, typically by an HTTP ingest
// endpoint that receives PCM chunks from a browser or companion process.
type ChannelSource struct {
	mu     sync.Mutex
	blocks chan Block
	err    error
	closed bool
	ctx    context.Context
}

func NewChannelSource(buffer int) *ChannelSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSource{blocks: make(chan Block, buffer)}
}

func (s *ChannelSource) Start(ctx context.Context) (<-chan Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	s.ctx = ctx
	return s.blocks, nil
}

// Push hands a block to the session. It drops the oldest pending block rather
// than blocking the producer when the consumer falls behind.
func (s *ChannelSource) Push(samples []float32, rate int) error {
	if len(samples) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSourceClosed
	}
	if s.ctx != nil && s.ctx.Err() != nil {
		return s.ctx.Err()
	}

	b := Block{Samples: samples, Rate: rate}
	select {
	case s.blocks <- b:
	default:
		select {
		case <-s.blocks:
		default:
		}
		select {
		case s.blocks <- b:
		default:
		}
	}
	return nil
}

// Fail closes the source with a capture error. The session treats it as fatal.
func (s *ChannelSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.blocks)
}

func (s *ChannelSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ChannelSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.blocks)
	return nil
}
