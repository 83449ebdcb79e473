package audio

import "time"

// RingBuffer is a fixed-capacity circular store of mono float32 samples.
// It keeps the most recent capacity samples and reconstructs them in
// chronological order on read regardless of wraparound.
//
// RingBuffer provides no internal locking. It is owned by the segmentation
// goroutine and must not be shared without external synchronization.
type RingBuffer struct {
	buf      []float32
	writePos int
	size     int
	rate     int
}

// NewRingBuffer creates a buffer holding up to maxDuration of audio at
// sampleRate.
func NewRingBuffer(sampleRate int, maxDuration time.Duration) *RingBuffer {
	capacity := int(float64(sampleRate) * maxDuration.Seconds())
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		buf:  make([]float32, capacity),
		rate: sampleRate,
	}
}

// Append adds samples to the buffer. When the chunk is at least as large as
// the capacity only its tail is kept and the write cursor resets to zero.
func (b *RingBuffer) Append(samples []float32) {
	capacity := len(b.buf)
	n := len(samples)
	if n == 0 {
		return
	}

	if n >= capacity {
		copy(b.buf, samples[n-capacity:])
		b.writePos = 0
		b.size = capacity
		return
	}

	if b.writePos+n <= capacity {
		copy(b.buf[b.writePos:], samples)
		b.writePos += n
		if b.writePos == capacity {
			b.writePos = 0
		}
	} else {
		head := capacity - b.writePos
		copy(b.buf[b.writePos:], samples[:head])
		copy(b.buf, samples[head:])
		b.writePos = n - head
	}

	b.size += n
	if b.size > capacity {
		b.size = capacity
	}
}

// Read returns a copy of the most recent min(n, Len()) samples in
// chronological order.
func (b *RingBuffer) Read(n int) []float32 {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}

	out := make([]float32, n)
	start := b.writePos - n
	if start >= 0 {
		// Contiguous region just behind the cursor.
		copy(out, b.buf[start:b.writePos])
		return out
	}

	// Wrapped: tail of the array holds the oldest part of the window.
	start += len(b.buf)
	head := len(b.buf) - start
	copy(out, b.buf[start:])
	copy(out[head:], b.buf[:b.writePos])
	return out
}

// ReadAll returns a copy of every buffered sample in chronological order.
func (b *RingBuffer) ReadAll() []float32 {
	return b.Read(b.size)
}

// ReadOverlap returns the most recent d of audio, or nil when less than d is
// buffered. Used to carry trailing audio across a segment boundary so
// word-final sounds are not clipped.
func (b *RingBuffer) ReadOverlap(d time.Duration) []float32 {
	n := int(float64(b.rate) * d.Seconds())
	if n <= 0 || n > b.size {
		return nil
	}
	return b.Read(n)
}

// Clear discards all buffered samples.
func (b *RingBuffer) Clear() {
	b.writePos = 0
	b.size = 0
}

// Len returns the number of valid samples currently buffered.
func (b *RingBuffer) Len() int { return b.size }

// Capacity returns the fixed sample capacity.
func (b *RingBuffer) Capacity() int { return len(b.buf) }

// Duration returns the duration of the buffered audio.
func (b *RingBuffer) Duration() time.Duration {
	if b.rate <= 0 {
		return 0
	}
	return time.Duration(float64(b.size) / float64(b.rate) * float64(time.Second))
}
