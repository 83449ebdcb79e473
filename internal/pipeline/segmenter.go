package pipeline

import (
	"strings"
	"time"

	"github.com/antoniostano/traduttore/internal/audio"
)

// FinalizeReason explains why the segmenter closed an utterance.
type FinalizeReason string

const (
	ReasonSilence     FinalizeReason = "silence"
	ReasonMaxDuration FinalizeReason = "max_duration"
	ReasonIdleFlush   FinalizeReason = "idle_flush"
)

// RejectCause labels why a transcript was not accepted for display.
type RejectCause string

const (
	RejectEmpty      RejectCause = "empty"
	RejectDuplicate  RejectCause = "duplicate"
	RejectIncomplete RejectCause = "incomplete"
)

// Utterance is a finalized span of speech ready for recognition.
type Utterance struct {
	Samples  []float32
	Rate     int
	Duration time.Duration
	Reason   FinalizeReason
}

type segState int

const (
	stateSilent segState = iota
	stateSpeaking
)

// Segmenter turns a stream of fixed-rate audio blocks into utterances using
// energy-based voice activity detection. It is not safe for concurrent use;
// the session goroutine owns it.
type Segmenter struct {
	params Params
	ring   *audio.RingBuffer

	state      segState
	speechDur  time.Duration
	silenceDur time.Duration

	lastTranscript string
}

func NewSegmenter(params Params) *Segmenter {
	return &Segmenter{
		params: params,
		ring:   audio.NewRingBuffer(TargetRate, params.MaxBuffer),
	}
}

// SetParams applies new tuning. The ring buffer is only rebuilt when its
// capacity changes, so buffered speech survives a retune.
func (s *Segmenter) SetParams(params Params) {
	if params.MaxBuffer != s.params.MaxBuffer {
		old := s.ring.ReadAll()
		s.ring = audio.NewRingBuffer(TargetRate, params.MaxBuffer)
		s.ring.Append(old)
	}
	s.params = params
}

// Push feeds one block of samples at TargetRate. It returns a finalized
// utterance when the block completes one.
func (s *Segmenter) Push(samples []float32) (Utterance, bool) {
	if len(samples) == 0 {
		return Utterance{}, false
	}
	blockDur := time.Duration(float64(len(samples)) / float64(TargetRate) * float64(time.Second))
	speech := audio.IsSpeech(samples, s.params.EnergyFloor, s.params.EnergyCeiling)

	switch s.state {
	case stateSilent:
		if !speech {
			// Keep a rolling pre-speech window so the utterance onset is not
			// clipped, bounded by the overlap length.
			s.ring.Append(samples)
			s.trimPreSpeech()
			return Utterance{}, false
		}
		s.state = stateSpeaking
		s.speechDur = 0
		s.silenceDur = 0
		s.ring.Append(samples)
		s.speechDur += blockDur
		return Utterance{}, false

	case stateSpeaking:
		s.ring.Append(samples)
		s.speechDur += blockDur
		if speech {
			s.silenceDur = 0
			if s.speechDur >= s.params.MaxSpeech {
				return s.finalize(ReasonMaxDuration), true
			}
			return Utterance{}, false
		}

		s.silenceDur += blockDur
		if s.silenceDur < s.params.MinSilence {
			if s.speechDur >= s.params.MaxSpeech {
				return s.finalize(ReasonMaxDuration), true
			}
			return Utterance{}, false
		}

		if s.speechDur-s.silenceDur < s.params.MinSpeech {
			// Too short to transcribe; drop it and keep only the overlap tail.
			s.reset()
			return Utterance{}, false
		}
		return s.finalize(ReasonSilence), true
	}
	return Utterance{}, false
}

// Tick advances the segmenter's clock while no audio is arriving. A speaking
// segment left hanging by a stalled source is flushed once the idle time
// exceeds the silence window.
func (s *Segmenter) Tick(elapsed time.Duration) (Utterance, bool) {
	if s.state != stateSpeaking || elapsed <= 0 {
		return Utterance{}, false
	}
	s.silenceDur += elapsed
	if s.silenceDur < s.params.MinSilence {
		return Utterance{}, false
	}
	if s.speechDur < s.params.MinSpeech {
		s.reset()
		return Utterance{}, false
	}
	return s.finalize(ReasonIdleFlush), true
}

// AcceptTranscript decides whether a recognized transcript should reach the
// display. Empty text and exact repeats of the previous transcript are
// rejected; utterances closed by silence must additionally read as a complete
// phrase.
func (s *Segmenter) AcceptTranscript(text string, reason FinalizeReason) (RejectCause, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return RejectEmpty, false
	}
	if text == s.lastTranscript {
		return RejectDuplicate, false
	}
	if reason == ReasonSilence && !IsCompleteSentence(text) {
		return RejectIncomplete, false
	}
	s.lastTranscript = text
	return "", true
}

// Speaking reports whether the segmenter is inside an utterance.
func (s *Segmenter) Speaking() bool { return s.state == stateSpeaking }

// Buffered reports the duration currently held in the ring buffer.
func (s *Segmenter) Buffered() time.Duration { return s.ring.Duration() }

func (s *Segmenter) finalize(reason FinalizeReason) Utterance {
	samples := s.ring.ReadAll()
	u := Utterance{
		Samples:  samples,
		Rate:     TargetRate,
		Duration: time.Duration(float64(len(samples)) / float64(TargetRate) * float64(time.Second)),
		Reason:   reason,
	}
	s.reset()
	return u
}

// reset returns to SILENT keeping only the trailing overlap so boundary words
// carry into the next utterance.
func (s *Segmenter) reset() {
	tail := s.ring.ReadOverlap(s.params.Overlap)
	s.ring.Clear()
	s.ring.Append(tail)
	s.state = stateSilent
	s.speechDur = 0
	s.silenceDur = 0
}

func (s *Segmenter) trimPreSpeech() {
	if s.ring.Duration() <= s.params.Overlap {
		return
	}
	tail := s.ring.ReadOverlap(s.params.Overlap)
	s.ring.Clear()
	s.ring.Append(tail)
}
