package pipeline

import (
	"fmt"
	"time"
)

// TargetRate is the sample rate every utterance is normalized to before
// recognition.
const TargetRate = 16000

// Params holds the tunable segmentation and dispatch settings of a session.
// All of them can be changed while a session is running.
type Params struct {
	BlockDuration time.Duration
	MinSilence    time.Duration
	MinSpeech     time.Duration
	MaxSpeech     time.Duration
	Overlap       time.Duration
	MaxBuffer     time.Duration

	// Mean-absolute amplitude bounds for classifying a block as speech.
	EnergyFloor   float32
	EnergyCeiling float32

	// Translation worker pool size.
	PoolSize int

	// Pause inserted before each TTS playback.
	SpeechDelay time.Duration
}

func DefaultParams() Params {
	return Params{
		BlockDuration: 50 * time.Millisecond,
		MinSilence:    800 * time.Millisecond,
		MinSpeech:     1500 * time.Millisecond,
		MaxSpeech:     8 * time.Second,
		Overlap:       500 * time.Millisecond,
		MaxBuffer:     20 * time.Second,
		EnergyFloor:   0.0008,
		EnergyCeiling: 0.6,
		PoolSize:      2,
		SpeechDelay:   0,
	}
}

func (p Params) Validate() error {
	if p.BlockDuration <= 0 {
		return fmt.Errorf("block duration must be positive, got %v", p.BlockDuration)
	}
	if p.MinSilence <= 0 || p.MinSpeech <= 0 || p.MaxSpeech <= 0 {
		return fmt.Errorf("silence/speech windows must be positive")
	}
	if p.MinSpeech >= p.MaxSpeech {
		return fmt.Errorf("min speech %v must be below max speech %v", p.MinSpeech, p.MaxSpeech)
	}
	if p.Overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %v", p.Overlap)
	}
	if p.Overlap >= p.MaxBuffer {
		return fmt.Errorf("overlap %v must be below buffer size %v", p.Overlap, p.MaxBuffer)
	}
	if p.MaxBuffer < p.MaxSpeech {
		return fmt.Errorf("buffer %v must hold at least max speech %v", p.MaxBuffer, p.MaxSpeech)
	}
	if p.EnergyFloor < 0 || p.EnergyCeiling <= p.EnergyFloor {
		return fmt.Errorf("energy bounds invalid: floor %v ceiling %v", p.EnergyFloor, p.EnergyCeiling)
	}
	if p.PoolSize < 1 {
		return fmt.Errorf("pool size must be at least 1, got %d", p.PoolSize)
	}
	if p.SpeechDelay < 0 {
		return fmt.Errorf("speech delay must not be negative, got %v", p.SpeechDelay)
	}
	return nil
}

// PresetParams returns named timing profiles layered over the defaults.
// Unknown names report false.
func PresetParams(name string) (Params, bool) {
	p := DefaultParams()
	switch name {
	case "Balanced":
		p.BlockDuration = 22 * time.Millisecond
		p.Overlap = 550 * time.Millisecond
		p.MinSilence = 650 * time.Millisecond
		p.MinSpeech = 1100 * time.Millisecond
		p.MaxSpeech = 11 * time.Second
	case "Lowest Latency":
		p.BlockDuration = 20 * time.Millisecond
		p.Overlap = 450 * time.Millisecond
		p.MinSilence = 550 * time.Millisecond
		p.MinSpeech = 950 * time.Millisecond
		p.MaxSpeech = 9 * time.Second
	case "Maximum Readability":
		p.BlockDuration = 28 * time.Millisecond
		p.Overlap = 650 * time.Millisecond
		p.MinSilence = 750 * time.Millisecond
		p.MinSpeech = 1300 * time.Millisecond
		p.MaxSpeech = 13 * time.Second
	default:
		return Params{}, false
	}
	return p, true
}

// PresetNames lists the available presets in display order.
func PresetNames() []string {
	return []string{"Balanced", "Lowest Latency", "Maximum Readability"}
}
