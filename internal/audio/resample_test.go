package audio

import (
	"math"
	"testing"
)

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if !equalSamples(out, in) {
		t.Fatalf("identity resample = %v, want %v", out, in)
	}
}

func TestResampleDownLength(t *testing.T) {
	in := make([]float32, 48000)
	out := Resample(in, 48000, 16000)
	if len(out) != 16000 {
		t.Fatalf("resampled length = %d, want 16000", len(out))
	}
}

func TestResamplePreservesEndpointsAndRamp(t *testing.T) {
	in := make([]float32, 100)
	for i := range in {
		in[i] = float32(i) / 99
	}
	out := Resample(in, 44100, 16000)

	if out[0] != 0 {
		t.Fatalf("first sample = %v, want 0", out[0])
	}
	if out[len(out)-1] != 1 {
		t.Fatalf("last sample = %v, want 1", out[len(out)-1])
	}
	// A linear ramp should survive linear interpolation nearly exactly.
	for i, v := range out {
		want := float32(i) / float32(len(out)-1)
		if math.Abs(float64(v-want)) > 1e-3 {
			t.Fatalf("sample %d = %v, want ~%v", i, v, want)
		}
	}
}

func TestResampleDoesNotModifyInput(t *testing.T) {
	in := []float32{0, 0.5, 1, 0.5, 0}
	snapshot := append([]float32(nil), in...)
	Resample(in, 8000, 16000)
	if !equalSamples(in, snapshot) {
		t.Fatalf("input mutated: %v", in)
	}
}
