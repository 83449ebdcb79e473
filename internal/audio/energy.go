package audio

// MeanAbs returns the mean absolute amplitude of samples, the energy measure
// used for speech classification.
func MeanAbs(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return float32(sum / float64(len(samples)))
}

// PeakAbs returns the largest absolute sample value.
func PeakAbs(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// IsSpeech reports whether the chunk's energy lies strictly between min and
// max. The upper bound rejects clipping and noise spikes.
func IsSpeech(samples []float32, min, max float32) bool {
	if len(samples) == 0 {
		return false
	}
	e := MeanAbs(samples)
	return e > min && e < max
}

// Normalize scales samples in place so the peak magnitude is at most 1.
// Returns the peak found before scaling.
func Normalize(samples []float32) float32 {
	peak := PeakAbs(samples)
	if peak > 1 {
		inv := 1 / peak
		for i := range samples {
			samples[i] *= inv
		}
	}
	return peak
}
