package audio

// Resample converts samples captured at srcRate to dstRate using linear
// interpolation. It is a pure function: the input slice is never modified and
// the result is freshly allocated unless the rates already match.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 || srcRate <= 0 || dstRate <= 0 {
		return samples
	}

	outLen := int(float64(len(samples)) * float64(dstRate) / float64(srcRate))
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	if outLen == 1 {
		out[0] = samples[0]
		return out
	}

	step := float64(len(samples)-1) / float64(outLen-1)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx] + (samples[idx+1]-samples[idx])*frac
	}
	return out
}
