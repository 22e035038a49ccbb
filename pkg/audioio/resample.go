package audioio

// Resample converts samples from one sample rate to another using linear
// interpolation. Mono input only.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		return nil
	}

	out := make([]int16, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)

		if idx+1 < len(samples) {
			a := float64(samples[idx])
			b := float64(samples[idx+1])
			out[i] = int16(a + (b-a)*frac)
		} else {
			out[i] = samples[len(samples)-1]
		}
	}
	return out
}

// ResampleBytes converts raw PCM16 bytes between sample rates.
func ResampleBytes(data []byte, fromRate, toRate int) []byte {
	if fromRate == toRate {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}
	return SamplesToBytes(Resample(BytesToSamples(data), fromRate, toRate))
}
