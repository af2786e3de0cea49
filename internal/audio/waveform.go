package audio

import "math"

// DefaultSegmentsCount is the window count used by the generate_waveform
// step.
const DefaultSegmentsCount = 255

// Waveform splits samples into exactly segmentsCount equal-duration
// windows, computes each window's peak absolute amplitude, and normalises
// to a uint8 0..128 envelope. Deterministic given the same input.
func Waveform(samples Samples, segmentsCount int) []uint8 {
	out := make([]uint8, segmentsCount)
	if len(samples) == 0 || segmentsCount <= 0 {
		return out
	}

	windowLen := float64(len(samples)) / float64(segmentsCount)
	for i := 0; i < segmentsCount; i++ {
		start := int(float64(i) * windowLen)
		end := int(float64(i+1) * windowLen)
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			out[i] = 0
			continue
		}
		peak := 0.0
		for _, s := range samples[start:end] {
			a := math.Abs(s)
			if a > peak {
				peak = a
			}
		}
		out[i] = uint8(clamp(peak, 0, 1) * 128)
	}
	return out
}
