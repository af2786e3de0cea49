package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaveform_Deterministic(t *testing.T) {
	samples := make(Samples, 48000)
	for i := range samples {
		samples[i] = 0.5
	}
	w1 := Waveform(samples, DefaultSegmentsCount)
	w2 := Waveform(samples, DefaultSegmentsCount)
	require.Equal(t, w1, w2)
	require.Len(t, w1, DefaultSegmentsCount)
	for _, v := range w1 {
		require.Equal(t, uint8(64), v)
	}
}

func TestWaveform_EmptyInput(t *testing.T) {
	w := Waveform(nil, DefaultSegmentsCount)
	require.Len(t, w, DefaultSegmentsCount)
	for _, v := range w {
		require.Equal(t, uint8(0), v)
	}
}
