package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPadTracks_AlignsToEarliestStart(t *testing.T) {
	tracks := []Track{
		{Index: 0, Start: 0, Samples: Samples{1, 1, 1}},
		{Index: 1, Start: 2 * time.Second, Samples: Samples{2, 2}},
	}

	padded := PadTracks(tracks)
	require.Len(t, padded, 2)
	require.Equal(t, Samples{1, 1, 1}, padded[0].Samples)
	require.Len(t, padded[1].Samples, 2*SampleRate+2)
	for _, s := range padded[1].Samples[:2*SampleRate] {
		require.Equal(t, 0.0, s)
	}
	require.Equal(t, Samples{2, 2}, padded[1].Samples[2*SampleRate:])
}

func TestPadTracks_Empty(t *testing.T) {
	require.Nil(t, PadTracks(nil))
}
