package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMixdown_ScalesAndClamps(t *testing.T) {
	tracks := []Track{
		{Samples: Samples{1, 1}},
		{Samples: Samples{1, -1}},
	}
	out := Mixdown(tracks)
	require.Len(t, out, 2)
	scale := 1 / math.Sqrt(2)
	require.InDelta(t, 2*scale, out[0], 1e-9)
	require.InDelta(t, 0, out[1], 1e-9)
}

func TestMixdown_VariableLength(t *testing.T) {
	tracks := []Track{
		{Samples: Samples{1, 1, 1}},
		{Samples: Samples{1}},
	}
	out := Mixdown(tracks)
	require.Len(t, out, 3)
}

func TestMixdown_ClipProtection(t *testing.T) {
	tracks := []Track{
		{Samples: Samples{1}},
		{Samples: Samples{1}},
		{Samples: Samples{1}},
	}
	out := Mixdown(tracks)
	require.LessOrEqual(t, out[0], 1.0)
}
