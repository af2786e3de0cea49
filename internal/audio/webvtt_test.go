package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateWebVTT_SingleSpeaker(t *testing.T) {
	words := []Word{
		{Text: "Hello", Start: 0, End: 0.4, Speaker: 0},
		{Text: "world.", Start: 0.4, End: 0.9, Speaker: 0},
	}
	vtt := GenerateWebVTT(words)
	require.Contains(t, vtt, "WEBVTT")
	require.Contains(t, vtt, "<v Speaker0>Hello world.")
}

func TestWebVTT_RoundTrip(t *testing.T) {
	words := []Word{
		{Text: "Hello", Start: 0, End: 0.4, Speaker: 0},
		{Text: "world", Start: 0.4, End: 0.9, Speaker: 0},
		{Text: "hi", Start: 2.0, End: 2.3, Speaker: 1}, // head-offset, new speaker
		{Text: "there", Start: 2.3, End: 2.6, Speaker: 1},
	}
	vtt := GenerateWebVTT(words)
	cues, err := ParseWebVTT(vtt)
	require.NoError(t, err)
	require.Len(t, cues, 2)

	require.Equal(t, 0, cues[0].Speaker)
	require.Equal(t, "Hello world", cues[0].Text)
	require.InDelta(t, 0, cues[0].Start, 1e-3)
	require.InDelta(t, 0.9, cues[0].End, 1e-3)

	require.Equal(t, 1, cues[1].Speaker)
	require.Equal(t, "hi there", cues[1].Text)
	require.InDelta(t, 2.0, cues[1].Start, 1e-3)
	require.InDelta(t, 2.6, cues[1].End, 1e-3)
}

func TestGenerateWebVTT_SplitsOnSilenceGap(t *testing.T) {
	words := []Word{
		{Text: "Hello", Start: 0, End: 0.4, Speaker: 0},
		{Text: "later", Start: 3.0, End: 3.4, Speaker: 0}, // same speaker, >1.5s gap
	}
	cues, err := ParseWebVTT(GenerateWebVTT(words))
	require.NoError(t, err)
	require.Len(t, cues, 2)
}

func TestGenerateWebVTT_Empty(t *testing.T) {
	require.Equal(t, "WEBVTT\n\n", GenerateWebVTT(nil))
}
