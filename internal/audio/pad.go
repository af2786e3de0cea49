package audio

import "time"

// PadTracks prepends silence to every track so they share a common zero
// timestamp at the earliest track's start (T0 = min(Ti)). The pad is
// authoritative: every downstream timestamp (merged word timeline,
// mixdown, waveform) assumes t=0 at T0.
func PadTracks(tracks []Track) []Track {
	if len(tracks) == 0 {
		return nil
	}

	t0 := tracks[0].Start
	for _, t := range tracks[1:] {
		if t.Start < t0 {
			t0 = t.Start
		}
	}

	padded := make([]Track, len(tracks))
	for i, t := range tracks {
		padded[i] = Track{Index: t.Index, Start: t0, Samples: PadOne(t.Start-t0, t.Samples)}
	}
	return padded
}

// PadOne prepends offset worth of silence to a single track's samples.
// Factored out of PadTracks so the pad_track workflow task — which pads
// one track per fan-out item, against a T0 computed once up front from
// participant join times — can apply the same arithmetic without
// assembling every track into memory at once.
func PadOne(offset time.Duration, samples Samples) Samples {
	padSamples := int(offset.Seconds() * SampleRate)
	if padSamples <= 0 {
		return samples
	}
	out := make(Samples, padSamples+len(samples))
	copy(out[padSamples:], samples)
	return out
}
