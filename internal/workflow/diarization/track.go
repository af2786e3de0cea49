package diarization

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/monadical-sas/reflector/internal/audio"
	"github.com/monadical-sas/reflector/internal/store"
)

// padTrack fetches one raw track, decodes it, pads it with
// offset_ms worth of head silence, re-encodes, and writes it to a
// deterministic key so the write is idempotent across replay.
func (s *Services) padTrack(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[padTrackItem](input)
	if err != nil {
		return nil, err
	}

	raw, err := s.Blobs.Get(ctx, audio.RawTrackKey(in.ObjectPrefix, in.TrackIndex))
	if err != nil {
		return nil, fmt.Errorf("pad_track: fetch raw track %d: %w", in.TrackIndex, err)
	}
	samples, err := s.Codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("pad_track: decode track %d: %w", in.TrackIndex, err)
	}

	padded := audio.PadOne(time.Duration(in.OffsetMS)*time.Millisecond, samples)

	encoded, err := s.Codec.Encode(padded)
	if err != nil {
		return nil, fmt.Errorf("pad_track: encode track %d: %w", in.TrackIndex, err)
	}

	key := audio.PaddedTrackKey(in.ObjectPrefix, in.TrackIndex)
	if err := s.Blobs.Put(ctx, key, encoded, "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("pad_track: write padded track %d: %w", in.TrackIndex, err)
	}

	return encodeMap(paddedTrackRef{TrackIndex: in.TrackIndex, PaddedKey: key, SizeBytes: len(encoded)})
}

type mixdownInput struct {
	workflowContext
	PaddedTracks []paddedTrackRef `json:"padded_tracks"`
}

// mixdownTracks sums every padded track into a single mono mixdown and
// writes it under the transcript's storage prefix.
// Runs on the cpu-heavy pool (one slot) since the summation holds every
// track's decoded samples in memory at once.
func (s *Services) mixdownTracks(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[mixdownInput](input)
	if err != nil {
		return nil, err
	}

	out := mixdownInput{workflowContext: in.workflowContext, PaddedTracks: in.PaddedTracks}

	if len(in.PaddedTracks) == 0 {
		// Zero tracks: nothing to mix; downstream steps see duration 0
		// and skip their own work.
		return encodeMap(out)
	}

	tracks := make([]audio.Track, 0, len(in.PaddedTracks))
	for _, ref := range in.PaddedTracks {
		blob, err := s.Blobs.Get(ctx, ref.PaddedKey)
		if err != nil {
			return nil, fmt.Errorf("mixdown_tracks: fetch padded track %d: %w", ref.TrackIndex, err)
		}
		samples, err := s.Codec.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("mixdown_tracks: decode padded track %d: %w", ref.TrackIndex, err)
		}
		tracks = append(tracks, audio.Track{Index: ref.TrackIndex, Samples: samples})
	}

	mixed := audio.Mixdown(tracks)
	encoded, err := s.Codec.Encode(mixed)
	if err != nil {
		return nil, fmt.Errorf("mixdown_tracks: encode mixdown: %w", err)
	}

	key := audio.MixdownKey(in.TranscriptPrefix)
	if err := s.Blobs.Put(ctx, key, encoded, "audio/mpeg"); err != nil {
		return nil, fmt.Errorf("mixdown_tracks: write mixdown: %w", err)
	}

	out.MixdownKey = key
	out.DurationSeconds = float64(len(mixed)) / float64(audio.SampleRate)
	return encodeMap(out)
}

// generateWaveform produces a fixed-resolution uint8 loudness envelope
// from the mixdown and appends a WAVEFORM event.
func (s *Services) generateWaveform(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[mixdownInput](input)
	if err != nil {
		return nil, err
	}

	if in.MixdownKey == "" {
		return encodeMap(in)
	}

	blob, err := s.Blobs.Get(ctx, in.MixdownKey)
	if err != nil {
		return nil, fmt.Errorf("generate_waveform: fetch mixdown: %w", err)
	}
	samples, err := s.Codec.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("generate_waveform: decode mixdown: %w", err)
	}

	envelope := audio.Waveform(samples, audio.DefaultSegmentsCount)
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("generate_waveform: marshal envelope: %w", err)
	}
	key := audio.WaveformKey(in.TranscriptPrefix)
	if err := s.Blobs.Put(ctx, key, payload, "application/json"); err != nil {
		return nil, fmt.Errorf("generate_waveform: write waveform: %w", err)
	}

	if err := s.Transcripts.AppendEvent(ctx, in.TranscriptID, store.EventWaveform, map[string]any{"waveform_key": key}, "waveform:"+in.TranscriptID); err != nil {
		s.Log.Warn("append waveform event failed", "transcript_id", in.TranscriptID, "error", err)
	}

	in.WaveformKey = key
	return encodeMap(in)
}
