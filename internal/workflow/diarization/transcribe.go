package diarization

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/monadical-sas/reflector/internal/audio"
	"github.com/monadical-sas/reflector/internal/external/asr"
)

type transcribeItem struct {
	TranscriptID   string `json:"transcript_id"`
	SourceLanguage string `json:"source_language,omitempty"`
	TrackIndex     int    `json:"track_index"`
	PaddedKey      string `json:"padded_key"`
}

// fanOutPaddedTracks derives one transcribe_track item per padded track,
// reading the list generate_waveform forwarded.
func fanOutPaddedTracks(parent map[string]interface{}) ([]map[string]interface{}, error) {
	in, err := decodeMap[mixdownInput](parent)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, len(in.PaddedTracks))
	for i, ref := range in.PaddedTracks {
		item := transcribeItem{
			TranscriptID:   in.TranscriptID,
			SourceLanguage: in.SourceLanguage,
			TrackIndex:     ref.TrackIndex,
			PaddedKey:      ref.PaddedKey,
		}
		m, err := encodeMap(item)
		if err != nil {
			return nil, err
		}
		items[i] = m
	}
	return items, nil
}

// transcribeTrack sends one padded track to the ASR backend and attaches
// speaker = track_index to every returned word.
func (s *Services) transcribeTrack(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[transcribeItem](input)
	if err != nil {
		return nil, err
	}

	blob, err := s.Blobs.Get(ctx, in.PaddedKey)
	if err != nil {
		return nil, fmt.Errorf("transcribe_track: fetch padded track %d: %w", in.TrackIndex, err)
	}

	result, err := s.Transcriber.Transcribe(ctx, asr.TranscribeRequest{
		Audio:          bytes.NewReader(blob),
		Filename:       fmt.Sprintf("track-%d.opus", in.TrackIndex),
		SourceLanguage: in.SourceLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe_track: track %d: %w", in.TrackIndex, err)
	}

	words := make([]audio.Word, len(result.Words))
	for i, w := range result.Words {
		words[i] = audio.Word{Text: w.Text, Start: w.Start, End: w.End, Speaker: in.TrackIndex}
	}

	return encodeMap(transcribedTrack{TrackIndex: in.TrackIndex, Words: words})
}

type transcribeJoinInput struct {
	workflowContext
	TranscribedTracks []transcribedTrack `json:"transcribed_tracks"`
}

type mergeOutput struct {
	workflowContext
	Words []audio.Word `json:"words"`
}

// mergeTranscripts concatenates every track's words and stable-sorts them
// by start time into the canonical word-timeline.
func (s *Services) mergeTranscripts(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[transcribeJoinInput](input)
	if err != nil {
		return nil, err
	}

	var words []audio.Word
	for _, t := range in.TranscribedTracks {
		words = append(words, t.Words...)
	}
	sort.SliceStable(words, func(i, j int) bool { return words[i].Start < words[j].Start })

	return encodeMap(mergeOutput{workflowContext: in.workflowContext, Words: words})
}
