package diarization

import (
	"context"
	"fmt"

	"github.com/monadical-sas/reflector/ent/transcript"
	"github.com/monadical-sas/reflector/internal/audio"
	"github.com/monadical-sas/reflector/internal/store"
)

type finalizeOutput struct {
	workflowContext
	Words  []audio.Word `json:"words"`
	Topics []topic      `json:"topics"`
	WebVTT string       `json:"webvtt"`
}

// finalize assembles the WebVTT transcript, writes every progressively
// filled field, and marks the transcript ended.
// Zero words finalizes with empty topics and null summaries, per the
// zero-track/zero-word edge-case policy — title/summary fields are left
// unset rather than written as empty strings.
func (s *Services) finalize(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[summaryOutput](input)
	if err != nil {
		return nil, err
	}

	webvtt := audio.GenerateWebVTT(in.Words)

	update := store.TitleSummaryUpdate{
		Topics:   topicsToEventData(in.Topics),
		WebVTT:   &webvtt,
		Duration: &in.DurationSeconds,
	}
	if in.Title != "" {
		update.Title = &in.Title
	}
	if in.ShortSummary != "" {
		update.ShortSummary = &in.ShortSummary
	}
	if in.LongSummary != "" {
		update.LongSummary = &in.LongSummary
	}
	if in.ActionItems != nil {
		update.ActionItems = in.ActionItems
	}

	if _, err := s.Transcripts.UpdateFields(ctx, in.TranscriptID, update); err != nil {
		return nil, fmt.Errorf("finalize: update fields: %w", err)
	}
	if _, err := s.Transcripts.SetStatus(ctx, in.TranscriptID, transcript.StatusEnded); err != nil {
		return nil, fmt.Errorf("finalize: set status ended: %w", err)
	}

	return encodeMap(finalizeOutput{workflowContext: in.workflowContext, Words: in.Words, Topics: in.Topics, WebVTT: webvtt})
}

// cleanupConsent masks any declined participant's words out of the
// word-timeline, then regenerates both topics and WebVTT from the
// remaining words so no declined speaker's contributions survive in
// derived output. The underlying mixdown and waveform are a single
// mixed-down track that cannot be selectively re-cut per speaker, so
// any decline — partial or total — deletes both blobs outright and
// marks audio_deleted.
func (s *Services) cleanupConsent(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[finalizeOutput](input)
	if err != nil {
		return nil, err
	}

	if len(in.DeclinedTrackIndexes) == 0 {
		return encodeMap(in)
	}

	kept := in.Words[:0:0]
	for _, w := range in.Words {
		if !in.isDeclined(w.Speaker) {
			kept = append(kept, w)
		}
	}

	topics, err := s.detectTopicsFromWords(ctx, kept)
	if err != nil {
		return nil, fmt.Errorf("cleanup_consent: regenerate topics: %w", err)
	}

	webvtt := audio.GenerateWebVTT(kept)
	update := store.TitleSummaryUpdate{
		Topics: topicsToEventData(topics),
		WebVTT: &webvtt,
	}
	if _, err := s.Transcripts.UpdateFields(ctx, in.TranscriptID, update); err != nil {
		return nil, fmt.Errorf("cleanup_consent: update fields: %w", err)
	}

	if in.MixdownKey != "" {
		if err := s.Blobs.Delete(ctx, in.MixdownKey); err != nil {
			s.Log.Warn("cleanup_consent: delete mixdown failed", "transcript_id", in.TranscriptID, "error", err)
		}
	}
	if in.WaveformKey != "" {
		if err := s.Blobs.Delete(ctx, in.WaveformKey); err != nil {
			s.Log.Warn("cleanup_consent: delete waveform failed", "transcript_id", in.TranscriptID, "error", err)
		}
	}
	if err := s.Transcripts.SetAudioDeleted(ctx, in.TranscriptID); err != nil {
		return nil, fmt.Errorf("cleanup_consent: mark audio deleted: %w", err)
	}

	in.Words = kept
	in.Topics = topics
	in.WebVTT = webvtt
	return encodeMap(in)
}
