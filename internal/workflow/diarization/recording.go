package diarization

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/transcript"
)

// StartInput is the dag run's root input: "{transcript_id,
// bucket, track_keys[], room_id?, source_language?, target_language?}",
// generalized to carry recording_id since get_recording re-fetches bucket
// and track_keys from the Recording row itself rather than trusting the
// caller's copy.
type StartInput struct {
	TranscriptID   string `json:"transcript_id"`
	RecordingID    string `json:"recording_id"`
	RoomID         string `json:"room_id,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
}

type recordingOutput struct {
	workflowContext
	TrackKeys []string `json:"track_keys"`
}

// getRecording fetches recording metadata and marks the transcript
// processing.
func (s *Services) getRecording(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[StartInput](input)
	if err != nil {
		return nil, err
	}

	if _, err := s.Transcripts.SetStatus(ctx, in.TranscriptID, transcript.StatusProcessing); err != nil {
		return nil, fmt.Errorf("mark transcript processing: %w", err)
	}

	rec, err := s.Recordings.GetRecording(ctx, in.RecordingID)
	if err != nil {
		return nil, fmt.Errorf("get_recording: %w", err)
	}

	out := recordingOutput{
		workflowContext: workflowContext{
			TranscriptID:     in.TranscriptID,
			RecordingID:      in.RecordingID,
			RoomID:           in.RoomID,
			SourceLanguage:   in.SourceLanguage,
			TargetLanguage:   in.TargetLanguage,
			Bucket:           rec.Bucket,
			ObjectPrefix:     rec.ObjectPrefix,
			TranscriptPrefix: "transcripts/" + in.TranscriptID,
		},
		TrackKeys: rec.TrackKeys,
	}
	if out.RoomID == "" && rec.MeetingID != nil {
		out.RoomID = *rec.MeetingID
	}
	return encodeMap(out)
}

// participantsOutput carries track head-pad offsets forward to the
// pad_track fan-out derivation only; nothing downstream of pad_track
// needs them again, so they aren't part of workflowContext proper.
type participantsOutput struct {
	recordingOutput
	TrackOffsetsMS map[string]int64 `json:"track_offsets_ms,omitempty"`
}

// getParticipants defaults languages to en/en, computes each track's head-pad offset
// against the earliest participant's join time, and records which track
// indexes belong to a participant who declined recording — consulted
// later by cleanup_consent. It does not resolve participant identities
// or names.
func (s *Services) getParticipants(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	in, err := decodeMap[recordingOutput](input)
	if err != nil {
		return nil, err
	}

	if in.SourceLanguage == "" {
		in.SourceLanguage = "en"
	}
	if in.TargetLanguage == "" {
		in.TargetLanguage = "en"
	}

	out := participantsOutput{recordingOutput: in}

	if in.RoomID == "" {
		// Standalone upload with no meeting: no participant rows to
		// resolve, no consent to check. Offsets default to zero (no
		// head-padding) in pad_track.
		return encodeMap(out)
	}

	participants, err := s.Recordings.ListParticipants(ctx, in.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get_participants: %w", err)
	}
	declined, err := s.Recordings.DeclinedConsents(ctx, in.RoomID)
	if err != nil {
		return nil, fmt.Errorf("get_participants: %w", err)
	}

	out.TrackOffsetsMS = trackOffsetsMS(participants)
	for _, p := range participants {
		if p.TrackIndex == nil {
			continue
		}
		if declined[p.UserID] {
			out.DeclinedTrackIndexes = append(out.DeclinedTrackIndexes, *p.TrackIndex)
		}
	}
	sort.Ints(out.DeclinedTrackIndexes)

	return encodeMap(out)
}

// trackOffsetsMS computes each track_index's head-pad offset in
// milliseconds relative to the earliest joined_at among tracked
// participants.
func trackOffsetsMS(participants []*ent.ParticipantSession) map[string]int64 {
	var t0 *time.Time
	for _, p := range participants {
		if p.TrackIndex == nil {
			continue
		}
		if t0 == nil || p.JoinedAt.Before(*t0) {
			joined := p.JoinedAt
			t0 = &joined
		}
	}
	if t0 == nil {
		return nil
	}

	offsets := make(map[string]int64, len(participants))
	for _, p := range participants {
		if p.TrackIndex == nil {
			continue
		}
		offsets[strconv.Itoa(*p.TrackIndex)] = p.JoinedAt.Sub(*t0).Milliseconds()
	}
	return offsets
}

type padTrackItem struct {
	TranscriptID     string `json:"transcript_id"`
	Bucket           string `json:"bucket"`
	ObjectPrefix     string `json:"object_prefix"`
	TranscriptPrefix string `json:"transcript_prefix"`
	TrackIndex       int    `json:"track_index"`
	TrackKey         string `json:"track_key"`
	OffsetMS         int64  `json:"offset_ms"`
}

// fanOutTracks derives one pad_track item per track_key. Head-pad offsets were computed in getParticipants and are
// looked up per track index; a track with no known participant (no
// offset recorded) starts at offset zero.
func fanOutTracks(parent map[string]interface{}) ([]map[string]interface{}, error) {
	out, err := decodeMap[participantsOutput](parent)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, len(out.TrackKeys))
	for i, key := range out.TrackKeys {
		item := padTrackItem{
			TranscriptID:     out.TranscriptID,
			Bucket:           out.Bucket,
			ObjectPrefix:     out.ObjectPrefix,
			TranscriptPrefix: out.TranscriptPrefix,
			TrackIndex:       i,
			TrackKey:         key,
			OffsetMS:         out.TrackOffsetsMS[strconv.Itoa(i)],
		}
		m, err := encodeMap(item)
		if err != nil {
			return nil, err
		}
		items[i] = m
	}
	return items, nil
}
