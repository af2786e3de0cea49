package diarization

import "github.com/monadical-sas/reflector/internal/audio"

// workflowContext is the set of fields every task after get_recording
// forwards in its own output, since a fan-out/join boundary (pad_track,
// transcribe_track) only guarantees the *parent* step's input survives —
// not whatever ad hoc fields a sibling fan-out item added. Embedding this
// in each stage's output struct keeps the forwarding mechanical instead
// of repeating field lists by hand at every step.
type workflowContext struct {
	TranscriptID         string  `json:"transcript_id"`
	RecordingID          string  `json:"recording_id,omitempty"`
	RoomID               string  `json:"room_id,omitempty"`
	SourceLanguage       string  `json:"source_language,omitempty"`
	TargetLanguage       string  `json:"target_language,omitempty"`
	Bucket               string  `json:"bucket,omitempty"`
	ObjectPrefix         string  `json:"object_prefix,omitempty"`
	TranscriptPrefix     string  `json:"transcript_prefix,omitempty"`
	MixdownKey           string  `json:"mixdown_key,omitempty"`
	WaveformKey          string  `json:"waveform_key,omitempty"`
	DurationSeconds      float64 `json:"duration_seconds,omitempty"`
	DeclinedTrackIndexes []int   `json:"declined_track_indexes,omitempty"`
}

func (c workflowContext) isDeclined(trackIndex int) bool {
	for _, i := range c.DeclinedTrackIndexes {
		if i == trackIndex {
			return true
		}
	}
	return false
}

// paddedTrackRef is one pad_track fan-out item's result: just enough to
// locate and re-fetch the padded blob, since the fan-out boundary doesn't
// preserve the rest of workflowContext per item.
type paddedTrackRef struct {
	TrackIndex int    `json:"track_index"`
	PaddedKey  string `json:"padded_key"`
	SizeBytes  int    `json:"size_bytes"`
}

// transcribedTrack is one transcribe_track fan-out item's result.
type transcribedTrack struct {
	TrackIndex int          `json:"track_index"`
	Words      []audio.Word `json:"words"`
}

// topic is one entry of the Transcript.topics JSON column.
type topic struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Summary   string  `json:"summary"`
	Timestamp float64 `json:"timestamp"`
	Duration  float64 `json:"duration"`
}

func topicsToEventData(topics []topic) []map[string]any {
	out := make([]map[string]any, len(topics))
	for i, t := range topics {
		out[i] = map[string]any{
			"id":        t.ID,
			"name":      t.Name,
			"summary":   t.Summary,
			"timestamp": t.Timestamp,
			"duration":  t.Duration,
		}
	}
	return out
}
