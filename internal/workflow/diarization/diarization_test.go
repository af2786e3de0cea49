package diarization

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/internal/audio"
	"github.com/monadical-sas/reflector/internal/events"
	"github.com/monadical-sas/reflector/internal/external/llm"
	"github.com/monadical-sas/reflector/internal/store"
	"github.com/monadical-sas/reflector/test/util"
	"github.com/stretchr/testify/require"
)

// stubGenerator satisfies llm.Generator with a canned topic response, for
// tests that exercise topic (re)generation without a live LLM backend.
type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, llm.GenerateRequest) (*llm.GenerateResult, error) {
	return &llm.GenerateResult{Text: `{"title":"Stub Topic","summary":"stub summary"}`}, nil
}

func newTestTranscriptStore(t *testing.T) *store.TranscriptStore {
	client, _ := util.SetupTestDatabase(t)
	return store.New(client, events.NewPGNotifier(), slog.Default())
}

func participant(trackIndex int, joinedAt time.Time) *ent.ParticipantSession {
	idx := trackIndex
	return &ent.ParticipantSession{TrackIndex: &idx, JoinedAt: joinedAt}
}

func TestTrackOffsetsMS(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	participants := []*ent.ParticipantSession{
		participant(0, t0),
		participant(1, t0.Add(2500*time.Millisecond)),
		participant(2, t0.Add(1200*time.Millisecond)),
	}

	offsets := trackOffsetsMS(participants)
	require.Equal(t, int64(0), offsets["0"])
	require.Equal(t, int64(2500), offsets["1"])
	require.Equal(t, int64(1200), offsets["2"])
}

func TestTrackOffsetsMS_NoTrackedParticipants(t *testing.T) {
	require.Nil(t, trackOffsetsMS(nil))
	require.Nil(t, trackOffsetsMS([]*ent.ParticipantSession{{TrackIndex: nil}}))
}

func TestFanOutTracksDerivesOnePadItemPerTrack(t *testing.T) {
	parent, err := encodeMap(participantsOutput{
		recordingOutput: recordingOutput{
			workflowContext: workflowContext{
				TranscriptID:     "t1",
				Bucket:           "bucket",
				ObjectPrefix:     "rec/prefix",
				TranscriptPrefix: "transcripts/t1",
			},
			TrackKeys: []string{"raw/0", "raw/1"},
		},
		TrackOffsetsMS: map[string]int64{"0": 0, "1": 750},
	})
	require.NoError(t, err)

	items, err := fanOutTracks(parent)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first, err := decodeMap[padTrackItem](items[0])
	require.NoError(t, err)
	require.Equal(t, 0, first.TrackIndex)
	require.Equal(t, "raw/0", first.TrackKey)
	require.Equal(t, int64(0), first.OffsetMS)

	second, err := decodeMap[padTrackItem](items[1])
	require.NoError(t, err)
	require.Equal(t, 1, second.TrackIndex)
	require.Equal(t, int64(750), second.OffsetMS)
}

func TestFanOutPaddedTracksDerivesTranscribeItems(t *testing.T) {
	parent, err := encodeMap(mixdownInput{
		workflowContext: workflowContext{TranscriptID: "t1", SourceLanguage: "en"},
		PaddedTracks: []paddedTrackRef{
			{TrackIndex: 0, PaddedKey: "padded/0"},
			{TrackIndex: 1, PaddedKey: "padded/1"},
		},
	})
	require.NoError(t, err)

	items, err := fanOutPaddedTracks(parent)
	require.NoError(t, err)
	require.Len(t, items, 2)

	item, err := decodeMap[transcribeItem](items[1])
	require.NoError(t, err)
	require.Equal(t, 1, item.TrackIndex)
	require.Equal(t, "padded/1", item.PaddedKey)
	require.Equal(t, "en", item.SourceLanguage)
}

func TestMergeTranscripts_SortsByStartAcrossTracks(t *testing.T) {
	svc := &Services{}
	input, err := encodeMap(transcribeJoinInput{
		workflowContext: workflowContext{TranscriptID: "t1"},
		TranscribedTracks: []transcribedTrack{
			{TrackIndex: 1, Words: []audio.Word{{Text: "world", Start: 1.5, End: 2.0, Speaker: 1}}},
			{TrackIndex: 0, Words: []audio.Word{{Text: "hello", Start: 0.0, End: 0.5, Speaker: 0}}},
		},
	})
	require.NoError(t, err)

	out, err := svc.mergeTranscripts(context.Background(), input)
	require.NoError(t, err)

	result, err := decodeMap[mergeOutput](out)
	require.NoError(t, err)
	require.Len(t, result.Words, 2)
	require.Equal(t, "hello", result.Words[0].Text)
	require.Equal(t, "world", result.Words[1].Text)
}

func TestDetectTopics_SkipsLLMOnZeroWords(t *testing.T) {
	svc := &Services{}
	input, err := encodeMap(mergeOutput{workflowContext: workflowContext{TranscriptID: "t1"}})
	require.NoError(t, err)

	out, err := svc.detectTopics(context.Background(), input)
	require.NoError(t, err)

	result, err := decodeMap[topicsOutput](out)
	require.NoError(t, err)
	require.Empty(t, result.Topics)
}

func TestGenerateTitleAndSummary_SkipLLMOnZeroWords(t *testing.T) {
	svc := &Services{}

	titleIn, err := encodeMap(topicsOutput{workflowContext: workflowContext{TranscriptID: "t1"}})
	require.NoError(t, err)
	titleOut, err := svc.generateTitle(context.Background(), titleIn)
	require.NoError(t, err)
	title, err := decodeMap[titleOutput](titleOut)
	require.NoError(t, err)
	require.Empty(t, title.Title)

	summaryOut, err := svc.generateSummary(context.Background(), titleOut)
	require.NoError(t, err)
	summary, err := decodeMap[summaryOutput](summaryOut)
	require.NoError(t, err)
	require.Empty(t, summary.ShortSummary)
	require.Empty(t, summary.LongSummary)
}

func TestCleanupConsent_NoDeclinesIsNoop(t *testing.T) {
	ts := newTestTranscriptStore(t)
	ctx := context.Background()
	tr, err := ts.Create(ctx, uuid.NewString(), "user-1", "")
	require.NoError(t, err)

	svc := &Services{Transcripts: ts, Log: slog.Default()}
	input, err := encodeMap(finalizeOutput{
		workflowContext: workflowContext{TranscriptID: tr.ID},
		Words:           []audio.Word{{Text: "hi", Start: 0, End: 1, Speaker: 0}},
	})
	require.NoError(t, err)

	out, err := svc.cleanupConsent(ctx, input)
	require.NoError(t, err)

	result, err := decodeMap[finalizeOutput](out)
	require.NoError(t, err)
	require.Len(t, result.Words, 1)
}

func TestCleanupConsent_PartialDeclineMasksOnlyDeclinedSpeaker(t *testing.T) {
	ts := newTestTranscriptStore(t)
	ctx := context.Background()
	tr, err := ts.Create(ctx, uuid.NewString(), "user-1", "")
	require.NoError(t, err)

	// No MixdownKey/WaveformKey set, so the delete-blob calls are no-ops
	// (empty key) — audio_deleted, the regenerated topics, and the
	// masked word-timeline are what's under test here.
	svc := &Services{Transcripts: ts, Log: slog.Default(), Generator: stubGenerator{}}
	input, err := encodeMap(finalizeOutput{
		workflowContext: workflowContext{TranscriptID: tr.ID, DeclinedTrackIndexes: []int{1}},
		Words: []audio.Word{
			{Text: "kept", Start: 0, End: 1, Speaker: 0},
			{Text: "masked", Start: 1, End: 2, Speaker: 1},
		},
	})
	require.NoError(t, err)

	out, err := svc.cleanupConsent(ctx, input)
	require.NoError(t, err)

	result, err := decodeMap[finalizeOutput](out)
	require.NoError(t, err)
	require.Len(t, result.Words, 1)
	require.Equal(t, "kept", result.Words[0].Text)
	require.Len(t, result.Topics, 1)
	require.Equal(t, "Stub Topic", result.Topics[0].Name)

	// S6: a decline — even a partial one — deletes the shared mixdown,
	// since it can't be selectively re-cut per speaker.
	refreshed, err := ts.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	require.True(t, refreshed.AudioDeleted)
}

func TestCleanupConsent_TotalDeclineDeletesAudioAndClearsTopics(t *testing.T) {
	ts := newTestTranscriptStore(t)
	ctx := context.Background()
	tr, err := ts.Create(ctx, uuid.NewString(), "user-1", "")
	require.NoError(t, err)

	// No MixdownKey/WaveformKey set, so the delete-blob branch is
	// skipped without needing a live blob store; only the audio_deleted
	// flag and the emptied webvtt/topics are under test here.
	svc := &Services{Transcripts: ts, Log: slog.Default(), Generator: stubGenerator{}}
	input, err := encodeMap(finalizeOutput{
		workflowContext: workflowContext{TranscriptID: tr.ID, DeclinedTrackIndexes: []int{0}},
		Words:           []audio.Word{{Text: "masked", Start: 0, End: 1, Speaker: 0}},
	})
	require.NoError(t, err)

	out, err := svc.cleanupConsent(ctx, input)
	require.NoError(t, err)

	result, err := decodeMap[finalizeOutput](out)
	require.NoError(t, err)
	require.Empty(t, result.Words)
	require.Empty(t, result.Topics)

	refreshed, err := ts.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	require.True(t, refreshed.AudioDeleted)
}

func TestFinalize_ZeroWordsLeavesTitleAndSummaryUnset(t *testing.T) {
	ts := newTestTranscriptStore(t)
	ctx := context.Background()
	tr, err := ts.Create(ctx, uuid.NewString(), "user-1", "")
	require.NoError(t, err)

	svc := &Services{Transcripts: ts, Log: slog.Default()}
	input, err := encodeMap(summaryOutput{workflowContext: workflowContext{TranscriptID: tr.ID}})
	require.NoError(t, err)

	_, err = svc.finalize(ctx, input)
	require.NoError(t, err)

	refreshed, err := ts.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, "ended", string(refreshed.Status))
	require.Nil(t, refreshed.Title)
	require.Nil(t, refreshed.ShortSummary)
	require.Nil(t, refreshed.LongSummary)
}
