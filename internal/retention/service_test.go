package retention

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/transcript"
	"github.com/monadical-sas/reflector/internal/events"
	"github.com/monadical-sas/reflector/internal/store"
	"github.com/monadical-sas/reflector/test/util"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, days int) (*Service, *ent.Client) {
	client, _ := util.SetupTestDatabase(t)
	transcripts := store.New(client, events.NewPGNotifier(), slog.Default())
	svc := NewService(client, transcripts, nil, days, time.Hour, slog.Default())
	return svc, client
}

func TestSweep_DeletesEndedTranscriptsPastRetention(t *testing.T) {
	svc, client := newTestService(t, 7)
	ctx := context.Background()

	id := uuid.New().String()
	_, err := client.Transcript.Create().
		SetID(id).
		SetStatus(transcript.StatusEnded).
		SetCreatedAt(time.Now().Add(-30 * 24 * time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	result := svc.Sweep(ctx)
	require.Empty(t, result.Errors)
	require.Equal(t, 1, result.TranscriptsDeleted)

	_, err = client.Transcript.Get(ctx, id)
	require.True(t, ent.IsNotFound(err))
}

func TestSweep_PreservesRecentTranscripts(t *testing.T) {
	svc, client := newTestService(t, 7)
	ctx := context.Background()

	id := uuid.New().String()
	_, err := client.Transcript.Create().
		SetID(id).
		SetStatus(transcript.StatusEnded).
		SetCreatedAt(time.Now().Add(-1 * time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	result := svc.Sweep(ctx)
	require.Empty(t, result.Errors)
	require.Equal(t, 0, result.TranscriptsDeleted)

	_, err = client.Transcript.Get(ctx, id)
	require.NoError(t, err)
}

func TestSweep_PreservesNonEndedTranscripts(t *testing.T) {
	svc, client := newTestService(t, 7)
	ctx := context.Background()

	id := uuid.New().String()
	_, err := client.Transcript.Create().
		SetID(id).
		SetStatus(transcript.StatusProcessing).
		SetCreatedAt(time.Now().Add(-30 * 24 * time.Hour)).
		Save(ctx)
	require.NoError(t, err)

	result := svc.Sweep(ctx)
	require.Empty(t, result.Errors)
	require.Equal(t, 0, result.TranscriptsDeleted)

	_, err = client.Transcript.Get(ctx, id)
	require.NoError(t, err)
}
