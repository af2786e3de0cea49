// Package retention periodically purges old transcripts, meetings, and
// recordings, the way the original Reflector's Celery cleanup task did
// (server/reflector/worker/cleanup.py, exposed manually via
// tools/cleanup_old_data.py). Ended transcripts (cascading to their
// events), recordings (and their track blob objects) and meetings past
// the retention window are each deleted independently, by their own
// timestamps.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/meeting"
	"github.com/monadical-sas/reflector/ent/recording"
	"github.com/monadical-sas/reflector/ent/transcript"
	"github.com/monadical-sas/reflector/internal/blobstore"
	"github.com/monadical-sas/reflector/internal/store"
)

// Result tallies what a single sweep removed, mirroring the original
// cleanup task's log fields.
type Result struct {
	TranscriptsDeleted int
	MeetingsDeleted    int
	RecordingsDeleted  int
	Errors             []error
}

// Service runs the retention sweep on an interval. Created once at
// startup; Start/Stop bracket its background goroutine.
type Service struct {
	transcripts *store.TranscriptStore
	client      *ent.Client
	blobs       *blobstore.Store
	log         *slog.Logger

	retentionDays int
	interval      time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a retention Service. blobs may be nil, in which
// case recordings are deleted from the database without attempting to
// remove their underlying blob objects (useful for a DB-only backend).
func NewService(client *ent.Client, transcripts *store.TranscriptStore, blobs *blobstore.Store, retentionDays int, interval time.Duration, log *slog.Logger) *Service {
	return &Service{
		client:        client,
		transcripts:   transcripts,
		blobs:         blobs,
		retentionDays: retentionDays,
		interval:      interval,
		log:           log.With("component", "retention"),
	}
}

// Start launches the background sweep loop. A no-op if already running.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.log.Info("retention service started", "retention_days", s.retentionDays, "interval", s.interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.log.Info("retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	result := s.Sweep(ctx)
	if len(result.Errors) > 0 {
		s.log.Warn("retention sweep completed with errors",
			"transcripts_deleted", result.TranscriptsDeleted,
			"meetings_deleted", result.MeetingsDeleted,
			"recordings_deleted", result.RecordingsDeleted,
			"error_count", len(result.Errors),
		)
		return
	}
	if result.TranscriptsDeleted+result.MeetingsDeleted+result.RecordingsDeleted > 0 {
		s.log.Info("retention sweep completed",
			"transcripts_deleted", result.TranscriptsDeleted,
			"meetings_deleted", result.MeetingsDeleted,
			"recordings_deleted", result.RecordingsDeleted,
		)
	}
}

// Sweep runs one retention pass synchronously, returning a tally of
// what was deleted. Exported so a one-shot CLI invocation (the
// hand-run equivalent of the original's cleanup_old_data.py tool) can
// drive it outside the interval loop.
func (s *Service) Sweep(ctx context.Context) Result {
	var result Result

	cutoff := time.Now().Add(-time.Duration(s.retentionDays) * 24 * time.Hour)

	n, err := s.deleteOldTranscripts(ctx, cutoff)
	result.TranscriptsDeleted = n
	if err != nil {
		result.Errors = append(result.Errors, err)
	}

	n, err = s.deleteOldRecordings(ctx, cutoff)
	result.RecordingsDeleted = n
	if err != nil {
		result.Errors = append(result.Errors, err)
	}

	n, err = s.deleteOldMeetings(ctx, cutoff)
	result.MeetingsDeleted = n
	if err != nil {
		result.Errors = append(result.Errors, err)
	}

	return result
}

// deleteOldTranscripts removes ended transcripts past the retention
// cutoff. Deleting through TranscriptStore.Delete (rather than a bulk
// ent delete) keeps this on the same code path that cascades
// transcript_events and is the only writer of transcript state.
func (s *Service) deleteOldTranscripts(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.client.Transcript.Query().
		Where(
			transcript.StatusEQ(transcript.StatusEnded),
			transcript.CreatedAtLT(cutoff),
		).
		IDs(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		if err := s.transcripts.Delete(ctx, id); err != nil {
			s.log.Warn("delete old transcript failed", "transcript_id", id, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// deleteOldRecordings removes recordings past the retention cutoff,
// best-effort deleting their blob objects first (mirroring
// recording_orphans.py's handling of per-track object keys).
func (s *Service) deleteOldRecordings(ctx context.Context, cutoff time.Time) (int, error) {
	recs, err := s.client.Recording.Query().
		Where(recording.RecordedAtLT(cutoff)).
		All(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rec := range recs {
		if s.blobs != nil {
			for _, key := range rec.TrackKeys {
				if err := s.blobs.Delete(ctx, key); err != nil {
					s.log.Warn("delete recording blob failed", "recording_id", rec.ID, "key", key, "error", err)
				}
			}
		}
		if err := s.client.Recording.DeleteOneID(rec.ID).Exec(ctx); err != nil {
			s.log.Warn("delete old recording failed", "recording_id", rec.ID, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// deleteOldMeetings removes meetings past the cutoff. transcript_id is
// a plain denormalized reference, not an ent edge, so there is no
// cascade to worry about here — deleteOldTranscripts already reclaimed
// the transcript row (and its events) independently.
func (s *Service) deleteOldMeetings(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.client.Meeting.Delete().
		Where(meeting.StartedAtLT(cutoff)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return n, nil
}
