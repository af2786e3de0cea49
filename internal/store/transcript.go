// Package store is the Transcript Store component: the writer of
// Transcript state and its transcript_events, responsible for bumping
// change_seq and for fanning out every mutation onto the event bus.
// RecordingStore only reads recordings; Meeting and ParticipantSession
// rows are not written here.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/predicate"
	"github.com/monadical-sas/reflector/ent/transcript"
	"github.com/monadical-sas/reflector/ent/transcriptevent"
)

// Notifier is the subset of internal/events.PGNotifier the store needs:
// a single pg_notify call issued within the caller's transaction, so
// that a mutation and its NOTIFY commit or roll back together.
type Notifier interface {
	NotifyInTx(ctx context.Context, exec TxExecutor, channel string, payload []byte) error
}

// TxExecutor abstracts the part of ent's transaction-bound driver the
// notifier needs to issue raw SQL (pg_notify is not expressible through
// ent's query builder).
type TxExecutor interface {
	Exec(ctx context.Context, query string, args, v any) error
}

// EventName enumerates the closed set of event types.
type EventName = transcriptevent.EventName

const (
	EventTranscript      = transcriptevent.EventNameTRANSCRIPT
	EventStatus          = transcriptevent.EventNameSTATUS
	EventDuration        = transcriptevent.EventNameDURATION
	EventTopic           = transcriptevent.EventNameTOPIC
	EventFinalTitle      = transcriptevent.EventNameFINAL_TITLE
	EventLongSummary     = transcriptevent.EventNameLONG_SUMMARY
	EventShortSummary    = transcriptevent.EventNameSHORT_SUMMARY
	EventActionItems     = transcriptevent.EventNameACTION_ITEMS
	EventWebVTT          = transcriptevent.EventNameWEBVTT
	EventWaveform        = transcriptevent.EventNameWAVEFORM
	EventPipelineProgress = transcriptevent.EventNamePIPELINE_PROGRESS
	EventDAGStatus       = transcriptevent.EventNameDAG_STATUS
)

// historySuppressed lists the events that do not replay their full
// history to a reconnecting WebSocket client. The store itself does not
// consult it; catch-up filtering lives in internal/events (catchupExcluded).
var historySuppressed = map[EventName]bool{
	EventTranscript: true,
	EventStatus:     true,
}

func roomChannel(transcriptID string) string { return "ts:" + transcriptID }
func userChannel(userID string) string       { return "user:" + userID }

// userNotifiedEvents are additionally published to the owner's personal
// channel.
var userNotifiedEvents = map[EventName]bool{
	EventStatus:     true,
	EventFinalTitle: true,
	EventDuration:   true,
}

// TranscriptStore is the sole writer of Transcript state.
type TranscriptStore struct {
	client   *ent.Client
	notifier Notifier
	log      *slog.Logger
}

// New constructs a TranscriptStore.
func New(client *ent.Client, notifier Notifier, log *slog.Logger) *TranscriptStore {
	return &TranscriptStore{client: client, notifier: notifier, log: log.With("component", "store")}
}

// ErrLocked is returned when a mutation is attempted against a
// transcript whose admin lock is set (see SetLocked); status changes
// never set the lock.
var ErrLocked = errors.New("store: transcript is locked")

// Create inserts a new idle transcript and emits a TRANSCRIPT event.
func (s *TranscriptStore) Create(ctx context.Context, id, userID, roomID string) (*ent.Transcript, error) {
	if id == "" {
		id = uuid.NewString()
	}
	var created *ent.Transcript
	err := s.withTx(ctx, func(tx *ent.Tx) error {
		builder := tx.Transcript.Create().
			SetID(id).
			SetStatus(transcript.StatusIdle)
		if userID != "" {
			builder = builder.SetUserID(userID)
		}
		if roomID != "" {
			builder = builder.SetRoomID(roomID)
		}
		t, err := builder.Save(ctx)
		if err != nil {
			return fmt.Errorf("create transcript: %w", err)
		}
		t, err = s.bumpAndAppend(ctx, tx, t, EventTranscript, map[string]any{"status": string(t.Status)})
		if err != nil {
			return err
		}
		created = t
		return nil
	})
	return created, err
}

// GetByID fetches a transcript by id.
func (s *TranscriptStore) GetByID(ctx context.Context, id string) (*ent.Transcript, error) {
	t, err := s.client.Transcript.Query().Where(transcript.ID(id)).Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", id, err)
	}
	return t, nil
}

// GetByWorkflowRunID resolves the transcript a DAG run belongs to, used by
// the diarization workflow's progress sink to translate a run id (the only
// identifier internal/dag's ProgressSink carries) back to a transcript id
// after a worker restart, when the sink's in-memory cache is cold.
func (s *TranscriptStore) GetByWorkflowRunID(ctx context.Context, runID string) (*ent.Transcript, error) {
	t, err := s.client.Transcript.Query().Where(transcript.WorkflowRunID(runID)).Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transcript for run %s: %w", runID, err)
	}
	return t, nil
}

// List returns transcripts for a user, most recent first.
func (s *TranscriptStore) List(ctx context.Context, userID string, limit int) ([]*ent.Transcript, error) {
	if limit <= 0 {
		limit = 50
	}
	ts, err := s.client.Transcript.Query().
		Where(transcript.UserID(userID)).
		Order(ent.Desc(transcript.FieldCreatedAt)).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transcripts for %s: %w", userID, err)
	}
	return ts, nil
}

// SetStatus transitions status and appends a STATUS event. Reaching
// "ended" or "error" does not itself lock the row — cleanup_consent
// still needs to mutate an already-`ended` transcript to mask or delete
// a declined speaker's words. `locked` is reserved for destructive
// admin ops, set only via SetLocked, never implicitly by a status
// transition.
func (s *TranscriptStore) SetStatus(ctx context.Context, id string, status transcript.Status) (*ent.Transcript, error) {
	var result *ent.Transcript
	err := s.withTx(ctx, func(tx *ent.Tx) error {
		t, err := tx.Transcript.Query().Where(transcript.ID(id)).ForUpdate().Only(ctx)
		if err != nil {
			return fmt.Errorf("load transcript %s: %w", id, err)
		}
		if t.Locked {
			return fmt.Errorf("set status on %s: %w", id, ErrLocked)
		}
		t, err = tx.Transcript.UpdateOneID(id).SetStatus(status).Save(ctx)
		if err != nil {
			return fmt.Errorf("update status on %s: %w", id, err)
		}
		t, err = s.bumpAndAppend(ctx, tx, t, EventStatus, map[string]any{"status": string(status)})
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	return result, err
}

// SetLocked toggles the admin-only lock that rejects further pipeline
// mutation, used during destructive admin ops.
func (s *TranscriptStore) SetLocked(ctx context.Context, id string, locked bool) error {
	return s.withTx(ctx, func(tx *ent.Tx) error {
		return tx.Transcript.UpdateOneID(id).SetLocked(locked).Exec(ctx)
	})
}

// SetAudioDeleted marks that cleanup_consent deleted the underlying audio
// entirely, as opposed to only masking words.
func (s *TranscriptStore) SetAudioDeleted(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *ent.Tx) error {
		return tx.Transcript.UpdateOneID(id).SetAudioDeleted(true).Exec(ctx)
	})
}

// SetWorkflowRunID sets the workflow_run_id exactly once; subsequent
// calls are no-ops if it is already set, set once and never cleared —
// this is what lets a duplicate webhook-triggered start detect an
// already-running workflow and no-op.
func (s *TranscriptStore) SetWorkflowRunID(ctx context.Context, id, runID string) (claimed bool, err error) {
	err = s.withTx(ctx, func(tx *ent.Tx) error {
		t, err := tx.Transcript.Query().Where(transcript.ID(id)).ForUpdate().Only(ctx)
		if err != nil {
			return fmt.Errorf("load transcript %s: %w", id, err)
		}
		if t.WorkflowRunID != nil && *t.WorkflowRunID != "" {
			claimed = false
			return nil
		}
		_, err = tx.Transcript.UpdateOneID(id).SetWorkflowRunID(runID).Save(ctx)
		if err != nil {
			return fmt.Errorf("set workflow_run_id on %s: %w", id, err)
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// TitleSummaryUpdate carries the subset of progressively-filled fields
// the diarization workflow writes; nil fields are left untouched.
type TitleSummaryUpdate struct {
	Title        *string
	ShortSummary *string
	LongSummary  *string
	ActionItems  []string
	Topics       []map[string]any
	WebVTT       *string
	Duration     *float64
}

// UpdateFields applies a partial update and appends one event per
// populated field, matching the closed event-type set.
func (s *TranscriptStore) UpdateFields(ctx context.Context, id string, u TitleSummaryUpdate) (*ent.Transcript, error) {
	var result *ent.Transcript
	err := s.withTx(ctx, func(tx *ent.Tx) error {
		t, err := tx.Transcript.Query().Where(transcript.ID(id)).ForUpdate().Only(ctx)
		if err != nil {
			return fmt.Errorf("load transcript %s: %w", id, err)
		}
		if t.Locked {
			return fmt.Errorf("update fields on %s: %w", id, ErrLocked)
		}

		update := tx.Transcript.UpdateOneID(id)
		type pending struct {
			name EventName
			data map[string]any
		}
		var events []pending

		if u.Title != nil {
			update = update.SetTitle(*u.Title)
			events = append(events, pending{EventFinalTitle, map[string]any{"title": *u.Title}})
		}
		if u.ShortSummary != nil {
			update = update.SetShortSummary(*u.ShortSummary)
			events = append(events, pending{EventShortSummary, map[string]any{"short_summary": *u.ShortSummary}})
		}
		if u.LongSummary != nil {
			update = update.SetLongSummary(*u.LongSummary)
			events = append(events, pending{EventLongSummary, map[string]any{"long_summary": *u.LongSummary}})
		}
		if u.ActionItems != nil {
			update = update.SetActionItems(u.ActionItems)
			events = append(events, pending{EventActionItems, map[string]any{"action_items": u.ActionItems}})
		}
		if u.Topics != nil {
			update = update.SetTopics(u.Topics)
			for _, topic := range u.Topics {
				events = append(events, pending{EventTopic, topic})
			}
		}
		if u.WebVTT != nil {
			update = update.SetWebvtt(*u.WebVTT)
			events = append(events, pending{EventWebVTT, map[string]any{"webvtt": *u.WebVTT}})
		}
		if u.Duration != nil {
			update = update.SetDuration(*u.Duration)
			events = append(events, pending{EventDuration, map[string]any{"duration": *u.Duration}})
		}

		t, err = update.Save(ctx)
		if err != nil {
			return fmt.Errorf("update fields on %s: %w", id, err)
		}
		for _, e := range events {
			t, err = s.bumpAndAppend(ctx, tx, t, e.name, e.data)
			if err != nil {
				return err
			}
		}
		result = t
		return nil
	})
	return result, err
}

// AppendEvent is the general escape hatch for events that carry no
// corresponding column mutation: diarization.Sink appends
// PIPELINE_PROGRESS through it (with an empty dedupKey) and
// generate_waveform appends WAVEFORM. dedupKey, when non-empty, makes the
// append a no-op on replay.
func (s *TranscriptStore) AppendEvent(ctx context.Context, id string, name EventName, data map[string]any, dedupKey string) error {
	return s.withTx(ctx, func(tx *ent.Tx) error {
		t, err := tx.Transcript.Query().Where(transcript.ID(id)).ForUpdate().Only(ctx)
		if err != nil {
			return fmt.Errorf("load transcript %s: %w", id, err)
		}
		if dedupKey != "" {
			exists, err := tx.TranscriptEvent.Query().Where(transcriptevent.DedupKey(dedupKey)).Exist(ctx)
			if err != nil {
				return fmt.Errorf("dedup check for %s: %w", id, err)
			}
			if exists {
				return nil
			}
		}
		_, err = s.bumpAndAppend(ctx, tx, t, name, data, withDedup(dedupKey))
		return err
	})
}

// Delete removes a transcript and its events (cascade).
func (s *TranscriptStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Transcript.DeleteOneID(id).Exec(ctx); err != nil {
		return fmt.Errorf("delete transcript %s: %w", id, err)
	}
	return nil
}

// FullTextSearcher is the full-text search capability interface;
// TranscriptStore implements it. Search itself does not check for it
// and has no empty-result fallback: it always issues the Postgres query.
type FullTextSearcher interface {
	Search(ctx context.Context, userID, query string, limit int) ([]*ent.Transcript, error)
}

// Search performs full-text search over title/long_summary/webvtt by
// matching one to_tsvector over the three columns concatenated; the
// per-column GIN indexes internal/database/migrations.go creates do not
// cover that expression.
func (s *TranscriptStore) Search(ctx context.Context, userID, query string, limit int) ([]*ent.Transcript, error) {
	if limit <= 0 {
		limit = 20
	}
	ts, err := s.client.Transcript.Query().
		Where(
			transcript.UserID(userID),
			predicate.Transcript(func(sel *entsql.Selector) {
				sel.Where(entsql.ExprP(
					`to_tsvector('english', coalesce(title,'') || ' ' || coalesce(long_summary,'') || ' ' || coalesce(webvtt,'')) @@ plainto_tsquery('english', ?)`,
					query,
				))
			}),
		).
		Limit(limit).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("search transcripts for %s: %w", userID, err)
	}
	return ts, nil
}

// bumpAndAppend increments change_seq and inserts the corresponding
// TranscriptEvent row, then issues pg_notify on the transcript's room
// channel (and the owner's personal channel for a closed subset of
// event types) within the same transaction.
func (s *TranscriptStore) bumpAndAppend(ctx context.Context, tx *ent.Tx, t *ent.Transcript, name EventName, data map[string]any, opts ...appendOption) (*ent.Transcript, error) {
	cfg := appendConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	t, err := tx.Transcript.UpdateOneID(t.ID).AddChangeSeq(1).Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("bump change_seq on %s: %w", t.ID, err)
	}

	eventBuilder := tx.TranscriptEvent.Create().
		SetID(uuid.NewString()).
		SetTranscriptID(t.ID).
		SetSeq(t.ChangeSeq).
		SetEventName(name).
		SetOccurredAt(time.Now())
	if data != nil {
		eventBuilder = eventBuilder.SetData(data)
	}
	if cfg.dedupKey != "" {
		eventBuilder = eventBuilder.SetDedupKey(cfg.dedupKey)
	}
	if _, err := eventBuilder.Save(ctx); err != nil {
		return nil, fmt.Errorf("append event %s on %s: %w", name, t.ID, err)
	}

	payload, err := json.Marshal(map[string]any{
		"type":          string(name),
		"transcript_id": t.ID,
		"seq":           t.ChangeSeq,
		"data":          data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event %s on %s: %w", name, t.ID, err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyInTx(ctx, tx.Client().Driver(), roomChannel(t.ID), payload); err != nil {
			s.log.Warn("notify failed", "transcript_id", t.ID, "event", name, "error", err)
		}
		if userNotifiedEvents[name] && t.UserID != nil && *t.UserID != "" {
			if err := s.notifier.NotifyInTx(ctx, tx.Client().Driver(), userChannel(*t.UserID), payload); err != nil {
				s.log.Warn("notify (user channel) failed", "transcript_id", t.ID, "event", name, "error", err)
			}
		}
	}

	return t, nil
}

type appendConfig struct {
	dedupKey string
}

type appendOption func(*appendConfig)

func withDedup(key string) appendOption {
	return func(c *appendConfig) { c.dedupKey = key }
}

func (s *TranscriptStore) withTx(ctx context.Context, fn func(tx *ent.Tx) error) error {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
