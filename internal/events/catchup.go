package events

import (
	"context"
	"strings"

	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/transcriptevent"
)

// EventCatchup implements CatchupQuerier against the persisted transcript
// event log, for replay after a WebSocket reconnect.
type EventCatchup struct {
	client *ent.Client
}

// NewEventCatchup builds a CatchupQuerier backed by the ent client.
func NewEventCatchup(client *ent.Client) *EventCatchup {
	return &EventCatchup{client: client}
}

// GetCatchupEvents returns events recorded on channel since sinceSeq.
//
// Only "ts:{transcript_id}" channels have a backing log — TRANSCRIPT and
// STATUS are excluded (the client gets current state from a REST
// snapshot instead) and DAG_STATUS collapses to only its most recent row,
// per the package doc. "user:{user_id}" channels carry no catchup log:
// the events they forward (status, final_title, duration) are already
// covered by the corresponding ts: catchup, so a reconnecting list view
// is expected to re-fetch via REST rather than replay here.
func (c *EventCatchup) GetCatchupEvents(ctx context.Context, channel string, sinceSeq, limit int) ([]CatchupEvent, error) {
	transcriptID, ok := strings.CutPrefix(channel, "ts:")
	if !ok {
		return nil, nil
	}

	rows, err := c.client.TranscriptEvent.Query().
		Where(
			transcriptevent.TranscriptID(transcriptID),
			transcriptevent.SeqGT(sinceSeq),
		).
		Order(ent.Asc(transcriptevent.FieldSeq)).
		Limit(limit + len(catchupExcluded) + 1). // overfetch to absorb exclusions/collapsing
		All(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]CatchupEvent, 0, len(rows))
	lastDAGStatusIdx := -1
	for _, row := range rows {
		if catchupExcluded[row.EventName] {
			continue
		}
		payload := map[string]interface{}{
			"type":          "event",
			"transcript_id": transcriptID,
			"event_name":    string(row.EventName),
			"data":          row.Data,
		}
		if row.EventName == EventDAGStatus {
			if lastDAGStatusIdx >= 0 {
				result[lastDAGStatusIdx] = CatchupEvent{ID: row.Seq, Payload: payload}
				continue
			}
			lastDAGStatusIdx = len(result)
		}
		result = append(result, CatchupEvent{ID: row.Seq, Payload: payload})
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}
