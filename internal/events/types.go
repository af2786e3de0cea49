// Package events delivers real-time transcript updates via WebSocket,
// fanned out from PostgreSQL NOTIFY/LISTEN so any pod can push an event
// raised by any other pod.
//
// ════════════════════════════════════════════════════════════════
// Event channels
// ════════════════════════════════════════════════════════════════
//
// Two channel families exist:
//
//   ts:{transcript_id}   — all events for one transcript (the detail
//                          view subscribes here).
//   user:{user_id}       — the small subset of events a user's
//                          transcript list needs to stay live
//                          (status, final_title, duration).
//
// Every persisted TranscriptEvent is appended to the transcript's
// change log (see internal/store) and NOTIFYed on its room channel;
// a subset of event names is additionally NOTIFYed on the owner's
// user channel. See internal/store.userNotifiedEvents.
//
// ════════════════════════════════════════════════════════════════
// Catchup semantics
// ════════════════════════════════════════════════════════════════
//
// On subscribe, a client receives every event recorded since the
// last change_seq it has locally — EXCEPT TRANSCRIPT and STATUS,
// which describe current state rather than a delta and are instead
// reconstructed from a REST snapshot. DAG_STATUS rows collapse to
// only the most recent one per transcript: replaying every intermediate
// progress tick after a long reconnect gap would be wasted bandwidth
// for a value that's about to be overwritten anyway.
package events

import "github.com/monadical-sas/reflector/ent/transcriptevent"

// Event name aliases, re-exported from the ent-generated enum so callers
// outside internal/store don't need to import the generated package
// directly.
const (
	EventTranscript       = transcriptevent.EventNameTRANSCRIPT
	EventStatus           = transcriptevent.EventNameSTATUS
	EventDuration         = transcriptevent.EventNameDURATION
	EventTopic            = transcriptevent.EventNameTOPIC
	EventFinalTitle       = transcriptevent.EventNameFINAL_TITLE
	EventLongSummary      = transcriptevent.EventNameLONG_SUMMARY
	EventShortSummary     = transcriptevent.EventNameSHORT_SUMMARY
	EventActionItems      = transcriptevent.EventNameACTION_ITEMS
	EventWebVTT           = transcriptevent.EventNameWEBVTT
	EventWaveform         = transcriptevent.EventNameWAVEFORM
	EventPipelineProgress = transcriptevent.EventNamePIPELINE_PROGRESS
	EventDAGStatus        = transcriptevent.EventNameDAG_STATUS
)

// catchupExcluded names events that describe current state rather than a
// delta and are never replayed on catchup — the client gets them from a
// REST snapshot instead.
var catchupExcluded = map[transcriptevent.EventName]bool{
	EventTranscript: true,
	EventStatus:     true,
}

// RoomChannel returns the NOTIFY channel carrying every event for a
// transcript.
func RoomChannel(transcriptID string) string { return "ts:" + transcriptID }

// UserChannel returns the NOTIFY channel carrying the subset of events a
// user's transcript list needs.
func UserChannel(userID string) string { return "user:" + userID }

// ClientMessage is the JSON structure for client → server WebSocket
// messages.
type ClientMessage struct {
	Action      string `json:"action"`                  // "subscribe", "unsubscribe", "catchup", "ping"
	Channel     string `json:"channel,omitempty"`       // e.g. "ts:abc-123"
	LastEventID *int   `json:"last_event_id,omitempty"` // change_seq watermark, for catchup
}
