package store

import (
	"context"
	"fmt"

	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/consent"
	"github.com/monadical-sas/reflector/ent/participantsession"
	"github.com/monadical-sas/reflector/ent/recording"
)

// RecordingStore is a thin, mostly read-only wrapper over the Recording,
// ParticipantSession, and Consent entities — the diarization workflow's
// get_recording, get_participants, and cleanup_consent steps each need
// one lookup against one of these tables and nothing more, so they share
// a single small store rather than each getting its own.
type RecordingStore struct {
	client *ent.Client
}

func NewRecordingStore(client *ent.Client) *RecordingStore {
	return &RecordingStore{client: client}
}

// GetRecording loads a recording's metadata and track keys.
func (s *RecordingStore) GetRecording(ctx context.Context, id string) (*ent.Recording, error) {
	rec, err := s.client.Recording.Query().Where(recording.ID(id)).Only(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recording %s: %w", id, err)
	}
	return rec, nil
}

// ListParticipants returns every participant session for a meeting,
// ordered by join time, used to resolve track_index -> participant
// identity for the get_participants step.
func (s *RecordingStore) ListParticipants(ctx context.Context, meetingID string) ([]*ent.ParticipantSession, error) {
	sessions, err := s.client.ParticipantSession.Query().
		Where(participantsession.MeetingID(meetingID)).
		Order(ent.Asc(participantsession.FieldJoinedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants for meeting %s: %w", meetingID, err)
	}
	return sessions, nil
}

// DeclinedConsents returns the set of user IDs who declined recording for
// a meeting, consulted by cleanup_consent.
func (s *RecordingStore) DeclinedConsents(ctx context.Context, meetingID string) (map[string]bool, error) {
	consents, err := s.client.Consent.Query().
		Where(consent.MeetingID(meetingID), consent.Declined(true)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list consents for meeting %s: %w", meetingID, err)
	}
	declined := make(map[string]bool, len(consents))
	for _, c := range consents {
		declined[c.UserID] = true
	}
	return declined, nil
}
