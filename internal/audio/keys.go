package audio

import "fmt"

// Blob key layout. Grounded on
// LumenPrima-tr-engine/internal/storage's "{sys_name}/{date}/{filename}"
// deterministic key convention, specialised to Reflector's recording/
// transcript prefixes.

// RawTrackKey is where a participant's raw, un-padded track lives.
func RawTrackKey(recordingPrefix string, trackIndex int) string {
	return fmt.Sprintf("%s/%d", recordingPrefix, trackIndex)
}

// PaddedTrackKey is the deterministic key a padded track is written to —
// deterministic so pad_track's write is idempotent across replay.
func PaddedTrackKey(recordingPrefix string, trackIndex int) string {
	return fmt.Sprintf("%s/padded/%d.opus", recordingPrefix, trackIndex)
}

// MixdownKey is where the single mixed-down track lives.
func MixdownKey(transcriptPrefix string) string {
	return transcriptPrefix + "/audio.mp3"
}

// WaveformKey is where the JSON uint8 waveform array lives.
func WaveformKey(transcriptPrefix string) string {
	return transcriptPrefix + "/waveform.json"
}
