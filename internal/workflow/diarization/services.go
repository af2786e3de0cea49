// Package diarization is the Diarization Workflow: the
// specific dag.Graph that turns a recording's raw per-track blobs into an
// annotated, searchable transcript. Task bodies here hold the domain
// logic; internal/dag supplies scheduling, retries, fan-out/join, and
// replay safety.
//
// dag.Engine threads a task's map[string]interface{} output into the next
// step's input unchanged, and a fan-out/join step's output is the fanned-
// in list merged back over that same input (internal/dag.mergeJoin) — so
// every task below that needs a field a later step will want (transcript
// id, room id, bucket, languages) copies it forward into its own output
// rather than assuming the engine preserves it implicitly.
package diarization

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/monadical-sas/reflector/internal/audio"
	"github.com/monadical-sas/reflector/internal/blobstore"
	"github.com/monadical-sas/reflector/internal/coordinator"
	"github.com/monadical-sas/reflector/internal/external/asr"
	"github.com/monadical-sas/reflector/internal/external/llm"
	"github.com/monadical-sas/reflector/internal/store"
)

// Services bundles every dependency the workflow's tasks call into. One
// instance is built at worker startup and closed over by every TaskDef
// registered via Register.
type Services struct {
	Transcripts *store.TranscriptStore
	Recordings  *store.RecordingStore
	Coord       *coordinator.Coordinator
	Blobs       *blobstore.Store
	Codec       audio.Codec
	Transcriber asr.Transcriber
	Generator   llm.Generator
	Notifiers   Notifiers
	Log         *slog.Logger
}

// decodeMap round-trips a dag task input/output map into a typed struct
// via JSON, the same marshal/unmarshal idiom internal/store already uses
// for ent's JSON columns — task bodies get typed field access without the
// engine needing to know any concrete task shape.
func decodeMap[T any](m map[string]interface{}) (T, error) {
	var out T
	raw, err := json.Marshal(m)
	if err != nil {
		return out, fmt.Errorf("encode task input: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode task input: %w", err)
	}
	return out, nil
}

// encodeMap is decodeMap's inverse: a typed task output becomes the plain
// map[string]interface{} the engine persists and forwards.
func encodeMap(v any) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode task output: %w", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode task output: %w", err)
	}
	return out, nil
}
