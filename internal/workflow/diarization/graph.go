package diarization

import (
	"time"

	"github.com/monadical-sas/reflector/internal/dag"
)

// WorkflowName is the dag.Graph name this package registers and starts
// runs against.
const WorkflowName = "diarization"

// Task names, one per workflow step. Progress events from internal/dag
// carry the step name and its status only; they include no step index
// and no total step count.
const (
	TaskGetRecording     = "get_recording"
	TaskGetParticipants  = "get_participants"
	TaskPadTrack         = "pad_track"
	TaskMixdownTracks    = "mixdown_tracks"
	TaskGenerateWaveform = "generate_waveform"
	TaskTranscribeTrack  = "transcribe_track"
	TaskMergeTranscripts = "merge_transcripts"
	TaskDetectTopics     = "detect_topics"
	TaskGenerateTitle    = "generate_title"
	TaskGenerateSummary  = "generate_summary"
	TaskFinalize         = "finalize"
	TaskCleanupConsent   = "cleanup_consent"
	TaskPostZulip        = "post_zulip"
	TaskSendWebhook      = "send_webhook"
)

// Pool labels: "llm-io" with many slots, "cpu-heavy" with exactly one
// slot for serialised mixdown.
const (
	PoolLLMIO    = "llm-io"
	PoolCPUHeavy = "cpu-heavy"
)

// Rate-limit buckets, shared across every task that calls the
// corresponding external backend.
const (
	RateLimitASR = "asr"
	RateLimitLLM = "llm"
)

// Graph builds the diarization dag.Graph: get_recording, get_participants,
// pad_track (fan-out), mixdown_tracks, generate_waveform, transcribe_track
// (fan-out), merge_transcripts (join), detect_topics, generate_title,
// generate_summary, finalize, cleanup_consent, post_zulip, send_webhook.
func Graph() *dag.Graph {
	return &dag.Graph{
		WorkflowName: WorkflowName,
		Steps: []dag.Step{
			{Name: TaskGetRecording, Task: TaskGetRecording},
			{Name: TaskGetParticipants, Task: TaskGetParticipants},
			{Name: TaskPadTrack, Task: TaskPadTrack, FanOut: fanOutTracks, JoinAs: "padded_tracks"},
			{Name: TaskMixdownTracks, Task: TaskMixdownTracks},
			{Name: TaskGenerateWaveform, Task: TaskGenerateWaveform},
			{Name: TaskTranscribeTrack, Task: TaskTranscribeTrack, FanOut: fanOutPaddedTracks, JoinAs: "transcribed_tracks"},
			{Name: TaskMergeTranscripts, Task: TaskMergeTranscripts},
			{Name: TaskDetectTopics, Task: TaskDetectTopics},
			{Name: TaskGenerateTitle, Task: TaskGenerateTitle},
			{Name: TaskGenerateSummary, Task: TaskGenerateSummary},
			{Name: TaskFinalize, Task: TaskFinalize},
			{Name: TaskCleanupConsent, Task: TaskCleanupConsent},
			{Name: TaskPostZulip, Task: TaskPostZulip},
			{Name: TaskSendWebhook, Task: TaskSendWebhook},
		},
	}
}

// Register adds every task definition backing Graph's steps to reg,
// closing each over svc. Called once at worker startup, alongside every
// other workflow's Register, into one shared dag.Registry.
func Register(reg *dag.Registry, svc *Services) {
	reg.Register(dag.TaskDef{Name: TaskGetRecording, Timeout: 30 * time.Second, Run: svc.getRecording})
	reg.Register(dag.TaskDef{Name: TaskGetParticipants, Timeout: 30 * time.Second, Run: svc.getParticipants})
	reg.Register(dag.TaskDef{Name: TaskPadTrack, Timeout: 5 * time.Minute, Run: svc.padTrack})
	reg.Register(dag.TaskDef{Name: TaskMixdownTracks, Pool: PoolCPUHeavy, Timeout: 10 * time.Minute, Run: svc.mixdownTracks})
	reg.Register(dag.TaskDef{Name: TaskGenerateWaveform, Pool: PoolCPUHeavy, Timeout: 2 * time.Minute, Run: svc.generateWaveform})
	reg.Register(dag.TaskDef{Name: TaskTranscribeTrack, Pool: PoolLLMIO, RateLimit: RateLimitASR, Timeout: 10 * time.Minute, Run: svc.transcribeTrack})
	reg.Register(dag.TaskDef{Name: TaskMergeTranscripts, Timeout: 30 * time.Second, Run: svc.mergeTranscripts})
	reg.Register(dag.TaskDef{Name: TaskDetectTopics, Pool: PoolLLMIO, RateLimit: RateLimitLLM, Timeout: 5 * time.Minute, Run: svc.detectTopics})
	reg.Register(dag.TaskDef{Name: TaskGenerateTitle, Pool: PoolLLMIO, RateLimit: RateLimitLLM, Timeout: 2 * time.Minute, Run: svc.generateTitle})
	reg.Register(dag.TaskDef{Name: TaskGenerateSummary, Pool: PoolLLMIO, RateLimit: RateLimitLLM, Timeout: 2 * time.Minute, Run: svc.generateSummary})
	reg.Register(dag.TaskDef{Name: TaskFinalize, Timeout: 30 * time.Second, Run: svc.finalize})
	reg.Register(dag.TaskDef{Name: TaskCleanupConsent, Timeout: 30 * time.Second, Run: svc.cleanupConsent})
	reg.Register(dag.TaskDef{Name: TaskPostZulip, Timeout: 15 * time.Second, Run: svc.postZulip})
	reg.Register(dag.TaskDef{Name: TaskSendWebhook, Timeout: 15 * time.Second, Run: svc.sendWebhook})
}
