// Package config loads the worker's YAML configuration file (env-var
// expanded before parsing) into a typed Config, covering every infra
// dependency the worker wires at startup:
// database, Redis coordinator, blob store, external ASR/diarize/
// translate/LLM backends, DAG pools/rate-limits, and notifiers.
package config

import "time"

// Config is the root configuration object returned by Load.
type Config struct {
	HTTPPort string `yaml:"http_port"`

	Redis      RedisConfig      `yaml:"redis"`
	Blobstore  BlobstoreConfig  `yaml:"blobstore"`
	External   ExternalConfig   `yaml:"external"`
	Engine     EngineConfig     `yaml:"engine"`
	Notifiers  NotifiersConfig  `yaml:"notifiers"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Retention  RetentionConfig  `yaml:"retention"`
}

// RetentionConfig controls internal/retention's periodic sweep of old
// transcripts, meetings, and recordings.
type RetentionConfig struct {
	Enabled bool          `yaml:"enabled"`
	Days    int           `yaml:"days"`
	Interval time.Duration `yaml:"interval"`
}

// RedisConfig addresses the Redis instance backing internal/coordinator.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// BlobstoreConfig maps directly onto blobstore.Config.
type BlobstoreConfig struct {
	Region     string        `yaml:"region"`
	Bucket     string        `yaml:"bucket"`
	Endpoint   string        `yaml:"endpoint"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// ExternalConfig addresses every internal/external/* backend.
type ExternalConfig struct {
	ASR struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"asr"`
	Diarize struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"diarize"`
	Translate struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"translate"`
	LLM struct {
		Addr string `yaml:"addr"`
	} `yaml:"llm"`
}

// EngineConfig configures internal/dag's pools, rate limits, and poll
// loop, keyed to match the task constants internal/workflow/diarization
// declares (PoolLLMIO, PoolCPUHeavy, RateLimitASR, RateLimitLLM).
type EngineConfig struct {
	PodID           string             `yaml:"pod_id"`
	DefaultPoolSize int                `yaml:"default_pool_size"`
	Pools           map[string]int     `yaml:"pools"`
	RateLimits      map[string]RateLimit `yaml:"rate_limits"`
	PollInterval    time.Duration      `yaml:"poll_interval"`
	PollJitter      time.Duration      `yaml:"poll_jitter"`
}

// RateLimit is one named token bucket's requests-per-second and burst.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// NotifiersConfig configures the optional post-finalize notifiers.
// A zero-value sub-config (empty URL) disables that notifier.
type NotifiersConfig struct {
	Zulip struct {
		BaseURL string `yaml:"base_url"`
		Email   string `yaml:"email"`
		APIKey  string `yaml:"api_key"`
		Stream  string `yaml:"stream"`
	} `yaml:"zulip"`
	Webhook struct {
		URL string `yaml:"url"`
	} `yaml:"webhook"`
}

// WebSocketConfig configures internal/events' connection manager.
type WebSocketConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
}
