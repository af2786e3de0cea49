package config

import "time"

// defaults returns a Config pre-filled with production-sane values; the
// loaded YAML is merged over this with dario.cat/mergo, so a
// deployment's YAML only needs to name what it overrides.
func defaults() *Config {
	return &Config{
		HTTPPort: "8080",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "reflector",
		},
		Blobstore: BlobstoreConfig{
			Region:     "us-east-1",
			PresignTTL: 15 * time.Minute,
		},
		Engine: EngineConfig{
			PodID:           "worker",
			DefaultPoolSize: 4,
			Pools: map[string]int{
				"llm-io":    8,
				"cpu-heavy": 1,
			},
			RateLimits: map[string]RateLimit{
				"asr": {RPS: 5, Burst: 2},
				"llm": {RPS: 10, Burst: 5},
			},
			PollInterval: time.Second,
			PollJitter:   250 * time.Millisecond,
		},
		WebSocket: WebSocketConfig{
			WriteTimeout: 10 * time.Second,
		},
		Retention: RetentionConfig{
			Enabled:  false,
			Days:     7,
			Interval: 24 * time.Hour,
		},
	}
}
