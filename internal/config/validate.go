package config

import "fmt"

// Validate checks the fields required for the worker to start at all.
// It deliberately does not require every external backend to be
// configured: a deployment may run with diarization's notifier steps
// disabled, or point only a subset of backends at real endpoints
// during staged rollout.
func Validate(cfg *Config) error {
	if cfg.Blobstore.Bucket == "" {
		return fmt.Errorf("blobstore.bucket is required")
	}
	if cfg.External.ASR.BaseURL == "" {
		return fmt.Errorf("external.asr.base_url is required")
	}
	if cfg.External.LLM.Addr == "" {
		return fmt.Errorf("external.llm.addr is required")
	}
	if cfg.Engine.DefaultPoolSize < 1 {
		return fmt.Errorf("engine.default_pool_size must be at least 1")
	}
	return nil
}
