package config

import (
	"fmt"
	"runtime"
)

// Validate checks cfg for invalid values and fills in any field a
// zero-value sentinel left unset, adapted from the teacher's
// Validator.ValidateAndSetDefaults/setSmartDefaults — reduced to the
// fields gildash's Config actually carries.
func Validate(cfg *Config) error {
	if cfg.ProjectRoot == "" {
		return fmt.Errorf("config: project root cannot be empty")
	}
	if cfg.WatchDebounceMs < 0 {
		return fmt.Errorf("config: watch debounce ms cannot be negative, got %d", cfg.WatchDebounceMs)
	}
	if cfg.StoreBusyTimeoutMs < 0 {
		return fmt.Errorf("config: store busy timeout ms cannot be negative, got %d", cfg.StoreBusyTimeoutMs)
	}
	if cfg.StoreMaxRetries < 0 {
		return fmt.Errorf("config: store max retries cannot be negative, got %d", cfg.StoreMaxRetries)
	}
	if cfg.StaleAfterSeconds <= 0 {
		return fmt.Errorf("config: stale_after_seconds must be positive, got %d", cfg.StaleAfterSeconds)
	}
	if cfg.HeartbeatIntervalSeconds <= 0 {
		return fmt.Errorf("config: heartbeat_interval_seconds must be positive, got %d", cfg.HeartbeatIntervalSeconds)
	}
	if cfg.HeartbeatIntervalSeconds*2 >= cfg.StaleAfterSeconds {
		return fmt.Errorf("config: heartbeat_interval_seconds (%d) must be strictly less than half stale_after_seconds (%d)",
			cfg.HeartbeatIntervalSeconds, cfg.StaleAfterSeconds)
	}
	if cfg.ReaderPollIntervalSeconds <= 0 {
		return fmt.Errorf("config: reader_poll_interval_seconds must be positive, got %d", cfg.ReaderPollIntervalSeconds)
	}
	if cfg.ReaderPollIntervalSeconds > cfg.StaleAfterSeconds {
		return fmt.Errorf("config: reader_poll_interval_seconds (%d) must be at most stale_after_seconds (%d)",
			cfg.ReaderPollIntervalSeconds, cfg.StaleAfterSeconds)
	}
	if cfg.ASTCacheCapacity <= 0 {
		return fmt.Errorf("config: ast_cache_capacity must be positive, got %d", cfg.ASTCacheCapacity)
	}
	if cfg.WorkerPoolSize < 0 {
		return fmt.Errorf("config: worker_pool_size cannot be negative, got %d", cfg.WorkerPoolSize)
	}

	setSmartDefaults(cfg)
	return nil
}

// setSmartDefaults fills any field left at its zero value by a
// partial KDL document with a CPU-derived default.
func setSmartDefaults(cfg *Config) {
	if cfg.WorkerPoolSize == 0 {
		cfg.WorkerPoolSize = max(1, runtime.NumCPU()-1)
	}
}
