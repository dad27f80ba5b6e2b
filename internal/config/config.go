// Package config loads the World's runtime configuration from environment
// variables (in the style of the original MCP tool's config loader), with
// an optional YAML/TOML file overlay via viper for users who prefer a
// config file over exporting a dozen HOTKI_WORLD_* variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// WorldCfg mirrors spec.md §6's consumed Config, plus the ambient knobs
// SPEC_FULL.md §6 adds for the AX pool, event hub and frame storage.
type WorldCfg struct {
	// PollMsMin/PollMsMax bound the reconcile loop's sleep interval.
	PollMsMin int
	PollMsMax int
	// IncludeOffscreen includes off-screen windows in CG polls.
	IncludeOffscreen bool
	// AXWatchFrontmost narrows AX augmentation to the frontmost app only.
	AXWatchFrontmost bool
	// EventsBuffer is the Event Hub's broadcast channel capacity.
	EventsBuffer int

	// AXPoolConcurrency is the global in-flight AX call cap (observed <= 4).
	AXPoolConcurrency int
	// AXPoolDeadline is the per-request AX read deadline.
	AXPoolDeadline time.Duration
	// AXCacheCapacity bounds the AX pool's TTL cache size.
	AXCacheCapacity int
	// AXCacheTTL is the AX pool's cache entry expiry.
	AXCacheTTL time.Duration

	// FrameStoragePreMaximizeCap / FrameStorageHiddenCap bound the
	// placement engine's LRU frame caches (spec.md §5).
	FrameStoragePreMaximizeCap int
	FrameStorageHiddenCap      int
}

// Default returns the spec's documented defaults.
func Default() WorldCfg {
	return WorldCfg{
		PollMsMin:                  100,
		PollMsMax:                  1000,
		IncludeOffscreen:           false,
		AXWatchFrontmost:           false,
		EventsBuffer:               16384,
		AXPoolConcurrency:          4,
		AXPoolDeadline:             200 * time.Millisecond,
		AXCacheCapacity:            2048,
		AXCacheTTL:                 3 * time.Second,
		FrameStoragePreMaximizeCap: 256,
		FrameStorageHiddenCap:      512,
	}
}

// Load builds a WorldCfg starting from Default(), optionally overlaying a
// config file (if filePath is non-empty, or $HOTKI_WORLD_CONFIG_FILE is
// set), then applying environment variable overrides. Environment
// variables always win, matching the teacher's env-first philosophy.
func Load(filePath string) (WorldCfg, error) {
	cfg := Default()

	if filePath == "" {
		filePath = os.Getenv("HOTKI_WORLD_CONFIG_FILE")
	}
	if filePath != "" {
		v := viper.New()
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return WorldCfg{}, fmt.Errorf("config: reading %s: %w", filePath, err)
		}
		if v.IsSet("poll_ms_min") {
			cfg.PollMsMin = v.GetInt("poll_ms_min")
		}
		if v.IsSet("poll_ms_max") {
			cfg.PollMsMax = v.GetInt("poll_ms_max")
		}
		if v.IsSet("include_offscreen") {
			cfg.IncludeOffscreen = v.GetBool("include_offscreen")
		}
		if v.IsSet("ax_watch_frontmost") {
			cfg.AXWatchFrontmost = v.GetBool("ax_watch_frontmost")
		}
		if v.IsSet("events_buffer") {
			cfg.EventsBuffer = v.GetInt("events_buffer")
		}
		if v.IsSet("ax_pool_concurrency") {
			cfg.AXPoolConcurrency = v.GetInt("ax_pool_concurrency")
		}
		if v.IsSet("ax_pool_deadline") {
			cfg.AXPoolDeadline = v.GetDuration("ax_pool_deadline")
		}
		if v.IsSet("ax_cache_capacity") {
			cfg.AXCacheCapacity = v.GetInt("ax_cache_capacity")
		}
		if v.IsSet("ax_cache_ttl") {
			cfg.AXCacheTTL = v.GetDuration("ax_cache_ttl")
		}
	}

	var err error
	if cfg.PollMsMin, err = getEnvAsInt("HOTKI_WORLD_POLL_MS_MIN", cfg.PollMsMin); err != nil {
		return WorldCfg{}, err
	}
	if cfg.PollMsMax, err = getEnvAsInt("HOTKI_WORLD_POLL_MS_MAX", cfg.PollMsMax); err != nil {
		return WorldCfg{}, err
	}
	cfg.IncludeOffscreen = getEnvAsBool("HOTKI_WORLD_INCLUDE_OFFSCREEN", cfg.IncludeOffscreen)
	cfg.AXWatchFrontmost = getEnvAsBool("HOTKI_WORLD_AX_WATCH_FRONTMOST", cfg.AXWatchFrontmost)
	if cfg.EventsBuffer, err = getEnvAsInt("HOTKI_WORLD_EVENTS_BUFFER", cfg.EventsBuffer); err != nil {
		return WorldCfg{}, err
	}
	if cfg.AXPoolConcurrency, err = getEnvAsInt("HOTKI_WORLD_AX_POOL_CONCURRENCY", cfg.AXPoolConcurrency); err != nil {
		return WorldCfg{}, err
	}
	if cfg.AXPoolDeadline, err = getEnvAsDuration("HOTKI_WORLD_AX_POOL_DEADLINE", cfg.AXPoolDeadline); err != nil {
		return WorldCfg{}, err
	}
	if cfg.AXCacheCapacity, err = getEnvAsInt("HOTKI_WORLD_AX_CACHE_CAPACITY", cfg.AXCacheCapacity); err != nil {
		return WorldCfg{}, err
	}
	if cfg.AXCacheTTL, err = getEnvAsDuration("HOTKI_WORLD_AX_CACHE_TTL", cfg.AXCacheTTL); err != nil {
		return WorldCfg{}, err
	}

	return cfg, cfg.Validate()
}

// Validate applies the invariants the World relies on: a positive,
// ordered poll range and a hub capacity no smaller than the documented
// floor of 8.
func (c *WorldCfg) Validate() error {
	if c.PollMsMin <= 0 {
		return fmt.Errorf("config: poll_ms_min must be positive, got %d", c.PollMsMin)
	}
	if c.PollMsMax < c.PollMsMin {
		return fmt.Errorf("config: poll_ms_max (%d) must be >= poll_ms_min (%d)", c.PollMsMax, c.PollMsMin)
	}
	if c.EventsBuffer < 8 {
		c.EventsBuffer = 8
	}
	if c.AXPoolConcurrency <= 0 {
		return fmt.Errorf("config: ax_pool_concurrency must be positive, got %d", c.AXPoolConcurrency)
	}
	return nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected integer)", key, value)
	}
	return result, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration)", key, value)
	}
	return d, nil
}
