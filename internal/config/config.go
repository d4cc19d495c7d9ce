// Package config loads the tunables that size and cap a cea run: model
// defaults, tool-loop step ceilings, ring-buffer thresholds, and cost
// limits. Precedence is flag > environment (CEA_ prefix) > .cea/config.yaml
// > built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every configurable limit used across the components.
type Config struct {
	// Model is the default Anthropic model id used when -m/--model is absent.
	Model string `yaml:"model"`

	// MaxToolLoopSteps bounds the tool-use continuation loop (C7).
	// spec.md's MANUAL_TOOL_LOOP_MAX_STEPS.
	MaxToolLoopSteps int `yaml:"max_tool_loop_steps"`

	// MaxTodoContinuationLoops bounds re-entry driven by incomplete todos.
	// spec.md's TODO_CONTINUATION_MAX_LOOPS.
	MaxTodoContinuationLoops int `yaml:"max_todo_continuation_loops"`

	// RingBufferCapBytes is the soft cap on buffered process output (C4).
	// It is loaded and validated here, but internal/procexec does not read
	// it: the ring buffer uses its own compiled-in 2 MiB cap.
	RingBufferCapBytes int `yaml:"ring_buffer_cap_bytes"`
	// RingBufferTrimBytes is how much of the newest output is kept once the
	// cap is exceeded (C4). Like RingBufferCapBytes it is not read by
	// internal/procexec, which always keeps the last 512 KiB.
	RingBufferTrimBytes int `yaml:"ring_buffer_trim_bytes"`

	// MaxCostUSD is the hard spend stop; zero disables it.
	MaxCostUSD float64 `yaml:"max_cost_usd"`
	// CostWarnAtFraction is the fraction of MaxCostUSD that triggers a
	// warning status.
	CostWarnAtFraction float64 `yaml:"cost_warn_at_fraction"`

	// SkillsDir is where load_skill resolves "<name>.md" files (C5/§4.13).
	SkillsDir string `yaml:"skills_dir"`

	// Restricted, when true, gates shell_execute behind a command-name
	// allowlist (§6).
	Restricted bool `yaml:"restricted"`
}

// Default returns the compiled-in defaults named by spec.md §9 Open
// Question (a), resolved here in favor of configurability.
func Default() Config {
	return Config{
		Model:                    "claude-sonnet-4-5",
		MaxToolLoopSteps:         200,
		MaxTodoContinuationLoops: 5,
		RingBufferCapBytes:       2 * 1024 * 1024,
		RingBufferTrimBytes:      512 * 1024,
		MaxCostUSD:               0,
		CostWarnAtFraction:       0.8,
		SkillsDir:                ".cea/skills",
		Restricted:               false,
	}
}

// YAMLPath is the conventional location of the optional config file,
// relative to the working directory.
const YAMLPath = ".cea/config.yaml"

// Load builds a Config by layering, in increasing precedence:
// built-in default, YAML file at YAMLPath (if present), environment
// variables with the CEA_ prefix. Flags are applied by the caller on top
// of the returned Config (cmd/cea owns flag parsing).
func Load() (Config, error) {
	cfg := Default()

	if err := mergeYAMLFile(&cfg, YAMLPath); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// mergeEnv overlays CEA_-prefixed environment variables onto cfg. An unset
// variable leaves the existing value (default or YAML-sourced) untouched.
func mergeEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("CEA_MODEL"); ok {
		cfg.Model = v
	}
	if err := envInt("CEA_MAX_TOOL_LOOP_STEPS", &cfg.MaxToolLoopSteps); err != nil {
		return err
	}
	if err := envInt("CEA_MAX_TODO_CONTINUATION_LOOPS", &cfg.MaxTodoContinuationLoops); err != nil {
		return err
	}
	if err := envInt("CEA_RING_BUFFER_CAP_BYTES", &cfg.RingBufferCapBytes); err != nil {
		return err
	}
	if err := envInt("CEA_RING_BUFFER_TRIM_BYTES", &cfg.RingBufferTrimBytes); err != nil {
		return err
	}
	if err := envFloat("CEA_MAX_COST_USD", &cfg.MaxCostUSD); err != nil {
		return err
	}
	if err := envFloat("CEA_COST_WARN_AT_FRACTION", &cfg.CostWarnAtFraction); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("CEA_SKILLS_DIR"); ok {
		cfg.SkillsDir = v
	}
	if err := envBool("CEA_RESTRICTED", &cfg.Restricted); err != nil {
		return err
	}
	return nil
}

func envInt(key string, dest *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func envFloat(key string, dest *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func envBool(key string, dest *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// Validate rejects configurations that would make the tool-loop or
// ring-buffer logic nonsensical.
func (c Config) Validate() error {
	if c.MaxToolLoopSteps < 1 {
		return fmt.Errorf("config: max_tool_loop_steps must be at least 1 (got %d)", c.MaxToolLoopSteps)
	}
	if c.MaxTodoContinuationLoops < 0 {
		return fmt.Errorf("config: max_todo_continuation_loops cannot be negative (got %d)", c.MaxTodoContinuationLoops)
	}
	if c.RingBufferCapBytes < 1 {
		return fmt.Errorf("config: ring_buffer_cap_bytes must be positive (got %d)", c.RingBufferCapBytes)
	}
	if c.RingBufferTrimBytes < 0 || c.RingBufferTrimBytes >= c.RingBufferCapBytes {
		return fmt.Errorf("config: ring_buffer_trim_bytes must be in [0, ring_buffer_cap_bytes) (got %d, cap %d)",
			c.RingBufferTrimBytes, c.RingBufferCapBytes)
	}
	if c.MaxCostUSD < 0 {
		return fmt.Errorf("config: max_cost_usd cannot be negative (got %f)", c.MaxCostUSD)
	}
	if c.CostWarnAtFraction <= 0 || c.CostWarnAtFraction > 1 {
		return fmt.Errorf("config: cost_warn_at_fraction must be in (0, 1] (got %f)", c.CostWarnAtFraction)
	}
	return nil
}

// SessionsDBPath is the conventional SQLite path for the optional session
// persistence layer (§4.12), relative to the .cea directory.
func SessionsDBPath(ceaDir string) string {
	return filepath.Join(ceaDir, "sessions.db")
}
