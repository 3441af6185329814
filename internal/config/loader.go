package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"orchd/pkg/types"
)

// Config holds runtime parameters for the orchestrator.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	DaemonURL    string `json:"daemon_url" yaml:"daemon_url" toml:"daemon_url"`
	RegistryPath string `json:"registry_path" yaml:"registry_path" toml:"registry_path"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// VRAM ceiling assumed for local models; informational in stats.
	VRAMBudgetGB float64 `json:"vram_budget_gb" yaml:"vram_budget_gb" toml:"vram_budget_gb"`

	// Token budgeting.
	MaxTokens           int `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	ReservedForResponse int `json:"reserved_for_response" yaml:"reserved_for_response" toml:"reserved_for_response"`

	// Retry/escalation tuning.
	MaxAttempts          int `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts"`
	EscalateAfterAttempt int `json:"escalate_after_attempt" yaml:"escalate_after_attempt" toml:"escalate_after_attempt"`
	EscalateComplexity   int `json:"escalate_complexity" yaml:"escalate_complexity" toml:"escalate_complexity"`
	AcceptScore          int `json:"accept_score" yaml:"accept_score" toml:"accept_score"`

	// Per-attempt model call ceiling, seconds (0 = default).
	CallTimeoutSec int `json:"call_timeout_sec" yaml:"call_timeout_sec" toml:"call_timeout_sec"`
	// Grace interval between sequential unloads, milliseconds.
	UnloadGraceMS int `json:"unload_grace_ms" yaml:"unload_grace_ms" toml:"unload_grace_ms"`
	// Loaded-models probe cache freshness, seconds.
	ProbeTTLSec int `json:"probe_ttl_sec" yaml:"probe_ttl_sec" toml:"probe_ttl_sec"`

	// Optional catalog overrides; when empty the built-in catalog is used.
	Models []types.ModelDescriptor `json:"models,omitempty" yaml:"models,omitempty" toml:"models,omitempty"`
}

// Defaults applied by ApplyDefaults for unset fields.
const (
	DefaultAddr                 = ":8090"
	DefaultDaemonURL            = "http://127.0.0.1:11434"
	DefaultRegistryPath         = "~/.orchd/layers.json"
	DefaultMaxTokens            = 8192
	DefaultReservedForResponse  = 1024
	DefaultMaxAttempts          = 3
	DefaultEscalateAfterAttempt = 1
	DefaultEscalateComplexity   = 7
	DefaultAcceptScore          = 70
	DefaultCallTimeout          = 120 * time.Second
	DefaultUnloadGrace          = 300 * time.Millisecond
	DefaultProbeTTL             = 5 * time.Second
	DefaultVRAMBudgetGB         = 12.0
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DaemonURL == "" {
		c.DaemonURL = DefaultDaemonURL
	}
	if c.RegistryPath == "" {
		c.RegistryPath = DefaultRegistryPath
	}
	if c.VRAMBudgetGB <= 0 {
		c.VRAMBudgetGB = DefaultVRAMBudgetGB
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ReservedForResponse <= 0 {
		c.ReservedForResponse = DefaultReservedForResponse
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.EscalateAfterAttempt <= 0 {
		c.EscalateAfterAttempt = DefaultEscalateAfterAttempt
	}
	if c.EscalateComplexity <= 0 {
		c.EscalateComplexity = DefaultEscalateComplexity
	}
	if c.AcceptScore <= 0 {
		c.AcceptScore = DefaultAcceptScore
	}
}

// CallTimeout returns the per-attempt ceiling as a duration.
func (c Config) CallTimeout() time.Duration {
	if c.CallTimeoutSec <= 0 {
		return DefaultCallTimeout
	}
	return time.Duration(c.CallTimeoutSec) * time.Second
}

// UnloadGrace returns the pause between sequential unloads.
func (c Config) UnloadGrace() time.Duration {
	if c.UnloadGraceMS <= 0 {
		return DefaultUnloadGrace
	}
	return time.Duration(c.UnloadGraceMS) * time.Millisecond
}

// ProbeTTL returns how long a loaded-models probe stays fresh.
func (c Config) ProbeTTL() time.Duration {
	if c.ProbeTTLSec <= 0 {
		return DefaultProbeTTL
	}
	return time.Duration(c.ProbeTTLSec) * time.Second
}
