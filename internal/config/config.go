// Package config loads and validates the orchestrator's TOML configuration,
// grounded on the teacher's internal/config package (BurntSushi/toml, a
// Duration wrapper type unmarshalling "60s"-style strings).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root orchestrator configuration.
type Config struct {
	General    General    `toml:"general"`
	Budget     Budget     `toml:"budget"`
	Registries Registries `toml:"registries"`
	LLM        LLM        `toml:"llm"`
	Queue      Queue      `toml:"queue"`
	Workspace  Workspace  `toml:"workspace"`
	Scheduler  Scheduler  `toml:"scheduler"`
	EventBus   EventBus   `toml:"event_bus"`
	Health     Health     `toml:"health"`
	Logging    Logging    `toml:"logging"`
	Director   Director   `toml:"director"`
}

// General holds process-wide tunables.
type General struct {
	TickInterval       Duration `toml:"tick_interval"`
	MaxConcurrentTasks int      `toml:"max_concurrent_tasks"`
	MaxToolIterations  int      `toml:"max_tool_iterations"`
	LLMTimeout         Duration `toml:"llm_timeout"`
	PromptTokenBudget  int      `toml:"prompt_token_budget"`
}

// Budget configures the cost tracker's degradation thresholds (spec §4.1).
type Budget struct {
	TotalMonthlyUSD     float64 `toml:"total_monthly_usd"`
	WarningPct          float64 `toml:"warning_pct"`
	ThrottlePct         float64 `toml:"throttle_pct"`
	CriticalPct         float64 `toml:"critical_pct"`
	ExhaustedPct        float64 `toml:"exhausted_pct"`
	ForcedTierCritical  string  `toml:"forced_tier_critical"`
	ForcedTierExhausted string  `toml:"forced_tier_exhausted"`
}

// Registries points to the declarative config driving C1.
type Registries struct {
	SkillsPath    string `toml:"skills_path"`
	SquadsPath    string `toml:"squads_path"`
	ToolsPath     string `toml:"tools_path"`
	PipelinesPath string `toml:"pipelines_path"`
}

// LLM configures the remote inference RPC contract (C3).
type LLM struct {
	Endpoint       string   `toml:"endpoint"`
	APIKeyEnv      string   `toml:"api_key_env"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// Queue configures the queue adapter backend.
type Queue struct {
	Backend     string `toml:"backend"` // "nats" | "memory"
	NATSURL     string `toml:"nats_url"`
	Subject     string `toml:"subject_prefix"`
	FallbackDir string `toml:"fallback_dir"`
}

// Workspace configures the filesystem-backed workspace root.
type Workspace struct {
	RootDir string `toml:"root_dir"`
	DBPath  string `toml:"db_path"`
}

// Scheduler configures cron evaluation (C14).
type Scheduler struct {
	SchedulesPath    string `toml:"schedules_path"`
	MaxCatchUpWindow int    `toml:"max_catch_up_window"` // max occurrences replayed on start()
}

// EventBus configures dedup/cooldown/mapping (C15).
type EventBus struct {
	MappingsPath    string   `toml:"mappings_path"`
	DefaultCooldown Duration `toml:"default_cooldown"`
	DedupLRUSize    int      `toml:"dedup_lru_size"`
}

// Health configures the fan-out probe cadence (C16).
type Health struct {
	CheckInterval Duration `toml:"check_interval"`
	CheckTimeout  Duration `toml:"check_timeout"`
	LockFile      string   `toml:"lock_file"`
}

// Logging configures the log/slog sink.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Director configures Director-level policy. AllowSkillRerunWithoutAdvance
// is decoded from TOML but no component reads it: AdvanceGoal consumes
// approved tasks phase by phase whatever its value.
type Director struct {
	AllowSkillRerunWithoutAdvance bool `toml:"allow_skill_rerun_without_advance"`
}

// Load reads and validates a TOML config file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.TickInterval.Duration <= 0 {
		cfg.General.TickInterval = Duration{Duration: 60 * time.Second}
	}
	if cfg.General.MaxConcurrentTasks <= 0 {
		cfg.General.MaxConcurrentTasks = 4
	}
	if cfg.General.MaxToolIterations <= 0 {
		cfg.General.MaxToolIterations = 6
	}
	if cfg.General.LLMTimeout.Duration <= 0 {
		cfg.General.LLMTimeout = Duration{Duration: 120 * time.Second}
	}
	if cfg.General.PromptTokenBudget <= 0 {
		cfg.General.PromptTokenBudget = 32000
	}
	if cfg.Budget.WarningPct <= 0 {
		cfg.Budget.WarningPct = 80
	}
	if cfg.Budget.ThrottlePct <= 0 {
		cfg.Budget.ThrottlePct = 90
	}
	if cfg.Budget.CriticalPct <= 0 {
		cfg.Budget.CriticalPct = 95
	}
	if cfg.Budget.ExhaustedPct <= 0 {
		cfg.Budget.ExhaustedPct = 100
	}
	if cfg.Budget.ForcedTierCritical == "" {
		cfg.Budget.ForcedTierCritical = "haiku"
	}
	if cfg.Budget.ForcedTierExhausted == "" {
		cfg.Budget.ForcedTierExhausted = "haiku"
	}
	if cfg.Health.CheckInterval.Duration <= 0 {
		cfg.Health.CheckInterval = Duration{Duration: 30 * time.Second}
	}
	if cfg.Health.CheckTimeout.Duration <= 0 {
		cfg.Health.CheckTimeout = Duration{Duration: 5 * time.Second}
	}
	if cfg.EventBus.DefaultCooldown.Duration <= 0 {
		cfg.EventBus.DefaultCooldown = Duration{Duration: 15 * time.Minute}
	}
	if cfg.EventBus.DedupLRUSize <= 0 {
		cfg.EventBus.DedupLRUSize = 1000
	}
	if cfg.Scheduler.MaxCatchUpWindow <= 0 {
		cfg.Scheduler.MaxCatchUpWindow = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "memory"
	}
}

// Validate checks invariants BurntSushi/toml decoding can't enforce itself.
func (c *Config) Validate() error {
	if c.Budget.WarningPct >= c.Budget.ThrottlePct ||
		c.Budget.ThrottlePct >= c.Budget.CriticalPct ||
		c.Budget.CriticalPct > c.Budget.ExhaustedPct {
		return fmt.Errorf("budget thresholds must be strictly increasing (warning < throttle < critical <= exhausted)")
	}
	if c.Workspace.RootDir == "" {
		return fmt.Errorf("workspace.root_dir is required")
	}
	return nil
}

// APIKey resolves the LLM API key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}
