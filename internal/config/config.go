// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Ledger defines chain endpoints and confirmation tuning.
type Ledger struct {
	RPCURL           string `yaml:"rpc_url"`
	Commitment       string `yaml:"commitment"` // processed|confirmed|finalized
	ConfirmTimeoutMS int    `yaml:"confirm_timeout_ms"`
	PollIntervalMS   int    `yaml:"poll_interval_ms"`
}

// ConfirmTimeout returns the bounded confirmation-poll budget.
func (l Ledger) ConfirmTimeout() time.Duration {
	if l.ConfirmTimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.ConfirmTimeoutMS) * time.Millisecond
}

// PollInterval returns the confirmation polling cadence.
func (l Ledger) PollInterval() time.Duration {
	if l.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(l.PollIntervalMS) * time.Millisecond
}

// Limits encodes the guard-rails enforced regardless of bot logic: balance
// floor, replay windows, sandbox quotas, and spend caps.
type Limits struct {
	MinBalanceLamports    uint64 `yaml:"min_balance_lamports"`
	RatePerMinute         int    `yaml:"rate_per_minute"`
	SandboxPerMinute      int    `yaml:"sandbox_per_minute"`
	SandboxPerHour        int    `yaml:"sandbox_per_hour"`
	FreshnessWindowSecs   int    `yaml:"freshness_window_secs"`
	NonceTTLSecs          int    `yaml:"nonce_ttl_secs"`
	MaxFeePerTxLamports   uint64 `yaml:"max_fee_per_tx_lamports"`
	MaxDailySpendLamports uint64 `yaml:"max_daily_spend_lamports"`
}

// FreshnessWindow returns the replay freshness window.
func (l Limits) FreshnessWindow() time.Duration {
	if l.FreshnessWindowSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(l.FreshnessWindowSecs) * time.Second
}

// NonceTTL returns how long unused nonce reservations are held.
func (l Limits) NonceTTL() time.Duration {
	if l.NonceTTLSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(l.NonceTTLSecs) * time.Second
}

// Advisory configures the optional pre-execution analysis service.
type Advisory struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout returns the advisory request budget.
func (a Advisory) Timeout() time.Duration {
	if a.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

// Distribution configures the best-effort profit skim.
type Distribution struct {
	Enabled   bool   `yaml:"enabled"`
	ShareBps  int    `yaml:"share_bps"`
	Recipient string `yaml:"recipient"`
}

// Audit points the JSONL audit sink at its output file.
type Audit struct {
	Path string `yaml:"path"`
}

// Wallet stores env-backed signing material metadata.
type Wallet struct {
	PrivateKeyEnv string `yaml:"private_key_env"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App          App          `yaml:"app"`
	Ledger       Ledger       `yaml:"ledger"`
	Limits       Limits       `yaml:"limits"`
	Advisory     Advisory     `yaml:"advisory"`
	Distribution Distribution `yaml:"distribution"`
	Audit        Audit        `yaml:"audit"`
	Wallet       Wallet       `yaml:"wallet"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
