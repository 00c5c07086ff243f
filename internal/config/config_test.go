package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
app:
  name: engined
  env: test
  metrics_addr: ":9109"
  log_level: debug
ledger:
  rpc_url: https://api.devnet.solana.com
  commitment: confirmed
  confirm_timeout_ms: 10000
  poll_interval_ms: 250
limits:
  min_balance_lamports: 50000000
  rate_per_minute: 10
  sandbox_per_minute: 10
  sandbox_per_hour: 100
  freshness_window_secs: 300
  nonce_ttl_secs: 300
  max_fee_per_tx_lamports: 5000000
  max_daily_spend_lamports: 1000000000
advisory:
  enabled: true
  base_url: http://localhost:8090
  timeout_ms: 2000
distribution:
  enabled: false
  share_bps: 500
audit:
  path: data/audit.jsonl
wallet:
  private_key_env: WALLET_PRIVATE_KEY
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Name != "engined" || cfg.App.LogLevel != "debug" {
		t.Fatalf("app section wrong: %+v", cfg.App)
	}
	if cfg.Ledger.Commitment != "confirmed" {
		t.Fatalf("ledger section wrong: %+v", cfg.Ledger)
	}
	if cfg.Limits.MinBalanceLamports != 50_000_000 || cfg.Limits.RatePerMinute != 10 {
		t.Fatalf("limits section wrong: %+v", cfg.Limits)
	}
	if !cfg.Advisory.Enabled || cfg.Advisory.BaseURL != "http://localhost:8090" {
		t.Fatalf("advisory section wrong: %+v", cfg.Advisory)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Ledger.ConfirmTimeout(); got != 10*time.Second {
		t.Fatalf("confirm timeout = %s", got)
	}
	if got := cfg.Ledger.PollInterval(); got != 250*time.Millisecond {
		t.Fatalf("poll interval = %s", got)
	}
	if got := cfg.Limits.FreshnessWindow(); got != 5*time.Minute {
		t.Fatalf("freshness window = %s", got)
	}
	if got := cfg.Advisory.Timeout(); got != 2*time.Second {
		t.Fatalf("advisory timeout = %s", got)
	}
}

func TestDurationDefaults(t *testing.T) {
	var (
		l Ledger
		m Limits
		a Advisory
	)
	if l.ConfirmTimeout() != 30*time.Second || l.PollInterval() != 500*time.Millisecond {
		t.Fatalf("ledger defaults wrong")
	}
	if m.FreshnessWindow() != 5*time.Minute || m.NonceTTL() != 5*time.Minute {
		t.Fatalf("limits defaults wrong")
	}
	if a.Timeout() != 5*time.Second {
		t.Fatalf("advisory default wrong")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(writeSample(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := Save(out, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *loaded != *cfg {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", loaded, cfg)
	}
}

func TestSaveNil(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "x.yaml"), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
