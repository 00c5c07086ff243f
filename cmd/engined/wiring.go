package main

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/advisory"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/audit"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/config"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/distribute"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/engine"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/ledger"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/replay"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/sandbox"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/store"
)

// buildEngine assembles the engine from configuration, wiring the optional
// advisory and distribution collaborators only when enabled.
func buildEngine(log zerolog.Logger, cfg *config.Config, chain ledger.Client, sink audit.Sink) (*engine.Engine, error) {
	engCfg := engine.Config{
		MinBalanceLamports:    cfg.Limits.MinBalanceLamports,
		MaxFeePerTxLamports:   cfg.Limits.MaxFeePerTxLamports,
		MaxDailySpendLamports: cfg.Limits.MaxDailySpendLamports,
		NonceTTL:              cfg.Limits.NonceTTL(),
		ConfirmTimeout:        cfg.Ledger.ConfirmTimeout(),
		PollInterval:          cfg.Ledger.PollInterval(),
	}

	deps := engine.Deps{
		Ledger: chain,
		Guard: replay.NewGuard(
			replay.WithFreshnessWindow(cfg.Limits.FreshnessWindow()),
			replay.WithRatePerMinute(cfg.Limits.RatePerMinute),
		),
		Registry: sandbox.NewRegistry(
			sandbox.WithQuotas(cfg.Limits.SandboxPerMinute, cfg.Limits.SandboxPerHour),
		),
		Store: store.NewMemory(),
		Audit: sink,
	}

	if cfg.Advisory.Enabled {
		deps.Advisor = advisory.NewHTTPAdvisor(cfg.Advisory.BaseURL, cfg.Advisory.Timeout())
	}
	if cfg.Distribution.Enabled {
		recipient, err := solana.PublicKeyFromBase58(cfg.Distribution.Recipient)
		if err != nil {
			return nil, fmt.Errorf("distribution recipient: %w", err)
		}
		engCfg.DistributionEnabled = true
		engCfg.DistributionShareBps = cfg.Distribution.ShareBps
		engCfg.DistributionRecipient = recipient
		deps.Sender = distribute.NewSOLSender(chain)
	}

	return engine.New(log, engCfg, deps), nil
}
