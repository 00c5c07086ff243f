// Binary transfer executes a single native transfer through the sandboxed
// engine: build, validate, replay-protect, submit, confirm, and wipe the key.
package main

import (
	"context"
	"flag"
	"time"

	solana "github.com/gagliardetto/solana-go"

	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/audit"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/bot"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/config"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/engine"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/ledger"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/replay"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/sandbox"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/store"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/txbuild"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/util"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/wallet"
)

func main() {
	var (
		configPath  = flag.String("config", "internal/config/config.yaml", "config file path")
		to          = flag.String("to", "", "recipient address (base58)")
		lamports    = flag.Uint64("lamports", 1_000_000, "amount to transfer")
		priorityFee = flag.Uint64("priority-fee", 0, "priority fee in micro-lamports per compute unit")
		simulate    = flag.Bool("simulate", false, "simulate instead of submitting")
	)
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	recipient, err := solana.PublicKeyFromBase58(*to)
	if err != nil {
		log.Fatal().Err(err).Msg("bad recipient address")
	}

	signer, err := wallet.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("load wallet")
	}

	chain := ledger.NewRPC(cfg.Ledger.RPCURL, cfg.Ledger.Commitment)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	builder := txbuild.New(signer.PublicKey()).
		AddTransfer(signer.PublicKey(), recipient, *lamports)
	if *priorityFee > 0 {
		builder.AddPriorityFee(*priorityFee)
	}
	utx, err := builder.Build(ctx, chain)
	if err != nil {
		log.Fatal().Err(err).Msg("build transaction")
	}
	if utx.PriorityFeeClamped() {
		log.Warn().Uint64("effective", utx.PriorityFee()).Msg("priority fee clamped to cap")
	}

	eng := engine.New(log, engine.Config{
		MinBalanceLamports:    cfg.Limits.MinBalanceLamports,
		MaxFeePerTxLamports:   cfg.Limits.MaxFeePerTxLamports,
		MaxDailySpendLamports: cfg.Limits.MaxDailySpendLamports,
		NonceTTL:              cfg.Limits.NonceTTL(),
		ConfirmTimeout:        cfg.Ledger.ConfirmTimeout(),
		PollInterval:          cfg.Ledger.PollInterval(),
	}, engine.Deps{
		Ledger: chain,
		Guard: replay.NewGuard(
			replay.WithFreshnessWindow(cfg.Limits.FreshnessWindow()),
			replay.WithRatePerMinute(cfg.Limits.RatePerMinute),
		),
		Registry: sandbox.NewRegistry(
			sandbox.WithQuotas(cfg.Limits.SandboxPerMinute, cfg.Limits.SandboxPerHour),
		),
		Store: store.NewMemory(),
		Audit: audit.NewMemorySink(),
	})

	if *simulate {
		sim, err := eng.Simulate(ctx, utx, signer)
		signer.Wipe()
		if err != nil {
			log.Fatal().Err(err).Msg("simulate")
		}
		log.Info().Bool("ok", sim.OK).Strs("logs", sim.Logs).Str("err", sim.Err).Msg("simulation result")
		return
	}

	owner := signer.PublicKey().String()
	res := eng.Execute(ctx, &bot.Config{
		ID:          "transfer-cli",
		OwnerID:     owner,
		BotType:     bot.Custom,
		SigningMode: bot.ClientSide,
		IsActive:    true,
	}, utx, signer, engine.Options{})

	ev := log.Info()
	if res.Status != store.StatusConfirmed {
		ev = log.Error()
	}
	ev.Str("status", string(res.Status)).
		Str("sig", res.Signature).
		Int64("pnl", res.ProfitOrLoss).
		Uint64("gas", res.GasSpent).
		Str("error", res.ErrorMessage).
		Msg("execution finished")
}
