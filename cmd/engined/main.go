// Binary engined runs the execution engine as a long-lived process: metrics
// endpoint plus the periodic reservation sweep. Transaction submission is
// driven by embedding callers; see cmd/transfer for a one-shot flow.
package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/audit"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/config"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/ledger"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/metrics"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/util"
)

func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	sink, err := audit.NewJSONLSink(cfg.Audit.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open audit sink")
	}
	defer sink.Close()

	eng, err := buildEngine(util.Named(log, "engine"), cfg, ledger.NewRPC(cfg.Ledger.RPCURL, cfg.Ledger.Commitment), sink)
	if err != nil {
		log.Fatal().Err(err).Msg("build engine")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("rpc", cfg.Ledger.RPCURL).Msg("engine up")

	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-sweep.C:
			if n := eng.SweepReservations(); n > 0 {
				log.Debug().Int("reclaimed", n).Msg("swept expired reservations")
			}
		}
	}
}
