package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"

	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/audit"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/bot"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/engine"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/ledger"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/replay"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/sandbox"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/store"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/txbuild"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/util"
	"github.com/SMSDAO/reimagined-jupiter-sub000/internal/wallet"
)

type stubChain struct {
	mu      sync.Mutex
	balance uint64
	submits int
}

func (s *stubChain) Balance(context.Context, solana.PublicKey) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}

func (s *stubChain) Submit(context.Context, *solana.Transaction) (solana.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++
	var sig solana.Signature
	sig[0] = byte(s.submits)
	sig[63] = 1
	return sig, nil
}

func (s *stubChain) ConfirmationStatus(context.Context, solana.Signature) (ledger.TxStatus, error) {
	return ledger.StatusConfirmed, nil
}

func (s *stubChain) Simulate(context.Context, *solana.Transaction) (*ledger.SimResult, error) {
	return &ledger.SimResult{OK: true}, nil
}

func (s *stubChain) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{42}, nil
}

// TestExecutionFlow drives the full pipeline with real guard, sandbox, store,
// and JSONL audit sink, with only the chain stubbed out.
func TestExecutionFlow(t *testing.T) {
	chain := &stubChain{balance: 200_000_000}
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := audit.NewJSONLSink(auditPath)
	if err != nil {
		t.Fatalf("audit sink: %v", err)
	}

	st := store.NewMemory()
	eng := engine.New(util.NewLogger("disabled"), engine.Config{
		MinBalanceLamports:    50_000_000,
		MaxFeePerTxLamports:   5_000_000,
		MaxDailySpendLamports: 1_000_000_000,
		ConfirmTimeout:        time.Second,
		PollInterval:          5 * time.Millisecond,
	}, engine.Deps{
		Ledger:   chain,
		Guard:    replay.NewGuard(),
		Registry: sandbox.NewRegistry(),
		Store:    st,
		Audit:    sink,
	})

	botCfg := &bot.Config{
		ID:          "arb-1",
		OwnerID:     "owner-a",
		BotType:     bot.Arbitrage,
		SigningMode: bot.ServerSide,
		IsActive:    true,
	}
	w := solana.NewWallet()
	build := func() *txbuild.Unsigned {
		utx, berr := txbuild.New(w.PublicKey()).
			AddTransfer(w.PublicKey(), solana.NewWallet().PublicKey(), 10_000).
			AddPriorityFee(1_000).
			Build(context.Background(), chain)
		if berr != nil {
			t.Fatalf("build: %v", berr)
		}
		return utx
	}
	signerFor := func() *wallet.Signer {
		key := make(solana.PrivateKey, len(w.PrivateKey))
		copy(key, w.PrivateKey)
		return wallet.NewSigner(key)
	}

	// First execution lands.
	utx := build()
	res := eng.Execute(context.Background(), botCfg, utx, signerFor(), engine.Options{})
	if res.Status != store.StatusConfirmed {
		t.Fatalf("first execution: %s (%s)", res.Status, res.ErrorMessage)
	}

	// The exact same payload is rejected without touching the chain again.
	replayed := eng.Execute(context.Background(), botCfg, utx, signerFor(), engine.Options{})
	if replayed.Status != store.StatusReplayRejected {
		t.Fatalf("replay attempt: %s", replayed.Status)
	}
	if chain.submits != 1 {
		t.Fatalf("replay must not resubmit, submits=%d", chain.submits)
	}

	// A distinct payload still goes through.
	res2 := eng.Execute(context.Background(), botCfg, build(), signerFor(), engine.Options{})
	if res2.Status != store.StatusConfirmed {
		t.Fatalf("second execution: %s (%s)", res2.Status, res2.ErrorMessage)
	}

	// Records are queryable per owner in insertion order.
	recs := st.ListByOwner("owner-a")
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Status != store.StatusConfirmed || recs[1].Status != store.StatusReplayRejected || recs[2].Status != store.StatusConfirmed {
		t.Fatalf("unexpected record statuses: %s %s %s", recs[0].Status, recs[1].Status, recs[2].Status)
	}

	// Quota usage reflects the two admitted executions.
	qs := eng.QuotaStatus("owner-a", "arb-1")
	if qs.ExecutionsToday != 2 {
		t.Fatalf("expected 2 executions today, got %d", qs.ExecutionsToday)
	}
	if qs.SpendToday == 0 {
		t.Fatalf("expected non-zero spend accounting")
	}

	// Every attempt left an audit line on disk.
	if err := sink.Close(); err != nil {
		t.Fatalf("close sink: %v", err)
	}
	file, err := os.Open(auditPath)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer file.Close()
	var entries []audit.Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e audit.Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad audit line: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(entries))
	}
	if entries[1].Decision != audit.DecisionRejected {
		t.Fatalf("replay attempt should audit as rejected, got %s", entries[1].Decision)
	}
}
