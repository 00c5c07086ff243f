package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONLSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "out.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}

	sink.Append(Entry{OwnerID: "alice", BotID: "bot1", Decision: DecisionConfirmed, Ts: time.Now().UTC()})
	sink.Append(Entry{OwnerID: "bob", BotID: "bot2", Decision: DecisionRejected, Reason: "nonce reuse", Ts: time.Now().UTC()})
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].OwnerID != "alice" || entries[1].Reason != "nonce reuse" {
		t.Fatalf("entries round-tripped wrong: %+v", entries)
	}
}

func TestJSONLSinkAppendAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	sink.Append(Entry{OwnerID: "late"}) // must not panic
}

func TestMemorySinkSnapshotIsCopy(t *testing.T) {
	sink := NewMemorySink()
	sink.Append(Entry{OwnerID: "alice"})
	snap := sink.Snapshot()
	snap[0].OwnerID = "mutated"
	if sink.Snapshot()[0].OwnerID != "alice" {
		t.Fatalf("snapshot must not alias internal storage")
	}
}
