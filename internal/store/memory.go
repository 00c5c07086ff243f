package store

import (
	"fmt"
	"sync"
)

// Memory keeps execution records in memory behind a mutex with copy-out
// reads. Suitable for tests and single-process deployments.
type Memory struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	order   []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*ExecutionRecord)}
}

// InsertExecutionRecord stores a new record; duplicate ids are rejected.
func (m *Memory) InsertExecutionRecord(rec ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return fmt.Errorf("store: duplicate record id %s", rec.ID)
	}
	cp := rec
	m.records[rec.ID] = &cp
	m.order = append(m.order, rec.ID)
	return nil
}

// UpdateExecutionRecord applies a status transition. A record that already
// reached a terminal status cannot transition again.
func (m *Memory) UpdateExecutionRecord(id string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status.Terminal() {
		return ErrTerminal
	}
	if patch.Status != "" {
		rec.Status = patch.Status
	}
	if patch.Nonce != "" {
		rec.Nonce = patch.Nonce
	}
	if patch.TxSignature != "" {
		rec.TxSignature = patch.TxSignature
	}
	if patch.PreBalance != nil {
		rec.PreBalance = *patch.PreBalance
	}
	if patch.PostBalance != nil {
		rec.PostBalance = *patch.PostBalance
	}
	if patch.ProfitOrLoss != nil {
		rec.ProfitOrLoss = *patch.ProfitOrLoss
	}
	if patch.GasSpent != nil {
		rec.GasSpent = *patch.GasSpent
	}
	if patch.CompletedAt != nil {
		rec.CompletedAt = patch.CompletedAt
	}
	if patch.ErrorMessage != "" {
		rec.ErrorMessage = patch.ErrorMessage
	}
	return nil
}

// GetExecutionRecord returns a copy of the record with the given id.
func (m *Memory) GetExecutionRecord(id string) (ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ExecutionRecord{}, ErrNotFound
	}
	return *rec, nil
}

// ListByOwner returns copies of the owner's records in insertion order.
func (m *Memory) ListByOwner(ownerID string) []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutionRecord
	for _, id := range m.order {
		if rec := m.records[id]; rec.OwnerID == ownerID {
			out = append(out, *rec)
		}
	}
	return out
}
