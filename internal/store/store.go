// Package store persists execution records. Records are append-only: created
// at the start of an attempt, patched exactly once at the terminal state, and
// never deleted.
package store

import (
	"errors"
	"time"
)

// Status is the finite lifecycle of one execution attempt.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusPreflightFailed Status = "PREFLIGHT_FAILED"
	StatusReplayRejected  Status = "REPLAY_REJECTED"
	StatusAdvisoryAborted Status = "ADVISORY_ABORTED"
	StatusSubmitting      Status = "SUBMITTING"
	StatusConfirmed       Status = "CONFIRMED"
	StatusFailed          Status = "FAILED"
)

// Terminal reports whether the status ends the attempt.
func (s Status) Terminal() bool {
	switch s {
	case StatusPending, StatusSubmitting:
		return false
	}
	return true
}

// ExecutionRecord is the durable trace of one attempt.
type ExecutionRecord struct {
	ID           string     `json:"id"`
	BotID        string     `json:"bot_id"`
	OwnerID      string     `json:"owner_id"`
	Status       Status     `json:"status"`
	Nonce        string     `json:"nonce,omitempty"`
	TxSignature  string     `json:"tx_signature,omitempty"`
	PreBalance   uint64     `json:"pre_balance"`
	PostBalance  uint64     `json:"post_balance"`
	ProfitOrLoss int64      `json:"profit_or_loss"`
	GasSpent     uint64     `json:"gas_spent"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Patch carries the fields updated when an attempt transitions.
type Patch struct {
	Status       Status
	Nonce        string
	TxSignature  string
	PreBalance   *uint64
	PostBalance  *uint64
	ProfitOrLoss *int64
	GasSpent     *uint64
	CompletedAt  *time.Time
	ErrorMessage string
}

var (
	ErrNotFound = errors.New("store: execution record not found")
	ErrTerminal = errors.New("store: record already terminal")
)

// Store is the persistence surface the engine consumes.
type Store interface {
	InsertExecutionRecord(rec ExecutionRecord) error
	UpdateExecutionRecord(id string, patch Patch) error
	GetExecutionRecord(id string) (ExecutionRecord, error)
	ListByOwner(ownerID string) []ExecutionRecord
}
