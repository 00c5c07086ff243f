// Package audit appends an immutable record of every engine decision.
package audit

import "time"

// Decision labels what the engine concluded for one entry.
type Decision string

const (
	DecisionAccepted    Decision = "accepted"
	DecisionRejected    Decision = "rejected"
	DecisionConfirmed   Decision = "confirmed"
	DecisionFailed      Decision = "failed"
	DecisionDistributed Decision = "distributed"
)

// Entry carries enough context to reconstruct one decision later.
type Entry struct {
	OwnerID   string    `json:"owner_id"`
	BotID     string    `json:"bot_id"`
	RecordID  string    `json:"record_id,omitempty"`
	Nonce     string    `json:"nonce,omitempty"`
	Decision  Decision  `json:"decision"`
	Reason    string    `json:"reason,omitempty"`
	Signature string    `json:"signature,omitempty"`
	Ts        time.Time `json:"ts"`
}

// Sink receives entries append-only. Implementations must tolerate concurrent
// writers; entries are never mutated after Append.
type Sink interface {
	Append(entry Entry)
}
