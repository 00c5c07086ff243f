package engine

import "fmt"

// Kind classifies every way an execution attempt can go wrong. All kinds
// except KindDistribution are terminal for the attempt and surface as a
// failed Result; they are never thrown past the engine boundary.
type Kind string

const (
	KindValidation     Kind = "validation"          // malformed input, caught before any I/O
	KindPreflight      Kind = "preflight"           // balance below the configured minimum
	KindQuota          Kind = "quota_exceeded"      // rate, hourly, or spend cap
	KindReplay         Kind = "replay_rejected"     // nonce/hash/freshness/rate layer
	KindPermission     Kind = "permission_denied"   // sandbox capability check
	KindAdvisoryAbort  Kind = "advisory_abort"      // external advisor said stop
	KindSubmission     Kind = "submission"          // RPC rejected the transaction
	KindConfirmTimeout Kind = "confirmation_timeout"
	KindDistribution   Kind = "distribution" // best-effort skim failed, non-fatal
	KindInternal       Kind = "internal"    // unexpected fault mapped to FAILED
)

// Error pairs a taxonomy kind with the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// errf wraps a formatted message under kind.
func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}
