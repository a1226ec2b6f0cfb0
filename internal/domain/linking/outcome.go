package linking

import "ledgerlink/internal/infrastructure/ledgerapi"

// OutcomeKind tags the result of a handshake attempt
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeCancelled
	OutcomeError
)

// Outcome is the tagged result a handshake strategy feeds back into the
// orchestrator's transition function. Strategies produce exactly one Outcome
// per attempt instead of scattering side effects across callbacks.
type Outcome struct {
	Kind   OutcomeKind
	Bundle *HandshakeResult
	// Accounts carries the linked accounts returned directly by the
	// modal-session strategy, which needs no separate preview fetch.
	Accounts []ledgerapi.BankAccount
	// Reason is the failure description for OutcomeError.
	Reason string
	// Err classifies the failure for OutcomeError (taxonomy sentinel or
	// backend error).
	Err error
}

func successOutcome(bundle *HandshakeResult) Outcome {
	return Outcome{Kind: OutcomeSuccess, Bundle: bundle}
}

func cancelledOutcome() Outcome {
	return Outcome{Kind: OutcomeCancelled}
}

func errorOutcome(err error, reason string) Outcome {
	return Outcome{Kind: OutcomeError, Err: err, Reason: reason}
}
