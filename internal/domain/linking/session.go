package linking

import (
	"time"

	"github.com/google/uuid"

	"ledgerlink/internal/infrastructure/ledgerapi"
)

// HandshakeResult is the opaque provider-specific bundle produced by a
// successful handshake. Created once; a new handshake attempt replaces it
// wholesale, never mutates it.
type HandshakeResult struct {
	// Enrollment is set by the widget strategy (bank).
	Enrollment *ledgerapi.Enrollment
	// SessionID is set by the modal-session strategy (bank).
	SessionID string
	// Connected is set by the popup OAuth strategy (service).
	Connected bool
}

// Preview is the fetched list of linkable entities, replaced wholesale on
// each fetch.
type Preview struct {
	InstitutionName string
	TotalAccounts   int
	// Accounts is populated for bank sessions.
	Accounts []ledgerapi.BankAccount
	// Categories is populated for service sessions.
	Categories map[Category]ledgerapi.CategoryPreview
}

// Empty reports whether the preview holds zero linkable entities
func (p *Preview) Empty() bool {
	if p == nil {
		return true
	}
	if len(p.Accounts) > 0 {
		return false
	}
	for _, cat := range p.Categories {
		if cat.Available && cat.Count > 0 {
			return false
		}
	}
	return true
}

// AccountIDs returns the ids of all previewed bank accounts in order
func (p *Preview) AccountIDs() []string {
	ids := make([]string, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		ids = append(ids, a.ID)
	}
	return ids
}

// Session is the root state for one linking attempt. It lives in memory for
// the duration of the flow and is discarded on exit; it is never persisted.
type Session struct {
	ID       string
	Family   ProviderFamily
	Provider string
	Flow     *Flow

	// Exactly one of SDKReady/SDKError is set once loading has been
	// attempted; before any attempt both are zero.
	SDKReady bool
	SDKError string

	Handshake    *HandshakeResult
	Preview      *Preview
	Selection    *Selection
	SyncProgress int

	CreatedAt time.Time
}

// NewSession creates a session positioned at the first step
func NewSession(family ProviderFamily, provider string) (*Session, error) {
	flow, err := NewFlow(family)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.NewString(),
		Family:    family,
		Provider:  provider,
		Flow:      flow,
		Selection: NewSelection(family),
		CreatedAt: time.Now(),
	}, nil
}
