package linking

import (
	"ledgerlink/internal/infrastructure/ledgerapi"
)

// AccountView is one previewed bank account with its selection flag
type AccountView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	Currency string `json:"currencyCode"`
	LastFour string `json:"lastFour"`
	Balance  string `json:"balance"`
	Selected bool   `json:"selected"`
}

// ItemView is one previewed category item with its selection flag
type ItemView struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// CategoryView is one service category with availability and selection state
type CategoryView struct {
	Category  Category   `json:"category"`
	Available bool       `json:"available"`
	Count     int        `json:"count"`
	Enabled   bool       `json:"enabled"`
	Items     []ItemView `json:"items"`
}

// Snapshot is the serializable view of a session the front-end renders from
type Snapshot struct {
	SessionID string         `json:"sessionId"`
	Family    ProviderFamily `json:"family"`
	Provider  string         `json:"provider"`

	Step      Step   `json:"step"`
	StepIndex int    `json:"stepIndex"`
	Steps     []Step `json:"steps"`

	SDKReady bool   `json:"sdkReady"`
	SDKError string `json:"sdkError,omitempty"`

	HandshakeDone   bool   `json:"handshakeDone"`
	InstitutionName string `json:"institutionName,omitempty"`

	Accounts   []AccountView  `json:"accounts,omitempty"`
	Categories []CategoryView `json:"categories,omitempty"`

	SyncProgress int  `json:"syncProgress"`
	Busy         bool `json:"busy"`
}

// Snapshot captures the session's current state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session
	snap := Snapshot{
		SessionID:     s.ID,
		Family:        s.Family,
		Provider:      s.Provider,
		Step:          s.Flow.Current(),
		StepIndex:     s.Flow.Index(),
		Steps:         s.Flow.Steps(),
		SDKReady:      s.SDKReady,
		SDKError:      s.SDKError,
		HandshakeDone: s.Handshake != nil,
		SyncProgress:  s.SyncProgress,
		Busy:          o.busy,
	}

	if s.Preview == nil {
		return snap
	}

	snap.InstitutionName = s.Preview.InstitutionName
	snap.Accounts = accountViews(s.Preview.Accounts, s.Selection)
	snap.Categories = categoryViews(s.Preview.Categories, s.Selection)
	return snap
}

func accountViews(accounts []ledgerapi.BankAccount, sel *Selection) []AccountView {
	if len(accounts) == 0 {
		return nil
	}
	out := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountView{
			ID:       a.ID,
			Name:     a.Name,
			Type:     a.Type,
			Subtype:  a.Subtype,
			Currency: a.CurrencyCode,
			LastFour: a.LastFour,
			Balance:  a.BalanceString,
			Selected: sel != nil && sel.AccountSelected(a.ID),
		})
	}
	return out
}

func categoryViews(categories map[Category]ledgerapi.CategoryPreview, sel *Selection) []CategoryView {
	if len(categories) == 0 {
		return nil
	}
	out := make([]CategoryView, 0, len(categories))
	for _, c := range Categories() {
		cat, ok := categories[c]
		if !ok {
			continue
		}
		view := CategoryView{
			Category:  c,
			Available: cat.Available,
			Count:     cat.Count,
		}
		var choice *CategoryChoice
		if sel != nil {
			choice = sel.Category(c)
		}
		if choice != nil {
			view.Enabled = choice.Enabled
		}
		for _, item := range cat.Preview {
			selected := choice != nil && choice.SelectedIDs[item.ID]
			view.Items = append(view.Items, ItemView{ID: item.ID, Label: item.Label, Selected: selected})
		}
		out = append(out, view)
	}
	return out
}
