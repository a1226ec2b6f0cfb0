package linking

import (
	"fmt"
	"sort"

	"ledgerlink/internal/infrastructure/ledgerapi"
)

// Category is one of the closed set of service data categories
type Category string

const (
	CategoryAccounts     Category = "accounts"
	CategoryTransactions Category = "transactions"
	CategoryInvoices     Category = "invoices"
	CategoryBills        Category = "bills"
	CategoryCustomers    Category = "customers"
	CategoryVendors      Category = "vendors"
)

// Categories returns the closed, ordered category set
func Categories() []Category {
	return []Category{
		CategoryAccounts,
		CategoryTransactions,
		CategoryInvoices,
		CategoryBills,
		CategoryCustomers,
		CategoryVendors,
	}
}

// CategoryChoice holds the selection state for one service category. An
// enabled category with no selected ids means "all items in the category".
type CategoryChoice struct {
	Enabled     bool
	SelectedIDs map[string]bool
}

// Selection holds the user's choice of entities to link. Mutated only by
// explicit toggle actions.
type Selection struct {
	family ProviderFamily

	// accountIDs is the flat selected-id set for bank sessions.
	accountIDs map[string]bool

	// categories is the per-category state for service sessions.
	categories map[Category]*CategoryChoice
}

// NewSelection creates an empty selection for the family
func NewSelection(family ProviderFamily) *Selection {
	s := &Selection{
		family:     family,
		accountIDs: make(map[string]bool),
		categories: make(map[Category]*CategoryChoice),
	}
	for _, c := range Categories() {
		s.categories[c] = &CategoryChoice{SelectedIDs: make(map[string]bool)}
	}
	return s
}

// ToggleAccount flips membership of one bank account id
func (s *Selection) ToggleAccount(id string) {
	if s.accountIDs[id] {
		delete(s.accountIDs, id)
	} else {
		s.accountIDs[id] = true
	}
}

// ToggleAll toggles between empty and full based on current completeness:
// when every listed id is already selected the set is cleared, otherwise it
// becomes exactly the listed ids. Matches the wizard's bulk-toggle semantics,
// including the known oddity that a preview list changed since the ids were
// captured makes the completeness comparison stale.
func (s *Selection) ToggleAll(allIDs []string) {
	if len(s.accountIDs) == len(allIDs) {
		s.accountIDs = make(map[string]bool)
		return
	}
	s.accountIDs = make(map[string]bool, len(allIDs))
	for _, id := range allIDs {
		s.accountIDs[id] = true
	}
}

// AccountIDs returns the selected bank account ids, sorted for stable output
func (s *Selection) AccountIDs() []string {
	ids := make([]string, 0, len(s.accountIDs))
	for id := range s.accountIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AccountSelected reports membership of one id
func (s *Selection) AccountSelected(id string) bool {
	return s.accountIDs[id]
}

// SetCategory enables or disables a service category. Disabling keeps the
// item sub-selection so re-enabling restores it.
func (s *Selection) SetCategory(c Category, enabled bool) error {
	choice, ok := s.categories[c]
	if !ok {
		return fmt.Errorf("unknown category %q", c)
	}
	choice.Enabled = enabled
	return nil
}

// ToggleItem flips membership of one item id within a category
func (s *Selection) ToggleItem(c Category, id string) error {
	choice, ok := s.categories[c]
	if !ok {
		return fmt.Errorf("unknown category %q", c)
	}
	if choice.SelectedIDs[id] {
		delete(choice.SelectedIDs, id)
	} else {
		choice.SelectedIDs[id] = true
	}
	return nil
}

// Category returns the choice state for one category, or nil if unknown
func (s *Selection) Category(c Category) *CategoryChoice {
	return s.categories[c]
}

// Validate checks the family's progression rule: bank flows need at least one
// selected account id, service flows at least one enabled category.
func (s *Selection) Validate() error {
	switch s.family {
	case FamilyBank:
		if len(s.accountIDs) == 0 {
			return ErrEmptySelection
		}
	case FamilyService:
		for _, choice := range s.categories {
			if choice.Enabled {
				return nil
			}
		}
		return ErrEmptySelection
	}
	return nil
}

// SyncPreferences builds the preference object persisted for a service
// connection. An enabled category with an empty sub-selection is submitted
// with a nil id list, which the backend reads as "no restriction".
func (s *Selection) SyncPreferences() ledgerapi.SyncPreferences {
	ids := func(c Category) []string {
		choice := s.categories[c]
		if !choice.Enabled || len(choice.SelectedIDs) == 0 {
			return nil
		}
		out := make([]string, 0, len(choice.SelectedIDs))
		for id := range choice.SelectedIDs {
			out = append(out, id)
		}
		sort.Strings(out)
		return out
	}
	enabled := func(c Category) bool {
		return s.categories[c].Enabled
	}

	return ledgerapi.SyncPreferences{
		SyncAccounts:           enabled(CategoryAccounts),
		SelectedAccountIDs:     ids(CategoryAccounts),
		SyncTransactions:       enabled(CategoryTransactions),
		SelectedTransactionIDs: ids(CategoryTransactions),
		SyncInvoices:           enabled(CategoryInvoices),
		SelectedInvoiceIDs:     ids(CategoryInvoices),
		SyncBills:              enabled(CategoryBills),
		SelectedBillIDs:        ids(CategoryBills),
		SyncCustomers:          enabled(CategoryCustomers),
		SelectedCustomerIDs:    ids(CategoryCustomers),
		SyncVendors:            enabled(CategoryVendors),
		SelectedVendorIDs:      ids(CategoryVendors),
	}
}
