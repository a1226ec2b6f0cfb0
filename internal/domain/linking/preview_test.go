package linking

import (
	"context"
	"errors"
	"testing"

	"ledgerlink/internal/infrastructure/ledgerapi"
)

func TestPreviewManager_FetchBankRequiresHandshake(t *testing.T) {
	manager := NewPreviewManager(&mockAPI{})

	if _, err := manager.FetchBank(context.Background(), nil); !errors.Is(err, ErrHandshakeRequired) {
		t.Errorf("FetchBank(nil) = %v, want ErrHandshakeRequired", err)
	}
	if _, err := manager.FetchBank(context.Background(), &HandshakeResult{}); !errors.Is(err, ErrHandshakeRequired) {
		t.Errorf("FetchBank(no enrollment) = %v, want ErrHandshakeRequired", err)
	}
}

func TestPreviewManager_FetchBank(t *testing.T) {
	api := &mockAPI{
		GetBankPreviewFunc: func(ctx context.Context, enrollment ledgerapi.Enrollment) (*ledgerapi.BankPreview, error) {
			return &ledgerapi.BankPreview{
				InstitutionName: "First Bank",
				TotalAccounts:   2,
				Accounts: []ledgerapi.BankAccount{
					{ID: "acc_1", Name: "Checking"},
					{ID: "acc_2", Name: "Savings"},
				},
			}, nil
		},
	}
	manager := NewPreviewManager(api)
	bundle := &HandshakeResult{Enrollment: &ledgerapi.Enrollment{AccessToken: "t", EnrollmentID: "e"}}

	preview, err := manager.FetchBank(context.Background(), bundle)
	if err != nil {
		t.Fatalf("FetchBank() failed: %v", err)
	}
	if preview.InstitutionName != "First Bank" || len(preview.Accounts) != 2 {
		t.Errorf("unexpected preview: %+v", preview)
	}
	if got := preview.AccountIDs(); len(got) != 2 || got[0] != "acc_1" {
		t.Errorf("AccountIDs() = %v", got)
	}
}

func TestPreviewManager_FetchBankEmptyIsError(t *testing.T) {
	api := &mockAPI{
		GetBankPreviewFunc: func(ctx context.Context, enrollment ledgerapi.Enrollment) (*ledgerapi.BankPreview, error) {
			return &ledgerapi.BankPreview{InstitutionName: "Empty Bank"}, nil
		},
	}
	manager := NewPreviewManager(api)
	bundle := &HandshakeResult{Enrollment: &ledgerapi.Enrollment{AccessToken: "t"}}

	if _, err := manager.FetchBank(context.Background(), bundle); !errors.Is(err, ErrEmptyPreview) {
		t.Errorf("FetchBank() = %v, want ErrEmptyPreview", err)
	}
}

func TestPreviewManager_FetchService(t *testing.T) {
	var gotLimit int
	api := &mockAPI{
		GetServicePreviewFunc: func(ctx context.Context, provider string, limit int) (ledgerapi.ServicePreview, error) {
			gotLimit = limit
			return ledgerapi.ServicePreview{
				"accounts": {Available: true, Count: 3, Preview: []ledgerapi.PreviewItem{{ID: "a1", Label: "Cash"}}},
				"invoices": {Available: true, Count: 10},
				"payroll":  {Available: true, Count: 99}, // outside the closed set, dropped
			}, nil
		},
	}
	manager := NewPreviewManager(api)

	preview, err := manager.FetchService(context.Background(), "quickbooks", &HandshakeResult{Connected: true})
	if err != nil {
		t.Fatalf("FetchService() failed: %v", err)
	}
	if gotLimit != 5 {
		t.Errorf("limit = %d, want 5", gotLimit)
	}
	if len(preview.Categories) != 2 {
		t.Errorf("Categories = %v, want the two known categories only", preview.Categories)
	}
	if _, ok := preview.Categories[CategoryAccounts]; !ok {
		t.Error("accounts category missing")
	}
}

func TestPreviewManager_FetchServiceEmptyIsError(t *testing.T) {
	api := &mockAPI{
		GetServicePreviewFunc: func(ctx context.Context, provider string, limit int) (ledgerapi.ServicePreview, error) {
			return ledgerapi.ServicePreview{
				"accounts": {Available: false, Count: 0},
				"bills":    {Available: true, Count: 0},
			}, nil
		},
	}
	manager := NewPreviewManager(api)

	if _, err := manager.FetchService(context.Background(), "xero", &HandshakeResult{Connected: true}); !errors.Is(err, ErrEmptyPreview) {
		t.Errorf("FetchService() = %v, want ErrEmptyPreview", err)
	}
}

func TestPreviewManager_FetchServiceRequiresHandshake(t *testing.T) {
	manager := NewPreviewManager(&mockAPI{})

	if _, err := manager.FetchService(context.Background(), "xero", nil); !errors.Is(err, ErrHandshakeRequired) {
		t.Errorf("FetchService(nil) = %v, want ErrHandshakeRequired", err)
	}
}
