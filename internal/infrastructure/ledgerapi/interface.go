package ledgerapi

import (
	"context"
)

// ClientInterface defines the methods required from the ledger backend API client
type ClientInterface interface {
	ConnectionStatus(ctx context.Context, provider string) (bool, error)
	GetServicePreview(ctx context.Context, provider string, limit int) (ServicePreview, error)
	SaveSyncPreferences(ctx context.Context, provider string, prefs SyncPreferences) error
	StartSync(ctx context.Context, provider string) error
	GetAuthorizationURL(ctx context.Context, provider string) (string, error)
	GetBankPreview(ctx context.Context, enrollment Enrollment) (*BankPreview, error)
	CreateBankSession(ctx context.Context) (string, error)
	ConnectBank(ctx context.Context, enrollment Enrollment, selectedAccountIDs []string) error
}
