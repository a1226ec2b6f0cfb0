package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 30 * time.Second

	statusPathFmt   = "/integrations/%s/status"
	previewPathFmt  = "/integrations/%s/preview"
	prefsPathFmt    = "/integrations/%s/sync-preferences"
	syncPathFmt     = "/integrations/%s/sync"
	authURLPathFmt  = "/integrations/%s/auth-url"
	bankPreviewPath = "/banking/preview"
	bankSessionPath = "/banking/session"
	bankConnectPath = "/banking/connect"
)

// Client handles communication with the ledger backend API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new ledger backend API client.
// token is attached as a bearer credential on every request; may be empty.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
		token:   token,
	}
}

// APIError is a backend rejection carrying the error payload message.
// Callers surface Message to the user when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend request failed with status %d", e.StatusCode)
}

// envelope is the backend's uniform response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorPayload   `json:"error"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// connectionStatus is the status endpoint payload
type connectionStatus struct {
	Connected bool `json:"connected"`
}

// CategoryPreview is the per-category listing returned by the service preview endpoint
type CategoryPreview struct {
	Available bool          `json:"available"`
	Count     int           `json:"count"`
	Preview   []PreviewItem `json:"preview"`
}

// PreviewItem is a single linkable entity inside a category
type PreviewItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ServicePreview maps category name to its preview listing
type ServicePreview map[string]CategoryPreview

// SyncPreferences is the full preference object persisted for a service
// connection. A nil id slice marshals to null, meaning "no restriction".
type SyncPreferences struct {
	SyncAccounts           bool     `json:"syncAccounts"`
	SelectedAccountIDs     []string `json:"selectedAccountIds"`
	SyncTransactions       bool     `json:"syncTransactions"`
	SelectedTransactionIDs []string `json:"selectedTransactionIds"`
	SyncInvoices           bool     `json:"syncInvoices"`
	SelectedInvoiceIDs     []string `json:"selectedInvoiceIds"`
	SyncBills              bool     `json:"syncBills"`
	SelectedBillIDs        []string `json:"selectedBillIds"`
	SyncCustomers          bool     `json:"syncCustomers"`
	SelectedCustomerIDs    []string `json:"selectedCustomerIds"`
	SyncVendors            bool     `json:"syncVendors"`
	SelectedVendorIDs      []string `json:"selectedVendorIds"`
}

// Enrollment is the credential bundle produced by a bank widget handshake
type Enrollment struct {
	AccessToken     string `json:"accessToken"`
	EnrollmentID    string `json:"enrollmentId"`
	InstitutionID   string `json:"institutionId"`
	InstitutionName string `json:"institutionName"`
}

// BankAccount is one linkable bank account from the banking preview
type BankAccount struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Subtype       string `json:"subtype"`
	CurrencyCode  string `json:"currencyCode"`
	LastFour      string `json:"lastFour"`
	BalanceString string `json:"balance"` // API returns balance as string
}

// GetBalance returns the balance as a decimal
func (a *BankAccount) GetBalance() (decimal.Decimal, error) {
	if a.BalanceString == "" {
		return decimal.Zero, nil
	}
	balance, err := decimal.NewFromString(a.BalanceString)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance '%s': %w", a.BalanceString, err)
	}
	return balance, nil
}

// BankPreview is the banking preview endpoint payload
type BankPreview struct {
	InstitutionName string        `json:"institutionName"`
	TotalAccounts   int           `json:"totalAccounts"`
	Accounts        []BankAccount `json:"accounts"`
}

// ConnectionStatus reports whether the given service provider is already connected
func (c *Client) ConnectionStatus(ctx context.Context, provider string) (bool, error) {
	var status connectionStatus
	path := fmt.Sprintf(statusPathFmt, url.PathEscape(provider))
	if err := c.get(ctx, path, &status); err != nil {
		return false, err
	}
	return status.Connected, nil
}

// GetServicePreview fetches the per-category preview for a connected service
func (c *Client) GetServicePreview(ctx context.Context, provider string, limit int) (ServicePreview, error) {
	var preview ServicePreview
	path := fmt.Sprintf(previewPathFmt+"?limit=%d", url.PathEscape(provider), limit)
	if err := c.get(ctx, path, &preview); err != nil {
		return nil, err
	}
	return preview, nil
}

// SaveSyncPreferences persists the user's sync preference object for a service
func (c *Client) SaveSyncPreferences(ctx context.Context, provider string, prefs SyncPreferences) error {
	path := fmt.Sprintf(prefsPathFmt, url.PathEscape(provider))
	return c.send(ctx, http.MethodPut, path, prefs, nil)
}

// StartSync triggers a backend sync run for a connected service
func (c *Client) StartSync(ctx context.Context, provider string) error {
	path := fmt.Sprintf(syncPathFmt, url.PathEscape(provider))
	return c.send(ctx, http.MethodPost, path, nil, nil)
}

// GetAuthorizationURL returns the OAuth authorization URL for a service provider
func (c *Client) GetAuthorizationURL(ctx context.Context, provider string) (string, error) {
	var payload struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf(authURLPathFmt, url.PathEscape(provider))
	if err := c.get(ctx, path, &payload); err != nil {
		return "", err
	}
	if payload.URL == "" {
		return "", fmt.Errorf("backend returned empty authorization URL")
	}
	return payload.URL, nil
}

// GetBankPreview exchanges a widget enrollment bundle for the list of linkable accounts
func (c *Client) GetBankPreview(ctx context.Context, enrollment Enrollment) (*BankPreview, error) {
	body := struct {
		Enrollment Enrollment `json:"enrollment"`
	}{Enrollment: enrollment}

	var preview BankPreview
	if err := c.send(ctx, http.MethodPost, bankPreviewPath, body, &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// CreateBankSession creates a provider modal session and returns its client secret
func (c *Client) CreateBankSession(ctx context.Context) (string, error) {
	var payload struct {
		ClientSecret string `json:"clientSecret"`
	}
	if err := c.send(ctx, http.MethodPost, bankSessionPath, nil, &payload); err != nil {
		return "", err
	}
	if payload.ClientSecret == "" {
		return "", fmt.Errorf("backend returned empty client secret")
	}
	return payload.ClientSecret, nil
}

// ConnectBank persists the selected bank accounts under the enrollment bundle
func (c *Client) ConnectBank(ctx context.Context, enrollment Enrollment, selectedAccountIDs []string) error {
	body := struct {
		Enrollment         Enrollment `json:"enrollment"`
		SelectedAccountIDs []string   `json:"selectedAccountIds"`
	}{Enrollment: enrollment, SelectedAccountIDs: selectedAccountIDs}

	return c.send(ctx, http.MethodPost, bankConnectPath, body, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

// send issues one request and decodes the envelope. out may be nil when the
// caller only cares about success.
func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil {
		if len(env.Data) == 0 {
			return fmt.Errorf("backend response has no data payload")
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal data payload: %w", err)
		}
	}

	return nil
}
