package ledgerapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ConnectionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/integrations/quickbooks/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"success":true,"data":{"connected":true}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token")
	connected, err := client.ConnectionStatus(context.Background(), "quickbooks")
	if err != nil {
		t.Fatalf("ConnectionStatus() failed: %v", err)
	}
	if !connected {
		t.Error("connected = false, want true")
	}
}

func TestClient_GetServicePreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/integrations/xero/preview" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		w.Write([]byte(`{"success":true,"data":{
			"accounts":{"available":true,"count":3,"preview":[{"id":"a1","label":"Cash"}]},
			"invoices":{"available":false,"count":0}
		}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	preview, err := client.GetServicePreview(context.Background(), "xero", 5)
	if err != nil {
		t.Fatalf("GetServicePreview() failed: %v", err)
	}
	accounts, ok := preview["accounts"]
	if !ok || !accounts.Available || accounts.Count != 3 {
		t.Errorf("accounts = %+v", accounts)
	}
	if len(accounts.Preview) != 1 || accounts.Preview[0].Label != "Cash" {
		t.Errorf("preview items = %+v", accounts.Preview)
	}
}

func TestClient_BackendErrorCarriesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"success":false,"error":{"message":"provider under maintenance"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.ConnectionStatus(context.Background(), "xero")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "provider under maintenance" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClient_SuccessFalseIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"message":"not connected"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	var apiErr *APIError
	if _, err := client.GetServicePreview(context.Background(), "xero", 5); !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.ConnectionStatus(context.Background(), "xero")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestClient_GetAuthorizationURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/integrations/quickbooks/auth-url" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"url":"https://auth.example.com/qb"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	url, err := client.GetAuthorizationURL(context.Background(), "quickbooks")
	if err != nil {
		t.Fatalf("GetAuthorizationURL() failed: %v", err)
	}
	if url != "https://auth.example.com/qb" {
		t.Errorf("url = %q", url)
	}
}

func TestClient_GetAuthorizationURLEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"url":""}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.GetAuthorizationURL(context.Background(), "quickbooks"); err == nil {
		t.Error("expected error for empty authorization URL")
	}
}

func TestClient_CreateBankSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/banking/session" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"clientSecret":"cs_123"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	secret, err := client.CreateBankSession(context.Background())
	if err != nil {
		t.Fatalf("CreateBankSession() failed: %v", err)
	}
	if secret != "cs_123" {
		t.Errorf("secret = %q", secret)
	}
}

func TestClient_ConnectBankBody(t *testing.T) {
	var body struct {
		Enrollment         Enrollment `json:"enrollment"`
		SelectedAccountIDs []string   `json:"selectedAccountIds"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/banking/connect" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	enrollment := Enrollment{AccessToken: "t", EnrollmentID: "e", InstitutionID: "i", InstitutionName: "First Bank"}
	if err := client.ConnectBank(context.Background(), enrollment, []string{"acc_1"}); err != nil {
		t.Fatalf("ConnectBank() failed: %v", err)
	}

	if body.Enrollment.EnrollmentID != "e" {
		t.Errorf("enrollment = %+v", body.Enrollment)
	}
	if len(body.SelectedAccountIDs) != 1 || body.SelectedAccountIDs[0] != "acc_1" {
		t.Errorf("selectedAccountIds = %v", body.SelectedAccountIDs)
	}
}

func TestClient_SaveSyncPreferencesNullMeansNoRestriction(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	prefs := SyncPreferences{SyncAccounts: true}
	if err := client.SaveSyncPreferences(context.Background(), "xero", prefs); err != nil {
		t.Fatalf("SaveSyncPreferences() failed: %v", err)
	}

	if string(raw["selectedAccountIds"]) != "null" {
		t.Errorf("selectedAccountIds = %s, want null", raw["selectedAccountIds"])
	}
	if string(raw["syncAccounts"]) != "true" {
		t.Errorf("syncAccounts = %s", raw["syncAccounts"])
	}
}

func TestBankAccount_GetBalance(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		want    string
		wantErr bool
	}{
		{"valid decimal", "1250.50", "1250.5", false},
		{"empty is zero", "", "0", false},
		{"negative", "-42.10", "-42.1", false},
		{"garbage", "n/a", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := BankAccount{BalanceString: tt.balance}
			got, err := account.GetBalance()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("GetBalance() failed: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("balance = %s, want %s", got, tt.want)
			}
		})
	}
}
