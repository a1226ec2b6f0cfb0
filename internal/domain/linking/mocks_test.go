package linking

import (
	"context"
	"sync"

	"ledgerlink/internal/domain/notification"
	"ledgerlink/internal/infrastructure/ledgerapi"
)

// mockAPI implements ledgerapi.ClientInterface with overridable functions
type mockAPI struct {
	ConnectionStatusFunc    func(ctx context.Context, provider string) (bool, error)
	GetServicePreviewFunc   func(ctx context.Context, provider string, limit int) (ledgerapi.ServicePreview, error)
	SaveSyncPreferencesFunc func(ctx context.Context, provider string, prefs ledgerapi.SyncPreferences) error
	StartSyncFunc           func(ctx context.Context, provider string) error
	GetAuthorizationURLFunc func(ctx context.Context, provider string) (string, error)
	GetBankPreviewFunc      func(ctx context.Context, enrollment ledgerapi.Enrollment) (*ledgerapi.BankPreview, error)
	CreateBankSessionFunc   func(ctx context.Context) (string, error)
	ConnectBankFunc         func(ctx context.Context, enrollment ledgerapi.Enrollment, selectedAccountIDs []string) error
}

var _ ledgerapi.ClientInterface = (*mockAPI)(nil)

func (m *mockAPI) ConnectionStatus(ctx context.Context, provider string) (bool, error) {
	if m.ConnectionStatusFunc == nil {
		return false, nil
	}
	return m.ConnectionStatusFunc(ctx, provider)
}

func (m *mockAPI) GetServicePreview(ctx context.Context, provider string, limit int) (ledgerapi.ServicePreview, error) {
	if m.GetServicePreviewFunc == nil {
		return nil, nil
	}
	return m.GetServicePreviewFunc(ctx, provider, limit)
}

func (m *mockAPI) SaveSyncPreferences(ctx context.Context, provider string, prefs ledgerapi.SyncPreferences) error {
	if m.SaveSyncPreferencesFunc == nil {
		return nil
	}
	return m.SaveSyncPreferencesFunc(ctx, provider, prefs)
}

func (m *mockAPI) StartSync(ctx context.Context, provider string) error {
	if m.StartSyncFunc == nil {
		return nil
	}
	return m.StartSyncFunc(ctx, provider)
}

func (m *mockAPI) GetAuthorizationURL(ctx context.Context, provider string) (string, error) {
	if m.GetAuthorizationURLFunc == nil {
		return "https://auth.example.com/authorize", nil
	}
	return m.GetAuthorizationURLFunc(ctx, provider)
}

func (m *mockAPI) GetBankPreview(ctx context.Context, enrollment ledgerapi.Enrollment) (*ledgerapi.BankPreview, error) {
	if m.GetBankPreviewFunc == nil {
		return &ledgerapi.BankPreview{}, nil
	}
	return m.GetBankPreviewFunc(ctx, enrollment)
}

func (m *mockAPI) CreateBankSession(ctx context.Context) (string, error) {
	if m.CreateBankSessionFunc == nil {
		return "secret", nil
	}
	return m.CreateBankSessionFunc(ctx)
}

func (m *mockAPI) ConnectBank(ctx context.Context, enrollment ledgerapi.Enrollment, selectedAccountIDs []string) error {
	if m.ConnectBankFunc == nil {
		return nil
	}
	return m.ConnectBankFunc(ctx, enrollment, selectedAccountIDs)
}

// fakeRuntime implements ScriptRuntime
type fakeRuntime struct {
	globals     map[string]bool
	injectErr   error
	injectCalls int
}

func (r *fakeRuntime) HasGlobal(name string) bool {
	return r.globals[name]
}

func (r *fakeRuntime) InjectScript(ctx context.Context, url string) error {
	r.injectCalls++
	return r.injectErr
}

// recordedEvent is one captured notification
type recordedEvent struct {
	SessionID string
	Level     notification.Level
	Title     string
	Body      string
}

// recorderNotifier captures notifications for assertions
type recorderNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

var _ notification.Notifier = (*recorderNotifier)(nil)

func (r *recorderNotifier) Notify(sessionID string, level notification.Level, title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{SessionID: sessionID, Level: level, Title: title, Body: body})
}

func (r *recorderNotifier) last() (recordedEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return recordedEvent{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *recorderNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// stubRunner returns a fixed outcome
type stubRunner struct {
	outcome Outcome
	calls   int
}

func (s *stubRunner) Run(ctx context.Context, skip <-chan struct{}) Outcome {
	s.calls++
	return s.outcome
}
