package linking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ledgerlink/internal/infrastructure/ledgerapi"
)

const (
	defaultPollInterval = 300 * time.Millisecond
	defaultGracePeriod  = 1500 * time.Millisecond
	defaultOAuthTimeout = 60 * time.Second

	popupWidth  = 600
	popupHeight = 720
)

// HandshakeRunner drives one provider authorization exchange and reports a
// single tagged outcome. The skip channel delivers the user's manual
// "continue anyway" action; strategies that have no waiting phase ignore it.
type HandshakeRunner interface {
	Run(ctx context.Context, skip <-chan struct{}) Outcome
}

// WidgetInstitution identifies the institution inside a widget enrollment
type WidgetInstitution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WidgetEnrollment is the enrollment object inside a widget success payload
type WidgetEnrollment struct {
	ID          string            `json:"id"`
	Institution WidgetInstitution `json:"institution"`
}

// WidgetResult is the terminal payload of one widget interaction. Completed
// is false when the user dismissed the hosted UI, which is a cancellation,
// not an error.
type WidgetResult struct {
	Completed   bool              `json:"completed"`
	AccessToken string            `json:"accessToken"`
	Enrollment  *WidgetEnrollment `json:"enrollment"`
}

// WidgetClient opens the provider's hosted enrollment UI and blocks until
// the user finishes or dismisses it.
type WidgetClient interface {
	Open(ctx context.Context) (WidgetResult, error)
}

// ModalResult is the session object returned by a modal-session collect call
type ModalResult struct {
	SessionID    string                  `json:"sessionId"`
	Accounts     []ledgerapi.BankAccount `json:"accounts"`
	ErrorMessage string                  `json:"errorMessage"`
}

// ModalClient runs the provider's account-collection modal against a
// backend-created session secret.
type ModalClient interface {
	CollectAccounts(ctx context.Context, clientSecret string) (*ModalResult, error)
}

// PopupSpec describes the fixed-size centered authorization popup
type PopupSpec struct {
	URL    string
	Width  int
	Height int
}

// Popup is a handle on an opened authorization window
type Popup interface {
	Closed() bool
}

// WindowOpener opens authorization popups. An open failure means the popup
// was blocked.
type WindowOpener interface {
	OpenPopup(ctx context.Context, spec PopupSpec) (Popup, error)
}

// WidgetStrategy drives the widget-based bank handshake: open the hosted UI,
// then validate the enrollment bundle it returns.
type WidgetStrategy struct {
	client WidgetClient
}

// NewWidgetStrategy creates the widget handshake strategy
func NewWidgetStrategy(client WidgetClient) *WidgetStrategy {
	return &WidgetStrategy{client: client}
}

// Run opens the widget and converts its callback payload into an outcome
func (s *WidgetStrategy) Run(ctx context.Context, _ <-chan struct{}) Outcome {
	res, err := s.client.Open(ctx)
	if err != nil {
		return errorOutcome(err, "The bank connection widget failed")
	}
	if !res.Completed {
		return cancelledOutcome()
	}

	if res.AccessToken == "" || res.Enrollment == nil || res.Enrollment.ID == "" ||
		res.Enrollment.Institution.ID == "" || res.Enrollment.Institution.Name == "" {
		return errorOutcome(ErrInvalidHandshake, "The bank returned an incomplete enrollment")
	}

	bundle := &HandshakeResult{
		Enrollment: &ledgerapi.Enrollment{
			AccessToken:     res.AccessToken,
			EnrollmentID:    res.Enrollment.ID,
			InstitutionID:   res.Enrollment.Institution.ID,
			InstitutionName: res.Enrollment.Institution.Name,
		},
	}
	return successOutcome(bundle)
}

// ModalStrategy drives the modal-session bank handshake: create a backend
// session, collect accounts through the provider modal. The returned
// accounts become the preview directly; no separate fetch follows.
type ModalStrategy struct {
	api    ledgerapi.ClientInterface
	client ModalClient
}

// NewModalStrategy creates the modal-session handshake strategy
func NewModalStrategy(api ledgerapi.ClientInterface, client ModalClient) *ModalStrategy {
	return &ModalStrategy{api: api, client: client}
}

// Run performs the session-create + collect exchange
func (s *ModalStrategy) Run(ctx context.Context, _ <-chan struct{}) Outcome {
	secret, err := s.api.CreateBankSession(ctx)
	if err != nil {
		return errorOutcome(err, backendMessage(err, "Could not start the connection session"))
	}

	res, err := s.client.CollectAccounts(ctx, secret)
	if err != nil {
		return errorOutcome(err, "The account collection modal failed")
	}
	if res.ErrorMessage != "" {
		return errorOutcome(errors.New(res.ErrorMessage), res.ErrorMessage)
	}
	if len(res.Accounts) == 0 {
		return cancelledOutcome()
	}

	out := successOutcome(&HandshakeResult{SessionID: res.SessionID})
	out.Accounts = res.Accounts
	return out
}

// PopupStrategy drives the service OAuth handshake: open the authorization
// URL in a popup, poll for its closure against a hard deadline, then
// continue optimistically after a grace period. Ambiguity in the final
// status check is tolerated; the preview fetch re-validates.
type PopupStrategy struct {
	api      ledgerapi.ClientInterface
	opener   WindowOpener
	provider string

	pollInterval time.Duration
	gracePeriod  time.Duration
	timeout      time.Duration
}

// NewPopupStrategy creates the popup OAuth strategy with default timings
func NewPopupStrategy(api ledgerapi.ClientInterface, opener WindowOpener, provider string) *PopupStrategy {
	return &PopupStrategy{
		api:          api,
		opener:       opener,
		provider:     provider,
		pollInterval: defaultPollInterval,
		gracePeriod:  defaultGracePeriod,
		timeout:      defaultOAuthTimeout,
	}
}

// WithTimings overrides the poll/grace/timeout durations; zero values keep
// the defaults.
func (s *PopupStrategy) WithTimings(poll, grace, timeout time.Duration) *PopupStrategy {
	if poll > 0 {
		s.pollInterval = poll
	}
	if grace >= 0 {
		s.gracePeriod = grace
	}
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// Run performs the full popup OAuth exchange
func (s *PopupStrategy) Run(ctx context.Context, skip <-chan struct{}) Outcome {
	authURL, err := s.api.GetAuthorizationURL(ctx, s.provider)
	if err != nil {
		return errorOutcome(err, backendMessage(err, "Could not start the authorization"))
	}

	popup, err := s.opener.OpenPopup(ctx, PopupSpec{URL: authURL, Width: popupWidth, Height: popupHeight})
	if err != nil {
		return errorOutcome(fmt.Errorf("%w: %v", ErrPopupBlocked, err),
			"The authorization popup was blocked. Allow popups for this site and try again.")
	}

	if s.waitForClosure(ctx, popup, skip) {
		// Let the backend finish processing the OAuth callback before asking.
		select {
		case <-time.After(s.gracePeriod):
		case <-ctx.Done():
		}
	}

	connected, err := s.api.ConnectionStatus(ctx, s.provider)
	if err != nil || !connected {
		log.Printf("Provider %s: status check inconclusive after authorization (connected=%v, err=%v), continuing",
			s.provider, connected, err)
	}

	return successOutcome(&HandshakeResult{Connected: true})
}

// waitForClosure polls popup closure at the configured interval, raced
// against the hard deadline and the manual continue signal. All exits share
// the same deferred cleanup, so the ticker is stopped exactly once and no
// further poll fires afterwards. Returns true only when closure was
// actually observed.
func (s *PopupStrategy) waitForClosure(ctx context.Context, popup Popup, skip <-chan struct{}) bool {
	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if popup.Closed() {
				return true
			}
		case <-skip:
			return false
		case <-waitCtx.Done():
			return false
		}
	}
}

// backendMessage surfaces the backend-provided error message when present,
// otherwise the generic fallback.
func backendMessage(err error, fallback string) string {
	var apiErr *ledgerapi.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
