package linking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"ledgerlink/internal/domain/notification"
	"ledgerlink/internal/infrastructure/ledgerapi"
	"ledgerlink/internal/shared/telemetry"
)

// Orchestrator owns one linking session end to end. The step state machine
// gates which component may act; every component failure is converted into a
// notification plus a stay/regress/block action. Nothing is retried
// automatically; every retry is a fresh user action.
type Orchestrator struct {
	mu      sync.Mutex
	session *Session

	api       ledgerapi.ClientInterface
	loader    *SDKLoader
	script    ProviderScript
	handshake HandshakeRunner
	preview   *PreviewManager
	commit    *CommitDriver
	notifier  notification.Notifier

	// busy guards against a second in-flight operation on this session.
	busy bool
	// skip delivers the manual "continue anyway" action to a waiting
	// handshake; recreated per attempt, nilled exactly once when consumed.
	skip chan struct{}

	progressSubs map[chan int]bool
	onComplete   func(sessionID string)
}

// OrchestratorConfig wires an orchestrator's collaborators
type OrchestratorConfig struct {
	Session   *Session
	API       ledgerapi.ClientInterface
	Runtime   ScriptRuntime
	Script    ProviderScript
	Handshake HandshakeRunner
	Notifier  notification.Notifier

	// ProgressTick overrides the simulated sync tick; zero keeps the default.
	ProgressTick time.Duration
	// OnComplete runs once when the session reaches the terminal step.
	OnComplete func(sessionID string)
}

// NewOrchestrator creates an orchestrator for one session
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		session:      cfg.Session,
		api:          cfg.API,
		loader:       NewSDKLoader(cfg.Runtime),
		script:       cfg.Script,
		handshake:    cfg.Handshake,
		preview:      NewPreviewManager(cfg.API),
		commit:       NewCommitDriver(cfg.API).WithTick(cfg.ProgressTick),
		notifier:     cfg.Notifier,
		progressSubs: make(map[chan int]bool),
		onComplete:   cfg.OnComplete,
	}
}

// SessionID returns the owned session's id
func (o *Orchestrator) SessionID() string {
	return o.session.ID
}

// Start runs the on-mount shortcut: a service provider that is already
// connected jumps straight to the select step and fetches the preview
// without a fresh handshake. Bank sessions and unconnected services start
// at the intro step.
func (o *Orchestrator) Start(ctx context.Context) {
	if o.session.Family != FamilyService {
		return
	}

	connected, err := o.api.ConnectionStatus(ctx, o.session.Provider)
	if err != nil {
		log.Printf("Session %s: mount status check failed: %v", o.session.ID, err)
		return
	}
	if !connected {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.session.Flow.JumpTo(StepSelect); err != nil {
		log.Printf("Session %s: %v", o.session.ID, err)
		return
	}
	o.session.Handshake = &HandshakeResult{Connected: true}
	o.fetchPreviewLocked(ctx)
}

// Next advances from the intro step and, on entering the connect step,
// makes the deferred SDK load attempt for providers that need a script.
func (o *Orchestrator) Next(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.Flow.Current() != StepIntro {
		return fmt.Errorf("next is only available from the intro step")
	}
	o.session.Flow.Advance()
	o.ensureSDKLocked(ctx)
	return nil
}

// Back navigates one step back; only the connect/authorize and select steps
// allow it. Re-entering the connect step re-triggers a failed SDK load.
func (o *Orchestrator) Back(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.busy {
		return ErrBusy
	}
	if err := o.session.Flow.Prev(); err != nil {
		return err
	}
	o.ensureSDKLocked(ctx)
	return nil
}

// ensureSDKLocked makes one load attempt when the current step needs the
// provider script. Load failures become notifications; the user retries by
// leaving and re-entering the step.
func (o *Orchestrator) ensureSDKLocked(ctx context.Context) {
	if o.script.GlobalName == "" {
		return
	}
	if o.session.Flow.Current() != o.session.Flow.connectStep() {
		return
	}
	if err := o.loader.EnsureLoaded(ctx, o.session, o.script); err != nil {
		switch {
		case errors.Is(err, ErrConfiguration):
			o.notifyLocked(notification.LevelError, "Provider not configured",
				"This provider is missing its configuration. Contact support.")
		default:
			o.notifyLocked(notification.LevelError, "Could not load the provider",
				"The connection script failed to load. Go back and try again.")
		}
	}
}

// Connect runs the provider handshake for the current session. It blocks
// until the handshake produces its outcome, so callers run it from their own
// goroutine; only one attempt may be in flight.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	if cur := o.session.Flow.Current(); cur != o.session.Flow.connectStep() {
		o.mu.Unlock()
		return fmt.Errorf("cannot connect from step %q", cur)
	}
	if o.script.GlobalName != "" && !o.session.SDKReady {
		o.mu.Unlock()
		return fmt.Errorf("provider SDK is not ready")
	}
	o.busy = true
	skip := make(chan struct{})
	o.skip = skip
	runner := o.handshake
	o.mu.Unlock()

	outcome := runner.Run(ctx, skip)
	o.finishHandshake(ctx, outcome)
	return nil
}

// ContinueAnyway delivers the manual continuation action to a handshake
// waiting on popup closure. Safe to call when nothing is waiting.
func (o *Orchestrator) ContinueAnyway() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.skip != nil {
		close(o.skip)
		o.skip = nil
	}
}

// finishHandshake feeds the tagged outcome into the state machine
func (o *Orchestrator) finishHandshake(ctx context.Context, out Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.busy = false
	o.skip = nil

	switch out.Kind {
	case OutcomeCancelled:
		// User dismissed the provider UI; stay on the connect step.
		return

	case OutcomeError:
		telemetry.HandshakeFailures.Add(ctx, 1)
		o.notifyLocked(notification.LevelError, "Connection failed", out.Reason)
		// Handshake errors keep the user on the connect step; a regression is
		// only needed when the failure arrived after a transition, which the
		// preview path handles itself.
		if err := o.session.Flow.Regress(o.session.Flow.connectStep()); err != nil {
			log.Printf("Session %s: %v", o.session.ID, err)
		}
		return

	case OutcomeSuccess:
		o.session.Handshake = out.Bundle

		if len(out.Accounts) > 0 {
			// Modal-session strategy: the collected accounts are the preview.
			o.session.Preview = &Preview{
				Accounts:      out.Accounts,
				TotalAccounts: len(out.Accounts),
			}
			o.session.Selection = NewSelection(o.session.Family)
			o.session.Flow.Advance()
			return
		}

		o.session.Flow.Advance()
		o.fetchPreviewLocked(ctx)
	}
}

// FetchPreview re-runs the preview fetch as an explicit user retry after a
// regression. Requires a completed handshake.
func (o *Orchestrator) FetchPreview(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.busy {
		return ErrBusy
	}
	if o.session.Handshake == nil {
		return ErrHandshakeRequired
	}
	if o.session.Flow.Current() == o.session.Flow.connectStep() {
		o.session.Flow.Advance()
	}
	o.fetchPreviewLocked(ctx)
	return nil
}

// fetchPreviewLocked fetches the preview for the session's family and
// applies the regress-on-failure rule. Caller holds the lock.
func (o *Orchestrator) fetchPreviewLocked(ctx context.Context) {
	var (
		preview *Preview
		err     error
	)
	switch o.session.Family {
	case FamilyBank:
		preview, err = o.preview.FetchBank(ctx, o.session.Handshake)
	case FamilyService:
		preview, err = o.preview.FetchService(ctx, o.session.Provider, o.session.Handshake)
	}

	if err != nil {
		o.session.Preview = nil
		if errors.Is(err, ErrEmptyPreview) {
			o.notifyLocked(notification.LevelError, "Nothing to link",
				"No accounts or data were found for this connection. Try connecting again.")
		} else {
			o.notifyLocked(notification.LevelError, "Could not load your data",
				backendMessage(err, "Fetching the account preview failed. Try again."))
		}
		if rerr := o.session.Flow.Regress(o.session.Flow.connectStep()); rerr != nil {
			log.Printf("Session %s: %v", o.session.ID, rerr)
		}
		return
	}

	o.session.Preview = preview
	o.session.Selection = NewSelection(o.session.Family)
}

// ToggleAccount flips one bank account id in the selection
func (o *Orchestrator) ToggleAccount(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireSelectLocked(); err != nil {
		return err
	}
	o.session.Selection.ToggleAccount(id)
	return nil
}

// ToggleAll bulk-toggles the bank selection against the current preview
func (o *Orchestrator) ToggleAll() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireSelectLocked(); err != nil {
		return err
	}
	o.session.Selection.ToggleAll(o.session.Preview.AccountIDs())
	return nil
}

// SetCategory enables or disables one service category
func (o *Orchestrator) SetCategory(c Category, enabled bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireSelectLocked(); err != nil {
		return err
	}
	return o.session.Selection.SetCategory(c, enabled)
}

// ToggleItem flips one item id inside a service category
func (o *Orchestrator) ToggleItem(c Category, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireSelectLocked(); err != nil {
		return err
	}
	return o.session.Selection.ToggleItem(c, id)
}

func (o *Orchestrator) requireSelectLocked() error {
	if o.session.Flow.Current() != StepSelect {
		return fmt.Errorf("selection is only editable on the select step")
	}
	if o.session.Preview == nil {
		return fmt.Errorf("no preview loaded")
	}
	return nil
}

// Confirm validates the selection, commits it, then drives the simulated
// sync progress to 100 and the flow to the terminal step. Blocks for the
// duration of the progress run; callers use their own goroutine. An empty
// selection blocks locally without any backend call.
func (o *Orchestrator) Confirm(ctx context.Context) error {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	if cur := o.session.Flow.Current(); cur != StepSelect {
		o.mu.Unlock()
		return fmt.Errorf("cannot confirm from step %q", cur)
	}
	if err := o.session.Selection.Validate(); err != nil {
		o.notifyLocked(notification.LevelError, "Nothing selected",
			"Select at least one account or data category to continue.")
		o.mu.Unlock()
		return err
	}
	o.busy = true
	family := o.session.Family
	provider := o.session.Provider
	bundle := o.session.Handshake
	sel := o.session.Selection
	o.mu.Unlock()

	var err error
	switch family {
	case FamilyBank:
		err = o.commit.ConnectBank(ctx, bundle, sel.AccountIDs())
	case FamilyService:
		err = o.commit.CommitService(ctx, provider, sel)
	}

	o.mu.Lock()
	if err != nil {
		o.busy = false
		o.session.SyncProgress = 0
		o.notifyLocked(notification.LevelError, "Could not start the sync",
			backendMessage(err, "Saving your selection failed. Try again."))
		if rerr := o.session.Flow.Regress(StepSelect); rerr != nil {
			log.Printf("Session %s: %v", o.session.ID, rerr)
		}
		o.mu.Unlock()
		return err
	}
	o.session.SyncProgress = 0
	o.session.Flow.Advance() // select → sync
	o.mu.Unlock()

	progressErr := o.commit.DriveProgress(ctx, o.reportProgress)

	o.mu.Lock()
	o.busy = false
	if progressErr != nil || o.session.SyncProgress < progressMax {
		log.Printf("Session %s: progress run ended early: %v", o.session.ID, progressErr)
		o.mu.Unlock()
		return nil
	}
	if o.session.Flow.Current() == StepSync {
		o.session.Flow.Advance() // sync → complete, exactly once
		o.notifyLocked(notification.LevelSuccess, "Account linked",
			"Your data is syncing in the background.")
	}
	done := o.onComplete
	sessionID := o.session.ID
	o.mu.Unlock()

	if done != nil {
		done(sessionID)
	}
	return nil
}

// reportProgress records one progress value and fans it out to subscribers.
// Values never decrease within a run; 0 marks the start of a new run.
func (o *Orchestrator) reportProgress(p int) {
	o.mu.Lock()
	if p == 0 || p > o.session.SyncProgress {
		o.session.SyncProgress = p
	}
	subs := make([]chan int, 0, len(o.progressSubs))
	for ch := range o.progressSubs {
		subs = append(subs, ch)
	}
	o.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// SubscribeProgress registers a progress listener; the returned func
// unsubscribes it.
func (o *Orchestrator) SubscribeProgress() (<-chan int, func()) {
	ch := make(chan int, 16)

	o.mu.Lock()
	o.progressSubs[ch] = true
	o.mu.Unlock()

	return ch, func() {
		o.mu.Lock()
		delete(o.progressSubs, ch)
		o.mu.Unlock()
	}
}

// Exit leaves the terminal step and reports the destination dashboard path.
// The session is discarded by the caller afterwards.
func (o *Orchestrator) Exit() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.Flow.Current() != StepComplete {
		return "", fmt.Errorf("cannot exit before the flow completes")
	}
	if o.session.Family == FamilyBank {
		return "/dashboard/accounts", nil
	}
	return "/dashboard/integrations", nil
}

func (o *Orchestrator) notifyLocked(level notification.Level, title, body string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(o.session.ID, level, title, body)
}
