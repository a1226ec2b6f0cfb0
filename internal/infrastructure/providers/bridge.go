package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"ledgerlink/internal/domain/linking"
)

// CommandKind names an action the front-end must perform for the engine
type CommandKind string

const (
	CommandInjectScript    CommandKind = "inject_script"
	CommandOpenWidget      CommandKind = "open_widget"
	CommandCollectAccounts CommandKind = "collect_accounts"
	CommandOpenPopup       CommandKind = "open_popup"
)

// Command is one pending instruction for the front-end
type Command struct {
	ID            string      `json:"id"`
	Kind          CommandKind `json:"kind"`
	URL           string      `json:"url,omitempty"`
	ClientSecret  string      `json:"clientSecret,omitempty"`
	ApplicationID string      `json:"applicationId,omitempty"`
	Environment   string      `json:"environment,omitempty"`
	Width         int         `json:"width,omitempty"`
	Height        int         `json:"height,omitempty"`
}

// EventKind names a front-end report back to the engine
type EventKind string

const (
	EventScriptLoaded EventKind = "script_loaded"
	EventScriptFailed EventKind = "script_failed"
	EventWidgetResult EventKind = "widget_result"
	EventModalResult  EventKind = "modal_result"
	EventPopupOpened  EventKind = "popup_opened"
	EventPopupBlocked EventKind = "popup_blocked"
	EventPopupClosed  EventKind = "popup_closed"
)

// Event is one front-end report. CommandID ties it to the command it
// answers; EventPopupClosed is unsolicited and carries none.
type Event struct {
	CommandID string                `json:"commandId,omitempty"`
	Kind      EventKind             `json:"kind"`
	Error     string                `json:"error,omitempty"`
	Global    string                `json:"global,omitempty"`
	Widget    *linking.WidgetResult `json:"widget,omitempty"`
	Modal     *linking.ModalResult  `json:"modal,omitempty"`
}

// WidgetConfig carries the widget SDK initialization values the front-end
// needs alongside the open command.
type WidgetConfig struct {
	ApplicationID string
	Environment   string
}

// Bridge relays engine operations to the front-end as commands and blocks
// until the matching event is posted back. One bridge serves one session.
type Bridge struct {
	mu          sync.Mutex
	pending     []Command
	waiters     map[string]chan Event
	globals     map[string]bool
	widget      WidgetConfig
	popupClosed bool
}

// SetWidgetConfig records the widget initialization values attached to
// subsequent open_widget commands.
func (b *Bridge) SetWidgetConfig(cfg WidgetConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.widget = cfg
}

// NewBridge creates an empty bridge
func NewBridge() *Bridge {
	return &Bridge{
		waiters: make(map[string]chan Event),
		globals: make(map[string]bool),
	}
}

// Compile-time checks: the bridge provides every injected environment
// capability the engine needs.
var (
	_ linking.ScriptRuntime = (*Bridge)(nil)
	_ linking.WidgetClient  = (*Bridge)(nil)
	_ linking.ModalClient   = (*Bridge)(nil)
	_ linking.WindowOpener  = (*Bridge)(nil)
)

// Commands returns a copy of the commands awaiting the front-end
func (b *Bridge) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Command, len(b.pending))
	copy(out, b.pending)
	return out
}

// Deliver routes one front-end event to the operation waiting on it.
// EventPopupClosed is accepted at any time and only flips the closure flag
// read by the poll loop.
func (b *Bridge) Deliver(ev Event) error {
	b.mu.Lock()

	if ev.Kind == EventPopupClosed {
		b.popupClosed = true
		b.mu.Unlock()
		return nil
	}
	if ev.Kind == EventScriptLoaded && ev.Global != "" {
		b.globals[ev.Global] = true
	}

	waiter, ok := b.waiters[ev.CommandID]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("no pending command %q", ev.CommandID)
	}
	delete(b.waiters, ev.CommandID)
	b.removePendingLocked(ev.CommandID)
	b.mu.Unlock()

	waiter <- ev
	return nil
}

func (b *Bridge) removePendingLocked(commandID string) {
	for i, cmd := range b.pending {
		if cmd.ID == commandID {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

// issue publishes a command and blocks until its event arrives or the
// context ends.
func (b *Bridge) issue(ctx context.Context, cmd Command) (Event, error) {
	cmd.ID = uuid.NewString()
	waiter := make(chan Event, 1)

	b.mu.Lock()
	b.pending = append(b.pending, cmd)
	b.waiters[cmd.ID] = waiter
	b.mu.Unlock()

	select {
	case ev := <-waiter:
		return ev, nil
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.waiters, cmd.ID)
		b.removePendingLocked(cmd.ID)
		b.mu.Unlock()
		return Event{}, ctx.Err()
	}
}

// HasGlobal reports whether the front-end announced the SDK global
func (b *Bridge) HasGlobal(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.globals[name]
}

// InjectScript asks the front-end to load the SDK script and waits for the
// load/failure report.
func (b *Bridge) InjectScript(ctx context.Context, url string) error {
	ev, err := b.issue(ctx, Command{Kind: CommandInjectScript, URL: url})
	if err != nil {
		return err
	}
	if ev.Kind == EventScriptFailed {
		if ev.Error != "" {
			return errors.New(ev.Error)
		}
		return errors.New("script load failed")
	}
	return nil
}

// Open asks the front-end to open the provider widget and waits for its
// terminal callback payload.
func (b *Bridge) Open(ctx context.Context) (linking.WidgetResult, error) {
	b.mu.Lock()
	widget := b.widget
	b.mu.Unlock()

	ev, err := b.issue(ctx, Command{
		Kind:          CommandOpenWidget,
		ApplicationID: widget.ApplicationID,
		Environment:   widget.Environment,
	})
	if err != nil {
		return linking.WidgetResult{}, err
	}
	if ev.Error != "" {
		return linking.WidgetResult{}, errors.New(ev.Error)
	}
	if ev.Widget == nil {
		return linking.WidgetResult{}, errors.New("widget result missing payload")
	}
	return *ev.Widget, nil
}

// CollectAccounts asks the front-end to run the provider modal against the
// session secret and waits for the collected session.
func (b *Bridge) CollectAccounts(ctx context.Context, clientSecret string) (*linking.ModalResult, error) {
	ev, err := b.issue(ctx, Command{Kind: CommandCollectAccounts, ClientSecret: clientSecret})
	if err != nil {
		return nil, err
	}
	if ev.Error != "" {
		return nil, errors.New(ev.Error)
	}
	if ev.Modal == nil {
		return nil, errors.New("modal result missing payload")
	}
	return ev.Modal, nil
}

// OpenPopup asks the front-end to open the authorization popup. A blocked
// report fails immediately; an opened report returns a handle whose Closed
// flag the front-end flips with an unsolicited popup_closed event.
func (b *Bridge) OpenPopup(ctx context.Context, spec linking.PopupSpec) (linking.Popup, error) {
	b.mu.Lock()
	b.popupClosed = false
	b.mu.Unlock()

	ev, err := b.issue(ctx, Command{
		Kind:   CommandOpenPopup,
		URL:    spec.URL,
		Width:  spec.Width,
		Height: spec.Height,
	})
	if err != nil {
		return nil, err
	}
	if ev.Kind == EventPopupBlocked {
		if ev.Error != "" {
			return nil, errors.New(ev.Error)
		}
		return nil, errors.New("popup blocked by the browser")
	}
	return &bridgePopup{bridge: b}, nil
}

type bridgePopup struct {
	bridge *Bridge
}

func (p *bridgePopup) Closed() bool {
	p.bridge.mu.Lock()
	defer p.bridge.mu.Unlock()
	return p.bridge.popupClosed
}
