package http

import (
	"context"
	"fmt"
	"sync"

	"ledgerlink/internal/domain/linking"
	"ledgerlink/internal/domain/notification"
	"ledgerlink/internal/infrastructure/ledgerapi"
	"ledgerlink/internal/infrastructure/providers"
	"ledgerlink/internal/shared/telemetry"
)

// sessionEntry pairs one session's orchestrator with the bridge the
// front-end drives it through.
type sessionEntry struct {
	orch   *linking.Orchestrator
	bridge *providers.Bridge
}

// Registry owns the live linking sessions. Sessions exist only in memory and
// are dropped on exit or delete.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	api      ledgerapi.ClientInterface
	factory  *providers.Factory
	notifier *notification.Service
}

// NewRegistry creates an empty session registry
func NewRegistry(api ledgerapi.ClientInterface, factory *providers.Factory, notifier *notification.Service) *Registry {
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		api:      api,
		factory:  factory,
		notifier: notifier,
	}
}

// Create builds a session, its bridge and its orchestrator for the given
// family/provider pair. deviceTokens, when present, receive the completion
// push notification.
func (r *Registry) Create(family linking.ProviderFamily, provider string, deviceTokens []string) (*sessionEntry, error) {
	if !family.Valid() {
		return nil, fmt.Errorf("unknown provider family %q", family)
	}

	session, err := linking.NewSession(family, provider)
	if err != nil {
		return nil, err
	}

	bridge := providers.NewBridge()
	clients, err := r.factory.Build(bridge, family, provider)
	if err != nil {
		return nil, err
	}

	orch := linking.NewOrchestrator(linking.OrchestratorConfig{
		Session:   session,
		API:       r.api,
		Runtime:   clients.Runtime,
		Script:    clients.Script,
		Handshake: clients.Handshake,
		Notifier:  r.notifier,
		OnComplete: func(sessionID string) {
			telemetry.LinksCompleted.Add(context.Background(), 1)
			r.notifier.PushLinkComplete(context.Background(), deviceTokens)
		},
	})

	entry := &sessionEntry{orch: orch, bridge: bridge}

	r.mu.Lock()
	r.sessions[session.ID] = entry
	r.mu.Unlock()

	telemetry.SessionsStarted.Add(context.Background(), 1)
	return entry, nil
}

// Get returns the entry for a session id
func (r *Registry) Get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	return entry, ok
}

// Remove drops a session and its notification feed
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	r.notifier.Forget(id)
}
