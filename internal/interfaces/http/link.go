package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ledgerlink/internal/domain/linking"
	"ledgerlink/internal/domain/notification"
	"ledgerlink/internal/infrastructure/providers"
)

// LinkHandler exposes the linking sessions over HTTP. Long-running engine
// operations (the handshake and the confirm/sync run) are started in their
// own goroutine and observed through the session snapshot and the progress
// stream.
type LinkHandler struct {
	registry *Registry
	notifier *notification.Service
}

// NewLinkHandler creates the linking session handler
func NewLinkHandler(registry *Registry, notifier *notification.Service) *LinkHandler {
	return &LinkHandler{registry: registry, notifier: notifier}
}

// HTTP request/response types (transport layer concerns)
type CreateSessionRequest struct {
	Family   string `json:"family"`
	Provider string `json:"provider"`
	// DeviceTokens are the caller's FCM registration tokens for the
	// completion push; optional.
	DeviceTokens []string `json:"deviceTokens,omitempty"`
}

// SessionResponse is the full session view the front-end renders from: the
// engine snapshot, the commands awaiting the front-end, and the notification
// feed.
type SessionResponse struct {
	linking.Snapshot
	Commands      []providers.Command  `json:"commands"`
	Notifications []notification.Event `json:"notifications"`
}

type SelectionRequest struct {
	Action    string `json:"action"` // toggleAccount | toggleAll | setCategory | toggleItem
	AccountID string `json:"accountId,omitempty"`
	Category  string `json:"category,omitempty"`
	Enabled   bool   `json:"enabled,omitempty"`
	ItemID    string `json:"itemId,omitempty"`
}

type ExitResponse struct {
	Redirect string `json:"redirect"`
}

// HandleCreateSession starts a new linking session for a provider
func (h *LinkHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		http.Error(w, "Provider is required", http.StatusBadRequest)
		return
	}

	entry, err := h.registry.Create(linking.ProviderFamily(req.Family), req.Provider, req.DeviceTokens)
	if err != nil {
		log.Printf("Error creating linking session: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Already-connected service providers skip straight to selection.
	entry.orch.Start(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.sessionResponse(entry))
}

// HandleSession returns or discards one session
func (h *LinkHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.sessionResponse(entry))
	case http.MethodDelete:
		h.registry.Remove(entry.orch.SessionID())
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleEvents accepts one front-end event and routes it to the engine
// operation waiting on it.
func (h *LinkHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	var ev providers.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := entry.bridge.Deliver(ev); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleNext advances the flow out of the intro step
func (h *LinkHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := entry.orch.Next(r.Context()); err != nil {
		h.engineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.sessionResponse(entry))
}

// HandleBack navigates one step back
func (h *LinkHandler) HandleBack(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := entry.orch.Back(r.Context()); err != nil {
		h.engineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.sessionResponse(entry))
}

// HandleConnect starts the provider handshake. The handshake outlives the
// request: it blocks on front-end events posted later, so it runs detached
// and the front-end follows it through the snapshot.
func (h *LinkHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	go func() {
		if err := entry.orch.Connect(context.Background()); err != nil {
			log.Printf("Session %s: connect rejected: %v", entry.orch.SessionID(), err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// HandleContinue delivers the manual "continue anyway" action to a waiting
// handshake.
func (h *LinkHandler) HandleContinue(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	entry.orch.ContinueAnyway()
	w.WriteHeader(http.StatusAccepted)
}

// HandlePreview re-runs the preview fetch as an explicit retry
func (h *LinkHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}
	if err := entry.orch.FetchPreview(r.Context()); err != nil {
		h.engineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.sessionResponse(entry))
}

// HandleSelection applies one selection edit
func (h *LinkHandler) HandleSelection(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Action {
	case "toggleAccount":
		err = entry.orch.ToggleAccount(req.AccountID)
	case "toggleAll":
		err = entry.orch.ToggleAll()
	case "setCategory":
		err = entry.orch.SetCategory(linking.Category(req.Category), req.Enabled)
	case "toggleItem":
		err = entry.orch.ToggleItem(linking.Category(req.Category), req.ItemID)
	default:
		http.Error(w, "Unknown selection action", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.engineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.sessionResponse(entry))
}

// HandleConfirm commits the selection and starts the sync run. The progress
// run blocks until it finishes, so it runs detached; the front-end follows
// it through the progress stream.
func (h *LinkHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	go func() {
		if err := entry.orch.Confirm(context.Background()); err != nil {
			log.Printf("Session %s: confirm failed: %v", entry.orch.SessionID(), err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// HandleExit leaves the completed flow and discards the session
func (h *LinkHandler) HandleExit(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.entry(w, r)
	if !ok {
		return
	}

	redirect, err := entry.orch.Exit()
	if err != nil {
		h.engineError(w, err)
		return
	}
	h.registry.Remove(entry.orch.SessionID())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ExitResponse{Redirect: redirect})
}

// entry resolves the session id path value, writing a 404 when it is unknown
func (h *LinkHandler) entry(w http.ResponseWriter, r *http.Request) (*sessionEntry, bool) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return nil, false
	}
	entry, ok := h.registry.Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return entry, true
}

func (h *LinkHandler) sessionResponse(entry *sessionEntry) SessionResponse {
	snap := entry.orch.Snapshot()
	return SessionResponse{
		Snapshot:      snap,
		Commands:      entry.bridge.Commands(),
		Notifications: h.notifier.Feed(snap.SessionID),
	}
}

func (h *LinkHandler) engineError(w http.ResponseWriter, err error) {
	if errors.Is(err, linking.ErrBusy) {
		http.Error(w, "Another operation is in progress", http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusUnprocessableEntity)
}
