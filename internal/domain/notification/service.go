package notification

import (
	"context"
	"log"
	"sync"
	"time"

	"ledgerlink/internal/shared/messages"
)

// feedLimit caps how many events are retained per session
const feedLimit = 20

// Service keeps a per-session feed of user-visible notifications and,
// when a messenger is configured, pushes the completion notification to the
// user's devices.
type Service struct {
	mu        sync.Mutex
	feeds     map[string][]Event
	messenger Messenger
	msgs      *messages.Messages
}

// NewService creates a notification service. messenger and msgs may be nil,
// in which case push delivery is skipped.
func NewService(messenger Messenger, msgs *messages.Messages) *Service {
	return &Service{
		feeds:     make(map[string][]Event),
		messenger: messenger,
		msgs:      msgs,
	}
}

// Notify records a transient notification for a session
func (s *Service) Notify(sessionID string, level Level, title, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed := append(s.feeds[sessionID], Event{
		Level: level,
		Title: title,
		Body:  body,
		At:    time.Now(),
	})
	if len(feed) > feedLimit {
		feed = feed[len(feed)-feedLimit:]
	}
	s.feeds[sessionID] = feed

	log.Printf("Session %s: [%s] %s: %s", sessionID, level, title, body)
}

// Feed returns a copy of the session's notification feed
func (s *Service) Feed(sessionID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	feed := s.feeds[sessionID]
	out := make([]Event, len(feed))
	copy(out, feed)
	return out
}

// Forget drops the feed for a discarded session
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, sessionID)
}

// PushLinkComplete sends the link-complete push notification to the given
// device tokens. No-op when no messenger or catalog is configured.
func (s *Service) PushLinkComplete(ctx context.Context, tokens []string) {
	if s.messenger == nil || s.msgs == nil || len(tokens) == 0 {
		return
	}
	msg := s.msgs.LinkComplete
	if err := s.messenger.SendMulticast(ctx, tokens, msg.Title, msg.Body, map[string]string{"type": "link_complete"}); err != nil {
		log.Printf("Failed to push link-complete notification: %v", err)
	}
}
