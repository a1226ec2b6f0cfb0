package notification

import "time"

// Level classifies a user-visible notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Event is one transient user-visible notification (a toast): short title
// plus descriptive body.
type Event struct {
	Level Level     `json:"level"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

// Notifier receives notifications produced by the linking flow, keyed by
// the session that produced them.
type Notifier interface {
	Notify(sessionID string, level Level, title, body string)
}
