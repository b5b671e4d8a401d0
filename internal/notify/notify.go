// Package notify delivers transient user-visible notifications (toasts)
// produced by state-changing operations. Browser sessions subscribe over a
// websocket; domain code records notices through the Notifier interface.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Level classifies a notification for presentation.
type Level string

// Notification levels.
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is a single transient message addressed to one actor.
type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier records user-visible notifications. Implementations must not
// block the calling operation.
type Notifier interface {
	Notify(actor uuid.UUID, level Level, message string)
}

// Discard is a Notifier that drops all notifications.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(uuid.UUID, Level, string) {}
