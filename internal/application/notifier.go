package application

import (
	"context"
	"time"
)

const (
	NotifyWelcome        = "welcome"
	NotifyProfileUpdated = "profile_updated"
	NotifyAccountDeleted = "account_deleted"
)

// Notification tells an account holder about a change to their account.
// It never carries credentials.
type Notification struct {
	Type    string
	To      string
	Name    string
	Changes map[string]string
	At      time.Time
}

// Notifier delivers notifications, usually by handing them to a queue.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
