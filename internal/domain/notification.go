package domain

import "time"

// Notification is write-only from this subsystem's point of view; the
// UI layer reads it elsewhere.
type Notification struct {
	ID        uint
	UserID    int64
	Title     string
	Body      string
	CreatedAt time.Time
}
