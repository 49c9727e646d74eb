package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationKind indicates the visual severity of a notification.
type NotificationKind string

const (
	NotificationKindInfo    NotificationKind = "INFO"
	NotificationKindSuccess NotificationKind = "SUCCESS"
	NotificationKindWarning NotificationKind = "WARNING"
)

// Notification is a delivery-agnostic record emitted on link and ledger
// transitions. Rendering and push delivery are external concerns.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	Data        types.JSONText   `db:"data" json:"data,omitempty"`
	Read        bool             `db:"read" json:"read"`
	ReadAt      *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter captures listing criteria for the inbox projection.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Page        int
	PageSize    int
}
