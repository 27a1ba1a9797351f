package model

import "time"

// Notification is a portal notification as returned by the listing
// endpoint. The client mirrors it read-only; state changes only happen
// through the portal's mutation endpoints.
type Notification struct {
	// ID is the opaque identifier assigned by the portal.
	ID string `json:"id" db:"id"`

	// Title is the short headline shown in lists.
	Title string `json:"title" db:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Type is the portal's category label (e.g. "application", "requirement").
	Type string `json:"type" db:"type"`

	// Link is an optional in-portal route the notification points at.
	Link string `json:"link,omitempty" db:"link"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is used by the portal for display ordering only.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
