package store

import (
	"context"
	"time"

	"github.com/nhle/scholarship-portal/internal/model"
)

// Snapshot is the last successful notification fetch for one user. It is
// always written whole; individual notifications are never patched.
type Snapshot struct {
	// ID identifies this particular write of the snapshot.
	ID            string
	UserID        string
	Notifications []model.Notification
	UnreadCount   int
	FetchedAt     time.Time
}

// Store defines the local persistence interface for cached notification
// snapshots.
type Store interface {
	// LoadSnapshot returns nil, nil when nothing is cached for userID.
	LoadSnapshot(ctx context.Context, userID string) (*Snapshot, error)

	// SaveSnapshot replaces whatever is cached for snap.UserID.
	SaveSnapshot(ctx context.Context, snap Snapshot) error

	// DeleteSnapshot drops the cache of userID, e.g. on sign-out.
	DeleteSnapshot(ctx context.Context, userID string) error

	Close() error
}
