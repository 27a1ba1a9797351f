package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/scholarship-portal/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection keeps per-connection pragmas and in-memory databases
	// consistent; the cache sees one writer at a time anyway.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// snapshotRow mirrors a notification_snapshots row.
type snapshotRow struct {
	UserID      string    `db:"user_id"`
	SnapshotID  string    `db:"snapshot_id"`
	UnreadCount int       `db:"unread_count"`
	FetchedAt   time.Time `db:"fetched_at"`
}

// LoadSnapshot retrieves the cached snapshot for userID, or nil if none.
func (s *SQLiteStore) LoadSnapshot(
	ctx context.Context,
	userID string,
) (*Snapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, snapshot_id, unread_count, fetched_at
		FROM notification_snapshots WHERE user_id = ?`, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for %s: %w", userID, err)
	}

	var notifications []model.Notification
	err = s.db.SelectContext(ctx, &notifications, `
		SELECT id, title, message, type, link, read, created_at
		FROM cached_notifications
		WHERE user_id = ?
		ORDER BY position`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading cached notifications for %s: %w", userID, err)
	}

	return &Snapshot{
		ID:            row.SnapshotID,
		UserID:        row.UserID,
		Notifications: notifications,
		UnreadCount:   row.UnreadCount,
		FetchedAt:     row.FetchedAt,
	}, nil
}

// SaveSnapshot replaces the cached snapshot for snap.UserID in a single
// transaction. The listing order is preserved as fetched.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if snap.UserID == "" {
		return errors.New("saving snapshot: user id is required")
	}
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cached_notifications WHERE user_id = ?", snap.UserID,
	); err != nil {
		return fmt.Errorf("clearing cached notifications for %s: %w", snap.UserID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO notification_snapshots (
			user_id, snapshot_id, unread_count, fetched_at
		) VALUES (?, ?, ?, ?)`,
		snap.UserID, snap.ID, snap.UnreadCount, snap.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot for %s: %w", snap.UserID, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO cached_notifications (
			user_id, position, id, title, message, type, link, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing notification insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range snap.Notifications {
		_, err := stmt.ExecContext(ctx,
			snap.UserID, i, n.ID, n.Title, n.Message, n.Type, n.Link,
			boolToInt(n.Read), n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("caching notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteSnapshot removes the cached snapshot and its notifications.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM notification_snapshots WHERE user_id = ?", userID,
	)
	if err != nil {
		return fmt.Errorf("deleting snapshot for %s: %w", userID, err)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
