package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_snapshots (
	user_id      TEXT PRIMARY KEY,
	snapshot_id  TEXT NOT NULL,
	unread_count INTEGER NOT NULL DEFAULT 0,
	fetched_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cached_notifications (
	user_id    TEXT NOT NULL
		REFERENCES notification_snapshots(user_id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT '',
	link       TEXT NOT NULL DEFAULT '',
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, position)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_cached_notifications_user_read
	ON cached_notifications(user_id, read);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
