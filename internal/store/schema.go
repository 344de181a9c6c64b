package store

import (
	"database/sql"
	"fmt"
)

// Schema version tracking:
// 1 - photos + meta
const currentSchemaVersion = 1

func Init(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS photos (
	id TEXT PRIMARY KEY,
	image_url TEXT,
	image_base64 TEXT,
	lat REAL,
	lon REAL,
	created_at INTEGER NOT NULL, -- unix nanoseconds, assigned by the store

	CHECK ((image_url IS NULL) <> (image_base64 IS NULL)),
	CHECK ((lat IS NULL) = (lon IS NULL))
);
`,
		`CREATE INDEX IF NOT EXISTS idx_photos_created ON photos(created_at);`,
		`
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`,
		fmt.Sprintf(`PRAGMA user_version=%d;`, currentSchemaVersion),
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}
