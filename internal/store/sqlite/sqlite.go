// Package sqlite loads session snapshots from a sqlite database, for
// deployments that migrated off flat files. Uses the pure-Go driver so the
// binary stays cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/clawroute/internal/sessions"
)

// Loader reads the sessions table from a sqlite database file.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load builds a snapshot from the database. A missing file yields an empty
// snapshot, matching the file loader's new-deployment behavior.
func (l *Loader) Load(ctx context.Context) (sessions.Store, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return sessions.Store{}, nil
	}

	db, err := sql.Open("sqlite", l.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT key, session_id, updated_at,
		       last_channel, last_to, last_account_id, last_thread_id,
		       transcript_path, compaction_count
		FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	store := sessions.Store{}
	for rows.Next() {
		var (
			key       string
			e         sessions.Entry
			updatedAt int64
		)
		if err := rows.Scan(&key, &e.SessionID, &updatedAt,
			&e.LastChannel, &e.LastTo, &e.LastAccountID, &e.LastThreadID,
			&e.TranscriptPath, &e.CompactionCount); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		store[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store, nil
}
