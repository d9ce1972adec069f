// Package file loads session snapshots from a directory of per-session
// JSON files, the standalone-mode store layout.
package file

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nextlevelbuilder/clawroute/internal/sessions"
)

// record is the on-disk shape: the entry plus its own key, so files can be
// relocated without renaming.
type record struct {
	Key string `json:"key"`
	sessions.Entry
}

// Loader reads every *.json file under dir into a snapshot.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load builds a snapshot from the store directory. A missing directory
// yields an empty snapshot; unreadable files are skipped with a warning so
// one corrupt session cannot block every resolution.
func (l *Loader) Load(_ context.Context) (sessions.Store, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return sessions.Store{}, nil
		}
		return nil, err
	}

	store := make(sessions.Store, len(entries))
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		path := filepath.Join(l.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable session file", "path", path, "error", err)
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Warn("skipping corrupt session file", "path", path, "error", err)
			continue
		}
		if rec.Key == "" {
			continue
		}
		store[rec.Key] = rec.Entry
	}
	return store, nil
}
