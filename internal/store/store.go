// Package store defines how session snapshots reach the routing core.
// The core itself is a pure function over a sessions.Store value; these
// loaders are the narrow collaborators that produce one.
package store

import (
	"context"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/sessions"

	"github.com/nextlevelbuilder/clawroute/internal/store/file"
	"github.com/nextlevelbuilder/clawroute/internal/store/sqlite"
)

// SnapshotLoader loads a point-in-time session store snapshot.
// Loaders degrade to an empty snapshot on missing storage; a new
// deployment with no history is not an error.
type SnapshotLoader interface {
	Load(ctx context.Context) (sessions.Store, error)
}

// ForConfig picks the loader matching the configured backend.
func ForConfig(cfg *config.Config) SnapshotLoader {
	storage := config.ExpandHome(cfg.Sessions.Storage)
	if cfg.Sessions.Backend == "sqlite" {
		return sqlite.NewLoader(storage)
	}
	return file.NewLoader(storage)
}
