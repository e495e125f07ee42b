package main

import (
	"os"

	"github.com/forgedb/forgedb/internal/engine"
	"github.com/forgedb/forgedb/internal/snapshot"
	"github.com/forgedb/forgedb/internal/storage"
)

// newSession builds a session from cfg: an existing snapshot_path is
// loaded if present, DP_EPSILON/DP_SEED are applied, and the returned
// database is otherwise empty.
func newSession(cfg config) (*engine.Session, error) {
	db := storage.NewDB()
	if cfg.SnapshotPath != "" {
		if f, err := os.Open(cfg.SnapshotPath); err == nil {
			loaded, err := snapshot.Load(f)
			f.Close()
			if err != nil {
				return nil, err
			}
			db = loaded
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	sess := engine.NewSession(db)
	if cfg.DPEpsilon > 0 {
		sess.DPEpsilon = cfg.DPEpsilon
	}
	if cfg.DPSeed != 0 {
		sess.SeedDP(cfg.DPSeed)
	}
	return sess, nil
}

// saveSession persists sess's database back to cfg.SnapshotPath, a
// no-op when no snapshot path is configured.
func saveSession(sess *engine.Session, cfg config) error {
	if cfg.SnapshotPath == "" {
		return nil
	}
	f, err := os.Create(cfg.SnapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return snapshot.Write(f, sess.DB)
}
