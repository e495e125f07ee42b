package engine

import (
	"os"

	"github.com/forgedb/forgedb/internal/snapshot"
	"github.com/forgedb/forgedb/internal/storage"
)

func (s *Session) execSave(sv *Save) *QueryResult {
	f, err := os.Create(sv.Path)
	if err != nil {
		return failResult(storage.ErrIO, "cannot create %q: %s", sv.Path, err)
	}
	defer f.Close()
	if err := snapshot.Write(f, s.DB); err != nil {
		return failResult(storage.ErrIO, "cannot write %q: %s", sv.Path, err)
	}
	return statusResult("SAVE DATABASE")
}

// execLoad parses the target file into a scratch database and only
// swaps it into the live session on success (spec §9: "Load should
// parse into a temporary database and atomically swap on success so a
// malformed file cannot corrupt the running state").
func (s *Session) execLoad(ld *Load) *QueryResult {
	f, err := os.Open(ld.Path)
	if err != nil {
		return failResult(storage.ErrIO, "cannot open %q: %s", ld.Path, err)
	}
	defer f.Close()

	loaded, err := snapshot.Load(f)
	if err != nil {
		return failResult(storage.ErrIO, "malformed snapshot %q: %s", ld.Path, err)
	}

	clock := s.DB.Clock
	*s.DB = *loaded
	s.DB.Clock = clock
	return statusResult("LOAD DATABASE")
}
