package engine

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/forgedb/forgedb/internal/storage"
)

// StagedKind discriminates a staged mutation's shape: the tagged
// variant recommended by spec §9 in place of apply/undo closures.
type StagedKind int

const (
	StagedInsert StagedKind = iota
	StagedUpdate
	StagedDelete
)

// StagedMutation is one write recorded while a session is in a
// transaction. It carries the original statement value (never a
// closure), deferred for execution at COMMIT. Because the store is
// left untouched until COMMIT, ROLLBACK only needs to discard the
// staged list to restore the pre-BEGIN store exactly (spec §4.9).
type StagedMutation struct {
	Kind   StagedKind
	Insert *Insert
	Update *Update
	Delete *Delete
}

// Session is one client's connection to a DB: its transaction state,
// its staged writes, and its differential-privacy knobs (epsilon and
// a session-local RNG), per spec §4.9/§4.10.
type Session struct {
	DB        *storage.DB
	ID        string
	InTx      bool
	Staged    []StagedMutation
	DPEpsilon float64
	rng       *rand.Rand
}

// defaultDPSeed is the fixed default seed for reproducible Laplace
// sampling (spec §4.10: "default seed fixed for test reproducibility").
const defaultDPSeed = 1

// NewSession returns a session over db with DP_EPSILON defaulted to
// 1.0 and the DP RNG seeded deterministically. A fresh uuid tags the
// session for logging; it plays no role in query semantics.
func NewSession(db *storage.DB) *Session {
	return &Session{
		DB:        db,
		ID:        uuid.NewString(),
		DPEpsilon: 1.0,
		rng:       rand.New(rand.NewSource(defaultDPSeed)),
	}
}

// SeedDP reseeds the session's differential-privacy RNG, for
// reproducible property tests.
func (s *Session) SeedDP(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// Execute parses sql into a single statement and runs it.
func (s *Session) Execute(sql string) *QueryResult {
	stmt, err := NewParser(sql).ParseStatement()
	if err != nil {
		return failResult(storage.ErrParse, "%s", err.Error())
	}
	return s.ExecuteStatement(stmt)
}

// ExecuteStatement runs one already-parsed statement.
func (s *Session) ExecuteStatement(stmt Statement) *QueryResult {
	switch st := stmt.(type) {
	case *CreateTable:
		return s.execCreateTable(st)
	case *DropTable:
		return s.execDropTable(st)
	case *Insert:
		if s.InTx {
			s.Staged = append(s.Staged, StagedMutation{Kind: StagedInsert, Insert: st})
			return statusResult("INSERT staged")
		}
		return s.execInsert(st)
	case *Update:
		if s.InTx {
			s.Staged = append(s.Staged, StagedMutation{Kind: StagedUpdate, Update: st})
			return statusResult("UPDATE staged")
		}
		return s.execUpdate(st)
	case *Delete:
		if s.InTx {
			s.Staged = append(s.Staged, StagedMutation{Kind: StagedDelete, Delete: st})
			return statusResult("DELETE staged")
		}
		return s.execDelete(st)
	case *Select:
		return s.execSelect(st)
	case *SetStmt:
		s.DPEpsilon = st.Value
		return statusResult("SET DP_EPSILON")
	case *Save:
		return s.execSave(st)
	case *Load:
		return s.execLoad(st)
	case *Begin:
		if s.InTx {
			return failResult(storage.ErrTransaction, "already in a transaction")
		}
		s.InTx = true
		s.Staged = nil
		return statusResult("BEGIN")
	case *Commit:
		if !s.InTx {
			return failResult(storage.ErrTransaction, "not in a transaction")
		}
		for _, m := range s.Staged {
			switch m.Kind {
			case StagedInsert:
				s.execInsert(m.Insert)
			case StagedUpdate:
				s.execUpdate(m.Update)
			case StagedDelete:
				s.execDelete(m.Delete)
			}
		}
		s.Staged = nil
		s.InTx = false
		return statusResult("COMMIT")
	case *Rollback:
		if !s.InTx {
			return failResult(storage.ErrTransaction, "not in a transaction")
		}
		s.Staged = nil
		s.InTx = false
		return statusResult("ROLLBACK")
	case *Exit:
		return statusResult("EXIT")
	case *Invalid:
		return failResult(storage.ErrParse, "%s", st.Err)
	default:
		return failResult(storage.ErrUnsupported, "unsupported statement")
	}
}

func (s *Session) execCreateTable(ct *CreateTable) *QueryResult {
	if s.DB.Catalog.Has(ct.Table) {
		return failResult(storage.ErrSchema, "table %q already exists", ct.Table)
	}
	cols := make([]storage.Column, len(ct.Columns))
	mergeable := false
	for i, cd := range ct.Columns {
		cols[i] = storage.Column{
			Name: cd.Name, Type: cd.Type, Merge: cd.Merge,
			VectorDim: cd.VectorDim, PrimaryKey: cd.PrimaryKey,
		}
		if cd.Merge.Kind != storage.MergeNone {
			mergeable = true
		}
	}
	table := storage.NewTable(ct.Table, cols, mergeable)
	s.DB.CreateTable(table)
	return statusResult("CREATE TABLE")
}

func (s *Session) execDropTable(dt *DropTable) *QueryResult {
	if !s.DB.Catalog.Has(dt.Table) {
		return failResult(storage.ErrSchema, "unknown table %q", dt.Table)
	}
	s.DB.DropTable(dt.Table)
	return statusResult("DROP TABLE")
}
