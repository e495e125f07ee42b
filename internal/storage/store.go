package storage

import (
	"strconv"
	"time"
)

// MaxTx marks a row version as currently live: tx_to = +∞.
const MaxTx int64 = 1<<63 - 1

const defaultValidTo = "9999-12-31T23:59:59Z"

// Clock supplies the wall-clock timestamp stamped into a row version's
// valid_from on write. Production code uses RealClock; tests inject a
// fixed clock for determinism (spec §9, "Save/Load and wall-clock").
type Clock interface {
	Now() time.Time
}

// RealClock is the default Clock, backed by time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a deterministic Clock for tests.
type FixedClock struct{ At time.Time }

func (f FixedClock) Now() time.Time { return f.At }

// RowVersion is one append-only version of a row: its transaction-time
// bounds [TxFrom, TxTo), its application-valid-time bounds [ValidFrom,
// ValidTo), and the row's data aligned to the table's columns at the time
// this version was created.
type RowVersion struct {
	RowID     string
	TxFrom    int64
	TxTo      int64
	ValidFrom string
	ValidTo   string
	Data      []Value
}

// Live reports whether this version is the currently-live one (tx_to = +∞).
func (rv *RowVersion) Live() bool { return rv.TxTo == MaxTx }

// VisibleAt reports whether this version is visible at the given
// transaction-time point: tx_from <= asofTx < tx_to.
func (rv *RowVersion) VisibleAt(asofTx int64) bool {
	return rv.TxFrom <= asofTx && asofTx < rv.TxTo
}

// TableData is a table's append-only version sequence plus a live-index
// map from row_id to the index of that row's currently-live version
// (the "recommended redesign" of spec §9, turning the linear-scan lookup
// used for visibility-at-+∞ into an O(1) one; scans over Versions are
// still used for AS OF TX reads and for predicate evaluation).
type TableData struct {
	Def      *Table
	Versions []RowVersion
	live     map[string]int // row_id -> index into Versions, only while Live()
}

// NewTableData creates an empty version store for def.
func NewTableData(def *Table) *TableData {
	return &TableData{Def: def, live: make(map[string]int)}
}

// LiveIndex returns the index of row_id's live version and true, or
// (0, false) if row_id has no live version.
func (td *TableData) LiveIndex(rowID string) (int, bool) {
	i, ok := td.live[rowID]
	return i, ok
}

// Append adds a new version, updating the live index if the version is
// itself live (TxTo == MaxTx). It returns the index of the appended
// version.
func (td *TableData) Append(rv RowVersion) int {
	idx := len(td.Versions)
	td.Versions = append(td.Versions, rv)
	if rv.Live() {
		td.live[rv.RowID] = idx
	}
	return idx
}

// CloseLive sets the tx_to of row_id's live version to txTo and removes
// it from the live index. It is a no-op if row_id has no live version.
func (td *TableData) CloseLive(rowID string, txTo int64) {
	idx, ok := td.live[rowID]
	if !ok {
		return
	}
	td.Versions[idx].TxTo = txTo
	delete(td.live, rowID)
}

// ReopenLive undoes CloseLive: resets the version at idx back to +∞ and
// restores the live index entry.
func (td *TableData) ReopenLive(idx int) {
	td.Versions[idx].TxTo = MaxTx
	td.live[td.Versions[idx].RowID] = idx
}

// Truncate removes every version from idx onward, undoing appended
// INSERT/UPDATE successor versions: a remaining predecessor whose tx_to
// equals the tx_from of a removed successor of the same row_id is reset
// to +∞, and the live index is rebuilt.
func (td *TableData) Truncate(idx int) {
	closedAt := make(map[string]int64)
	for _, rv := range td.Versions[idx:] {
		if _, seen := closedAt[rv.RowID]; !seen {
			closedAt[rv.RowID] = rv.TxFrom
		}
	}
	td.Versions = td.Versions[:idx]
	for i := range td.Versions {
		if tx, ok := closedAt[td.Versions[i].RowID]; ok && td.Versions[i].TxTo == tx {
			td.Versions[i].TxTo = MaxTx
		}
	}
	td.live = make(map[string]int, len(td.live))
	for i := range td.Versions {
		if td.Versions[i].Live() {
			td.live[td.Versions[i].RowID] = i
		}
	}
}

// rebuildLive recomputes the live index from scratch. LOAD does not call
// it: snapshot.Load adds each version through Append, which keeps the
// index current.
func (td *TableData) rebuildLive() {
	td.live = make(map[string]int)
	for i := range td.Versions {
		if td.Versions[i].Live() {
			td.live[td.Versions[i].RowID] = i
		}
	}
}

// LiveSet returns the mapping from row_id to the single version visible
// at asofTx, built by a full scan (spec §4.3: "the store has no index;
// all lookups are scans over versions" for anything but the +∞ case,
// which LiveIndex already answers in O(1)).
func (td *TableData) LiveSet(asofTx int64) map[string]*RowVersion {
	if asofTx == MaxTx {
		out := make(map[string]*RowVersion, len(td.live))
		for rowID, idx := range td.live {
			out[rowID] = &td.Versions[idx]
		}
		return out
	}
	out := make(map[string]*RowVersion)
	for i := range td.Versions {
		rv := &td.Versions[i]
		if rv.VisibleAt(asofTx) {
			out[rv.RowID] = rv
		}
	}
	return out
}

// DB owns the catalog and every table's version store, plus the
// monotonically increasing next-transaction counter. It is the single
// point of exclusive ownership described in spec §3 ("Ownership").
type DB struct {
	Catalog *Catalog
	tables  map[string]*TableData
	NextTx  int64
	Clock   Clock
}

// NewDB returns an empty database with next_tx starting at 1.
func NewDB() *DB {
	return &DB{
		Catalog: NewCatalog(),
		tables:  make(map[string]*TableData),
		NextTx:  1,
		Clock:   RealClock{},
	}
}

// BeginTx returns the next transaction id and increments the counter.
// All writes within one statement share the id returned by a single
// BeginTx call (spec §4.5).
func (db *DB) BeginTx() int64 {
	tx := db.NextTx
	db.NextTx++
	return tx
}

// CreateTable registers def in the catalog and allocates its version
// store.
func (db *DB) CreateTable(def *Table) {
	db.Catalog.Add(def)
	db.tables[def.Name] = NewTableData(def)
}

// DropTable removes a table's definition and all of its versions.
func (db *DB) DropTable(name string) {
	u := upperName(name)
	db.Catalog.Drop(u)
	delete(db.tables, u)
}

// Table returns the version store for name, or nil if the table does
// not exist.
func (db *DB) Table(name string) *TableData {
	return db.tables[upperName(name)]
}

// Tables returns every table's version store, keyed by upper-cased name.
func (db *DB) Tables() map[string]*TableData { return db.tables }

// DeriveRowID computes a row's identity from its primary-key value per
// spec §3: text values are used verbatim, integers use their canonical
// decimal representation. ok is false if pk is null or of a type other
// than text/int.
func DeriveRowID(pk Value) (rowID string, ok bool) {
	switch pk.Kind {
	case KindText:
		return pk.S, true
	case KindInt:
		return strconv.FormatInt(pk.I, 10), true
	default:
		return "", false
	}
}

// NowISO returns db's clock reading formatted as ISO-8601 UTC, the
// default valid_from stamp for a newly written row version.
func (db *DB) NowISO() string {
	return db.Clock.Now().Format("2006-01-02T15:04:05Z")
}

// DefaultValidTo is the default valid_to stamp for a newly written row
// version.
func DefaultValidTo() string { return defaultValidTo }
