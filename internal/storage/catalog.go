package storage

import (
	"sort"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// upperCaser/lowerCaser fold identifiers for the catalog's case-insensitive
// lookup. golang.org/x/text/cases is used in place of a hand-rolled
// strings.ToUpper/ToLower loop, matching the teacher's own go.mod choice
// of golang.org/x/text for locale-aware text work.
var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

func upperName(s string) string { return upperCaser.String(s) }
func lowerName(s string) string { return lowerCaser.String(s) }

// ColumnType is the closed type lattice of spec §3.
type ColumnType int

const (
	ColInt ColumnType = iota
	ColDouble
	ColText
	ColSetText
	ColVector
)

func (t ColumnType) String() string {
	switch t {
	case ColInt:
		return "INT"
	case ColDouble:
		return "DOUBLE"
	case ColText:
		return "TEXT"
	case ColSetText:
		return "SET<TEXT>"
	case ColVector:
		return "VECTOR"
	default:
		return "UNKNOWN"
	}
}

// Column describes one table column: name, declared type, merge policy,
// vector dimension (meaningful only when Type == ColVector), and whether
// it is the table's single primary key.
type Column struct {
	Name       string
	Type       ColumnType
	Merge      MergeSpec
	VectorDim  int
	PrimaryKey bool
}

// Table is a table definition: upper-cased name, ordered columns, the
// index of the (optional) primary-key column, and the mergeable toggle.
// A table with Mergeable == false behaves as pure replace/overwrite on
// every write, even under ON CONFLICT MERGE ("MR toggle off" in spec §3).
type Table struct {
	Name      string // upper-cased
	Columns   []Column
	PKIndex   int // -1 if no primary key
	Mergeable bool

	colPos map[string]int // lower-cased column name -> index
}

// NewTable builds a Table from a name and ordered columns, computing the
// case-insensitive column index and the primary-key index (per spec
// §4.1; the first column flagged PrimaryKey wins if more than one is
// mistakenly flagged).
func NewTable(name string, cols []Column, mergeable bool) *Table {
	t := &Table{
		Name:      upperName(name),
		Columns:   cols,
		PKIndex:   -1,
		Mergeable: mergeable,
		colPos:    make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		t.colPos[lowerName(c.Name)] = i
		if c.PrimaryKey && t.PKIndex == -1 {
			t.PKIndex = i
		}
	}
	return t
}

// ColIndex returns the zero-based index of the named column, or -1 if
// the table has no such column.
func (t *Table) ColIndex(name string) int {
	if i, ok := t.colPos[lowerName(name)]; ok {
		return i
	}
	return -1
}

// HasPrimaryKey reports whether a primary-key column was declared.
func (t *Table) HasPrimaryKey() bool { return t.PKIndex >= 0 }

// Catalog maps upper-cased table names to their definitions. Lookup is
// always case-insensitive (spec §4.1).
type Catalog struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// Has reports whether name (case-insensitively) names a known table.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tables[upperName(name)]
	return ok
}

// Get returns the table definition for name, or nil if unknown.
func (c *Catalog) Get(name string) *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[upperName(name)]
}

// Add registers a table definition, replacing any table of the same
// (case-insensitive) name.
func (c *Catalog) Add(t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[t.Name] = t
}

// Drop removes a table definition. It is a no-op if the table does not
// exist.
func (c *Catalog) Drop(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, upperName(name))
}

// Names returns all registered table names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables))
	for n := range c.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
