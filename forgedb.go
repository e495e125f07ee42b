// Package forgedb provides a lightweight, embeddable SQL database for Go
// applications with transaction-time row versioning, per-column CRDT
// merge semantics, fixed-dimension vector columns, and a differentially
// private COUNT aggregate.
//
// ForgeDB demonstrates:
//   - MVCC-free transaction-time addressing: every row version carries
//     tx_from/tx_to bounds, independent of its application valid_from/
//     valid_to, queryable with SELECT ... AS OF TX n.
//   - Per-column merge-on-conflict semantics (NONE, LWW, SUM_BOUNDED,
//     GSET) applied on INSERT ... ON CONFLICT MERGE and UPDATE.
//   - Fixed-dimension VECTOR columns filterable with DISTANCE(col,
//     [v1, v2, ...]) < threshold.
//   - DP_COUNT(*), a differentially private row count using Laplace
//     noise scaled by a session's DP_EPSILON.
//
// # Basic usage
//
//	sess := forgedb.NewSession(forgedb.NewDB())
//	sess.Execute(`CREATE TABLE users (id INT PRIMARY KEY, name TEXT)`)
//	sess.Execute(`INSERT INTO users VALUES (1, 'Alice')`)
//	res := sess.Execute(`SELECT * FROM users`)
//	for _, row := range res.Rows {
//	    fmt.Println(row)
//	}
//
// # Persistence
//
//	sess.Execute(`SAVE DATABASE 'snapshot.db'`)
//	sess.Execute(`LOAD DATABASE 'snapshot.db'`)
//
// # database/sql
//
// cmd/forgedb's "serve" subcommand registers a "forgedb" database/sql
// driver (internal/driver) and opens it with a "mem://" or
// "file:path?autosave=1" DSN; it is not part of this package's public
// API since it lives under internal/.
package forgedb

import (
	"os"

	"github.com/forgedb/forgedb/internal/engine"
	"github.com/forgedb/forgedb/internal/snapshot"
	"github.com/forgedb/forgedb/internal/storage"
)

// DB owns a catalog and every table's append-only version store. Use
// NewDB to create one, then drive it through a Session.
type DB = storage.DB

// Table is a table's schema: its columns, primary key, and whether it
// carries a per-column merge spec.
type Table = storage.Table

// Column is one column definition: name, type, optional merge spec,
// optional vector dimension.
type Column = storage.Column

// Value is forgedb's tagged union of NULL, INT, DOUBLE, TEXT, SET_TEXT,
// and VECTOR.
type Value = storage.Value

// Session is one client's connection to a DB: its transaction state,
// staged writes, and differential-privacy settings.
type Session = engine.Session

// Statement is the interface implemented by every parsed SQL statement.
type Statement = engine.Statement

// Parser parses SQL text into a Statement.
type Parser = engine.Parser

// QueryResult is the outcome of executing one statement: either a row
// set (Headers/Rows) or a status/failure message (Message/Ok).
type QueryResult = engine.QueryResult

// NewDB returns an empty, in-memory database with its transaction
// counter starting at 1.
func NewDB() *DB { return storage.NewDB() }

// NewSession returns a session over db with DP_EPSILON defaulted to 1.0.
func NewSession(db *DB) *Session { return engine.NewSession(db) }

// NewParser returns a parser over the given SQL text.
func NewParser(sql string) *Parser { return engine.NewParser(sql) }

// ParseSQL parses a single SQL statement.
func ParseSQL(sql string) (Statement, error) { return engine.NewParser(sql).ParseStatement() }

// SaveToFile writes db's full catalog and version history to filename
// in the FORGEDB_SNAPSHOT_V1 text format.
func SaveToFile(db *DB, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return snapshot.Write(f, db)
}

// LoadFromFile parses filename into a brand-new database. It never
// mutates an existing *DB; callers that want to replace a live
// database's contents should use a Session's LOAD DATABASE statement,
// which performs the scratch-and-swap atomically.
func LoadFromFile(filename string) (*DB, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return snapshot.Load(f)
}
