// Package driver implements a database/sql driver for forgedb.
//
// What: a minimal driver exposing forgedb via the standard database/sql
// interfaces. It supports in-memory databases (mem://) and file-backed
// persistence (file:path?autosave=1).
// How: one connection wraps one engine.Session. Spec §5 describes a
// single-threaded, no-concurrent-writers model, so unlike the teacher's
// driver there is no reader/writer pool and no shadow-clone transaction
// snapshot: BeginTx/Commit/Rollback simply forward to the SQL-text
// BEGIN/COMMIT/ROLLBACK statements the session already implements.
// Placeholders (?, $n, :n) are bound by simple string substitution with
// literal escaping, the same scheme the teacher's bindPlaceholders uses.
// Why: database/sql integration gives forgedb familiar APIs and tooling
// while keeping the implementation small.
package driver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forgedb/forgedb/internal/engine"
	"github.com/forgedb/forgedb/internal/snapshot"
	"github.com/forgedb/forgedb/internal/storage"
)

func init() {
	sql.Register("forgedb", &drv{})
}

// OpenInMemory returns a *sql.DB backed by a fresh in-memory forgedb
// database, for embedding code that wants a plain database/sql handle.
func OpenInMemory() (*sql.DB, error) {
	return sql.Open("forgedb", "mem://")
}

type cfg struct {
	filePath string
	autosave bool
}

// parseDSN parses a forgedb DSN: "mem://" for an empty in-memory
// database, or "file:path?autosave=1" to load path on open and, with
// autosave set, save it back to path on Close.
func parseDSN(dsn string) (cfg, error) {
	switch {
	case strings.HasPrefix(dsn, "mem://"):
		return cfg{}, nil
	case strings.HasPrefix(dsn, "file:"):
		path := strings.TrimPrefix(dsn, "file:")
		var c cfg
		if i := strings.Index(path, "?"); i >= 0 {
			for _, kv := range strings.Split(path[i+1:], "&") {
				if kv == "" {
					continue
				}
				parts := strings.SplitN(kv, "=", 2)
				if parts[0] == "autosave" && len(parts) == 2 {
					v := strings.ToLower(parts[1])
					c.autosave = v == "1" || v == "true" || v == "yes" || v == "on"
				}
			}
			path = path[:i]
		}
		if path == "" {
			return cfg{}, fmt.Errorf("forgedb: file: DSN requires a path")
		}
		c.filePath = path
		return c, nil
	default:
		return cfg{}, fmt.Errorf("forgedb: unsupported DSN %q", dsn)
	}
}

type drv struct{}

func (d *drv) Open(name string) (driver.Conn, error) {
	c, err := parseDSN(name)
	if err != nil {
		return nil, err
	}
	db := storage.NewDB()
	if c.filePath != "" {
		f, err := os.Open(c.filePath)
		switch {
		case err == nil:
			loaded, err := snapshot.Load(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("forgedb: loading %q: %w", c.filePath, err)
			}
			db = loaded
		case os.IsNotExist(err):
			// A DSN naming a file that does not exist yet opens empty;
			// it is created on Close if autosave is set.
		default:
			return nil, err
		}
	}
	return &conn{sess: engine.NewSession(db), filePath: c.filePath, autosave: c.autosave}, nil
}

// ------------------- connection -------------------

type conn struct {
	sess     *engine.Session
	filePath string
	autosave bool
}

func (c *conn) Prepare(query string) (driver.Stmt, error) { return &stmt{c: c, sql: query}, nil }

func (c *conn) Close() error {
	if !c.autosave || c.filePath == "" {
		return nil
	}
	f, err := os.Create(c.filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return snapshot.Write(f, c.sess.DB)
}

// Begin/BeginTx route through the session's own staged-transaction
// machinery (the same path "BEGIN" takes from SQL text) rather than a
// shadow-clone snapshot, matching spec §5's single-writer model.
func (c *conn) Begin() (driver.Tx, error) { return c.BeginTx(context.Background(), driver.TxOptions{}) }

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if opts.ReadOnly {
		return nil, fmt.Errorf("forgedb: read-only transactions are not supported")
	}
	res := c.sess.ExecuteStatement(&engine.Begin{})
	if !res.Ok {
		return nil, fmt.Errorf("forgedb: %s", res.Message)
	}
	return &tx{c: c}, nil
}

func (c *conn) Ping(ctx context.Context) error { return nil }

type tx struct{ c *conn }

func (t *tx) Commit() error {
	res := t.c.sess.ExecuteStatement(&engine.Commit{})
	if !res.Ok {
		return fmt.Errorf("forgedb: %s", res.Message)
	}
	return nil
}

func (t *tx) Rollback() error {
	res := t.c.sess.ExecuteStatement(&engine.Rollback{})
	if !res.Ok {
		return fmt.Errorf("forgedb: %s", res.Message)
	}
	return nil
}

// ------------------- exec / query -------------------

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	sqlStr, err := bindPlaceholders(query, args)
	if err != nil {
		return nil, err
	}
	res := c.sess.Execute(sqlStr)
	if !res.Ok {
		return nil, fmt.Errorf("forgedb: %s", res.Message)
	}
	return driver.RowsAffected(rowsAffectedFrom(res.Message)), nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	sqlStr, err := bindPlaceholders(query, args)
	if err != nil {
		return nil, err
	}
	res := c.sess.Execute(sqlStr)
	if !res.Ok {
		return nil, fmt.Errorf("forgedb: %s", res.Message)
	}
	if res.Headers == nil {
		return emptyRows{}, nil
	}
	return &rows{headers: res.Headers, data: res.Rows}, nil
}

func (c *conn) Exec(query string, args []driver.Value) (driver.Result, error) {
	return c.ExecContext(context.Background(), query, namedFrom(args))
}

func (c *conn) Query(query string, args []driver.Value) (driver.Rows, error) {
	return c.QueryContext(context.Background(), query, namedFrom(args))
}

func namedFrom(args []driver.Value) []driver.NamedValue {
	n := make([]driver.NamedValue, len(args))
	for i, v := range args {
		n[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return n
}

// rowsAffectedFrom extracts the leading count from a status message like
// "INSERT 3 row(s)"; messages without one (CREATE TABLE, BEGIN, ...)
// affect zero rows.
func rowsAffectedFrom(msg string) int64 {
	fields := strings.Fields(msg)
	for _, f := range fields {
		if n, err := strconv.ParseInt(f, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// ------------------- stmt / rows -------------------

type stmt struct {
	c   *conn
	sql string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.c.ExecContext(context.Background(), s.sql, namedFrom(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.c.QueryContext(context.Background(), s.sql, namedFrom(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.c.ExecContext(ctx, s.sql, args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.c.QueryContext(ctx, s.sql, args)
}

type rows struct {
	headers []string
	data    [][]storage.Value
	i       int
}

func (r *rows) Columns() []string { return r.headers }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i, v := range row {
		dest[i] = driverValueOf(v)
	}
	r.i++
	return nil
}

// driverValueOf maps a storage.Value to the primitive types
// database/sql expects; set and vector values, which have no scalar
// SQL equivalent, are rendered with Value.String().
func driverValueOf(v storage.Value) driver.Value {
	switch v.Kind {
	case storage.KindNull:
		return nil
	case storage.KindInt:
		return v.I
	case storage.KindDouble:
		return v.D
	case storage.KindText:
		return v.S
	default:
		return v.String()
	}
}

type emptyRows struct{}

func (emptyRows) Columns() []string         { return nil }
func (emptyRows) Close() error              { return nil }
func (emptyRows) Next([]driver.Value) error { return io.EOF }

// ------------------- placeholder binding -------------------

// bindPlaceholders substitutes ?, $n, and :n placeholders with literal
// text, skipping over quoted string literals so a placeholder-looking
// character inside a string is never substituted.
func bindPlaceholders(sqlStr string, args []driver.NamedValue) (string, error) {
	var sb strings.Builder
	sb.Grow(len(sqlStr) + len(args)*8)
	argi := 0
	for i := 0; i < len(sqlStr); i++ {
		ch := sqlStr[i]
		if ch == '\'' {
			sb.WriteByte(ch)
			i++
			for i < len(sqlStr) {
				sb.WriteByte(sqlStr[i])
				if sqlStr[i] == '\'' {
					if i+1 < len(sqlStr) && sqlStr[i+1] == '\'' {
						i++
						sb.WriteByte(sqlStr[i])
						i++
						continue
					}
					break
				}
				i++
			}
			continue
		}
		if ch == '?' {
			if argi >= len(args) {
				return "", fmt.Errorf("forgedb: not enough args for placeholders")
			}
			sb.WriteString(sqlLiteral(args[argi].Value))
			argi++
			continue
		}
		if (ch == '$' || ch == ':') && i+1 < len(sqlStr) && sqlStr[i+1] >= '0' && sqlStr[i+1] <= '9' {
			j := i + 2
			for j < len(sqlStr) && sqlStr[j] >= '0' && sqlStr[j] <= '9' {
				j++
			}
			n, err := strconv.Atoi(sqlStr[i+1 : j])
			if err != nil || n <= 0 || n > len(args) {
				return "", fmt.Errorf("forgedb: invalid placeholder %c%s", ch, sqlStr[i+1:j])
			}
			sb.WriteString(sqlLiteral(args[n-1].Value))
			i = j - 1
			continue
		}
		sb.WriteByte(ch)
	}
	if argi != len(args) {
		return "", fmt.Errorf("forgedb: too many args for placeholders")
	}
	return sb.String(), nil
}

func sqlLiteral(v any) string {
	if v == nil {
		return "NULL"
	}
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case time.Time:
		return "'" + x.UTC().Format(time.RFC3339Nano) + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}

// CheckNamedValue normalizes a plain Go int to int64 and passes
// time.Time through unchanged; sqlLiteral renders both. Other values are
// accepted as given.
func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	switch v := nv.Value.(type) {
	case int:
		nv.Value = int64(v)
	case time.Time:
		nv.Value = v
	}
	return nil
}
