package engine_test

import (
	"testing"

	"github.com/forgedb/forgedb/internal/engine"
	"github.com/forgedb/forgedb/internal/storage"
)

func newTestSession() *engine.Session {
	sess := engine.NewSession(storage.NewDB())
	sess.SeedDP(1)
	return sess
}

func mustExec(t *testing.T, sess *engine.Session, sql string) *engine.QueryResult {
	t.Helper()
	res := sess.Execute(sql)
	if !res.Ok {
		t.Fatalf("%q failed: %s", sql, res.Message)
	}
	return res
}

func TestCreateTableDuplicateFails(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY)")
	res := sess.Execute("CREATE TABLE t(id INT PRIMARY KEY)")
	if res.Ok {
		t.Error("expected duplicate CREATE TABLE to fail")
	}
}

func TestDropUnknownTableFails(t *testing.T) {
	sess := newTestSession()
	res := sess.Execute("DROP TABLE ghost")
	if res.Ok {
		t.Error("expected DROP TABLE on unknown table to fail")
	}
}

func TestSelectFromUnknownTableFails(t *testing.T) {
	sess := newTestSession()
	res := sess.Execute("SELECT * FROM ghost")
	if res.Ok {
		t.Error("expected SELECT from an unknown table to fail")
	}
}

func TestInsertArityMismatchFails(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	res := sess.Execute("INSERT INTO t(id,v) VALUES (1)")
	if res.Ok {
		t.Error("expected arity mismatch between columns and values to fail")
	}
}

func TestInsertTypeMismatchFails(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	res := sess.Execute("INSERT INTO t(id,v) VALUES (1, {'a','b'})")
	if res.Ok {
		t.Error("expected a set literal written to an INT column to fail")
	}
}

func TestInsertDuplicatePrimaryKeyWithoutOnConflictReplacesNonNullFields(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,10)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,20)")
	res := mustExec(t, sess, "SELECT v FROM t")
	if len(res.Rows) != 1 || res.Rows[0][0].I != 20 {
		t.Errorf("got %v, want a single row with v replaced to 20", res.Rows)
	}
}

func TestUpdateUnknownColumnFails(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,10)")
	res := sess.Execute("UPDATE t SET nope = 1 WHERE id = 1")
	if res.Ok {
		t.Error("expected UPDATE of an unknown column to fail")
	}
}

func TestSelectEmptyGroupByStillAggregatesWholeTable(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,10),(2,20),(3,30)")
	res := mustExec(t, sess, "SELECT SUM(v) FROM t")
	if len(res.Rows) != 1 {
		t.Fatalf("expected a single aggregate row, got %d", len(res.Rows))
	}
	if res.Rows[0][0].D != 60 {
		t.Errorf("got %v, want 60", res.Rows[0][0])
	}
}

func TestSelectOrderByLimitCombination(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,30),(2,10),(3,20)")
	res := mustExec(t, sess, "SELECT id,v FROM t ORDER BY v LIMIT 2")
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}
	if res.Rows[0][0].I != 2 || res.Rows[1][0].I != 3 {
		t.Errorf("got %v, %v, want id=2 then id=3 (ascending by v)", res.Rows[0][0], res.Rows[1][0])
	}
}

func TestAsOfTxNonexistentTransactionReturnsNoRows(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,10)")
	res := mustExec(t, sess, "SELECT v FROM t FOR SYSTEM_TIME AS OF TX 0")
	if len(res.Rows) != 0 {
		t.Errorf("expected no rows visible before the row's creating transaction, got %v", res.Rows)
	}
}

func TestNullComparisonNeverMatches(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,NULL)")
	res := mustExec(t, sess, "SELECT id FROM t WHERE v = 1")
	if len(res.Rows) != 0 {
		t.Errorf("expected NULL = 1 to match nothing, got %v", res.Rows)
	}
}

func TestIsNullPredicate(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,NULL),(2,5)")
	res := mustExec(t, sess, "SELECT id FROM t WHERE v IS NULL")
	if len(res.Rows) != 1 || res.Rows[0][0].I != 1 {
		t.Errorf("got %v, want only row id=1", res.Rows)
	}
}

func TestBeginTwiceFails(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "BEGIN")
	res := sess.Execute("BEGIN")
	if res.Ok {
		t.Error("expected nested BEGIN to fail")
	}
}

func TestCommitWithoutBeginFails(t *testing.T) {
	sess := newTestSession()
	res := sess.Execute("COMMIT")
	if res.Ok {
		t.Error("expected COMMIT without BEGIN to fail")
	}
}

func TestRollbackWithoutBeginFails(t *testing.T) {
	sess := newTestSession()
	res := sess.Execute("ROLLBACK")
	if res.Ok {
		t.Error("expected ROLLBACK without BEGIN to fail")
	}
}

func TestStagedWritesInvisibleUntilCommit(t *testing.T) {
	sess := newTestSession()
	mustExec(t, sess, "CREATE TABLE t(id INT PRIMARY KEY, v INT)")
	mustExec(t, sess, "BEGIN")
	mustExec(t, sess, "INSERT INTO t(id,v) VALUES (1,10)")

	res := mustExec(t, sess, "SELECT id FROM t")
	if len(res.Rows) != 0 {
		t.Errorf("expected staged insert to be invisible before COMMIT, got %v", res.Rows)
	}
	mustExec(t, sess, "COMMIT")
	res = mustExec(t, sess, "SELECT id FROM t")
	if len(res.Rows) != 1 {
		t.Errorf("expected committed insert to be visible, got %v", res.Rows)
	}
}

func TestDPCountSeededDeterministically(t *testing.T) {
	a := engine.NewSession(storage.NewDB())
	a.SeedDP(42)
	mustExec(t, a, "CREATE TABLE t(id INT PRIMARY KEY)")
	mustExec(t, a, "INSERT INTO t(id) VALUES (1),(2),(3)")
	r1 := mustExec(t, a, "SELECT DP_COUNT(*) FROM t")

	b := engine.NewSession(storage.NewDB())
	b.SeedDP(42)
	mustExec(t, b, "CREATE TABLE t(id INT PRIMARY KEY)")
	mustExec(t, b, "INSERT INTO t(id) VALUES (1),(2),(3)")
	r2 := mustExec(t, b, "SELECT DP_COUNT(*) FROM t")

	if r1.Rows[0][0].D != r2.Rows[0][0].D {
		t.Errorf("same seed should reproduce the same noisy count, got %v vs %v", r1.Rows[0][0], r2.Rows[0][0])
	}
}
