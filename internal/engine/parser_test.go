package engine

import (
	"testing"

	"github.com/forgedb/forgedb/internal/storage"
)

func parseOne(t *testing.T, sql string) Statement {
	t.Helper()
	stmt, err := NewParser(sql).ParseStatement()
	if err != nil {
		t.Fatalf("parsing %q: %v", sql, err)
	}
	return stmt
}

func TestParseCreateTableColumnTypesAndMerge(t *testing.T) {
	stmt := parseOne(t, `CREATE TABLE c(id TEXT PRIMARY KEY, n INT MERGE SUM_BOUNDED(0,100), tags SET<TEXT> MERGE GSET)`)
	ct, ok := stmt.(*CreateTable)
	if !ok {
		t.Fatalf("got %T, want *CreateTable", stmt)
	}
	if ct.Table != "c" {
		t.Errorf("table = %q", ct.Table)
	}
	if len(ct.Columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(ct.Columns))
	}
	if !ct.Columns[0].PrimaryKey {
		t.Error("expected id to be flagged PRIMARY KEY")
	}
	if ct.Columns[1].Merge.Kind != storage.MergeSumBounded || ct.Columns[1].Merge.Min != 0 || ct.Columns[1].Merge.Max != 100 {
		t.Errorf("got merge spec %+v", ct.Columns[1].Merge)
	}
	if ct.Columns[2].Type != storage.ColSetText {
		t.Errorf("got type %v, want SET<TEXT>", ct.Columns[2].Type)
	}
	if ct.Columns[2].Merge.Kind != storage.MergeGSet {
		t.Errorf("got merge %v, want GSET", ct.Columns[2].Merge.Kind)
	}
}

func TestParseCreateTableVectorDimension(t *testing.T) {
	stmt := parseOne(t, `CREATE TABLE e(id INT PRIMARY KEY, emb VECTOR<3>)`)
	ct := stmt.(*CreateTable)
	if ct.Columns[1].Type != storage.ColVector || ct.Columns[1].VectorDim != 3 {
		t.Errorf("got %+v", ct.Columns[1])
	}
}

func TestParseInsertMultiRowOnConflictMerge(t *testing.T) {
	stmt := parseOne(t, `INSERT INTO t(id,v) VALUES (1,10),(2,20) ON CONFLICT MERGE`)
	ins := stmt.(*Insert)
	if !ins.OnConflict {
		t.Error("expected OnConflict true")
	}
	if len(ins.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(ins.Rows))
	}
	lit, ok := ins.Rows[0][1].(LitInt)
	if !ok || lit.Val != 10 {
		t.Errorf("got %+v", ins.Rows[0][1])
	}
}

func TestParseDistanceCondition(t *testing.T) {
	stmt := parseOne(t, `SELECT id FROM e WHERE DISTANCE(emb,[0,0,0]) < 1.5`)
	sel := stmt.(*Select)
	if len(sel.Where) != 1 || sel.Where[0].Kind != CondDistance {
		t.Fatalf("got %+v", sel.Where)
	}
}

func TestParseAsOfTx(t *testing.T) {
	stmt := parseOne(t, `SELECT v FROM t FOR SYSTEM_TIME AS OF TX 1`)
	sel := stmt.(*Select)
	if !sel.AsOfSet || sel.AsOfTx != 1 {
		t.Errorf("got AsOfSet=%v AsOfTx=%v", sel.AsOfSet, sel.AsOfTx)
	}
}

func TestParseJoinOnEquality(t *testing.T) {
	stmt := parseOne(t, `SELECT region, SUM(amt) FROM u JOIN o ON u.id = o.uid GROUP BY region ORDER BY region`)
	sel := stmt.(*Select)
	if sel.Join == nil {
		t.Fatal("expected a join clause")
	}
	if sel.Join.LeftCol.Name != "id" || sel.Join.RightCol.Name != "uid" {
		t.Errorf("got %+v", sel.Join)
	}
}

func TestParseSaveAndLoadDatabasePaths(t *testing.T) {
	save := parseOne(t, `SAVE DATABASE 'out.db'`).(*Save)
	if save.Path != "out.db" {
		t.Errorf("got %q", save.Path)
	}
	load := parseOne(t, `LOAD DATABASE 'out.db'`).(*Load)
	if load.Path != "out.db" {
		t.Errorf("got %q", load.Path)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewParser(`SELECT FROM WHERE`).ParseStatement()
	if err == nil {
		t.Error("expected a parse error")
	}
}

func TestIdentAcceptsKeywordAsColumnName(t *testing.T) {
	stmt := parseOne(t, `SELECT text FROM t`)
	sel := stmt.(*Select)
	if len(sel.Items) != 1 {
		t.Fatalf("got %+v", sel.Items)
	}
}
