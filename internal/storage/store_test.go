package storage

import "testing"

func newTestTable(t *testing.T) *Table {
	t.Helper()
	return NewTable("t", []Column{
		{Name: "id", Type: ColInt, PrimaryKey: true},
		{Name: "v", Type: ColInt},
	}, true)
}

func TestBeginTxMonotonicallyIncreasesNextTx(t *testing.T) {
	db := NewDB()
	first := db.BeginTx()
	second := db.BeginTx()
	if second <= first {
		t.Errorf("expected strictly increasing tx ids, got %d then %d", first, second)
	}
}

func TestAppendThenLiveIndexFindsLatestVersion(t *testing.T) {
	td := NewTableData(newTestTable(t))
	td.Append(RowVersion{RowID: "1", TxFrom: 1, TxTo: MaxTx, Data: []Value{Int(1), Int(10)}})

	idx, ok := td.LiveIndex("1")
	if !ok {
		t.Fatal("expected a live version for row 1")
	}
	if td.Versions[idx].Data[1].I != 10 {
		t.Errorf("got %v, want 10", td.Versions[idx].Data[1])
	}
}

func TestCloseLiveThenAppendProducesSingleLiveVersion(t *testing.T) {
	td := NewTableData(newTestTable(t))
	td.Append(RowVersion{RowID: "1", TxFrom: 1, TxTo: MaxTx, Data: []Value{Int(1), Int(10)}})

	td.CloseLive("1", 2)
	if _, ok := td.LiveIndex("1"); ok {
		t.Error("expected no live version after close")
	}

	td.Append(RowVersion{RowID: "1", TxFrom: 2, TxTo: MaxTx, Data: []Value{Int(1), Int(20)}})
	live := 0
	for i := range td.Versions {
		if td.Versions[i].Live() {
			live++
		}
	}
	if live != 1 {
		t.Errorf("expected exactly one live version, got %d", live)
	}
}

func TestReopenLiveRestoresLiveIndex(t *testing.T) {
	td := NewTableData(newTestTable(t))
	idx := td.Append(RowVersion{RowID: "1", TxFrom: 1, TxTo: MaxTx, Data: []Value{Int(1), Int(10)}})
	td.CloseLive("1", 2)

	td.ReopenLive(idx)
	liveIdx, ok := td.LiveIndex("1")
	if !ok || liveIdx != idx {
		t.Errorf("expected row 1 live again at index %d, got idx=%d ok=%v", idx, liveIdx, ok)
	}
	if !td.Versions[idx].Live() {
		t.Error("expected tx_to reset to +inf")
	}
}

func TestTruncateRestoresPriorLiveVersion(t *testing.T) {
	td := NewTableData(newTestTable(t))
	td.Append(RowVersion{RowID: "1", TxFrom: 1, TxTo: MaxTx, Data: []Value{Int(1), Int(10)}})
	td.CloseLive("1", 2)
	idx := td.Append(RowVersion{RowID: "1", TxFrom: 2, TxTo: MaxTx, Data: []Value{Int(1), Int(20)}})

	td.Truncate(idx)
	liveIdx, ok := td.LiveIndex("1")
	if !ok {
		t.Fatal("expected row 1 to be live again after truncating the successor version")
	}
	if td.Versions[liveIdx].Data[1].I != 10 {
		t.Errorf("got %v, want the pre-truncate value 10", td.Versions[liveIdx].Data[1])
	}
	if len(td.Versions) != 1 {
		t.Errorf("expected only the original version to remain, got %d", len(td.Versions))
	}
}

func TestVisibleAtRespectsTransactionTimeWindow(t *testing.T) {
	rv := RowVersion{RowID: "1", TxFrom: 2, TxTo: 5, Data: []Value{Int(1), Int(10)}}
	if rv.VisibleAt(1) {
		t.Error("should not be visible before tx_from")
	}
	if !rv.VisibleAt(2) {
		t.Error("should be visible at tx_from")
	}
	if !rv.VisibleAt(4) {
		t.Error("should be visible strictly within the window")
	}
	if rv.VisibleAt(5) {
		t.Error("should not be visible at tx_to (half-open interval)")
	}
}

func TestLiveSetAtInfinityUsesLiveIndex(t *testing.T) {
	td := NewTableData(newTestTable(t))
	td.Append(RowVersion{RowID: "1", TxFrom: 1, TxTo: MaxTx, Data: []Value{Int(1), Int(10)}})
	td.Append(RowVersion{RowID: "2", TxFrom: 1, TxTo: 3, Data: []Value{Int(2), Int(99)}})

	set := td.LiveSet(MaxTx)
	if len(set) != 1 {
		t.Fatalf("expected only the still-live row, got %d entries", len(set))
	}
	if _, ok := set["1"]; !ok {
		t.Error("expected row 1 present")
	}
}

func TestLiveSetAtPastTxScansVersions(t *testing.T) {
	td := NewTableData(newTestTable(t))
	td.Append(RowVersion{RowID: "1", TxFrom: 1, TxTo: 3, Data: []Value{Int(1), Int(10)}})
	td.Append(RowVersion{RowID: "1", TxFrom: 3, TxTo: MaxTx, Data: []Value{Int(1), Int(20)}})

	set := td.LiveSet(2)
	rv, ok := set["1"]
	if !ok {
		t.Fatal("expected row 1 visible at tx=2")
	}
	if rv.Data[1].I != 10 {
		t.Errorf("got %v, want the version live at tx=2 (value 10)", rv.Data[1])
	}
}

func TestCreateAndDropTableRoundTrip(t *testing.T) {
	db := NewDB()
	tbl := newTestTable(t)
	db.CreateTable(tbl)
	if db.Table("t") == nil {
		t.Fatal("expected table to be registered")
	}
	db.DropTable("t")
	if db.Table("t") != nil {
		t.Error("expected table to be gone after drop")
	}
}

func TestDeriveRowIDTextAndInt(t *testing.T) {
	if id, ok := DeriveRowID(Text("k")); !ok || id != "k" {
		t.Errorf("got %q, %v", id, ok)
	}
	if id, ok := DeriveRowID(Int(42)); !ok || id != "42" {
		t.Errorf("got %q, %v", id, ok)
	}
	if _, ok := DeriveRowID(Null()); ok {
		t.Error("expected null primary key to be rejected")
	}
	if _, ok := DeriveRowID(Double(1.5)); ok {
		t.Error("expected non-text/int primary key to be rejected")
	}
}
