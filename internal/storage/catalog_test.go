package storage

import (
	"reflect"
	"testing"
)

func TestCatalogLookupIsCaseInsensitive(t *testing.T) {
	c := NewCatalog()
	c.Add(NewTable("Users", nil, true))

	if !c.Has("users") || !c.Has("USERS") || !c.Has("Users") {
		t.Error("expected case-insensitive Has")
	}
	if got := c.Get("uSeRs"); got == nil || got.Name != "USERS" {
		t.Errorf("got %+v", got)
	}
}

func TestCatalogDropIsNoOpForUnknownTable(t *testing.T) {
	c := NewCatalog()
	c.Drop("ghost") // must not panic
	if c.Has("ghost") {
		t.Error("dropping unknown table should be a no-op, not create it")
	}
}

func TestCatalogNamesSorted(t *testing.T) {
	c := NewCatalog()
	c.Add(NewTable("zebra", nil, true))
	c.Add(NewTable("apple", nil, true))
	c.Add(NewTable("mango", nil, true))
	want := []string{"APPLE", "MANGO", "ZEBRA"}
	if got := c.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNewTableFirstPrimaryKeyWins(t *testing.T) {
	cols := []Column{
		{Name: "id", Type: ColInt, PrimaryKey: true},
		{Name: "alt_id", Type: ColInt, PrimaryKey: true},
	}
	tbl := NewTable("t", cols, true)
	if tbl.PKIndex != 0 {
		t.Errorf("PKIndex = %d, want 0 (first flagged column)", tbl.PKIndex)
	}
	if !tbl.HasPrimaryKey() {
		t.Error("expected HasPrimaryKey true")
	}
}

func TestNewTableNoPrimaryKey(t *testing.T) {
	tbl := NewTable("t", []Column{{Name: "v", Type: ColInt}}, true)
	if tbl.HasPrimaryKey() {
		t.Error("expected HasPrimaryKey false")
	}
	if tbl.PKIndex != -1 {
		t.Errorf("PKIndex = %d, want -1", tbl.PKIndex)
	}
}

func TestColIndexCaseInsensitiveAndUnknown(t *testing.T) {
	tbl := NewTable("t", []Column{{Name: "Region"}}, true)
	if tbl.ColIndex("region") != 0 {
		t.Errorf("expected case-insensitive column lookup to find index 0")
	}
	if tbl.ColIndex("nope") != -1 {
		t.Error("expected -1 for unknown column")
	}
}
