package engine

import (
	"fmt"
	"sort"

	"github.com/forgedb/forgedb/internal/storage"
)

// execUpdate implements spec §4.6. Matching is evaluated against the
// live set before any mutation, so assignments never observe a
// partially-updated table.
func (s *Session) execUpdate(upd *Update) *QueryResult {
	table := s.DB.Catalog.Get(upd.Table)
	if table == nil {
		return failResult(storage.ErrSchema, "unknown table %q", upd.Table)
	}
	td := s.DB.Table(upd.Table)

	assignIdx := make([]int, len(upd.Assignments))
	assignVal := make([]storage.Value, len(upd.Assignments))
	for i, a := range upd.Assignments {
		idx := table.ColIndex(a.Column)
		if idx < 0 {
			return failResult(storage.ErrSchema, "unknown column %q on table %q", a.Column, upd.Table)
		}
		col := table.Columns[idx]
		coerced, ok := storage.Coerce(litToValue(a.Value), col.Type, col.VectorDim)
		if !ok {
			return failResult(storage.ErrType, "cannot coerce value for column %q", col.Name)
		}
		assignIdx[i] = idx
		assignVal[i] = coerced
	}

	live := td.LiveSet(storage.MaxTx)
	rowIDs := make([]string, 0, len(live))
	for id := range live {
		rowIDs = append(rowIDs, id)
	}
	sort.Strings(rowIDs)

	var matched []string
	for _, id := range rowIDs {
		res := &colResolver{t1: table, d1: live[id].Data}
		if evalConditions(upd.Where, res) {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return statusResult("UPDATE 0 row(s)")
	}

	txID := s.DB.BeginTx()
	validFrom := s.DB.NowISO()
	validTo := storage.DefaultValidTo()
	if upd.Valid.Set {
		validFrom = upd.Valid.From
		validTo = upd.Valid.To
	}

	for _, id := range matched {
		idx, _ := td.LiveIndex(id)
		old := td.Versions[idx].Data
		newData := make([]storage.Value, len(table.Columns))
		copy(newData, old)
		for i, ai := range assignIdx {
			col := table.Columns[ai]
			if table.Mergeable && col.Merge.Kind != storage.MergeNone {
				newData[ai] = storage.Merge(col.Merge, old[ai], assignVal[i])
			} else {
				newData[ai] = assignVal[i]
			}
		}
		td.CloseLive(id, txID)
		td.Append(storage.RowVersion{
			RowID: id, TxFrom: txID, TxTo: storage.MaxTx,
			ValidFrom: validFrom, ValidTo: validTo, Data: newData,
		})
	}

	return statusResult(fmt.Sprintf("UPDATE %d row(s)", len(matched)))
}
