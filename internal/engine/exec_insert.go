package engine

import (
	"fmt"

	"github.com/forgedb/forgedb/internal/storage"
)

type insertPlan struct {
	rowID string
	data  []storage.Value
}

// execInsert implements spec §4.5. Every row is validated (coercion,
// arity, primary-key derivation) before any mutation is applied, so a
// failing row aborts the whole statement without partial writes.
func (s *Session) execInsert(ins *Insert) *QueryResult {
	table := s.DB.Catalog.Get(ins.Table)
	if table == nil {
		return failResult(storage.ErrSchema, "unknown table %q", ins.Table)
	}
	td := s.DB.Table(ins.Table)

	cols := ins.Columns
	if len(cols) == 0 {
		cols = make([]string, len(table.Columns))
		for i, c := range table.Columns {
			cols[i] = c.Name
		}
	}
	colIdx := make([]int, len(cols))
	for i, c := range cols {
		idx := table.ColIndex(c)
		if idx < 0 {
			return failResult(storage.ErrSchema, "unknown column %q on table %q", c, ins.Table)
		}
		colIdx[i] = idx
	}

	if !table.HasPrimaryKey() {
		return failResult(storage.ErrSchema, "table %q has no primary key", ins.Table)
	}

	plans := make([]insertPlan, 0, len(ins.Rows))
	for _, row := range ins.Rows {
		if len(row) != len(colIdx) {
			return failResult(storage.ErrArity, "expected %d value(s), got %d", len(colIdx), len(row))
		}
		data := make([]storage.Value, len(table.Columns))
		for i, expr := range row {
			col := table.Columns[colIdx[i]]
			coerced, ok := storage.Coerce(litToValue(expr), col.Type, col.VectorDim)
			if !ok {
				return failResult(storage.ErrType, "cannot coerce value for column %q", col.Name)
			}
			data[colIdx[i]] = coerced
		}
		pkVal := data[table.PKIndex]
		rowID, ok := storage.DeriveRowID(pkVal)
		if !ok {
			return failResult(storage.ErrType, "primary key must be a non-null text or int value")
		}
		plans = append(plans, insertPlan{rowID: rowID, data: data})
	}

	txID := s.DB.BeginTx()
	nowISO := s.DB.NowISO()
	validTo := storage.DefaultValidTo()

	for _, pl := range plans {
		newData := pl.data
		if liveIdx, hasLive := td.LiveIndex(pl.rowID); hasLive {
			old := td.Versions[liveIdx].Data
			if ins.OnConflict && table.Mergeable {
				merged := make([]storage.Value, len(table.Columns))
				for c := range table.Columns {
					mv := storage.Merge(table.Columns[c].Merge, old[c], pl.data[c])
					if mv.IsNull() && !old[c].IsNull() {
						mv = old[c]
					}
					merged[c] = mv
				}
				newData = merged
			} else {
				repl := make([]storage.Value, len(table.Columns))
				copy(repl, old)
				for c := range table.Columns {
					if !pl.data[c].IsNull() {
						repl[c] = pl.data[c]
					}
				}
				newData = repl
			}
			td.CloseLive(pl.rowID, txID)
		}
		td.Append(storage.RowVersion{
			RowID: pl.rowID, TxFrom: txID, TxTo: storage.MaxTx,
			ValidFrom: nowISO, ValidTo: validTo, Data: newData,
		})
	}

	return statusResult(fmt.Sprintf("INSERT %d row(s)", len(plans)))
}
