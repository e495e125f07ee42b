package engine

import (
	"fmt"
	"sort"

	"github.com/forgedb/forgedb/internal/storage"
)

// execDelete implements spec §4.7: every currently-live version
// matching WHERE has its tx_to closed at the statement's transaction
// id. No successor version is pushed.
func (s *Session) execDelete(del *Delete) *QueryResult {
	table := s.DB.Catalog.Get(del.Table)
	if table == nil {
		return failResult(storage.ErrSchema, "unknown table %q", del.Table)
	}
	td := s.DB.Table(del.Table)

	live := td.LiveSet(storage.MaxTx)
	rowIDs := make([]string, 0, len(live))
	for id := range live {
		rowIDs = append(rowIDs, id)
	}
	sort.Strings(rowIDs)

	var matched []string
	for _, id := range rowIDs {
		res := &colResolver{t1: table, d1: live[id].Data}
		if evalConditions(del.Where, res) {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return statusResult("DELETE 0 row(s)")
	}

	txID := s.DB.BeginTx()
	for _, id := range matched {
		td.CloseLive(id, txID)
	}

	return statusResult(fmt.Sprintf("DELETE %d row(s)", len(matched)))
}
