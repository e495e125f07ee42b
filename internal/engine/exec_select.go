package engine

import (
	"sort"
	"strings"

	"github.com/forgedb/forgedb/internal/storage"
)

// execSelect implements spec §4.8: visibility resolution, the optional
// single inner equi-join, predicate filtering, the three projection
// shapes (DP_COUNT, grouped aggregates, plain), and ORDER BY/LIMIT.
func (s *Session) execSelect(sel *Select) *QueryResult {
	tableL := s.DB.Catalog.Get(sel.Table)
	if tableL == nil {
		return failResult(storage.ErrSchema, "unknown table %q", sel.Table)
	}
	tdL := s.DB.Table(sel.Table)

	asofTx := storage.MaxTx
	if sel.AsOfSet {
		asofTx = sel.AsOfTx
	}

	var tableR *storage.Table
	var pairs []*colResolver

	if sel.Join != nil {
		tableR = s.DB.Catalog.Get(sel.Join.Table)
		if tableR == nil {
			return failResult(storage.ErrSchema, "unknown table %q", sel.Join.Table)
		}
		tdR := s.DB.Table(sel.Join.Table)
		leftIdx := tableL.ColIndex(sel.Join.LeftCol.Name)
		rightIdx := tableR.ColIndex(sel.Join.RightCol.Name)
		if leftIdx < 0 || rightIdx < 0 {
			return failResult(storage.ErrSchema, "unknown join column")
		}

		liveL := tdL.LiveSet(asofTx)
		liveR := tdR.LiveSet(asofTx)

		rBuckets := make(map[string][]*storage.RowVersion)
		for _, id := range sortedRowIDs(liveR) {
			rv := liveR[id]
			k := storage.EncodeKey(rv.Data[rightIdx])
			rBuckets[k] = append(rBuckets[k], rv)
		}

		for _, id := range sortedRowIDs(liveL) {
			lv := liveL[id]
			k := storage.EncodeKey(lv.Data[leftIdx])
			for _, rv := range rBuckets[k] {
				res := &colResolver{t1: tableL, d1: lv.Data, rv1: lv, t2: tableR, d2: rv.Data, rv2: rv}
				if evalConditions(sel.Where, res) {
					pairs = append(pairs, res)
				}
			}
		}
	} else {
		live := tdL.LiveSet(asofTx)
		for _, id := range sortedRowIDs(live) {
			rv := live[id]
			res := &colResolver{t1: tableL, d1: rv.Data, rv1: rv}
			if evalConditions(sel.Where, res) {
				pairs = append(pairs, res)
			}
		}
	}

	isDP := len(sel.Items) == 1 && sel.Items[0].Kind == ProjDPCount && len(sel.GroupBy) == 0
	if isDP {
		trueCount := float64(len(pairs))
		noise := s.laplaceSample(s.DPEpsilon)
		return rowsResult([]string{"dp_count"}, [][]storage.Value{{storage.Double(trueCount + noise)}})
	}

	hasAgg := false
	for _, item := range sel.Items {
		switch item.Kind {
		case ProjCount, ProjSum, ProjAvg, ProjMin, ProjMax, ProjDPCount:
			hasAgg = true
		}
	}

	if hasAgg || len(sel.GroupBy) > 0 {
		return s.execSelectGrouped(sel, pairs)
	}

	headers := buildPlainHeaders(sel, tableL, tableR)
	rows := make([][]storage.Value, 0, len(pairs))
	for _, res := range pairs {
		rows = append(rows, rowForPlain(sel, res))
	}
	applyOrderLimit(sel, headers, rows)
	if sel.LimitSet && sel.Limit < len(rows) {
		rows = rows[:sel.Limit]
	}
	return rowsResult(headers, rows)
}

func sortedRowIDs(live map[string]*storage.RowVersion) []string {
	ids := make([]string, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func rowForPlain(sel *Select, res *colResolver) []storage.Value {
	var vals []storage.Value
	for _, item := range sel.Items {
		switch item.Kind {
		case ProjStar:
			if sel.Join == nil {
				vals = append(vals, res.d1...)
				vals = append(vals,
					storage.Int(res.rv1.TxFrom), storage.Int(res.rv1.TxTo),
					storage.Text(res.rv1.ValidFrom), storage.Text(res.rv1.ValidTo))
			} else {
				vals = append(vals, res.d1...)
				vals = append(vals, res.d2...)
			}
		case ProjColumn:
			v, ok := res.resolve(item.Col)
			if !ok {
				v = storage.Null()
			}
			vals = append(vals, v)
		default:
			vals = append(vals, storage.Null())
		}
	}
	return vals
}

func buildPlainHeaders(sel *Select, tableL, tableR *storage.Table) []string {
	var hs []string
	for _, item := range sel.Items {
		switch item.Kind {
		case ProjStar:
			if sel.Join == nil {
				for _, c := range tableL.Columns {
					hs = append(hs, c.Name)
				}
				hs = append(hs, "_tx_from", "_tx_to", "_valid_from", "_valid_to")
			} else {
				for _, c := range tableL.Columns {
					hs = append(hs, tableL.Name+"."+c.Name)
				}
				for _, c := range tableR.Columns {
					hs = append(hs, tableR.Name+"."+c.Name)
				}
			}
		case ProjColumn:
			hs = append(hs, columnHeader(item))
		default:
			hs = append(hs, projHeaderName(item))
		}
	}
	return hs
}

func columnHeader(item ProjItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if item.Col.Table != "" {
		return item.Col.Table + "." + item.Col.Name
	}
	return item.Col.Name
}

func projHeaderName(item ProjItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	switch item.Kind {
	case ProjCount:
		return "count"
	case ProjSum:
		return "sum(" + item.Col.Name + ")"
	case ProjAvg:
		return "avg(" + item.Col.Name + ")"
	case ProjMin:
		return "min(" + item.Col.Name + ")"
	case ProjMax:
		return "max(" + item.Col.Name + ")"
	case ProjDPCount:
		return "dp_count"
	default:
		return "*"
	}
}

// ---------------------------- grouped aggregates ----------------------------

type aggState struct {
	sum      float64
	sumN     int64
	minVal   storage.Value
	hasMin   bool
	maxVal   storage.Value
	hasMax   bool
}

type group struct {
	keyVals []storage.Value
	count   int64
	aggs    []aggState
}

func numericOf(v storage.Value) (float64, bool) {
	switch v.Kind {
	case storage.KindInt:
		return float64(v.I), true
	case storage.KindDouble:
		return v.D, true
	default:
		return 0, false
	}
}

func indexOfGroupBy(groupBy []string, name string) int {
	for i, g := range groupBy {
		if strings.EqualFold(g, name) {
			return i
		}
	}
	return -1
}

// execSelectGrouped implements spec §4.8 step 2: COUNT/SUM/AVG/MIN/MAX
// over groups keyed by GROUP BY (the single group ALL if GROUP BY is
// empty), emitted in sorted canonical-key order for determinism.
// Bare column items that name a GROUP BY column resolve to the
// group's actual key value (the "sound implementation" of the open
// question in spec §9, rather than the source quirk of always
// emitting null).
func (s *Session) execSelectGrouped(sel *Select, pairs []*colResolver) *QueryResult {
	groups := make(map[string]*group)
	var order []string

	for _, res := range pairs {
		keyVals := make([]storage.Value, len(sel.GroupBy))
		for i, col := range sel.GroupBy {
			v, ok := res.resolve(ColRef{Name: col})
			if !ok {
				v = storage.Null()
			}
			keyVals[i] = v
		}
		key := storage.EncodeCompositeKey(keyVals)
		g, ok := groups[key]
		if !ok {
			g = &group{keyVals: keyVals, aggs: make([]aggState, len(sel.Items))}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		for idx, item := range sel.Items {
			switch item.Kind {
			case ProjSum, ProjAvg:
				v, ok := res.resolve(item.Col)
				if !ok {
					continue
				}
				if f, isNum := numericOf(v); isNum {
					g.aggs[idx].sum += f
					g.aggs[idx].sumN++
				}
			case ProjMin:
				v, ok := res.resolve(item.Col)
				if !ok {
					continue
				}
				if f, isNum := numericOf(v); isNum {
					if !g.aggs[idx].hasMin {
						g.aggs[idx].minVal, g.aggs[idx].hasMin = v, true
					} else if cur, _ := numericOf(g.aggs[idx].minVal); f < cur {
						g.aggs[idx].minVal = v
					}
				}
			case ProjMax:
				v, ok := res.resolve(item.Col)
				if !ok {
					continue
				}
				if f, isNum := numericOf(v); isNum {
					if !g.aggs[idx].hasMax {
						g.aggs[idx].maxVal, g.aggs[idx].hasMax = v, true
					} else if cur, _ := numericOf(g.aggs[idx].maxVal); f > cur {
						g.aggs[idx].maxVal = v
					}
				}
			}
		}
	}
	sort.Strings(order)

	headers := buildPlainHeaders(sel, nil, nil)
	for i, item := range sel.Items {
		if item.Kind == ProjColumn {
			headers[i] = columnHeader(item)
		}
	}

	rows := make([][]storage.Value, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := make([]storage.Value, len(sel.Items))
		for idx, item := range sel.Items {
			switch item.Kind {
			case ProjCount, ProjDPCount:
				row[idx] = storage.Int(g.count)
			case ProjSum:
				row[idx] = storage.Double(g.aggs[idx].sum)
			case ProjAvg:
				avg := 0.0
				if g.aggs[idx].sumN > 0 {
					avg = g.aggs[idx].sum / float64(g.aggs[idx].sumN)
				}
				row[idx] = storage.Double(avg)
			case ProjMin:
				if g.aggs[idx].hasMin {
					row[idx] = g.aggs[idx].minVal
				} else {
					row[idx] = storage.Null()
				}
			case ProjMax:
				if g.aggs[idx].hasMax {
					row[idx] = g.aggs[idx].maxVal
				} else {
					row[idx] = storage.Null()
				}
			case ProjColumn:
				if pos := indexOfGroupBy(sel.GroupBy, item.Col.Name); pos >= 0 {
					row[idx] = g.keyVals[pos]
				} else {
					row[idx] = storage.Null()
				}
			default:
				row[idx] = storage.Null()
			}
		}
		rows = append(rows, row)
	}

	applyOrderLimit(sel, headers, rows)
	if sel.LimitSet && sel.Limit < len(rows) {
		rows = rows[:sel.Limit]
	}
	return rowsResult(headers, rows)
}

// ---------------------------- ORDER BY / LIMIT ----------------------------

func headerIndex(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(h, name) {
			return i
		}
		if idx := strings.LastIndexByte(h, '.'); idx >= 0 && strings.EqualFold(h[idx+1:], name) {
			return i
		}
	}
	return -1
}

func applyOrderLimit(sel *Select, headers []string, rows [][]storage.Value) {
	if !sel.Order.Set {
		return
	}
	idx := headerIndex(headers, sel.Order.Col)
	if idx < 0 {
		return
	}
	numeric := true
	for _, r := range rows {
		if r[idx].Kind != storage.KindNull && r[idx].Kind != storage.KindInt && r[idx].Kind != storage.KindDouble {
			numeric = false
			break
		}
	}
	less := func(a, b storage.Value) bool {
		if numeric {
			af, _ := numericOf(a)
			bf, _ := numericOf(b)
			return af < bf
		}
		return a.String() < b.String()
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if sel.Order.Desc {
			return less(rows[j][idx], rows[i][idx])
		}
		return less(rows[i][idx], rows[j][idx])
	})
}
