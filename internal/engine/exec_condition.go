package engine

import (
	"math"
	"strings"

	"github.com/forgedb/forgedb/internal/storage"
)

// colResolver resolves a (possibly qualified) column reference against
// one or two rows: the single FROM table, and optionally the JOIN
// table. Unqualified names resolve against the left row first.
type colResolver struct {
	t1  *storage.Table
	d1  []storage.Value
	rv1 *storage.RowVersion
	t2  *storage.Table
	d2  []storage.Value
	rv2 *storage.RowVersion
}

func sameTable(ref string, tableName string) bool {
	return strings.EqualFold(ref, tableName)
}

func (r *colResolver) resolve(col ColRef) (storage.Value, bool) {
	if col.Table != "" {
		if r.t1 != nil && sameTable(col.Table, r.t1.Name) {
			if idx := r.t1.ColIndex(col.Name); idx >= 0 {
				return r.d1[idx], true
			}
			return storage.Null(), false
		}
		if r.t2 != nil && sameTable(col.Table, r.t2.Name) {
			if idx := r.t2.ColIndex(col.Name); idx >= 0 {
				return r.d2[idx], true
			}
			return storage.Null(), false
		}
		return storage.Null(), false
	}
	if r.t1 != nil {
		if idx := r.t1.ColIndex(col.Name); idx >= 0 {
			return r.d1[idx], true
		}
	}
	if r.t2 != nil {
		if idx := r.t2.ColIndex(col.Name); idx >= 0 {
			return r.d2[idx], true
		}
	}
	return storage.Null(), false
}

// litToValue converts a parsed literal expression to a storage.Value.
func litToValue(e Expr) storage.Value {
	switch l := e.(type) {
	case LitNull:
		return storage.Null()
	case LitInt:
		return storage.Int(l.Val)
	case LitDouble:
		return storage.Double(l.Val)
	case LitText:
		return storage.Text(l.Val)
	case LitSet:
		return storage.SetText(l.Vals)
	case LitVector:
		return storage.Vector(l.Vals)
	default:
		return storage.Null()
	}
}

// evalConditions reports whether every condition in conds holds against
// res (conjunction; an empty list is vacuously true).
func evalConditions(conds []Condition, res *colResolver) bool {
	for _, c := range conds {
		if !evalCondition(c, res) {
			return false
		}
	}
	return true
}

func evalCondition(c Condition, res *colResolver) bool {
	switch c.Kind {
	case CondIsNull:
		v, ok := res.resolve(c.Col)
		return ok && v.IsNull()
	case CondIsNotNull:
		v, ok := res.resolve(c.Col)
		return ok && !v.IsNull()
	case CondDistance:
		v, ok := res.resolve(c.DistCol)
		if !ok || v.Kind != storage.KindVector || len(v.Vec) != len(c.DistVec) {
			return false
		}
		return l2Distance(v.Vec, c.DistVec) < c.DistThreshold
	case CondCompare:
		v, ok := res.resolve(c.Col)
		if !ok {
			return false
		}
		return compareValues(c.Op, v, litToValue(c.Lit))
	default:
		return false
	}
}

// compareValues implements spec's type-compatible comparison rule:
// int-int, string-string, double-either-numeric (widening the int
// side); any other pairing evaluates to false.
func compareValues(op CmpOp, a, b storage.Value) bool {
	switch {
	case a.Kind == storage.KindInt && b.Kind == storage.KindInt:
		return cmpInt(op, a.I, b.I)
	case a.Kind == storage.KindText && b.Kind == storage.KindText:
		return cmpStr(op, a.S, b.S)
	case a.Kind == storage.KindDouble && b.Kind == storage.KindDouble:
		return cmpFloat(op, a.D, b.D)
	case a.Kind == storage.KindDouble && b.Kind == storage.KindInt:
		return cmpFloat(op, a.D, float64(b.I))
	case a.Kind == storage.KindInt && b.Kind == storage.KindDouble:
		return cmpFloat(op, float64(a.I), b.D)
	default:
		return false
	}
}

func cmpInt(op CmpOp, a, b int64) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	default:
		return false
	}
}

func cmpFloat(op CmpOp, a, b float64) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	default:
		return false
	}
}

func cmpStr(op CmpOp, a, b string) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	default:
		return false
	}
}

// l2Distance computes Euclidean distance between two equal-length
// vectors.
func l2Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
