package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forgedb/forgedb/internal/storage"
)

// Parser is a recursive-descent parser over a two-token lookahead
// stream, grounded on the teacher's own Parser shape (cur/peek,
// expectKeyword/expectSymbol helpers).
type Parser struct {
	lx   *lexer
	cur  token
	peek token
}

// NewParser creates a parser for sql.
func NewParser(sql string) *Parser {
	p := &Parser{lx: newLexer(sql)}
	p.cur = p.lx.nextToken()
	p.peek = p.lx.nextToken()
	return p
}

func (p *Parser) next() { p.cur, p.peek = p.peek, p.lx.nextToken() }

func (p *Parser) errf(format string, a ...any) error {
	return fmt.Errorf("parse error near %q: %s", p.cur.Val, fmt.Sprintf(format, a...))
}

func (p *Parser) atKeyword(kw string) bool {
	return p.cur.Typ == tKeyword && p.cur.Val == kw
}

func (p *Parser) atSymbol(sym string) bool {
	return p.cur.Typ == tSymbol && p.cur.Val == sym
}

func (p *Parser) expectKeyword(kw string) error {
	if p.atKeyword(kw) {
		p.next()
		return nil
	}
	return p.errf("expected keyword %q", kw)
}

func (p *Parser) expectSymbol(sym string) error {
	if p.atSymbol(sym) {
		p.next()
		return nil
	}
	return p.errf("expected symbol %q", sym)
}

// ident accepts an identifier, tolerating keywords used as names (the
// teacher's "ident-like parsing accepts keywords as identifiers" idiom,
// needed so common column names like TEXT or SET don't become reserved).
func (p *Parser) ident() (string, error) {
	if p.cur.Typ == tIdent || p.cur.Typ == tKeyword {
		v := p.cur.Val
		p.next()
		return v, nil
	}
	return "", p.errf("expected identifier")
}

// ParseStatement parses one statement (without a trailing `;`, which the
// caller is expected to have stripped, matching the teacher's REPL which
// splits on `;` before parsing).
func (p *Parser) ParseStatement() (Statement, error) {
	switch {
	case p.atKeyword("CREATE"):
		return p.parseCreateTable()
	case p.atKeyword("DROP"):
		return p.parseDropTable()
	case p.atKeyword("INSERT"):
		return p.parseInsert()
	case p.atKeyword("UPDATE"):
		return p.parseUpdate()
	case p.atKeyword("DELETE"):
		return p.parseDelete()
	case p.atKeyword("SELECT"):
		return p.parseSelect()
	case p.atKeyword("SET"):
		return p.parseSet()
	case p.atKeyword("SAVE"):
		return p.parseSave()
	case p.atKeyword("LOAD"):
		return p.parseLoad()
	case p.atKeyword("BEGIN"):
		p.next()
		if p.atKeyword("TRANSACTION") {
			p.next()
		}
		return &Begin{}, nil
	case p.atKeyword("COMMIT"), p.atKeyword("END"):
		p.next()
		return &Commit{}, nil
	case p.atKeyword("ROLLBACK"):
		p.next()
		return &Rollback{}, nil
	case p.atKeyword("EXIT"), p.atKeyword("QUIT"):
		p.next()
		return &Exit{}, nil
	case p.cur.Typ == tEOF:
		return nil, fmt.Errorf("empty statement")
	default:
		return &Invalid{Err: fmt.Sprintf("unsupported statement starting at %q", p.cur.Val)}, nil
	}
}

// ---------------------------- CREATE TABLE ----------------------------

func (p *Parser) parseCreateTable() (Statement, error) {
	p.next() // CREATE
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var cols []ColumnDef
	for {
		cd, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, cd)
		if p.atSymbol(",") {
			p.next()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &CreateTable{Table: name, Columns: cols}, nil
}

func (p *Parser) parseColumnDef() (ColumnDef, error) {
	var cd ColumnDef
	name, err := p.ident()
	if err != nil {
		return cd, err
	}
	cd.Name = name

	typName, err := p.ident()
	if err != nil {
		return cd, err
	}
	switch strings.ToUpper(typName) {
	case "INT", "INTEGER":
		cd.Type = storage.ColInt
	case "DOUBLE", "FLOAT":
		cd.Type = storage.ColDouble
	case "TEXT":
		cd.Type = storage.ColText
	case "SET":
		cd.Type = storage.ColSetText
		if err := p.expectSymbol("<"); err != nil {
			return cd, err
		}
		if _, err := p.ident(); err != nil { // TEXT
			return cd, err
		}
		if err := p.expectSymbol(">"); err != nil {
			return cd, err
		}
	case "VECTOR":
		cd.Type = storage.ColVector
		if err := p.expectSymbol("<"); err != nil {
			return cd, err
		}
		if p.cur.Typ != tNumber {
			return cd, p.errf("expected vector dimension")
		}
		dim, err := strconv.Atoi(p.cur.Val)
		if err != nil || dim <= 0 {
			return cd, p.errf("invalid vector dimension %q", p.cur.Val)
		}
		cd.VectorDim = dim
		p.next()
		if err := p.expectSymbol(">"); err != nil {
			return cd, err
		}
	default:
		return cd, p.errf("unknown column type %q", typName)
	}

	cd.Merge = storage.NoneMerge
	for {
		switch {
		case p.atKeyword("PRIMARY"):
			p.next()
			if err := p.expectKeyword("KEY"); err != nil {
				return cd, err
			}
			cd.PrimaryKey = true
		case p.atKeyword("MERGE"):
			p.next()
			spec, err := p.parseMergeSpec()
			if err != nil {
				return cd, err
			}
			cd.Merge = spec
		default:
			return cd, nil
		}
	}
}

func (p *Parser) parseMergeSpec() (storage.MergeSpec, error) {
	switch {
	case p.atKeyword("LWW"):
		p.next()
		return storage.MergeSpec{Kind: storage.MergeLWW}, nil
	case p.atKeyword("GSET"):
		p.next()
		return storage.MergeSpec{Kind: storage.MergeGSet}, nil
	case p.atKeyword("SUM_BOUNDED"):
		p.next()
		if err := p.expectSymbol("("); err != nil {
			return storage.MergeSpec{}, err
		}
		min, err := p.parseSignedInt()
		if err != nil {
			return storage.MergeSpec{}, err
		}
		if err := p.expectSymbol(","); err != nil {
			return storage.MergeSpec{}, err
		}
		max, err := p.parseSignedInt()
		if err != nil {
			return storage.MergeSpec{}, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return storage.MergeSpec{}, err
		}
		return storage.MergeSpec{Kind: storage.MergeSumBounded, Min: min, Max: max}, nil
	default:
		return storage.MergeSpec{}, p.errf("expected merge kind")
	}
}

func (p *Parser) parseSignedInt() (int64, error) {
	if p.cur.Typ != tNumber {
		return 0, p.errf("expected integer")
	}
	n, err := strconv.ParseInt(p.cur.Val, 10, 64)
	if err != nil {
		return 0, p.errf("invalid integer %q", p.cur.Val)
	}
	p.next()
	return n, nil
}

// ---------------------------- DROP TABLE ----------------------------

func (p *Parser) parseDropTable() (Statement, error) {
	p.next() // DROP
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	return &DropTable{Table: name}, nil
}

// ---------------------------- INSERT ----------------------------

func (p *Parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	var cols []string
	if p.atSymbol("(") {
		p.next()
		for {
			c, err := p.ident()
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
			if p.atSymbol(",") {
				p.next()
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	var rows [][]Expr
	for {
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var vals []Expr
		for {
			e, err := p.parseLiteralExpr()
			if err != nil {
				return nil, err
			}
			vals = append(vals, e)
			if p.atSymbol(",") {
				p.next()
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		rows = append(rows, vals)
		if p.atSymbol(",") {
			p.next()
			continue
		}
		break
	}
	onConflict := false
	if p.atKeyword("ON") {
		p.next()
		if err := p.expectKeyword("CONFLICT"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("MERGE"); err != nil {
			return nil, err
		}
		onConflict = true
	}
	return &Insert{Table: name, Columns: cols, Rows: rows, OnConflict: onConflict}, nil
}

func (p *Parser) parseLiteralExpr() (Expr, error) {
	switch {
	case p.atKeyword("NULL"):
		p.next()
		return LitNull{}, nil
	case p.cur.Typ == tString:
		v := p.cur.Val
		p.next()
		return LitText{Val: v}, nil
	case p.cur.Typ == tNumber:
		v := p.cur.Val
		p.next()
		if strings.ContainsAny(v, ".eE") {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, p.errf("invalid number %q", v)
			}
			return LitDouble{Val: f}, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, p.errf("invalid integer %q", v)
		}
		return LitInt{Val: n}, nil
	case p.atSymbol("["):
		return p.parseVectorLiteral()
	case p.atSymbol("{"):
		return p.parseSetLiteral()
	default:
		return nil, p.errf("expected literal value")
	}
}

func (p *Parser) parseVectorLiteral() (Expr, error) {
	p.next() // [
	var vals []float64
	if !p.atSymbol("]") {
		for {
			neg := false
			if p.atSymbol("-") {
				neg = true
				p.next()
			}
			if p.cur.Typ != tNumber {
				return nil, p.errf("expected number in vector literal")
			}
			f, err := strconv.ParseFloat(p.cur.Val, 64)
			if err != nil {
				return nil, p.errf("invalid number %q", p.cur.Val)
			}
			if neg {
				f = -f
			}
			vals = append(vals, f)
			p.next()
			if p.atSymbol(",") {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	return LitVector{Vals: vals}, nil
}

func (p *Parser) parseSetLiteral() (Expr, error) {
	p.next() // {
	var vals []string
	if !p.atSymbol("}") {
		for {
			if p.cur.Typ != tString {
				return nil, p.errf("expected text literal in set literal")
			}
			vals = append(vals, p.cur.Val)
			p.next()
			if p.atSymbol(",") {
				p.next()
				continue
			}
			break
		}
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return LitSet{Vals: vals}, nil
}

// ---------------------------- UPDATE ----------------------------

func (p *Parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	var assigns []Assignment
	for {
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		val, err := p.parseLiteralExpr()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assignment{Column: col, Value: val})
		if p.atSymbol(",") {
			p.next()
			continue
		}
		break
	}
	var where []Condition
	if p.atKeyword("WHERE") {
		p.next()
		w, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		where = w
	}
	var vp ValidPeriod
	if p.atKeyword("VALID") {
		p.next()
		if err := p.expectKeyword("PERIOD"); err != nil {
			return nil, err
		}
		if err := p.expectSymbol("["); err != nil {
			return nil, err
		}
		if p.cur.Typ != tString {
			return nil, p.errf("expected valid_from text literal")
		}
		vp.From = p.cur.Val
		p.next()
		if err := p.expectSymbol(","); err != nil {
			return nil, err
		}
		if p.cur.Typ != tString {
			return nil, p.errf("expected valid_to text literal")
		}
		vp.To = p.cur.Val
		p.next()
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		vp.Set = true
	}
	return &Update{Table: name, Assignments: assigns, Where: where, Valid: vp}, nil
}

// ---------------------------- DELETE ----------------------------

func (p *Parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	var where []Condition
	if p.atKeyword("WHERE") {
		p.next()
		w, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		where = w
	}
	return &Delete{Table: name, Where: where}, nil
}

// ---------------------------- WHERE ----------------------------

// parseWhere parses a true AND-separated conjunction of conditions,
// splitting strictly on the AND keyword token rather than on any
// substring match (spec §9's mandated fix for the naive "split on the
// letter A" bug).
func (p *Parser) parseWhere() ([]Condition, error) {
	var conds []Condition
	for {
		c, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
		if p.atKeyword("AND") {
			p.next()
			continue
		}
		break
	}
	return conds, nil
}

func (p *Parser) parseColRef() (ColRef, error) {
	first, err := p.ident()
	if err != nil {
		return ColRef{}, err
	}
	if p.atSymbol(".") {
		p.next()
		second, err := p.ident()
		if err != nil {
			return ColRef{}, err
		}
		return ColRef{Table: first, Name: second}, nil
	}
	return ColRef{Name: first}, nil
}

func (p *Parser) parseCondition() (Condition, error) {
	if p.atKeyword("DISTANCE") {
		return p.parseDistanceCondition()
	}
	col, err := p.parseColRef()
	if err != nil {
		return Condition{}, err
	}
	if p.atKeyword("IS") {
		p.next()
		if p.atKeyword("NOT") {
			p.next()
			if err := p.expectKeyword("NULL"); err != nil {
				return Condition{}, err
			}
			return Condition{Kind: CondIsNotNull, Col: col}, nil
		}
		if err := p.expectKeyword("NULL"); err != nil {
			return Condition{}, err
		}
		return Condition{Kind: CondIsNull, Col: col}, nil
	}
	op, err := p.parseCmpOp()
	if err != nil {
		return Condition{}, err
	}
	lit, err := p.parseLiteralExpr()
	if err != nil {
		return Condition{}, err
	}
	return Condition{Kind: CondCompare, Op: op, Col: col, Lit: lit}, nil
}

func (p *Parser) parseCmpOp() (CmpOp, error) {
	if p.cur.Typ != tSymbol {
		return 0, p.errf("expected comparison operator")
	}
	op := p.cur.Val
	p.next()
	switch op {
	case "=":
		return CmpEq, nil
	case "!=":
		return CmpNe, nil
	case "<":
		return CmpLt, nil
	case "<=":
		return CmpLe, nil
	case ">":
		return CmpGt, nil
	case ">=":
		return CmpGe, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", op)
	}
}

func (p *Parser) parseDistanceCondition() (Condition, error) {
	p.next() // DISTANCE
	if err := p.expectSymbol("("); err != nil {
		return Condition{}, err
	}
	col, err := p.parseColRef()
	if err != nil {
		return Condition{}, err
	}
	if err := p.expectSymbol(","); err != nil {
		return Condition{}, err
	}
	vecExpr, err := p.parseVectorLiteral()
	if err != nil {
		return Condition{}, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return Condition{}, err
	}
	if err := p.expectSymbol("<"); err != nil {
		return Condition{}, err
	}
	neg := false
	if p.atSymbol("-") {
		neg = true
		p.next()
	}
	if p.cur.Typ != tNumber {
		return Condition{}, p.errf("expected distance threshold")
	}
	threshold, err := strconv.ParseFloat(p.cur.Val, 64)
	if err != nil {
		return Condition{}, p.errf("invalid threshold %q", p.cur.Val)
	}
	if neg {
		threshold = -threshold
	}
	p.next()
	vec := vecExpr.(LitVector).Vals
	return Condition{Kind: CondDistance, DistCol: col, DistVec: vec, DistThreshold: threshold}, nil
}

// ---------------------------- SELECT ----------------------------

func (p *Parser) parseSelect() (Statement, error) {
	p.next() // SELECT
	items, err := p.parseProjItems()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	sel := &Select{Items: items, Table: table}

	if p.atKeyword("JOIN") {
		p.next()
		joinTable, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		left, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		right, err := p.parseColRef()
		if err != nil {
			return nil, err
		}
		sel.Join = &JoinClause{Table: joinTable, LeftCol: left, RightCol: right}
	}

	if p.atKeyword("FOR") {
		p.next()
		if err := p.expectKeyword("SYSTEM_TIME"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AS"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("OF"); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("TX"); err != nil {
			return nil, err
		}
		if p.cur.Typ != tNumber {
			return nil, p.errf("expected transaction id")
		}
		n, err := strconv.ParseInt(p.cur.Val, 10, 64)
		if err != nil {
			return nil, p.errf("invalid transaction id %q", p.cur.Val)
		}
		p.next()
		sel.AsOfTx = n
		sel.AsOfSet = true
	}

	if p.atKeyword("WHERE") {
		p.next()
		w, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		sel.Where = w
	}

	if p.atKeyword("GROUP") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			c, err := p.ident()
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, c)
			if p.atSymbol(",") {
				p.next()
				continue
			}
			break
		}
	}

	if p.atKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		c, err := p.ident()
		if err != nil {
			return nil, err
		}
		sel.Order.Col = c
		sel.Order.Set = true
		if p.atKeyword("DESC") {
			p.next()
			sel.Order.Desc = true
		}
	}

	if p.atKeyword("LIMIT") {
		p.next()
		if p.cur.Typ != tNumber {
			return nil, p.errf("expected limit value")
		}
		n, err := strconv.Atoi(p.cur.Val)
		if err != nil {
			return nil, p.errf("invalid limit %q", p.cur.Val)
		}
		p.next()
		sel.Limit = n
		sel.LimitSet = true
	}

	return sel, nil
}

func (p *Parser) parseProjItems() ([]ProjItem, error) {
	var items []ProjItem
	for {
		item, err := p.parseProjItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.atSymbol(",") {
			p.next()
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseProjItem() (ProjItem, error) {
	if p.atSymbol("*") {
		p.next()
		return ProjItem{Kind: ProjStar}, nil
	}
	if p.atKeyword("DP_COUNT") {
		p.next()
		if err := p.expectSymbol("("); err != nil {
			return ProjItem{}, err
		}
		if err := p.expectSymbol("*"); err != nil {
			return ProjItem{}, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return ProjItem{}, err
		}
		return ProjItem{Kind: ProjDPCount}, nil
	}
	for kw, kind := range map[string]ProjKind{
		"COUNT": ProjCount, "SUM": ProjSum, "AVG": ProjAvg,
		"MIN": ProjMin, "MAX": ProjMax,
	} {
		if p.atKeyword(kw) {
			p.next()
			if err := p.expectSymbol("("); err != nil {
				return ProjItem{}, err
			}
			if kind == ProjCount && p.atSymbol("*") {
				p.next()
				if err := p.expectSymbol(")"); err != nil {
					return ProjItem{}, err
				}
				return ProjItem{Kind: ProjCount}, nil
			}
			col, err := p.parseColRef()
			if err != nil {
				return ProjItem{}, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return ProjItem{}, err
			}
			return ProjItem{Kind: kind, Col: col}, nil
		}
	}
	col, err := p.parseColRef()
	if err != nil {
		return ProjItem{}, err
	}
	return ProjItem{Kind: ProjColumn, Col: col}, nil
}

// ---------------------------- SET / SAVE / LOAD ----------------------------

func (p *Parser) parseSet() (Statement, error) {
	p.next() // SET
	if err := p.expectKeyword("DP_EPSILON"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	neg := false
	if p.atSymbol("-") {
		neg = true
		p.next()
	}
	if p.cur.Typ != tNumber {
		return nil, p.errf("expected numeric value")
	}
	f, err := strconv.ParseFloat(p.cur.Val, 64)
	if err != nil {
		return nil, p.errf("invalid number %q", p.cur.Val)
	}
	if neg {
		f = -f
	}
	p.next()
	return &SetStmt{Name: "DP_EPSILON", Value: f}, nil
}

func (p *Parser) parseSave() (Statement, error) {
	p.next() // SAVE
	if err := p.expectKeyword("DATABASE"); err != nil {
		return nil, err
	}
	if p.cur.Typ != tString {
		return nil, p.errf("expected path literal")
	}
	path := p.cur.Val
	p.next()
	return &Save{Path: path}, nil
}

func (p *Parser) parseLoad() (Statement, error) {
	p.next() // LOAD
	if err := p.expectKeyword("DATABASE"); err != nil {
		return nil, err
	}
	if p.cur.Typ != tString {
		return nil, p.errf("expected path literal")
	}
	path := p.cur.Val
	p.next()
	return &Load{Path: path}, nil
}
