// Package snapshot implements the FORGEDB_SNAPSHOT_V1 line-oriented
// text format of spec §6.4: SAVE writes a database's full catalog and
// version history; LOAD parses a file back into a fresh database,
// leaving the caller to swap it in atomically on success.
package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/forgedb/forgedb/internal/storage"
)

const header = "FORGEDB_SNAPSHOT_V1"

// Write serializes db in full to w.
func Write(w io.Writer, db *storage.DB) error {
	bw := bufio.NewWriter(w)

	names := db.Catalog.Names()
	if _, err := fmt.Fprintln(bw, header); err != nil {
		return err
	}
	fmt.Fprintf(bw, "TX %d\n", db.NextTx)
	fmt.Fprintf(bw, "TABLES %d\n", len(names))

	for _, name := range names {
		table := db.Catalog.Get(name)
		td := db.Table(name)

		fmt.Fprintf(bw, "T %s\n", table.Name)
		fmt.Fprintf(bw, "C %d\n", len(table.Columns))
		for _, c := range table.Columns {
			pk := 0
			if c.PrimaryKey {
				pk = 1
			}
			fmt.Fprintf(bw, "COL %s\n", strings.Join([]string{
				escapeText(c.Name),
				strconv.Itoa(int(c.Type)),
				strconv.Itoa(int(c.Merge.Kind)),
				strconv.FormatInt(c.Merge.Min, 10),
				strconv.FormatInt(c.Merge.Max, 10),
				strconv.Itoa(c.VectorDim),
				strconv.Itoa(pk),
			}, "|"))
		}

		fmt.Fprintf(bw, "V %d\n", len(td.Versions))
		for _, rv := range td.Versions {
			fmt.Fprintf(bw, "R %s\n", strings.Join([]string{
				escapeText(rv.RowID),
				strconv.FormatInt(rv.TxFrom, 10),
				strconv.FormatInt(rv.TxTo, 10),
				escapeText(rv.ValidFrom),
				escapeText(rv.ValidTo),
			}, "|"))
			fmt.Fprintf(bw, "D %d\n", len(rv.Data))
			for _, v := range rv.Data {
				fmt.Fprintln(bw, encodeCell(v))
			}
		}
	}

	return bw.Flush()
}

func encodeCell(v storage.Value) string {
	switch v.Kind {
	case storage.KindNull:
		return "N|"
	case storage.KindInt:
		return "I|" + strconv.FormatInt(v.I, 10)
	case storage.KindDouble:
		return "F|" + strconv.FormatFloat(v.D, 'g', -1, 64)
	case storage.KindText:
		return "S|" + escapeText(v.S)
	case storage.KindSetText:
		parts := make([]string, len(v.Set))
		for i, m := range v.Set {
			parts[i] = escapeText(m)
		}
		return "G|" + strings.Join(parts, ",")
	case storage.KindVector:
		parts := make([]string, len(v.Vec))
		for i, d := range v.Vec {
			parts[i] = strconv.FormatFloat(d, 'g', -1, 64)
		}
		return "V|" + strings.Join(parts, ",")
	default:
		return "N|"
	}
}

// escapeText prefixes '\', '|', and newline with '\' so the field can
// be safely packed into a '|'-delimited line.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\|`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeText reverses escapeText.
func unescapeText(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			switch runes[i+1] {
			case 'n':
				b.WriteRune('\n')
			case '|':
				b.WriteRune('|')
			case '\\':
				b.WriteRune('\\')
			default:
				b.WriteRune(runes[i+1])
			}
			i++
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// splitFields splits s on unescaped '|' boundaries and unescapes each
// resulting field.
func splitFields(s string) []string {
	var parts []string
	var cur strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			cur.WriteRune(runes[i])
			cur.WriteRune(runes[i+1])
			i++
			continue
		}
		if runes[i] == '|' {
			parts = append(parts, unescapeText(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(runes[i])
	}
	parts = append(parts, unescapeText(cur.String()))
	return parts
}

func decodeCell(line string) (storage.Value, error) {
	idx := strings.IndexByte(line, '|')
	if idx < 0 {
		return storage.Value{}, fmt.Errorf("malformed cell line %q", line)
	}
	tag, payload := line[:idx], line[idx+1:]
	switch tag {
	case "N":
		return storage.Null(), nil
	case "I":
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return storage.Value{}, err
		}
		return storage.Int(n), nil
	case "F":
		f, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return storage.Value{}, err
		}
		return storage.Double(f), nil
	case "S":
		return storage.Text(unescapeText(payload)), nil
	case "G":
		var members []string
		if payload != "" {
			for _, m := range strings.Split(payload, ",") {
				members = append(members, unescapeText(m))
			}
		}
		return storage.SetText(members), nil
	case "V":
		var vec []float64
		if payload != "" {
			for _, p := range strings.Split(payload, ",") {
				f, err := strconv.ParseFloat(p, 64)
				if err != nil {
					return storage.Value{}, err
				}
				vec = append(vec, f)
			}
		}
		return storage.Vector(vec), nil
	default:
		return storage.Value{}, fmt.Errorf("unknown cell tag %q", tag)
	}
}

// Load parses r into a brand-new database. The caller is responsible
// for swapping it in only once Load succeeds (spec §9's "scratch and
// swap" recommendation), so a malformed file never corrupts a running
// database.
func Load(r io.Reader) (*storage.DB, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	readLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	line, ok := readLine()
	if !ok || line != header {
		return nil, fmt.Errorf("missing or invalid snapshot header")
	}

	line, ok = readLine()
	if !ok || !strings.HasPrefix(line, "TX ") {
		return nil, fmt.Errorf("missing TX line")
	}
	nextTx, err := strconv.ParseInt(strings.TrimPrefix(line, "TX "), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TX value: %w", err)
	}

	line, ok = readLine()
	if !ok || !strings.HasPrefix(line, "TABLES ") {
		return nil, fmt.Errorf("missing TABLES line")
	}
	ntables, err := strconv.Atoi(strings.TrimPrefix(line, "TABLES "))
	if err != nil {
		return nil, fmt.Errorf("invalid TABLES value: %w", err)
	}

	db := storage.NewDB()
	db.NextTx = nextTx

	for t := 0; t < ntables; t++ {
		line, ok = readLine()
		if !ok || !strings.HasPrefix(line, "T ") {
			return nil, fmt.Errorf("expected T line")
		}
		tableName := strings.TrimPrefix(line, "T ")

		line, ok = readLine()
		if !ok || !strings.HasPrefix(line, "C ") {
			return nil, fmt.Errorf("expected C line")
		}
		ncols, err := strconv.Atoi(strings.TrimPrefix(line, "C "))
		if err != nil {
			return nil, fmt.Errorf("invalid column count: %w", err)
		}

		cols := make([]storage.Column, ncols)
		for c := 0; c < ncols; c++ {
			line, ok = readLine()
			if !ok || !strings.HasPrefix(line, "COL ") {
				return nil, fmt.Errorf("expected COL line")
			}
			fields := splitFields(strings.TrimPrefix(line, "COL "))
			if len(fields) != 7 {
				return nil, fmt.Errorf("malformed COL line")
			}
			typeInt, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("invalid column type: %w", err)
			}
			mergeInt, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("invalid merge kind: %w", err)
			}
			minV, err := strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				return nil, err
			}
			maxV, err := strconv.ParseInt(fields[4], 10, 64)
			if err != nil {
				return nil, err
			}
			vecDim, err := strconv.Atoi(fields[5])
			if err != nil {
				return nil, err
			}
			cols[c] = storage.Column{
				Name:       fields[0],
				Type:       storage.ColumnType(typeInt),
				Merge:      storage.MergeSpec{Kind: storage.MergeKind(mergeInt), Min: minV, Max: maxV},
				VectorDim:  vecDim,
				PrimaryKey: fields[6] == "1",
			}
		}
		mergeable := false
		for _, c := range cols {
			if c.Merge.Kind != storage.MergeNone {
				mergeable = true
			}
		}
		table := storage.NewTable(tableName, cols, mergeable)
		db.CreateTable(table)
		td := db.Table(tableName)

		line, ok = readLine()
		if !ok || !strings.HasPrefix(line, "V ") {
			return nil, fmt.Errorf("expected V line")
		}
		nrows, err := strconv.Atoi(strings.TrimPrefix(line, "V "))
		if err != nil {
			return nil, err
		}

		for v := 0; v < nrows; v++ {
			line, ok = readLine()
			if !ok || !strings.HasPrefix(line, "R ") {
				return nil, fmt.Errorf("expected R line")
			}
			fields := splitFields(strings.TrimPrefix(line, "R "))
			if len(fields) != 5 {
				return nil, fmt.Errorf("malformed R line")
			}
			txFrom, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, err
			}
			txTo, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, err
			}

			line, ok = readLine()
			if !ok || !strings.HasPrefix(line, "D ") {
				return nil, fmt.Errorf("expected D line")
			}
			ncells, err := strconv.Atoi(strings.TrimPrefix(line, "D "))
			if err != nil {
				return nil, err
			}
			data := make([]storage.Value, ncells)
			for d := 0; d < ncells; d++ {
				cellLine, ok := readLine()
				if !ok {
					return nil, fmt.Errorf("expected cell line")
				}
				val, err := decodeCell(cellLine)
				if err != nil {
					return nil, err
				}
				data[d] = val
			}
			td.Append(storage.RowVersion{
				RowID: fields[0], TxFrom: txFrom, TxTo: txTo,
				ValidFrom: fields[3], ValidTo: fields[4], Data: data,
			})
		}
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}
	return db, nil
}
