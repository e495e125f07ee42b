package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/forgedb/forgedb/internal/engine"
	"github.com/forgedb/forgedb/internal/storage"
)

// scenariosFile mirrors testdata/scenarios.yml.
type scenariosFile struct {
	Scenarios []struct {
		ID         string             `yaml:"id"`
		Statements []string           `yaml:"statements"`
		Expects    map[int][][]any    `yaml:"expects"`
	} `yaml:"scenarios"`
}

func loadScenarios(t *testing.T) scenariosFile {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "scenarios.yml"))
	if err != nil {
		t.Fatalf("reading scenarios.yml: %v", err)
	}
	var sf scenariosFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		t.Fatalf("parsing scenarios.yml: %v", err)
	}
	return sf
}

// TestScenarios runs every end-to-end scenario of spec §8 against a
// fresh session, checking that each SELECT named in "expects" produces
// exactly the given rows.
func TestScenarios(t *testing.T) {
	sf := loadScenarios(t)
	for _, sc := range sf.Scenarios {
		sc := sc
		t.Run(sc.ID, func(t *testing.T) {
			sess := engine.NewSession(storage.NewDB())
			sess.SeedDP(1)
			for i, stmt := range sc.Statements {
				res := sess.Execute(stmt)
				if !res.Ok {
					t.Fatalf("statement %d (%q) failed: %s", i, stmt, res.Message)
				}
				want, ok := sc.Expects[i]
				if !ok {
					continue
				}
				if len(res.Rows) != len(want) {
					t.Fatalf("statement %d (%q): expected %d row(s), got %d: %v", i, stmt, len(want), len(res.Rows), res.Rows)
				}
				for r, wantRow := range want {
					gotRow := res.Rows[r]
					if len(gotRow) != len(wantRow) {
						t.Fatalf("statement %d row %d: expected %d cell(s), got %d", i, r, len(wantRow), len(gotRow))
					}
					for c, wantCell := range wantRow {
						if !valueMatches(wantCell, gotRow[c]) {
							t.Fatalf("statement %d row %d cell %d: expected %v, got %v", i, r, c, wantCell, gotRow[c])
						}
					}
				}
			}
		})
	}
}

// valueMatches compares a YAML-decoded expected cell against a
// storage.Value, tolerating the int/float crossing that aggregate
// projections (SUM, AVG) introduce.
func valueMatches(want any, got storage.Value) bool {
	if want == nil {
		return got.IsNull()
	}
	switch w := want.(type) {
	case int:
		return numericMatches(float64(w), got)
	case float64:
		return numericMatches(w, got)
	case string:
		return got.Kind == storage.KindText && got.S == w
	case map[string]any:
		members, ok := w["set"].([]any)
		if !ok || got.Kind != storage.KindSetText {
			return false
		}
		if len(members) != len(got.Set) {
			return false
		}
		for i, m := range members {
			if m.(string) != got.Set[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numericMatches(want float64, got storage.Value) bool {
	switch got.Kind {
	case storage.KindInt:
		return float64(got.I) == want
	case storage.KindDouble:
		return got.D == want
	default:
		return false
	}
}
