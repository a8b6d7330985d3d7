package queries

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write queries file: %v", err)
	}
	return path
}

func TestLoadQueriesYAML(t *testing.T) {
	path := writeFile(t, "queries.yaml", `
queries:
  - id: ibuprofen-barcode
    kind: search
    term: "4820142437368"
    transliterate: true
    location: "42"
    request_delay_ms: 750
  - id: ibuprofen-card
    kind: product_card
    name: ibuprofen
    code: 1025098
    skip_content_plus: true
  - id: paused
    kind: search
    term: aspirin
    enabled: false
`)

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(reg.All()); got != 3 {
		t.Fatalf("expected 3 queries, got %d", got)
	}
	if got := len(reg.Enabled()); got != 2 {
		t.Fatalf("expected 2 enabled queries, got %d", got)
	}

	q, ok := reg.ByID("ibuprofen-barcode")
	if !ok {
		t.Fatalf("expected ibuprofen-barcode to be loaded")
	}
	sp := q.SearchParams()
	if sp.Term != "4820142437368" || !sp.Transliterate || sp.Type != "DEFAULT" || sp.Location != "42" {
		t.Fatalf("unexpected search params %+v", sp)
	}
	if q.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected delay %s", q.RequestDelay())
	}

	card, _ := reg.ByID("ibuprofen-card")
	cp := card.ProductCardParams()
	if cp.Name != "ibuprofen" || cp.GoodsIntCode != "1025098" || !cp.SkipContentPlus {
		t.Fatalf("unexpected card params %+v", cp)
	}
	if card.RequestDelay() != 500*time.Millisecond {
		t.Fatalf("expected default delay, got %s", card.RequestDelay())
	}
}

func TestLoadQueriesJSON(t *testing.T) {
	path := writeFile(t, "queries.json", `{"queries":[{"id":"q","kind":"SEARCH","term":"nurofen","transliterate":"0"}]}`)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	q, _ := reg.ByID("q")
	if q.Kind != "search" || q.SearchParams().Transliterate {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestLoadQueriesValidation(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
queries:
  - {id: a, kind: search, term: x}
  - {id: a, kind: search, term: y}
`,
		"missing term":  `queries: [{id: a, kind: search}]`,
		"missing code":  `queries: [{id: a, kind: product_card, name: n}]`,
		"missing kind":  `queries: [{id: a, term: x}]`,
		"unknown kind":  `queries: [{id: a, kind: pharmacy, term: x}]`,
		"empty file":    `queries: []`,
		"not yaml list": `queries: nope`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "queries.yaml", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestPackageDocAttached(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "queries.go", nil, parser.ParseComments|parser.PackageClauseOnly)
	if err != nil {
		t.Fatalf("parse queries.go: %v", err)
	}
	if f.Doc == nil || !strings.HasPrefix(f.Doc.Text(), "Package queries ") {
		t.Fatalf("package comment not attached to the package clause")
	}
}
