package openingbook

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

const (
	startFEN   = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	afterE4    = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	sicilian   = "rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2"
	middlegame = "r1bq1rk1/pp2bppp/2n1pn2/3p4/2PP4/2N2N2/PP2BPPP/R2QKB1R w KQ - 0 14"
)

func TestNormalizeKeyIgnoresEnPassantAndCounters(t *testing.T) {
	a := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	b := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 4 9"
	if NormalizeKey(a) != NormalizeKey(b) {
		t.Fatalf("keys differ: %q vs %q", NormalizeKey(a), NormalizeKey(b))
	}
	if got := NormalizeKey(a); got != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq" {
		t.Fatalf("unexpected key %q", got)
	}
	c := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b Kkq e3 0 1"
	if NormalizeKey(a) == NormalizeKey(c) {
		t.Fatalf("castling rights must stay part of the key")
	}
	if NormalizeKey("8/8/8") != "" {
		t.Fatalf("short fen should not produce a key")
	}
}

func TestFullMoveNumber(t *testing.T) {
	if FullMoveNumber(middlegame) != 14 {
		t.Fatalf("fullmove = %d", FullMoveNumber(middlegame))
	}
	if FullMoveNumber("8/8/8/8/8/8/8/8 w - -") != 1 {
		t.Fatalf("missing counters should read as move 1")
	}
}

func TestTableMergesWithPolyglotStyleSources(t *testing.T) {
	table := NewTable(map[string][]Move{
		startFEN: {{Move: "e2e4", Weight: 5}, {Move: "D2D4", Weight: 3}},
	})
	extra := staticSource{name: "extra", moves: []Move{{Move: "d2d4", Weight: 4}, {Move: "g1f3", Weight: 1}}}
	book := New(Config{}, table, extra)

	got := book.Candidates(startFEN)
	want := []Move{{"d2d4", 7}, {"e2e4", 5}, {"g1f3", 1}}
	if len(got) != len(want) {
		t.Fatalf("candidates = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidates = %+v, want %+v", got, want)
		}
	}
}

func TestProbeNeverPicksZeroWeight(t *testing.T) {
	table := NewTable(map[string][]Move{startFEN: {{Move: "e2e4", Weight: 10}, {Move: "d2d4", Weight: 0}}})
	book := New(Config{Sample: true}, table)
	for seed := int64(0); seed < 200; seed++ {
		hit, ok := book.Probe(startFEN, rand.New(rand.NewSource(seed)))
		if !ok || hit.Move != "e2e4" {
			t.Fatalf("seed %d: hit = %+v (%v)", seed, hit, ok)
		}
	}
}

func TestSelectWeightedDistribution(t *testing.T) {
	cands := []Move{{Move: "e2e4", Weight: 3}, {Move: "d2d4", Weight: 1}, {Move: "b1a3", Weight: 0}}
	r := rand.New(rand.NewSource(7))
	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		counts[SelectWeighted(cands, r).Move]++
	}
	if counts["b1a3"] != 0 {
		t.Fatalf("zero-weight move drawn %d times", counts["b1a3"])
	}
	if counts["e2e4"] < 2700 || counts["e2e4"] > 3300 {
		t.Fatalf("e2e4 drawn %d/4000, want about 3000", counts["e2e4"])
	}
}

func TestProbeGatesOnFullMove(t *testing.T) {
	table := NewTable(map[string][]Move{middlegame: {{Move: "c4d5", Weight: 9}}})
	book := New(Config{MaxFullMove: 10}, table)
	if _, ok := book.Probe(middlegame, nil); ok {
		t.Fatalf("book should not apply at move 14")
	}
	book = New(Config{MaxFullMove: 20}, table)
	if hit, ok := book.Probe(middlegame, nil); !ok || hit.Move != "c4d5" {
		t.Fatalf("hit = %+v (%v)", hit, ok)
	}
}

func TestProbeHitsTransposedPosition(t *testing.T) {
	table := NewTable(map[string][]Move{afterE4: {{Move: "c7c5", Weight: 5}}})
	book := New(Config{}, table)
	transposed := strings.Replace(afterE4, " e3 0 1", " - 0 3", 1)
	if hit, ok := book.Probe(transposed, nil); !ok || hit.Move != "c7c5" {
		t.Fatalf("hit = %+v (%v)", hit, ok)
	}
}

func TestBookDropsIllegalAndSurvivesSourceErrors(t *testing.T) {
	table := NewTable(map[string][]Move{startFEN: {{Move: "e2e5", Weight: 50}, {Move: "c2c4", Weight: 2}}})
	broken := staticSource{name: "broken", err: errors.New("corrupt")}
	book := New(Config{}, broken, table)
	hit, ok := book.Probe(startFEN, nil)
	if !ok || hit.Move != "c2c4" || len(hit.Candidates) != 1 {
		t.Fatalf("hit = %+v (%v)", hit, ok)
	}
}

func TestNilBookMisses(t *testing.T) {
	var book *Book
	if book.Available() {
		t.Fatalf("nil book should be unavailable")
	}
	if _, ok := book.Probe(startFEN, nil); ok {
		t.Fatalf("nil book should miss")
	}
}

func TestLoadTable(t *testing.T) {
	src := `{"` + startFEN + `": [{"move": "e2e4", "weight": 5}]}`
	table, err := LoadTable(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("len = %d", table.Len())
	}
	if _, err := LoadTable(strings.NewReader("{")); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := LoadTableFile("/nonexistent/book.json"); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestIdentifyECO(t *testing.T) {
	o, ok := IdentifyECO(sicilian)
	if !ok {
		t.Fatalf("sicilian position not identified")
	}
	if !strings.HasPrefix(o.ECO, "B") || !strings.Contains(o.Title, "Sicilian") {
		t.Fatalf("unexpected opening %+v", o)
	}
}

type staticSource struct {
	name  string
	moves []Move
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Candidates(string) ([]Move, error) { return s.moves, s.err }
