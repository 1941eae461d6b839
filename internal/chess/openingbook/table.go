package openingbook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type Move struct {
	Move   string `json:"move"`
	Weight int    `json:"weight"`
}

type Source interface {
	Name() string
	Candidates(fen string) ([]Move, error)
}

// Table is the JSON book asset: normalized position key to weighted moves.
// It is immutable after loading.
type Table struct {
	entries map[string][]Move
}

func NewTable(entries map[string][]Move) *Table {
	t := &Table{entries: make(map[string][]Move, len(entries))}
	for key, moves := range entries {
		norm := NormalizeKey(key)
		if norm == "" {
			continue
		}
		for _, mv := range moves {
			uci := strings.ToLower(strings.TrimSpace(mv.Move))
			if uci == "" {
				continue
			}
			t.entries[norm] = append(t.entries[norm], Move{Move: uci, Weight: mv.Weight})
		}
	}
	return t
}

func LoadTable(r io.Reader) (*Table, error) {
	var payload map[string][]Move
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode book table: %w", err)
	}
	return NewTable(payload), nil
}

func LoadTableFile(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("book table path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open book table %q: %w", path, err)
	}
	defer file.Close()

	t, err := LoadTable(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t *Table) Name() string { return "table" }

func (t *Table) Candidates(fen string) ([]Move, error) {
	if t == nil {
		return nil, nil
	}
	moves := t.entries[NormalizeKey(fen)]
	return append([]Move(nil), moves...), nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
