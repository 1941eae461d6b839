package openingbook

import (
	"fmt"
	"io"
	"os"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

// Polyglot serves moves from a Polyglot .bin book. Keys are Zobrist hashes of
// the full position, so transpositions already collapse.
type Polyglot struct {
	book   *chesslib.PolyglotBook
	hasher *chesslib.ZobristHasher
}

func LoadPolyglot(r io.Reader) (*Polyglot, error) {
	book, err := chesslib.LoadFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book: %w", err)
	}
	return &Polyglot{book: book, hasher: chesslib.NewZobristHasher()}, nil
}

func LoadPolyglotFile(path string) (*Polyglot, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()

	p, err := LoadPolyglot(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (p *Polyglot) Name() string { return "polyglot" }

func (p *Polyglot) Candidates(fen string) ([]Move, error) {
	hashStr, err := p.hasher.HashPosition(fen)
	if err != nil {
		return nil, fmt.Errorf("compute polyglot hash: %w", err)
	}
	entries := p.book.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]Move, 0, len(entries))
	for _, entry := range entries {
		move := chesslib.DecodeMove(entry.Move).ToMove()
		out = append(out, Move{Move: move.String(), Weight: int(entry.Weight)})
	}
	return out, nil
}
