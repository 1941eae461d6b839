package ucitest

import (
	"context"
	"strings"
	"sync"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

// DefaultOptions is the option set a recent Stockfish advertises, trimmed to
// what the bridge touches.
var DefaultOptions = []string{
	"option name Threads type spin default 1 min 1 max 1024",
	"option name Hash type spin default 16 min 1 max 33554432",
	"option name MultiPV type spin default 1 min 1 max 256",
	"option name Skill Level type spin default 20 min 0 max 20",
	"option name UCI_LimitStrength type check default false",
	"option name UCI_Elo type spin default 1320 min 1320 max 3190",
}

// Engine is a scripted engine. Search produces the output of one search for
// the last position sent; when nil every search answers "bestmove e2e4".
type Engine struct {
	Name    string
	Author  string
	Options []string

	Search func(fen, goCmd string) []string
	// HangSearch makes go print nothing until stop arrives.
	HangSearch bool
	// Mute drops every reply, including the handshake.
	Mute bool

	mu        sync.Mutex
	fen       string
	searching bool
	pending   []string
	searches  int
}

func (e *Engine) Respond(cmd string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Mute {
		return nil
	}

	switch {
	case cmd == "uci":
		name := e.Name
		if name == "" {
			name = "Stockfish 17"
		}
		author := e.Author
		if author == "" {
			author = "the Stockfish developers"
		}
		lines := []string{"id name " + name, "id author " + author}
		opts := e.Options
		if opts == nil {
			opts = DefaultOptions
		}
		lines = append(lines, opts...)
		return append(lines, "uciok")
	case cmd == "isready":
		return []string{"readyok"}
	case strings.HasPrefix(cmd, "position fen "):
		e.fen = strings.TrimPrefix(cmd, "position fen ")
	case cmd == "position startpos":
		e.fen = "startpos"
	case strings.HasPrefix(cmd, "go "):
		e.searches++
		out := e.searchOutput(cmd)
		if e.HangSearch {
			e.searching = true
			e.pending = out
			return nil
		}
		return out
	case cmd == "stop":
		if !e.searching {
			return nil
		}
		e.searching = false
		out := e.pending
		e.pending = nil
		return out
	}
	return nil
}

func (e *Engine) searchOutput(goCmd string) []string {
	if e.Search != nil {
		return e.Search(e.fen, goCmd)
	}
	return []string{"info depth 1 multipv 1 score cp 20 pv e2e4", "bestmove e2e4"}
}

// Searches reports how many go commands were received.
func (e *Engine) Searches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searches
}

// Start wires e to a fresh Transport.
func (e *Engine) Start() *Transport {
	return NewTransport(e.Respond)
}

// Spawner returns a uci.Spawner that handshakes a new scripted process per
// call and hands every transport it creates to record.
func Spawner(newEngine func() *Engine, cfg uci.Config, record func(*Transport)) uci.Spawner {
	return func(ctx context.Context) (*uci.Session, error) {
		t := newEngine().Start()
		if record != nil {
			record(t)
		}
		return uci.Start(ctx, t, cfg)
	}
}
