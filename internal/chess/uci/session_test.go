package uci_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
	"github.com/park285/cheese-engine-bridge/internal/chess/uci/ucitest"
)

const (
	fenStart  = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	fenSicily = "rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2"
)

func startSession(t *testing.T, eng *ucitest.Engine) (*uci.Session, *ucitest.Transport) {
	t.Helper()
	tr := eng.Start()
	s, err := uci.Start(context.Background(), tr, uci.Config{HandshakeTimeout: time.Second, ReadyTimeout: time.Second})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Quit(context.Background()) })
	return s, tr
}

func TestStartCollectsCapabilities(t *testing.T) {
	s, tr := startSession(t, &ucitest.Engine{Name: "Stockfish 17.1"})

	caps := s.Capabilities()
	if caps.Name != "Stockfish 17.1" {
		t.Fatalf("name = %q", caps.Name)
	}
	lo, hi, ok := caps.Range("UCI_Elo")
	if !ok || lo != 1320 || hi != 3190 {
		t.Fatalf("UCI_Elo range = %d..%d (%v)", lo, hi, ok)
	}
	if s.State() != uci.StateReady {
		t.Fatalf("state = %s, want ready", s.State())
	}
	got := tr.Commands()
	if len(got) < 2 || got[0] != "uci" || got[1] != "isready" {
		t.Fatalf("handshake commands = %v", got)
	}
}

func TestStartHandshakeTimeout(t *testing.T) {
	tr := (&ucitest.Engine{Mute: true}).Start()
	_, err := uci.Start(context.Background(), tr, uci.Config{HandshakeTimeout: 30 * time.Millisecond})
	if !errors.Is(err, uci.ErrHandshake) || !errors.Is(err, uci.ErrTimeout) {
		t.Fatalf("err = %v, want handshake timeout", err)
	}
	if !tr.Closed() {
		t.Fatalf("transport should be closed after a failed handshake")
	}
}

func TestStartProcessMissingBinary(t *testing.T) {
	_, err := uci.StartProcess("/nonexistent/stockfish-binary")
	if !errors.Is(err, uci.ErrSpawn) {
		t.Fatalf("err = %v, want ErrSpawn", err)
	}
}

func TestSearchMovetime(t *testing.T) {
	eng := &ucitest.Engine{Search: func(fen, goCmd string) []string {
		return []string{
			"info depth 8 multipv 1 score cp 31 pv e2e4 e7e5",
			"info depth 8 multipv 2 score cp 18 pv d2d4 d7d5",
			"bestmove e2e4 ponder e7e5",
		}
	}}
	s, tr := startSession(t, eng)

	var res uci.SearchResult
	err := s.Run(context.Background(), func(ctx context.Context, c *uci.Conn) error {
		var err error
		res, err = c.Search(ctx, uci.SearchRequest{FEN: fenStart, MultiPV: 2, MoveTimeMs: 100})
		return err
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.BestMove != "e2e4" || res.Ponder != "e7e5" || len(res.Infos) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	want := []string{"stop", "isready", "setoption name MultiPV value 2", "position fen " + fenStart, "go movetime 100"}
	got := tr.Commands()[2:]
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("commands = %q, want %q", got, want)
	}
}

func TestSearchDepthFloor(t *testing.T) {
	s, tr := startSession(t, &ucitest.Engine{})
	err := s.Run(context.Background(), func(ctx context.Context, c *uci.Conn) error {
		_, err := c.Search(ctx, uci.SearchRequest{FEN: fenStart, Depth: 14})
		return err
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := tr.CommandsWithPrefix("go "); len(got) != 1 || got[0] != "go depth 14" {
		t.Fatalf("go commands = %v", got)
	}
}

func TestSearchGuardSendsStop(t *testing.T) {
	eng := &ucitest.Engine{HangSearch: true, Search: func(fen, goCmd string) []string {
		return []string{"info depth 5 score cp 3 pv g1f3", "bestmove g1f3"}
	}}
	s, tr := startSession(t, eng)

	var res uci.SearchResult
	err := s.Run(context.Background(), func(ctx context.Context, c *uci.Conn) error {
		var err error
		res, err = c.Search(ctx, uci.SearchRequest{FEN: fenStart, MoveTimeMs: 10, GuardGrace: 10 * time.Millisecond})
		return err
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !res.ForcedStop || res.BestMove != "g1f3" {
		t.Fatalf("unexpected result: %+v", res)
	}
	cmds := tr.Commands()
	if cmds[len(cmds)-1] != "stop" {
		t.Fatalf("last command = %q, want stop", cmds[len(cmds)-1])
	}
}

func TestSearchHardTimeoutKeepsSessionReady(t *testing.T) {
	eng := &ucitest.Engine{Search: func(fen, goCmd string) []string { return nil }}
	s, _ := startSession(t, eng)

	err := s.Run(context.Background(), func(ctx context.Context, c *uci.Conn) error {
		_, err := c.Search(ctx, uci.SearchRequest{FEN: fenStart, MoveTimeMs: 1, GuardGrace: time.Millisecond})
		return err
	})
	if !errors.Is(err, uci.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if s.State() != uci.StateReady {
		t.Fatalf("state = %s, want ready after resync", s.State())
	}
}

func TestOverlappingSearchesDoNotInterleave(t *testing.T) {
	replies := map[string]string{fenStart: "e2e4", fenSicily: "g1f3"}
	eng := &ucitest.Engine{Search: func(fen, goCmd string) []string {
		return []string{"info depth 3 score cp 10 pv " + replies[fen], "bestmove " + replies[fen]}
	}}
	s, tr := startSession(t, eng)

	fens := []string{fenStart, fenSicily, fenStart, fenSicily, fenStart, fenSicily}
	results := make([]string, len(fens))
	var wg sync.WaitGroup
	for i, fen := range fens {
		wg.Add(1)
		go func(i int, fen string) {
			defer wg.Done()
			_ = s.Run(context.Background(), func(ctx context.Context, c *uci.Conn) error {
				res, err := c.Search(ctx, uci.SearchRequest{FEN: fen, MoveTimeMs: 20})
				results[i] = res.BestMove
				return err
			})
		}(i, fen)
	}
	wg.Wait()

	for i, fen := range fens {
		if results[i] != replies[fen] {
			t.Fatalf("search %d got %q, want %q", i, results[i], replies[fen])
		}
	}

	// every go must be preceded by exactly one position since the previous go
	positions := 0
	for _, cmd := range tr.Commands() {
		switch {
		case strings.HasPrefix(cmd, "position "):
			positions++
		case strings.HasPrefix(cmd, "go "):
			if positions != 1 {
				t.Fatalf("go issued after %d position commands: %v", positions, tr.Commands())
			}
			positions = 0
		}
	}
}

func TestRunAfterQuit(t *testing.T) {
	s, tr := startSession(t, &ucitest.Engine{})
	if err := s.Quit(context.Background()); err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if s.State() != uci.StateTerminated || !tr.Closed() {
		t.Fatalf("session not terminated after quit")
	}
	err := s.Run(context.Background(), func(context.Context, *uci.Conn) error { return nil })
	if !errors.Is(err, uci.ErrQueueClosed) {
		t.Fatalf("err = %v, want ErrQueueClosed", err)
	}
	if got := tr.CommandsWithPrefix("quit"); len(got) != 1 {
		t.Fatalf("quit commands = %v", got)
	}
}

func TestCanceledSearchSurvivesFloodOnStop(t *testing.T) {
	eng := &ucitest.Engine{HangSearch: true, Search: func(fen, goCmd string) []string {
		lines := make([]string, 0, 401)
		for i := 0; i < 400; i++ {
			lines = append(lines, "info depth 12 multipv 1 score cp 15 nodes 1000 pv e2e4 e7e5")
		}
		return append(lines, "bestmove e2e4")
	}}
	s, _ := startSession(t, eng)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	started := time.Now()
	err := s.Run(ctx, func(ctx context.Context, c *uci.Conn) error {
		_, err := c.Search(ctx, uci.SearchRequest{FEN: fenStart, MoveTimeMs: 60000})
		return err
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(started); elapsed > 900*time.Millisecond {
		t.Fatalf("canceled search took %s to return", elapsed)
	}
	if s.State() != uci.StateReady {
		t.Fatalf("state = %s, want ready after resync", s.State())
	}

	err = s.Run(context.Background(), func(ctx context.Context, c *uci.Conn) error {
		return c.Sync(ctx)
	})
	if err != nil {
		t.Fatalf("sync after flood: %v", err)
	}
}
