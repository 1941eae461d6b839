package uci

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultGuardGrace     = 250 * time.Millisecond
	DefaultCompactWindow  = 50 * time.Millisecond
	DefaultMaxInfoEntries = 256

	minMoveTimeSlack = 2 * time.Second
	depthPerPly      = 750 * time.Millisecond
	minDepthTimeout  = 8 * time.Second
	maxDepthTimeout  = 30 * time.Second
)

type SearchRequest struct {
	FEN     string
	MultiPV int
	// Depth > 0 searches to a fixed depth; otherwise MoveTimeMs is used.
	Depth      int
	MoveTimeMs int

	GuardGrace     time.Duration
	CompactWindow  time.Duration
	MaxInfoEntries int
}

type SearchResult struct {
	BestMove   string
	Ponder     string
	Infos      []Info
	ForcedStop bool
	Elapsed    time.Duration
}

// Deepest returns the infos of the greatest depth seen, one per multipv slot.
func (r SearchResult) Deepest() []Info {
	maxDepth := 0
	for _, info := range r.Infos {
		if info.Depth > maxDepth {
			maxDepth = info.Depth
		}
	}
	var out []Info
	seen := make(map[int]int)
	for _, info := range r.Infos {
		if info.Depth != maxDepth {
			continue
		}
		if idx, ok := seen[info.MultiPV]; ok {
			out[idx] = info
			continue
		}
		seen[info.MultiPV] = len(out)
		out = append(out, info)
	}
	return out
}

// Principal returns the latest primary-line info, preferring the deepest.
func (r SearchResult) Principal() (Info, bool) {
	var (
		best  Info
		found bool
	)
	for _, info := range r.Infos {
		if info.MultiPV != 1 {
			continue
		}
		if !found || info.Depth >= best.Depth {
			best = info
			found = true
		}
	}
	return best, found
}

func (r SearchRequest) goCommand() (string, error) {
	if r.Depth > 0 {
		return "go depth " + strconv.Itoa(r.Depth), nil
	}
	if r.MoveTimeMs > 0 {
		return "go movetime " + strconv.Itoa(r.MoveTimeMs), nil
	}
	return "", fmt.Errorf("no search limits specified")
}

// computeSearchTimeout is the hard deadline after which the search is
// abandoned. Movetime searches also get a softer guard that only sends stop.
func computeSearchTimeout(r SearchRequest) time.Duration {
	if r.Depth > 0 {
		base := time.Duration(r.Depth) * depthPerPly
		if base < minDepthTimeout {
			base = minDepthTimeout
		}
		if base > maxDepthTimeout {
			base = maxDepthTimeout
		}
		return base
	}
	budget := time.Duration(r.MoveTimeMs) * time.Millisecond
	slack := budget / 2
	if slack < minMoveTimeSlack {
		slack = minMoveTimeSlack
	}
	return budget + slack
}

// Search runs stop, sync, MultiPV, position and go, then collects info lines
// until bestmove. A movetime search that overruns its budget by GuardGrace is
// told to stop; one that overruns the hard deadline fails with ErrTimeout
// after a stop and resync.
func (c *Conn) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	goCmd, err := req.goCommand()
	if err != nil {
		return SearchResult{}, err
	}
	if req.GuardGrace <= 0 {
		req.GuardGrace = DefaultGuardGrace
	}
	if req.CompactWindow <= 0 {
		req.CompactWindow = DefaultCompactWindow
	}
	if req.MaxInfoEntries <= 0 {
		req.MaxInfoEntries = DefaultMaxInfoEntries
	}
	multiPV := req.MultiPV
	if multiPV <= 0 {
		multiPV = 1
	}

	if err := c.Stop(ctx); err != nil {
		return SearchResult{}, err
	}
	if err := c.SetOption("MultiPV", strconv.Itoa(multiPV)); err != nil {
		return SearchResult{}, err
	}
	if err := c.Position(req.FEN); err != nil {
		return SearchResult{}, err
	}

	s := c.s
	sub := s.t.Subscribe()
	defer sub.Close()

	started := time.Now()
	if err := c.Send(goCmd); err != nil {
		return SearchResult{}, err
	}
	s.setState(StateSearching)
	defer func() {
		if s.State() == StateSearching {
			s.setState(StateReady)
		}
	}()

	hardTimeout := computeSearchTimeout(req)
	hard := time.NewTimer(hardTimeout)
	defer hard.Stop()

	var guardC <-chan time.Time
	if req.Depth <= 0 {
		guard := time.NewTimer(time.Duration(req.MoveTimeMs)*time.Millisecond + req.GuardGrace)
		defer guard.Stop()
		guardC = guard.C
	}

	buf := newInfoBuffer(req.CompactWindow, req.MaxInfoEntries)
	result := SearchResult{}
	handle := func(line string) bool {
		ev := ParseLine(line)
		switch ev.Kind {
		case EventInfo:
			buf.add(ev.Info, time.Now())
		case EventBestMove:
			result.BestMove = ev.BestMove.Move
			result.Ponder = ev.BestMove.Ponder
			return true
		}
		return false
	}
	finish := func() (SearchResult, error) {
		result.Infos = buf.entries()
		result.Elapsed = time.Since(started)
		if result.BestMove == "" || result.BestMove == "(none)" || result.BestMove == "0000" {
			return result, ErrNoBestMove
		}
		return result, nil
	}

	for {
		select {
		case line := <-sub.C:
			if handle(line) {
				return finish()
			}
		case <-guardC:
			guardC = nil
			result.ForcedStop = true
			s.logger.Warn("uci_search_guard_stop",
				zap.String("go", goCmd),
				zap.Duration("elapsed", time.Since(started)))
			if err := c.Send("stop"); err != nil {
				return SearchResult{}, err
			}
		case <-hard.C:
			s.logger.Warn("uci_search_timeout",
				zap.String("go", goCmd),
				zap.String("fen", req.FEN),
				zap.Duration("timeout", hardTimeout))
			sub.Close()
			c.abandon(ctx)
			return SearchResult{}, fmt.Errorf("%w: %s after %s", ErrTimeout, goCmd, hardTimeout)
		case <-s.t.Done():
			for {
				select {
				case line := <-sub.C:
					if handle(line) {
						return finish()
					}
				default:
					return SearchResult{}, ErrEngineExited
				}
			}
		case <-ctx.Done():
			sub.Close()
			c.abandon(ctx)
			return SearchResult{}, ctx.Err()
		}
	}
}

// abandon stops a search whose caller has given up and resynchronizes. When
// even that fails the process is killed so the supervisor replaces it.
func (c *Conn) abandon(ctx context.Context) {
	rctx := context.WithoutCancel(ctx)
	if err := c.Send("stop"); err != nil {
		c.s.kill("stop after abandoned search: " + err.Error())
		return
	}
	if err := c.Sync(rctx); err != nil {
		c.s.kill("resync after abandoned search: " + err.Error())
		return
	}
	c.s.setState(StateReady)
}

// infoBuffer keeps search progress compact: a line with the same multipv and
// depth as the previous one inside the window replaces it.
type infoBuffer struct {
	window time.Duration
	limit  int
	items  []Info
	lastAt time.Time
}

func newInfoBuffer(window time.Duration, limit int) *infoBuffer {
	return &infoBuffer{window: window, limit: limit}
}

func (b *infoBuffer) add(info Info, at time.Time) {
	if n := len(b.items); n > 0 {
		last := b.items[n-1]
		if last.MultiPV == info.MultiPV && last.Depth == info.Depth && at.Sub(b.lastAt) <= b.window {
			b.items[n-1] = info
			b.lastAt = at
			return
		}
	}
	if len(b.items) >= b.limit {
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, info)
	b.lastAt = at
}

func (b *infoBuffer) entries() []Info {
	return append([]Info(nil), b.items...)
}
