package uci

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultReadyTimeout     = 4 * time.Second
	defaultQuitTimeout      = 2 * time.Second
)

type State int32

const (
	StateUninitialized State = iota
	StateHandshaking
	StateReady
	StateSearching
	StateQuitting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateSearching:
		return "searching"
	case StateQuitting:
		return "quitting"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Config struct {
	HandshakeTimeout time.Duration
	ReadyTimeout     time.Duration
	QuitTimeout      time.Duration
	Logger           *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
	if c.QuitTimeout <= 0 {
		c.QuitTimeout = defaultQuitTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

type Capabilities struct {
	Name    string
	Author  string
	Options []Option
}

func (c Capabilities) Option(name string) (Option, bool) {
	for _, opt := range c.Options {
		if strings.EqualFold(opt.Name, name) {
			return opt, true
		}
	}
	return Option{}, false
}

func (c Capabilities) Supports(name string) bool {
	_, ok := c.Option(name)
	return ok
}

func (c Capabilities) Range(name string) (lo, hi int, ok bool) {
	opt, found := c.Option(name)
	if !found || opt.Min == nil || opt.Max == nil {
		return 0, 0, false
	}
	return *opt.Min, *opt.Max, true
}

// Session is one UCI conversation with one engine process. All traffic after
// the handshake goes through Run, which serializes callers on a Queue.
type Session struct {
	t      Transport
	cfg    Config
	logger *zap.Logger
	queue  *Queue
	state  atomic.Int32
	caps   Capabilities
}

// Start performs the uci/uciok and isready/readyok handshake on t. On failure
// the transport is closed and the error wraps ErrHandshake.
func Start(ctx context.Context, t Transport, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	s := &Session{t: t, cfg: cfg, logger: cfg.Logger}
	s.setState(StateHandshaking)

	started := time.Now()
	if err := s.handshake(ctx); err != nil {
		s.setState(StateTerminated)
		_ = t.Close()
		s.logger.Warn("uci_handshake_failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	s.queue = NewQueue()
	s.setState(StateReady)
	s.logger.Info("uci_ready",
		zap.String("engine", s.caps.Name),
		zap.Int("options", len(s.caps.Options)),
		zap.Duration("elapsed", time.Since(started)))
	return s, nil
}

func (s *Session) handshake(ctx context.Context) error {
	var caps Capabilities
	collect := func(ev Event) bool {
		switch ev.Kind {
		case EventID:
			switch ev.IDField {
			case "name":
				caps.Name = ev.IDValue
			case "author":
				caps.Author = ev.IDValue
			}
		case EventOption:
			caps.Options = append(caps.Options, ev.Option)
		case EventUCIOk:
			return true
		}
		return false
	}
	if _, err := s.exchange(ctx, "uci", s.cfg.HandshakeTimeout, collect); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	s.caps = caps

	if _, err := s.exchange(ctx, "isready", s.cfg.HandshakeTimeout, kindIs(EventReadyOk)); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// exchange subscribes before sending so no reply can be missed.
func (s *Session) exchange(ctx context.Context, cmd string, timeout time.Duration, match Matcher) (Event, error) {
	sub := s.t.Subscribe()
	if err := s.t.Send(cmd); err != nil {
		sub.Close()
		return Event{}, err
	}
	return await(ctx, sub, s.t.Done(), timeout, match)
}

func (s *Session) Capabilities() Capabilities { return s.caps }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

func (s *Session) Done() <-chan struct{} { return s.t.Done() }

func (s *Session) Alive() bool {
	select {
	case <-s.t.Done():
		return false
	default:
	}
	st := s.State()
	return st == StateReady || st == StateSearching
}

func (s *Session) Pending() int {
	if s.queue == nil {
		return 0
	}
	return s.queue.Len()
}

// Run executes fn as one queued unit with exclusive use of the conversation.
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context, c *Conn) error) error {
	if s.queue == nil {
		return ErrNotReady
	}
	return s.queue.Do(ctx, func(ctx context.Context) error {
		if st := s.State(); st != StateReady {
			return fmt.Errorf("%w: %s", ErrNotReady, st)
		}
		err := fn(ctx, &Conn{s: s})
		if errors.Is(err, ErrEngineExited) {
			s.setState(StateTerminated)
		}
		return err
	})
}

// Quit asks the engine to exit and releases the process. Queued units that
// have not started fail with ErrQueueClosed.
func (s *Session) Quit(ctx context.Context) error {
	st := s.State()
	if st == StateTerminated || st == StateQuitting {
		return nil
	}

	if s.queue != nil {
		qctx, cancel := context.WithTimeout(ctx, s.cfg.QuitTimeout)
		_ = s.queue.Do(qctx, func(context.Context) error {
			s.setState(StateQuitting)
			_ = s.t.Send("stop")
			return s.t.Send("quit")
		})
		cancel()
		s.setState(StateQuitting)
		s.queue.Close()
	}

	err := s.t.Close()
	s.setState(StateTerminated)
	s.logger.Info("uci_quit", zap.String("engine", s.caps.Name))
	return err
}

// kill tears the process down without the quit exchange. Used when the
// conversation can no longer be trusted.
func (s *Session) kill(reason string) {
	s.setState(StateTerminated)
	_ = s.t.Close()
	s.logger.Warn("uci_session_killed", zap.String("reason", reason))
}

type Conn struct {
	s *Session
}

func (c *Conn) Capabilities() Capabilities { return c.s.caps }

func (c *Conn) Send(cmd string) error { return c.s.t.Send(cmd) }

func (c *Conn) Sync(ctx context.Context) error {
	if _, err := c.s.exchange(ctx, "isready", c.s.cfg.ReadyTimeout, kindIs(EventReadyOk)); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

func (c *Conn) Stop(ctx context.Context) error {
	if err := c.Send("stop"); err != nil {
		return err
	}
	return c.Sync(ctx)
}

// SetOption writes a setoption command. Options the engine did not advertise
// are skipped.
func (c *Conn) SetOption(name, value string) error {
	if len(c.s.caps.Options) > 0 && !c.s.caps.Supports(name) {
		c.s.logger.Debug("uci_option_unsupported", zap.String("name", name))
		return nil
	}
	return c.Send("setoption name " + name + " value " + value)
}

func (c *Conn) Position(fen string) error {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return c.Send("position startpos")
	}
	return c.Send("position fen " + fen)
}

func (c *Conn) Logger() *zap.Logger { return c.s.logger }
