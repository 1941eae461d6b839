package uci

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrSupervisorClosed = errors.New("engine supervisor closed")

type Spawner func(ctx context.Context) (*Session, error)

func ProcessSpawner(binaryPath string, cfg Config) Spawner {
	return func(ctx context.Context) (*Session, error) {
		t, err := StartProcess(binaryPath)
		if err != nil {
			return nil, err
		}
		return Start(ctx, t, cfg)
	}
}

type SupervisorConfig struct {
	Spawn Spawner
	// IdleTimeout reaps the process after this long without in-flight work.
	// Zero keeps it alive until Close.
	IdleTimeout time.Duration
	// OnStart runs on every newly spawned session before it is handed out,
	// e.g. to re-apply the current strength profile.
	OnStart func(ctx context.Context, s *Session) error
	// OnRestart is called with the running spawn count after every spawn
	// that replaces an earlier session.
	OnRestart func(spawns int)
	Logger    *zap.Logger
}

// Supervisor owns at most one engine session, spawning it lazily and
// replacing it after failures.
type Supervisor struct {
	spawn       Spawner
	idleTimeout time.Duration
	onStart     func(ctx context.Context, s *Session) error
	onRestart   func(spawns int)
	logger      *zap.Logger

	mu       sync.Mutex
	session  *Session
	inFlight int
	spawns   int
	idleGen  uint64
	idle     *time.Timer
	closed   bool
}

func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if cfg.Spawn == nil {
		return nil, fmt.Errorf("spawner required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		spawn:       cfg.Spawn,
		idleTimeout: cfg.IdleTimeout,
		onStart:     cfg.OnStart,
		onRestart:   cfg.OnRestart,
		logger:      logger,
	}, nil
}

// Acquire returns the live session, spawning one if needed. Every successful
// Acquire must be paired with Release.
func (p *Supervisor) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrSupervisorClosed
	}
	p.stopIdleLocked()

	if p.session != nil && !p.session.Alive() {
		p.logger.Warn("uci_session_dead", zap.String("state", p.session.State().String()))
		go p.session.Quit(context.Background())
		p.session = nil
	}

	if p.session == nil {
		s, err := p.spawn(ctx)
		if err != nil {
			p.armIdleLocked()
			return nil, err
		}
		if p.onStart != nil {
			if err := p.onStart(ctx, s); err != nil {
				_ = s.Quit(context.Background())
				p.armIdleLocked()
				return nil, fmt.Errorf("prepare engine session: %w", err)
			}
		}
		p.spawns++
		if p.spawns > 1 && p.onRestart != nil {
			p.onRestart(p.spawns)
		}
		p.session = s
	}

	p.inFlight++
	return p.session, nil
}

// Release returns a session obtained from Acquire. A session that failed with
// ErrEngineExited or is no longer alive is discarded.
func (p *Supervisor) Release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight > 0 {
		p.inFlight--
	}
	if s != p.session {
		return
	}
	if errors.Is(err, ErrEngineExited) || !s.Alive() {
		p.logger.Warn("uci_session_discarded", zap.Error(err), zap.String("state", s.State().String()))
		p.session = nil
		go s.Quit(context.Background())
		return
	}
	p.armIdleLocked()
}

func (p *Supervisor) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Supervisor) Spawns() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spawns
}

// Terminate quits the current session. The next Acquire spawns a new one.
func (p *Supervisor) Terminate(ctx context.Context) error {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.stopIdleLocked()
	p.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Quit(ctx)
}

func (p *Supervisor) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.Terminate(ctx)
}

func (p *Supervisor) stopIdleLocked() {
	p.idleGen++
	if p.idle != nil {
		p.idle.Stop()
		p.idle = nil
	}
}

func (p *Supervisor) armIdleLocked() {
	if p.idleTimeout <= 0 || p.inFlight > 0 || p.session == nil || p.closed {
		return
	}
	p.stopIdleLocked()
	gen := p.idleGen
	p.idle = time.AfterFunc(p.idleTimeout, func() { p.reapIdle(gen) })
}

func (p *Supervisor) reapIdle(gen uint64) {
	p.mu.Lock()
	if gen != p.idleGen || p.inFlight > 0 || p.session == nil {
		p.mu.Unlock()
		return
	}
	s := p.session
	p.session = nil
	p.idle = nil
	p.mu.Unlock()

	p.logger.Info("uci_session_idle_reaped", zap.Duration("idle", p.idleTimeout))
	_ = s.Quit(context.Background())
}
