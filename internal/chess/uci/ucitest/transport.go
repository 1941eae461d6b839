// Package ucitest provides an in-memory engine for exercising UCI sessions
// without a real process.
package ucitest

import (
	"strings"
	"sync"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

// Responder maps one command to the lines the engine prints in reply.
type Responder func(cmd string) []string

// Transport records every command in order and publishes scripted replies
// from a single goroutine, so replies keep their order.
type Transport struct {
	hub     *uci.Hub
	respond Responder

	mu       sync.Mutex
	commands []string
	closed   bool

	out       chan []string
	done      chan struct{}
	closeOnce sync.Once
}

func NewTransport(respond Responder) *Transport {
	t := &Transport{
		hub:     uci.NewHub(),
		respond: respond,
		out:     make(chan []string, 1024),
		done:    make(chan struct{}),
	}
	go t.pump()
	return t
}

func (t *Transport) pump() {
	for {
		select {
		case lines := <-t.out:
			for _, line := range lines {
				t.hub.Publish(line)
			}
		case <-t.done:
			return
		}
	}
}

func (t *Transport) Send(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return uci.ErrEngineExited
	}
	t.commands = append(t.commands, cmd)
	if t.respond == nil {
		return nil
	}
	if lines := t.respond(cmd); len(lines) > 0 {
		t.out <- lines
	}
	return nil
}

// Emit publishes lines as if the engine printed them unprompted.
func (t *Transport) Emit(lines ...string) {
	t.out <- lines
}

func (t *Transport) Subscribe() *uci.Subscription { return t.hub.Subscribe() }

func (t *Transport) Done() <-chan struct{} { return t.done }

func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

// Commands returns a copy of every command sent so far.
func (t *Transport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.commands...)
}

// CommandsWithPrefix filters Commands by prefix.
func (t *Transport) CommandsWithPrefix(prefix string) []string {
	var out []string
	for _, cmd := range t.Commands() {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
