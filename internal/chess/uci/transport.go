package uci

import "errors"

var (
	ErrSpawn        = errors.New("engine spawn failed")
	ErrHandshake    = errors.New("engine handshake failed")
	ErrTimeout      = errors.New("engine response timeout")
	ErrEngineExited = errors.New("engine process exited")
	ErrQueueClosed  = errors.New("engine command queue closed")
	ErrNoBestMove   = errors.New("engine returned no best move")
	ErrNotReady     = errors.New("engine session not ready")
)

// Transport is one engine conversation channel: commands go in through Send,
// output lines come out through subscriptions.
type Transport interface {
	Send(cmd string) error
	Subscribe() *Subscription
	// Done is closed once the output stream has ended.
	Done() <-chan struct{}
	Close() error
}
