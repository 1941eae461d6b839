package uci

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	maxLineBytes     = 1 << 20
	processExitGrace = 2 * time.Second
)

// ProcessTransport owns an engine subprocess and its piped standard streams.
type ProcessTransport struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	hub   *Hub

	mu      sync.Mutex
	done    chan struct{}
	exited  chan struct{}
	waitErr error
	closed  bool
}

// StartProcess spawns binaryPath and starts framing its stdout into lines.
func StartProcess(binaryPath string, args ...string) (*ProcessTransport, error) {
	if strings.TrimSpace(binaryPath) == "" {
		return nil, fmt.Errorf("%w: binary path required", ErrSpawn)
	}
	resolved, err := exec.LookPath(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	cmd := exec.Command(resolved, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: create stdin pipe: %v", ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("%w: create stdout pipe: %v", ErrSpawn, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("%w: start engine: %v", ErrSpawn, err)
	}

	t := &ProcessTransport{
		cmd:    cmd,
		stdin:  stdin,
		hub:    NewHub(),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go t.readLoop(stdout)
	go t.waitLoop()
	return t, nil
}

func (t *ProcessTransport) readLoop(r io.Reader) {
	defer close(t.done)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t.hub.Publish(line)
	}
}

func (t *ProcessTransport) waitLoop() {
	// Wait closes the stdout pipe, so all reads must finish first.
	<-t.done
	err := t.cmd.Wait()
	t.mu.Lock()
	t.waitErr = err
	t.mu.Unlock()
	close(t.exited)
}

func (t *ProcessTransport) Send(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrEngineExited
	}
	if _, err := io.WriteString(t.stdin, cmd+"\n"); err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrEngineExited, cmd, err)
	}
	return nil
}

func (t *ProcessTransport) Subscribe() *Subscription { return t.hub.Subscribe() }

func (t *ProcessTransport) Done() <-chan struct{} { return t.done }

// Close closes stdin and waits briefly for a voluntary exit before killing.
func (t *ProcessTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.exited
		return nil
	}
	t.closed = true
	if t.stdin != nil {
		t.stdin.Close()
	}
	t.mu.Unlock()

	select {
	case <-t.exited:
	case <-time.After(processExitGrace):
		if t.cmd.Process != nil {
			_ = t.cmd.Process.Kill()
		}
		<-t.exited
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.waitErr != nil {
		if _, ok := t.waitErr.(*exec.ExitError); ok {
			return nil
		}
	}
	return t.waitErr
}
