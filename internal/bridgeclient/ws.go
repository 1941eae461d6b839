package bridgeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

var ErrClosed = errors.New("bridge websocket closed")

// WSError is an error member of a websocket reply.
type WSError struct {
	Body bridgedto.Error
}

func (e *WSError) Error() string {
	return fmt.Sprintf("bridge ws error: code=%s message=%s", e.Body.Code, e.Body.Message)
}

// WebSocket multiplexes envelope calls over one connection. Replies are
// matched to calls by id, so calls may overlap.
type WebSocket struct {
	conn *websocket.Conn

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[string]chan bridgedto.Reply
	err     error

	pingInterval time.Duration
	done         chan struct{}
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// DialWebSocket connects to wsURL (ws://host:port/v1/ws).
func DialWebSocket(ctx context.Context, wsURL string, headers HeaderProvider) (*WebSocket, error) {
	h := http.Header{}
	if headers != nil {
		for k, v := range headers() {
			if k != "" && v != "" {
				h.Set(k, v)
			}
		}
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      h,
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(4 << 20)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	ws := &WebSocket{
		conn:         conn,
		pending:      make(map[string]chan bridgedto.Reply),
		pingInterval: 30 * time.Second,
		done:         make(chan struct{}),
		cancel:       rootCancel,
	}
	ws.wg.Add(2)
	go ws.listen(rootCtx)
	go ws.pingLoop(rootCtx)
	return ws, nil
}

// Call sends one request and decodes the result into out when out is not nil.
func (ws *WebSocket) Call(ctx context.Context, op string, params any, out any) error {
	env := bridgedto.Envelope{ID: strconv.FormatUint(ws.nextID.Add(1), 10), Op: op}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		env.Params = raw
	}

	ch := make(chan bridgedto.Reply, 1)
	ws.mu.Lock()
	if ws.err != nil {
		err := ws.err
		ws.mu.Unlock()
		return err
	}
	ws.pending[env.ID] = ch
	ws.mu.Unlock()
	defer func() {
		ws.mu.Lock()
		delete(ws.pending, env.ID)
		ws.mu.Unlock()
	}()

	if err := wsjson.Write(ctx, ws.conn, env); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ws.done:
		return ws.closedErr()
	case reply := <-ch:
		if reply.Error != nil {
			return &WSError{Body: *reply.Error}
		}
		if out != nil && len(reply.Result) > 0 {
			if err := json.Unmarshal(reply.Result, out); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
		}
		return nil
	}
}

func (ws *WebSocket) Analyze(ctx context.Context, req bridgedto.AnalyzeRequest) (*bridgedto.AnalyzeResponse, error) {
	var out bridgedto.AnalyzeResponse
	if err := ws.Call(ctx, "analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (ws *WebSocket) Capabilities(ctx context.Context) (*bridgedto.Capabilities, error) {
	var out bridgedto.Capabilities
	if err := ws.Call(ctx, "capabilities", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (ws *WebSocket) listen(ctx context.Context) {
	defer ws.wg.Done()
	defer close(ws.done)
	for {
		var reply bridgedto.Reply
		if err := wsjson.Read(ctx, ws.conn, &reply); err != nil {
			ws.fail(err)
			return
		}
		ws.mu.Lock()
		ch, ok := ws.pending[reply.ID]
		ws.mu.Unlock()
		if ok {
			ch <- reply
		}
	}
}

func (ws *WebSocket) pingLoop(ctx context.Context) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ws.done:
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := ws.conn.Ping(pctx)
			cancel()
			if err != nil {
				ws.fail(err)
				_ = ws.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}

func (ws *WebSocket) fail(err error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.err == nil {
		ws.err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
}

func (ws *WebSocket) closedErr() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.err == nil {
		return ErrClosed
	}
	return ws.err
}

func (ws *WebSocket) Close() error {
	ws.fail(errors.New("closed by client"))
	err := ws.conn.Close(websocket.StatusNormalClosure, "")
	ws.cancel()
	ws.wg.Wait()
	return err
}
