package hostapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

const wsWriteTimeout = 10 * time.Second

// WebSocket serves the envelope protocol: each text frame is one
// bridgedto.Envelope, answered by one bridgedto.Reply carrying the same id.
// Requests run concurrently; the engine queue still serializes them.
func (h *Handlers) WebSocket(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Debug("ws_accept_failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	h.logger.Debug("ws_connected", zap.String("remote", c.ClientIP()))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.wsWorkers)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.Debug("ws_read_failed", zap.Error(err))
			}
			break
		}
		var env bridgedto.Envelope
		if typ != websocket.MessageText {
			h.reply(ctx, conn, bridgedto.Reply{Error: &bridgedto.Error{Code: bridgedto.CodeInvalidRequest, Message: "text frames only"}})
			continue
		}
		if err := json.Unmarshal(data, &env); err != nil {
			h.reply(ctx, conn, bridgedto.Reply{Error: &bridgedto.Error{Code: bridgedto.CodeInvalidRequest, Message: err.Error()}})
			continue
		}
		g.Go(func() error {
			h.reply(gctx, conn, h.dispatch(gctx, env))
			return nil
		})
	}

	cancel()
	_ = g.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handlers) dispatch(ctx context.Context, env bridgedto.Envelope) bridgedto.Reply {
	reply := bridgedto.Reply{ID: env.ID}
	fail := func(err error) bridgedto.Reply {
		_, body := classify(err)
		reply.Error = &body
		return reply
	}

	if h.limiter != nil && !h.limiter.Allow() {
		return fail(errRateLimited)
	}
	fn, ok := h.table[env.Op]
	if !ok {
		return fail(badRequest("unknown op %q", env.Op))
	}
	out, err := fn(ctx, env.Params)
	if err != nil {
		return fail(err)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fail(err)
	}
	reply.Result = b
	return reply
}

func (h *Handlers) reply(ctx context.Context, conn *websocket.Conn, r bridgedto.Reply) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, r); err != nil {
		h.logger.Debug("ws_write_failed", zap.String("id", r.ID), zap.Error(err))
	}
}
