package bridgeclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

const fenStart = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/analyze", r.URL.Path)
		assert.Equal(t, "engine-check", r.Header.Get("X-Client"))
		var req bridgedto.AnalyzeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, fenStart, req.FEN)
		writeJSON(w, http.StatusOK, bridgedto.AnalyzeResponse{ID: "r1", Move: "e2e4", SAN: "e4"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Client": "engine-check", "X-Empty": " "}
	}))
	res, err := c.Analyze(context.Background(), bridgedto.AnalyzeRequest{FEN: fenStart})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", res.Move)
	assert.Equal(t, "e4", res.SAN)
}

func TestGetRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, bridgedto.Error{Code: bridgedto.CodeUnavailable, Message: "spawning", Retryable: true})
			return
		}
		writeJSON(w, http.StatusOK, bridgedto.Capabilities{EngineName: "Stockfish 17"})
	}))
	defer srv.Close()

	caps, err := NewClient(srv.URL).Capabilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Stockfish 17", caps.EngineName)
	assert.EqualValues(t, 3, calls.Load())
}

func TestAnalyzeIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, bridgedto.Error{Code: bridgedto.CodeUnavailable, Message: "engine process exited", Retryable: true})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Analyze(context.Background(), bridgedto.AnalyzeRequest{FEN: fenStart})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, bridgedto.CodeUnavailable, apiErr.Body.Code)
	assert.True(t, apiErr.Retryable())
	assert.EqualValues(t, 1, calls.Load())
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Opening(context.Background(), fenStart)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, bridgedto.CodeInternal, apiErr.Body.Code)
	assert.Contains(t, apiErr.Body.Message, "boom")
}

func TestOpeningEscapesFEN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fenStart, r.URL.Query().Get("fen"))
		writeJSON(w, http.StatusOK, bridgedto.OpeningResponse{FEN: r.URL.Query().Get("fen")})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Opening(context.Background(), fenStart)
	require.NoError(t, err)
	assert.Equal(t, fenStart, res.FEN)
}

func newWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			var env bridgedto.Envelope
			if err := wsjson.Read(r.Context(), conn, &env); err != nil {
				return
			}
			reply := bridgedto.Reply{ID: env.ID}
			switch env.Op {
			case "analyze":
				var req bridgedto.AnalyzeRequest
				_ = json.Unmarshal(env.Params, &req)
				reply.Result, _ = json.Marshal(bridgedto.AnalyzeResponse{Move: "g1f3", SAN: "Nf3", ID: req.FEN})
			default:
				reply.Error = &bridgedto.Error{Code: bridgedto.CodeInvalidRequest, Message: "unknown op"}
			}
			if err := wsjson.Write(r.Context(), conn, reply); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketCall(t *testing.T) {
	srv := newWSServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, err := DialWebSocket(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	res, err := ws.Analyze(ctx, bridgedto.AnalyzeRequest{FEN: fenStart})
	require.NoError(t, err)
	assert.Equal(t, "g1f3", res.Move)
	assert.Equal(t, fenStart, res.ID)

	err = ws.Call(ctx, "castle", nil, nil)
	var wsErr *WSError
	require.True(t, errors.As(err, &wsErr))
	assert.Equal(t, bridgedto.CodeInvalidRequest, wsErr.Body.Code)

	_ = ws.Close()
	err = ws.Call(ctx, "analyze", bridgedto.AnalyzeRequest{FEN: fenStart}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}
