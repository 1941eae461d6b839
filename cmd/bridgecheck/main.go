package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-engine-bridge/internal/bridgeclient"
	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func main() {
	baseURL := os.Getenv("BRIDGE_URL")
	wsURL := os.Getenv("BRIDGE_WS_URL")
	token := os.Getenv("BRIDGE_TOKEN")

	if baseURL == "" {
		log.Fatal("BRIDGE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if token != "" {
			m["Authorization"] = "Bearer " + token
		}
		return m
	}

	client := bridgeclient.NewClient(baseURL,
		bridgeclient.WithHeaderProvider(headers),
		bridgeclient.WithTimeout(15*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	caps, err := client.Capabilities(ctx)
	if err != nil {
		log.Fatalf("/v1/capabilities error: %v", err)
	}
	log.Printf("/v1/capabilities ok: engine=%q elo=%d-%d multipv=%d book=%v state=%s",
		caps.EngineName, caps.EloMin, caps.EloMax, caps.MaxMultiPV, caps.Book, caps.State)

	res, err := client.Analyze(ctx, bridgedto.AnalyzeRequest{FEN: startFEN, MoveTimeMs: 200})
	if err != nil {
		log.Fatalf("/v1/analyze error: %v", err)
	}
	log.Printf("/v1/analyze ok: move=%s depth=%d took=%dms", res.Move, res.Depth, res.DurationMs)

	if wsURL == "" {
		wsURL = "ws" + strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "http") + "/v1/ws"
	}
	ws, err := bridgeclient.DialWebSocket(ctx, wsURL, headers)
	if err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	defer ws.Close()

	wres, err := ws.Analyze(ctx, bridgedto.AnalyzeRequest{FEN: startFEN, UseBook: true})
	if err != nil {
		log.Printf("WS analyze error: %v", err)
		return
	}
	log.Printf("WS analyze ok: move=%s book=%v cached=%v", wres.Move, wres.Book, wres.Cached)
}
