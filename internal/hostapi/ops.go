package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/park285/cheese-engine-bridge/internal/chess"
	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

// Engine is the part of chess.Engine the host API drives.
type Engine interface {
	Capabilities(ctx context.Context) (chess.Capabilities, error)
	ApplyStrength(ctx context.Context, rating int) (chess.StrengthProfile, error)
	AnalyzeFen(ctx context.Context, req chess.AnalyzeRequest) (chess.AnalyzeResult, error)
	IdentifyOpening(fen string) (chess.OpeningInfo, error)
	Quit(ctx context.Context) error
}

type Reviews interface {
	Review(ctx context.Context, fens []string, opts chess.ReviewOptions) (chess.ReviewReport, error)
	Get(ctx context.Context, id string) (chess.ReviewReport, error)
}

const defaultMaxReviewPositions = 400

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", chess.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func (h *Handlers) capabilities(ctx context.Context) (bridgedto.Capabilities, error) {
	caps, err := h.engine.Capabilities(ctx)
	if err != nil {
		return bridgedto.Capabilities{}, err
	}
	return ToCapabilities(caps), nil
}

func (h *Handlers) strength(ctx context.Context, req bridgedto.StrengthRequest) (bridgedto.Strength, error) {
	if req.Rating <= 0 {
		return bridgedto.Strength{}, badRequest("rating must be positive")
	}
	p, err := h.engine.ApplyStrength(ctx, req.Rating)
	if err != nil {
		return bridgedto.Strength{}, err
	}
	return ToStrength(p), nil
}

func (h *Handlers) analyze(ctx context.Context, req bridgedto.AnalyzeRequest) (bridgedto.AnalyzeResponse, error) {
	if strings.TrimSpace(req.FEN) == "" {
		return bridgedto.AnalyzeResponse{}, badRequest("fen is required")
	}
	if req.MoveTimeMs < 0 || req.MultiPV < 0 {
		return bridgedto.AnalyzeResponse{}, badRequest("movetime_ms and multipv must not be negative")
	}
	res, err := h.engine.AnalyzeFen(ctx, ToAnalyzeRequest(req))
	if err != nil {
		return bridgedto.AnalyzeResponse{}, err
	}
	return ToAnalyzeResponse(res), nil
}

func (h *Handlers) review(ctx context.Context, req bridgedto.ReviewRequest) (bridgedto.ReviewResponse, error) {
	if len(req.FENs) == 0 {
		return bridgedto.ReviewResponse{}, badRequest("fens must not be empty")
	}
	if len(req.FENs) > h.maxReview {
		return bridgedto.ReviewResponse{}, badRequest("at most %d positions per review", h.maxReview)
	}
	report, err := h.reviews.Review(ctx, req.FENs, ToReviewOptions(req.Options))
	if err != nil {
		return bridgedto.ReviewResponse{}, err
	}
	return ToReviewResponse(report), nil
}

func (h *Handlers) reviewGet(ctx context.Context, id string) (bridgedto.ReviewResponse, error) {
	if strings.TrimSpace(id) == "" {
		return bridgedto.ReviewResponse{}, badRequest("id is required")
	}
	report, err := h.reviews.Get(ctx, id)
	if err != nil {
		return bridgedto.ReviewResponse{}, err
	}
	return ToReviewResponse(report), nil
}

func (h *Handlers) opening(fen string) (bridgedto.OpeningResponse, error) {
	if strings.TrimSpace(fen) == "" {
		return bridgedto.OpeningResponse{}, badRequest("fen is required")
	}
	info, err := h.engine.IdentifyOpening(fen)
	if err != nil {
		return bridgedto.OpeningResponse{}, err
	}
	return ToOpeningResponse(info), nil
}

func (h *Handlers) quit(ctx context.Context) (bridgedto.QuitResponse, error) {
	if err := h.engine.Quit(ctx); err != nil {
		return bridgedto.QuitResponse{}, err
	}
	return bridgedto.QuitResponse{Stopped: true}, nil
}

// op decodes params into P and runs fn. Empty params decode as the zero P.
func op[P, R any](fn func(ctx context.Context, p P) (R, error)) func(context.Context, json.RawMessage) (any, error) {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, badRequest("params: %v", err)
			}
		}
		return fn(ctx, p)
	}
}

// ops is the websocket operation table.
func (h *Handlers) ops() map[string]func(context.Context, json.RawMessage) (any, error) {
	return map[string]func(context.Context, json.RawMessage) (any, error){
		"capabilities": op(func(ctx context.Context, _ struct{}) (bridgedto.Capabilities, error) {
			return h.capabilities(ctx)
		}),
		"strength": op(h.strength),
		"analyze":  op(h.analyze),
		"review":   op(h.review),
		"review.get": op(func(ctx context.Context, p bridgedto.ReviewGetRequest) (bridgedto.ReviewResponse, error) {
			return h.reviewGet(ctx, p.ID)
		}),
		"opening": op(func(_ context.Context, p bridgedto.OpeningRequest) (bridgedto.OpeningResponse, error) {
			return h.opening(p.FEN)
		}),
		"quit": op(func(ctx context.Context, _ struct{}) (bridgedto.QuitResponse, error) {
			return h.quit(ctx)
		}),
	}
}
