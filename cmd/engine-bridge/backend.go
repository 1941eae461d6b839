package main

import (
	"context"
	"time"

	"github.com/park285/cheese-engine-bridge/internal/bridgeclient"
	"github.com/park285/cheese-engine-bridge/internal/chessbuilder"
	appcfg "github.com/park285/cheese-engine-bridge/internal/config"
	"github.com/park285/cheese-engine-bridge/internal/hostapi"
	"github.com/park285/cheese-engine-bridge/internal/obslog"
	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

// backend is either a remote bridge or an engine started for this command.
type backend interface {
	Capabilities(ctx context.Context) (*bridgedto.Capabilities, error)
	SetStrength(ctx context.Context, rating int) (*bridgedto.Strength, error)
	Analyze(ctx context.Context, req bridgedto.AnalyzeRequest) (*bridgedto.AnalyzeResponse, error)
	Review(ctx context.Context, req bridgedto.ReviewRequest) (*bridgedto.ReviewResponse, error)
	Opening(ctx context.Context, fen string) (*bridgedto.OpeningResponse, error)
	Close(ctx context.Context) error
}

func openBackend() (backend, error) {
	if remoteURL != "" {
		return remoteBackend{bridgeclient.NewClient(remoteURL, bridgeclient.WithTimeout(2*time.Minute))}, nil
	}
	cfg, err := appcfg.Load()
	if err != nil {
		return nil, err
	}
	// a one-shot command never idles long enough to matter
	cfg.IdleTimeout = 0
	deps, err := chessbuilder.New(cfg, obslog.L())
	if err != nil {
		return nil, err
	}
	return localBackend{deps}, nil
}

type remoteBackend struct{ *bridgeclient.Client }

func (remoteBackend) Close(context.Context) error { return nil }

type localBackend struct{ deps *chessbuilder.Deps }

func (b localBackend) Capabilities(ctx context.Context) (*bridgedto.Capabilities, error) {
	caps, err := b.deps.Engine.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	out := hostapi.ToCapabilities(caps)
	return &out, nil
}

func (b localBackend) SetStrength(ctx context.Context, rating int) (*bridgedto.Strength, error) {
	p, err := b.deps.Engine.ApplyStrength(ctx, rating)
	if err != nil {
		return nil, err
	}
	out := hostapi.ToStrength(p)
	return &out, nil
}

func (b localBackend) Analyze(ctx context.Context, req bridgedto.AnalyzeRequest) (*bridgedto.AnalyzeResponse, error) {
	res, err := b.deps.Engine.AnalyzeFen(ctx, hostapi.ToAnalyzeRequest(req))
	if err != nil {
		return nil, err
	}
	out := hostapi.ToAnalyzeResponse(res)
	return &out, nil
}

func (b localBackend) Review(ctx context.Context, req bridgedto.ReviewRequest) (*bridgedto.ReviewResponse, error) {
	report, err := b.deps.Reviews.Review(ctx, req.FENs, hostapi.ToReviewOptions(req.Options))
	if err != nil {
		return nil, err
	}
	out := hostapi.ToReviewResponse(report)
	return &out, nil
}

func (b localBackend) Opening(_ context.Context, fen string) (*bridgedto.OpeningResponse, error) {
	info, err := b.deps.Engine.IdentifyOpening(fen)
	if err != nil {
		return nil, err
	}
	out := hostapi.ToOpeningResponse(info)
	return &out, nil
}

func (b localBackend) Close(ctx context.Context) error { return b.deps.Close(ctx) }
