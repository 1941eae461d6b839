package hostapi

import (
	"github.com/park285/cheese-engine-bridge/internal/chess"
	"github.com/park285/cheese-engine-bridge/internal/chess/openingbook"
	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

// The To* conversions map engine types onto the wire DTOs. The CLI uses them
// for in-process runs.

func ToAnalyzeRequest(in bridgedto.AnalyzeRequest) chess.AnalyzeRequest {
	out := chess.AnalyzeRequest{
		FEN:             in.FEN,
		MoveTimeMs:      in.MoveTimeMs,
		MultiPV:         in.MultiPV,
		UseBook:         in.UseBook,
		ForceDepthFloor: in.ForceDepthFloor,
		HumanMode:       in.HumanMode,
		Preset:          in.Preset,
		Seed:            in.Seed,
	}
	if p := in.Policy; p != nil {
		out.Policy = &chess.HumanizationPolicy{
			MaxGapCP:       p.MaxGapCP,
			Temperature:    p.Temperature,
			ImperfectProb:  p.ImperfectProb,
			ImperfectMinCP: p.ImperfectMinCP,
			ImperfectMaxCP: p.ImperfectMaxCP,
			BlunderProb:    p.BlunderProb,
			BlunderMaxCP:   p.BlunderMaxCP,
			MultiPV:        p.MultiPV,
		}
	}
	return out
}

func ToReviewOptions(in bridgedto.ReviewOptions) chess.ReviewOptions {
	return chess.ReviewOptions{
		FastMoveTimeMs:    in.FastMoveTimeMs,
		DeepMoveTimeMs:    in.DeepMoveTimeMs,
		TopK:              in.TopK,
		SwingThresholdCP:  in.SwingThresholdCP,
		MateMagnitude:     in.MateMagnitude,
		KeepStrengthLimit: in.KeepStrengthLimit,
	}
}

func fromScore(s *uci.Score) *bridgedto.Score {
	if s == nil {
		return nil
	}
	v := s.Value
	if s.IsMate() {
		return &bridgedto.Score{Mate: &v}
	}
	return &bridgedto.Score{CP: &v}
}

func fromInfos(in []uci.Info) []bridgedto.Info {
	if len(in) == 0 {
		return nil
	}
	out := make([]bridgedto.Info, 0, len(in))
	for _, i := range in {
		out = append(out, bridgedto.Info{
			Depth:    i.Depth,
			SelDepth: i.SelDepth,
			MultiPV:  i.MultiPV,
			Nodes:    i.Nodes,
			Score:    fromScore(i.Score),
			PV:       i.PV,
		})
	}
	return out
}

func fromBookMoves(in []openingbook.Move) []bridgedto.BookMove {
	if len(in) == 0 {
		return nil
	}
	out := make([]bridgedto.BookMove, len(in))
	for i, m := range in {
		out[i] = bridgedto.BookMove{Move: m.Move, Weight: m.Weight}
	}
	return out
}

func ToStrength(p chess.StrengthProfile) bridgedto.Strength {
	return bridgedto.Strength{
		Rating:        p.Rating,
		Tier:          string(p.Tier),
		Skill:         p.Skill,
		Threads:       p.Threads,
		HashMB:        p.HashMB,
		LimitStrength: p.LimitStrength,
		MoveTimeMs:    p.MoveTimeMs,
	}
}

func ToCapabilities(c chess.Capabilities) bridgedto.Capabilities {
	out := bridgedto.Capabilities{
		EngineName:      c.EngineName,
		EngineAuthor:    c.EngineAuthor,
		Options:         make([]bridgedto.Option, 0, len(c.Options)),
		EloMin:          c.EloMin,
		EloMax:          c.EloMax,
		MaxMultiPV:      c.MaxMultiPV,
		Book:            c.Book,
		BookSources:     c.BookSources,
		BookMaxFullMove: c.BookMaxFullMove,
		StyleGroups:     c.StyleGroups,
		Presets:         c.Presets,
		State:           c.State,
		Calibration:     make([]bridgedto.CalibrationPoint, 0, len(c.Calibration)),
	}
	for _, o := range c.Options {
		out.Options = append(out.Options, bridgedto.Option{Name: o.Name, Type: o.Type, Default: o.Default, Min: o.Min, Max: o.Max})
	}
	for _, p := range c.Calibration {
		out.Calibration = append(out.Calibration, bridgedto.CalibrationPoint{Rating: p.Rating, MoveTimeMs: p.MoveTimeMs})
	}
	if c.Strength != nil {
		s := ToStrength(*c.Strength)
		out.Strength = &s
	}
	return out
}

func ToAnalyzeResponse(r chess.AnalyzeResult) bridgedto.AnalyzeResponse {
	return bridgedto.AnalyzeResponse{
		ID:             r.ID,
		Move:           r.Move,
		SAN:            r.SAN,
		Ponder:         r.Ponder,
		EngineMove:     r.EngineMove,
		Score:          fromScore(r.Score),
		Depth:          r.Depth,
		Infos:          fromInfos(r.Infos),
		Book:           r.Book,
		BookCandidates: fromBookMoves(r.BookCandidates),
		Humanized:      r.Humanized,
		HumanStage:     string(r.HumanStage),
		LossCP:         r.LossCP,
		Cached:         r.Cached,
		ForcedStop:     r.ForcedStop,
		Rating:         r.Rating,
		DurationMs:     r.Duration.Milliseconds(),
	}
}

func ToReviewResponse(r chess.ReviewReport) bridgedto.ReviewResponse {
	out := bridgedto.ReviewResponse{
		ID:         r.ID,
		Positions:  make([]bridgedto.ReviewPosition, 0, len(r.Positions)),
		Deepened:   r.Deepened,
		DurationMs: r.Duration.Milliseconds(),
	}
	if out.Deepened == nil {
		out.Deepened = []int{}
	}
	for _, p := range r.Positions {
		out.Positions = append(out.Positions, bridgedto.ReviewPosition{
			Index:     p.Index,
			FEN:       p.FEN,
			BestMove:  p.BestMove,
			SAN:       p.SAN,
			Score:     fromScore(p.Score),
			Depth:     p.Depth,
			PV:        p.PV,
			Magnitude: p.Magnitude,
			Deep:      p.Deep,
			Error:     p.Error,
		})
	}
	return out
}

func ToOpeningResponse(o chess.OpeningInfo) bridgedto.OpeningResponse {
	out := bridgedto.OpeningResponse{
		FEN:        o.FEN,
		Key:        o.Key,
		FullMove:   o.FullMove,
		Found:      o.Found,
		ECO:        o.ECO,
		Title:      o.Title,
		InBook:     o.InBook,
		Candidates: fromBookMoves(o.Candidates),
	}
	for _, g := range o.Styles {
		out.Styles = append(out.Styles, bridgedto.StyleGroup{Key: g.Key, Label: g.Label})
	}
	return out
}
