package bridgedto

import "encoding/json"

type StrengthRequest struct {
	Rating int `json:"rating"`
}

type HumanizationPolicy struct {
	MaxGapCP       int     `json:"max_gap_cp"`
	Temperature    float64 `json:"temperature"`
	ImperfectProb  float64 `json:"imperfect_prob"`
	ImperfectMinCP int     `json:"imperfect_min_cp"`
	ImperfectMaxCP int     `json:"imperfect_max_cp"`
	BlunderProb    float64 `json:"blunder_prob"`
	BlunderMaxCP   int     `json:"blunder_max_cp"`
	MultiPV        int     `json:"multipv"`
}

type AnalyzeRequest struct {
	FEN             string              `json:"fen"`
	MoveTimeMs      int                 `json:"movetime_ms,omitempty"`
	MultiPV         int                 `json:"multipv,omitempty"`
	UseBook         bool                `json:"use_book,omitempty"`
	ForceDepthFloor bool                `json:"force_depth_floor,omitempty"`
	HumanMode       bool                `json:"human_mode,omitempty"`
	Preset          string              `json:"preset,omitempty"`
	Policy          *HumanizationPolicy `json:"policy,omitempty"`
	Seed            *int64              `json:"seed,omitempty"`
}

type ReviewOptions struct {
	FastMoveTimeMs    int  `json:"fast_movetime_ms,omitempty"`
	DeepMoveTimeMs    int  `json:"deep_movetime_ms,omitempty"`
	TopK              int  `json:"top_k,omitempty"`
	SwingThresholdCP  int  `json:"swing_threshold_cp,omitempty"`
	MateMagnitude     int  `json:"mate_magnitude,omitempty"`
	KeepStrengthLimit bool `json:"keep_strength_limit,omitempty"`
}

type ReviewRequest struct {
	FENs    []string      `json:"fens"`
	Options ReviewOptions `json:"options"`
}

type OpeningRequest struct {
	FEN string `json:"fen"`
}

// Envelope is one websocket request. Op names the operation: capabilities,
// strength, analyze, review, review.get, opening or quit.
type Envelope struct {
	ID     string          `json:"id"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Reply answers the Envelope with the same ID. Exactly one of Result and
// Error is set.
type Reply struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

type ReviewGetRequest struct {
	ID string `json:"id"`
}
