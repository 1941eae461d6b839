package uci

import (
	"strconv"
	"strings"
)

// MaxPVLength bounds the principal variation kept per info line.
const MaxPVLength = 10

// MateValue is the centipawn-equivalent magnitude assigned to mate scores.
const MateValue = 100000

type EventKind int

const (
	EventUnknown EventKind = iota
	EventID
	EventOption
	EventUCIOk
	EventReadyOk
	EventInfo
	EventBestMove
)

func (k EventKind) String() string {
	switch k {
	case EventID:
		return "id"
	case EventOption:
		return "option"
	case EventUCIOk:
		return "uciok"
	case EventReadyOk:
		return "readyok"
	case EventInfo:
		return "info"
	case EventBestMove:
		return "bestmove"
	default:
		return "unknown"
	}
}

type ScoreKind int

const (
	ScoreCP ScoreKind = iota
	ScoreMate
)

// Score is either a centipawn value or a mate distance, never both.
type Score struct {
	Kind  ScoreKind `json:"kind"`
	Value int       `json:"value"`
}

func CP(v int) Score   { return Score{Kind: ScoreCP, Value: v} }
func Mate(n int) Score { return Score{Kind: ScoreMate, Value: n} }

func (s Score) IsMate() bool { return s.Kind == ScoreMate }

// Centipawns maps the score onto one ordered scale; shorter mates rank higher.
func (s Score) Centipawns() int {
	if s.Kind != ScoreMate {
		return s.Value
	}
	switch {
	case s.Value > 0:
		return MateValue - s.Value
	case s.Value < 0:
		return -MateValue - s.Value
	default:
		return -MateValue
	}
}

func (s Score) String() string {
	if s.Kind == ScoreMate {
		return "mate " + strconv.Itoa(s.Value)
	}
	return "cp " + strconv.Itoa(s.Value)
}

type Info struct {
	Depth    int      `json:"depth"`
	SelDepth int      `json:"seldepth,omitempty"`
	MultiPV  int      `json:"multipv"`
	Nodes    int64    `json:"nodes,omitempty"`
	Score    *Score   `json:"score,omitempty"`
	PV       []string `json:"pv,omitempty"`
}

func (i Info) Move() string {
	if len(i.PV) == 0 {
		return ""
	}
	return i.PV[0]
}

type BestMove struct {
	Move   string
	Ponder string
}

type Option struct {
	Name    string
	Type    string
	Default string
	Min     *int
	Max     *int
}

type Event struct {
	Kind     EventKind
	Raw      string
	Info     Info
	BestMove BestMove
	Option   Option
	// IDField/IDValue carry "id name X" / "id author Y".
	IDField string
	IDValue string
}

// ParseLine decodes one line of engine output. Lines it does not understand
// come back as EventUnknown.
func ParseLine(line string) Event {
	line = strings.TrimSpace(line)
	ev := Event{Kind: EventUnknown, Raw: line}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return ev
	}

	switch parts[0] {
	case "uciok":
		ev.Kind = EventUCIOk
	case "readyok":
		ev.Kind = EventReadyOk
	case "bestmove":
		if len(parts) < 2 {
			return ev
		}
		ev.Kind = EventBestMove
		ev.BestMove.Move = parts[1]
		if len(parts) >= 4 && parts[2] == "ponder" {
			ev.BestMove.Ponder = parts[3]
		}
	case "info":
		info, ok := parseInfo(parts[1:])
		if !ok {
			return ev
		}
		ev.Kind = EventInfo
		ev.Info = info
	case "id":
		if len(parts) < 3 {
			return ev
		}
		ev.Kind = EventID
		ev.IDField = parts[1]
		ev.IDValue = strings.Join(parts[2:], " ")
	case "option":
		opt, ok := parseOption(parts[1:])
		if !ok {
			return ev
		}
		ev.Kind = EventOption
		ev.Option = opt
	}
	return ev
}

// parseInfo keeps only lines that carry a depth plus a score or a PV;
// "info string" and currmove chatter are dropped.
func parseInfo(parts []string) (Info, bool) {
	info := Info{MultiPV: 1}
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "string":
			return Info{}, false
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.Depth = v
				}
				i++
			}
		case "seldepth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.SelDepth = v
				}
				i++
			}
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil && v > 0 {
					info.MultiPV = v
				}
				i++
			}
		case "nodes":
			if i+1 < len(parts) {
				if v, err := strconv.ParseInt(parts[i+1], 10, 64); err == nil {
					info.Nodes = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					switch parts[i+1] {
					case "cp":
						s := CP(v)
						info.Score = &s
					case "mate":
						s := Mate(v)
						info.Score = &s
					}
				}
				i += 2
				// lowerbound/upperbound qualifiers are skipped by the default branch
			}
		case "pv":
			pv := parts[i+1:]
			if len(pv) > MaxPVLength {
				pv = pv[:MaxPVLength]
			}
			info.PV = append([]string(nil), pv...)
			i = len(parts)
		}
	}
	if info.Depth <= 0 {
		return Info{}, false
	}
	if info.Score == nil && len(info.PV) == 0 {
		return Info{}, false
	}
	return info, true
}

func parseOption(parts []string) (Option, bool) {
	var (
		opt     Option
		section string
		name    []string
		def     []string
	)
	for _, tok := range parts {
		switch tok {
		case "name", "type", "default", "min", "max", "var":
			section = tok
			continue
		}
		switch section {
		case "name":
			name = append(name, tok)
		case "type":
			opt.Type = tok
		case "default":
			def = append(def, tok)
		case "min":
			if v, err := strconv.Atoi(tok); err == nil {
				opt.Min = &v
			}
		case "max":
			if v, err := strconv.Atoi(tok); err == nil {
				opt.Max = &v
			}
		}
	}
	opt.Name = strings.Join(name, " ")
	opt.Default = strings.Join(def, " ")
	if opt.Name == "" {
		return Option{}, false
	}
	return opt, true
}
