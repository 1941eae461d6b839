package chesspresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

const (
	analyzeHeader = "♞ Analysis"
	reviewHeader  = "♜ Game review"
	openingHeader = "♝ Opening"
	engineHeader  = "♚ Engine"

	pvPreviewLimit = 6
)

// Formatter renders bridge DTOs into short text blocks for a terminal.
type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

func (f *Formatter) Analyze(res *bridgedto.AnalyzeResponse) string {
	if res == nil || strings.TrimSpace(res.Move) == "" {
		return "The engine did not return a move."
	}

	var sb strings.Builder
	sb.WriteString(analyzeHeader)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("• Move: %s", formatMove(res.SAN, res.Move)))
	if res.Ponder != "" {
		sb.WriteString(fmt.Sprintf(" (ponder %s)", res.Ponder))
	}
	sb.WriteString("\n")
	if res.Score != nil {
		sb.WriteString(fmt.Sprintf("• Eval: %s", FormatScore(res.Score)))
		if res.Depth > 0 {
			sb.WriteString(fmt.Sprintf(" @ depth %d", res.Depth))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("• Source: ")
	sb.WriteString(formatSource(res))
	sb.WriteString("\n")
	if res.Humanized && res.EngineMove != "" && res.EngineMove != res.Move {
		sb.WriteString(fmt.Sprintf("• Engine preferred %s, gave up %dcp\n", res.EngineMove, res.LossCP))
	}
	if len(res.BookCandidates) > 1 {
		sb.WriteString("• Book: ")
		sb.WriteString(formatBookMoves(res.BookCandidates))
		sb.WriteString("\n")
	}
	for _, info := range res.Infos {
		if len(res.Infos) < 2 {
			break
		}
		sb.WriteString(fmt.Sprintf("  %d. %s %s\n", info.MultiPV, FormatScore(info.Score), formatPV(info.PV)))
	}
	footer := make([]string, 0, 2)
	if res.Rating > 0 {
		footer = append(footer, fmt.Sprintf("Rating %d", res.Rating))
	}
	if d := formatDuration(time.Duration(res.DurationMs) * time.Millisecond); d != "" {
		footer = append(footer, d)
	}
	if len(footer) > 0 {
		sb.WriteString("• ")
		sb.WriteString(strings.Join(footer, " | "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Review(res *bridgedto.ReviewResponse) string {
	if res == nil || len(res.Positions) == 0 {
		return "Nothing to review."
	}
	deep := make(map[int]bool, len(res.Deepened))
	for _, i := range res.Deepened {
		deep[i] = true
	}

	var sb strings.Builder
	sb.WriteString(reviewHeader)
	sb.WriteString(fmt.Sprintf(" (%d positions, %d deepened)\n", len(res.Positions), len(res.Deepened)))
	for _, p := range res.Positions {
		marker := " "
		if deep[p.Index] {
			marker = "*"
		}
		if p.Error != "" {
			sb.WriteString(fmt.Sprintf("%s%3d  error: %s\n", marker, p.Index, p.Error))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s%3d  %-8s %8s  d%d\n", marker, p.Index, formatMove(p.SAN, p.BestMove), FormatScore(p.Score), p.Depth))
	}
	if res.ID != "" {
		sb.WriteString("• Report: ")
		sb.WriteString(res.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) Opening(res *bridgedto.OpeningResponse) string {
	if res == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(openingHeader)
	sb.WriteString("\n")
	if res.Found {
		sb.WriteString(fmt.Sprintf("• %s %s\n", res.ECO, res.Title))
	} else {
		sb.WriteString("• Unknown opening\n")
	}
	sb.WriteString(fmt.Sprintf("• Move %d\n", res.FullMove))
	if len(res.Styles) > 0 {
		labels := make([]string, 0, len(res.Styles))
		for _, s := range res.Styles {
			labels = append(labels, s.Label)
		}
		sb.WriteString("• Style: ")
		sb.WriteString(strings.Join(labels, ", "))
		sb.WriteString("\n")
	}
	if res.InBook {
		sb.WriteString("• Book: ")
		sb.WriteString(formatBookMoves(res.Candidates))
	} else {
		sb.WriteString("• Out of book")
	}
	return sb.String()
}

func (f *Formatter) Capabilities(c *bridgedto.Capabilities) string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(engineHeader)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("• %s by %s (%s)\n", c.EngineName, c.EngineAuthor, c.State))
	sb.WriteString(fmt.Sprintf("• Elo %d-%d, MultiPV up to %d\n", c.EloMin, c.EloMax, c.MaxMultiPV))
	if c.Strength != nil {
		sb.WriteString("• ")
		sb.WriteString(formatStrength(c.Strength))
		sb.WriteString("\n")
	}
	if c.Book {
		sb.WriteString(fmt.Sprintf("• Book: %s through move %d\n", strings.Join(c.BookSources, "+"), c.BookMaxFullMove))
	}
	sb.WriteString("• Presets: ")
	sb.WriteString(strings.Join(c.Presets, " "))
	return sb.String()
}

func (f *Formatter) Strength(s *bridgedto.Strength) string {
	if s == nil {
		return ""
	}
	return formatStrength(s)
}

// FormatScore renders a score from the mover's side: "+0.35" or "#-3".
func FormatScore(s *bridgedto.Score) string {
	switch {
	case s == nil:
		return "-"
	case s.Mate != nil:
		return fmt.Sprintf("#%d", *s.Mate)
	case s.CP != nil:
		return fmt.Sprintf("%+.2f", float64(*s.CP)/100)
	default:
		return "-"
	}
}

func formatStrength(s *bridgedto.Strength) string {
	limit := "full strength"
	if s.LimitStrength {
		limit = "limited"
	}
	return fmt.Sprintf("Rating %d (%s tier, skill %d, %s, %dms)", s.Rating, s.Tier, s.Skill, limit, s.MoveTimeMs)
}

func formatSource(res *bridgedto.AnalyzeResponse) string {
	parts := make([]string, 0, 3)
	switch {
	case res.Book:
		parts = append(parts, "book")
	case res.Cached:
		parts = append(parts, "cache")
	default:
		parts = append(parts, "engine")
	}
	if res.Humanized {
		parts = append(parts, "humanized/"+res.HumanStage)
	}
	if res.ForcedStop {
		parts = append(parts, "forced stop")
	}
	return strings.Join(parts, ", ")
}

func formatMove(san, uci string) string {
	if strings.TrimSpace(san) != "" {
		return san
	}
	if uci == "" {
		return "-"
	}
	return uci
}

func formatPV(pv []string) string {
	if len(pv) == 0 {
		return "-"
	}
	if len(pv) <= pvPreviewLimit {
		return strings.Join(pv, " ")
	}
	return strings.Join(pv[:pvPreviewLimit], " ") + " …"
}

func formatBookMoves(moves []bridgedto.BookMove) string {
	if len(moves) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(moves))
	for _, m := range moves {
		parts = append(parts, fmt.Sprintf("%s(%d)", m.Move, m.Weight))
	}
	return strings.Join(parts, " ")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
