package chesspresenter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-engine-bridge/pkg/bridgedto"
)

func intp(v int) *int { return &v }

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "+0.35", FormatScore(&bridgedto.Score{CP: intp(35)}))
	assert.Equal(t, "-1.20", FormatScore(&bridgedto.Score{CP: intp(-120)}))
	assert.Equal(t, "#-3", FormatScore(&bridgedto.Score{Mate: intp(-3)}))
	assert.Equal(t, "-", FormatScore(nil))
}

func TestAnalyzeText(t *testing.T) {
	f := NewFormatter()
	out := f.Analyze(&bridgedto.AnalyzeResponse{
		Move:       "b1c3",
		SAN:        "Nc3",
		EngineMove: "e2e4",
		Score:      &bridgedto.Score{CP: intp(20)},
		Depth:      18,
		Humanized:  true,
		HumanStage: "imperfect",
		LossCP:     80,
		Rating:     1500,
		DurationMs: 420,
	})
	assert.Contains(t, out, "• Move: Nc3")
	assert.Contains(t, out, "+0.20 @ depth 18")
	assert.Contains(t, out, "engine, humanized/imperfect")
	assert.Contains(t, out, "Engine preferred e2e4, gave up 80cp")
	assert.True(t, strings.HasSuffix(out, "• Rating 1500 | 420ms"), out)

	assert.Equal(t, "The engine did not return a move.", f.Analyze(nil))
}

func TestReviewMarksDeepenedPositions(t *testing.T) {
	out := NewFormatter().Review(&bridgedto.ReviewResponse{
		ID: "r-1",
		Positions: []bridgedto.ReviewPosition{
			{Index: 0, BestMove: "e2e4", SAN: "e4", Score: &bridgedto.Score{CP: intp(20)}, Depth: 10},
			{Index: 1, BestMove: "d8h4", SAN: "Qh4#", Score: &bridgedto.Score{Mate: intp(1)}, Depth: 22},
			{Index: 2, Error: "invalid fen"},
		},
		Deepened: []int{1},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "3 positions, 1 deepened")
	assert.True(t, strings.HasPrefix(lines[1], " "))
	assert.True(t, strings.HasPrefix(lines[2], "*"))
	assert.Contains(t, lines[2], "#1")
	assert.Contains(t, lines[3], "error: invalid fen")
	assert.Equal(t, "• Report: r-1", lines[4])
}

func TestOpeningText(t *testing.T) {
	out := NewFormatter().Opening(&bridgedto.OpeningResponse{
		Found: true, ECO: "B20", Title: "Sicilian Defense", FullMove: 2,
		Styles:     []bridgedto.StyleGroup{{Key: "sharp", Label: "Sharp"}},
		InBook:     true,
		Candidates: []bridgedto.BookMove{{Move: "g1f3", Weight: 40}, {Move: "b1c3", Weight: 12}},
	})
	assert.Contains(t, out, "• B20 Sicilian Defense")
	assert.Contains(t, out, "• Style: Sharp")
	assert.Contains(t, out, "• Book: g1f3(40) b1c3(12)")
}

func TestPresenterModes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPresenter(&buf, true).Show(&bridgedto.Strength{Rating: 1800, Tier: "mid"}))
	var back bridgedto.Strength
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 1800, back.Rating)

	buf.Reset()
	require.NoError(t, NewPresenter(&buf, false).Show(&bridgedto.Strength{Rating: 1800, Tier: "mid", Skill: 9, LimitStrength: true, MoveTimeMs: 600}))
	assert.Equal(t, "Rating 1800 (mid tier, skill 9, limited, 600ms)\n", buf.String())

	assert.Error(t, NewPresenter(&buf, false).Show(42))
}
