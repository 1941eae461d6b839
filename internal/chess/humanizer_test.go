package chess

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

func scoreCP(v int) *uci.Score {
	s := uci.CP(v)
	return &s
}

func sampleCandidates() []Candidate {
	return []Candidate{
		{Move: "e2e4", Score: 40},
		{Move: "d2d4", Score: 30},
		{Move: "g1f3", Score: 25},
		{Move: "b1c3", Score: -40},
		{Move: "a2a4", Score: -160},
		{Move: "g2g4", Score: -300},
	}
}

func TestCollectCandidatesUsesDeepestDepth(t *testing.T) {
	infos := []uci.Info{
		{Depth: 9, MultiPV: 1, Score: scoreCP(10), PV: []string{"d2d4"}},
		{Depth: 10, MultiPV: 1, Score: scoreCP(35), PV: []string{"e2e4", "e7e5"}},
		{Depth: 10, MultiPV: 2, Score: scoreCP(20), PV: []string{"d2d4"}},
		{Depth: 10, MultiPV: 3, Score: scoreCP(25), PV: []string{"d2d4"}},
		{Depth: 10, MultiPV: 4, PV: []string{"c2c4"}},
	}
	got := CollectCandidates(infos)
	require.Len(t, got, 2)
	assert.Equal(t, "e2e4", got[0].Move)
	assert.Equal(t, 35, got[0].Score)
	assert.Equal(t, "d2d4", got[1].Move)
	assert.Equal(t, 25, got[1].Score)
}

func TestCollectCandidatesMateScores(t *testing.T) {
	mate := uci.Mate(2)
	got := CollectCandidates([]uci.Info{
		{Depth: 5, MultiPV: 1, Score: &mate, PV: []string{"d1h5"}},
		{Depth: 5, MultiPV: 2, Score: scoreCP(300), PV: []string{"f1c4"}},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "d1h5", got[0].Move)
}

func TestHumanizeZeroProbabilitiesReturnsTop(t *testing.T) {
	p := HumanizationPolicy{MaxGapCP: 0, Temperature: 0.5, MultiPV: 4}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		choice, ok := Humanize(p, sampleCandidates(), r)
		require.True(t, ok)
		require.Equal(t, "e2e4", choice.Move)
		require.Equal(t, StageTop, choice.Stage)
		require.Zero(t, choice.LossCP)
	}
}

func TestHumanizeEmpty(t *testing.T) {
	_, ok := Humanize(DefaultHumanizationPolicy(), nil, rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}

func TestHumanizeSamplingStaysWithinGap(t *testing.T) {
	p := HumanizationPolicy{MaxGapCP: 20, Temperature: 0.1}
	r := rand.New(rand.NewSource(7))
	seen := map[string]int{}
	for i := 0; i < 2000; i++ {
		choice, _ := Humanize(p, sampleCandidates(), r)
		seen[choice.Move]++
	}
	assert.Len(t, seen, 3)
	assert.Zero(t, seen["b1c3"])
	assert.Greater(t, seen["e2e4"], seen["g1f3"])
}

func TestHumanizeImperfectionBand(t *testing.T) {
	p := HumanizationPolicy{ImperfectProb: 1, ImperfectMinCP: 50, ImperfectMaxCP: 150}
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		choice, _ := Humanize(p, sampleCandidates(), r)
		require.Equal(t, StageImperfect, choice.Stage)
		require.Equal(t, "b1c3", choice.Move)
		require.Equal(t, 80, choice.LossCP)
	}
}

func TestHumanizeBlunderBandExcludesImperfectCap(t *testing.T) {
	p := HumanizationPolicy{ImperfectMinCP: 50, ImperfectMaxCP: 200, BlunderProb: 1, BlunderMaxCP: 400}
	r := rand.New(rand.NewSource(5))
	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		choice, _ := Humanize(p, sampleCandidates(), r)
		require.Equal(t, StageBlunder, choice.Stage)
		seen[choice.Move] = true
	}
	assert.Equal(t, map[string]bool{"g2g4": true}, seen)
}

func TestPickLeastBadWeights(t *testing.T) {
	options := []Candidate{{Move: "a"}, {Move: "b"}, {Move: "c"}, {Move: "d"}}
	r := rand.New(rand.NewSource(11))
	counts := map[string]int{}
	for i := 0; i < 6000; i++ {
		c, ok := pickLeastBad(options, r)
		require.True(t, ok)
		counts[c.Move]++
	}
	assert.Zero(t, counts["d"])
	assert.Greater(t, counts["a"], counts["b"])
	assert.Greater(t, counts["b"], counts["c"])
}

func TestValidatePolicy(t *testing.T) {
	require.NoError(t, ValidatePolicy(DefaultHumanizationPolicy()))
	assert.Error(t, ValidatePolicy(HumanizationPolicy{ImperfectProb: 1.5}))
	assert.Error(t, ValidatePolicy(HumanizationPolicy{ImperfectMinCP: 100, ImperfectMaxCP: 50}))
	assert.Error(t, ValidatePolicy(HumanizationPolicy{BlunderProb: 0.1, ImperfectMaxCP: 150, BlunderMaxCP: 100}))
}
