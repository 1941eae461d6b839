package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/cheese-engine-bridge/internal/chess"
	"github.com/park285/cheese-engine-bridge/internal/chess/uci"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(fmt.Sprintf("redis://%s/0", mr.Addr()), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()
	score := uci.CP(31)

	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k1", chess.AnalyzeResult{
		ID:     "abc",
		Move:   "e2e4",
		Score:  &score,
		Depth:  12,
		Infos:  []uci.Info{{Depth: 12, MultiPV: 1, Score: &score, PV: []string{"e2e4", "e7e5"}}},
		Cached: true,
	}))

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "e2e4", got.Move)
	assert.Empty(t, got.ID)
	assert.False(t, got.Cached)
	require.NotNil(t, got.Score)
	assert.Equal(t, 31, got.Score.Value)
	require.Len(t, got.Infos, 1)
	assert.Equal(t, []string{"e2e4", "e7e5"}, got.Infos[0].PV)
}

func TestRedisExpires(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", chess.AnalyzeResult{Move: "d2d4"}))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCorruptEntryIsDropped(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))

	_, ok, err := c.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(keyPrefix+"bad"))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("", time.Minute)
	require.Error(t, err)
}
