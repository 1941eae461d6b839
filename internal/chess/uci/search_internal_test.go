package uci

import (
	"testing"
	"time"
)

func TestInfoBufferCompactsWithinWindow(t *testing.T) {
	buf := newInfoBuffer(50*time.Millisecond, 256)
	base := time.Now()
	cp := func(v int) *Score { s := CP(v); return &s }

	buf.add(Info{Depth: 10, MultiPV: 1, Score: cp(10)}, base)
	buf.add(Info{Depth: 10, MultiPV: 1, Score: cp(12)}, base.Add(10*time.Millisecond))
	buf.add(Info{Depth: 10, MultiPV: 2, Score: cp(-5)}, base.Add(20*time.Millisecond))
	buf.add(Info{Depth: 10, MultiPV: 2, Score: cp(-7)}, base.Add(200*time.Millisecond))
	buf.add(Info{Depth: 11, MultiPV: 1, Score: cp(15)}, base.Add(210*time.Millisecond))

	got := buf.entries()
	if len(got) != 4 {
		t.Fatalf("entries = %d, want 4: %+v", len(got), got)
	}
	if got[0].Score.Value != 12 {
		t.Fatalf("first entry should be overwritten in place, got %d", got[0].Score.Value)
	}
	if got[1].Score.Value != -5 || got[2].Score.Value != -7 {
		t.Fatalf("lines outside the window must not be merged: %+v", got)
	}
}

func TestInfoBufferCapsEntries(t *testing.T) {
	buf := newInfoBuffer(time.Millisecond, 3)
	base := time.Now()
	for d := 1; d <= 5; d++ {
		buf.add(Info{Depth: d, MultiPV: 1}, base.Add(time.Duration(d)*time.Second))
	}
	got := buf.entries()
	if len(got) != 3 || got[0].Depth != 3 || got[2].Depth != 5 {
		t.Fatalf("unexpected capped entries: %+v", got)
	}
}

func TestComputeSearchTimeout(t *testing.T) {
	cases := []struct {
		req  SearchRequest
		want time.Duration
	}{
		{SearchRequest{MoveTimeMs: 100}, 100*time.Millisecond + 2*time.Second},
		{SearchRequest{MoveTimeMs: 10000}, 15 * time.Second},
		{SearchRequest{Depth: 4}, 8 * time.Second},
		{SearchRequest{Depth: 14}, 10500 * time.Millisecond},
		{SearchRequest{Depth: 60}, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := computeSearchTimeout(tc.req); got != tc.want {
			t.Fatalf("computeSearchTimeout(%+v) = %s, want %s", tc.req, got, tc.want)
		}
	}
}

func TestSearchResultDeepest(t *testing.T) {
	cp := func(v int) *Score { s := CP(v); return &s }
	res := SearchResult{Infos: []Info{
		{Depth: 9, MultiPV: 1, Score: cp(1), PV: []string{"e2e4"}},
		{Depth: 10, MultiPV: 1, Score: cp(2), PV: []string{"d2d4"}},
		{Depth: 10, MultiPV: 2, Score: cp(3), PV: []string{"c2c4"}},
		{Depth: 10, MultiPV: 1, Score: cp(4), PV: []string{"g1f3"}},
	}}
	deep := res.Deepest()
	if len(deep) != 2 || deep[0].Move() != "g1f3" || deep[1].Move() != "c2c4" {
		t.Fatalf("unexpected deepest infos: %+v", deep)
	}
	principal, ok := res.Principal()
	if !ok || principal.Move() != "g1f3" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}
