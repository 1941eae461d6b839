package uci

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	subscriptionBuffer = 256
	// a subscriber that stays full this long loses the line
	publishStall = time.Second
)

type Subscription struct {
	C <-chan string

	id   int
	ch   chan string
	done chan struct{}
	once sync.Once
	hub  *Hub

	stalled atomic.Bool
	dropped atomic.Int64
}

func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close deregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.done)
		if s.hub != nil {
			s.hub.remove(s.id)
		}
	})
}

type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*Subscription)}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan string, subscriptionBuffer)
	sub := &Subscription{C: ch, ch: ch, done: make(chan struct{}), hub: h}

	h.mu.Lock()
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

// Publish delivers line to every subscriber. A subscriber that stays full for
// publishStall is marked stalled and loses lines until it reads again, so the
// reader never blocks on it.
func (h *Hub) Publish(line string) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- line:
			sub.stalled.Store(false)
			continue
		case <-sub.done:
			continue
		default:
		}
		if sub.stalled.Load() {
			sub.dropped.Add(1)
			continue
		}
		stall := time.NewTimer(publishStall)
		select {
		case sub.ch <- line:
		case <-sub.done:
		case <-stall.C:
			sub.stalled.Store(true)
			sub.dropped.Add(1)
		}
		stall.Stop()
	}
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}
