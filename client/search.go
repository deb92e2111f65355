package client

import (
	"context"
	"sync"
	"time"

	"github.com/totegamma/questlog"
)

const DefaultDebounce = 250 * time.Millisecond

type SearchFunc func(ctx context.Context, query string) ([]questlog.EntityRef, error)

// Searcher debounces interactive searches. A new query cancels the one in
// flight, and only the result of the latest query is ever delivered.
type Searcher struct {
	search  SearchFunc
	deliver func(query string, refs []questlog.EntityRef, err error)
	delay   time.Duration

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool

	deliverMu sync.Mutex
}

func NewSearcher(delay time.Duration, search SearchFunc, deliver func(query string, refs []questlog.EntityRef, err error)) *Searcher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Searcher{search: search, deliver: deliver, delay: delay}
}

// Query schedules a search for q after the debounce delay.
func (s *Searcher) Query(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.supersede()
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.run(gen, q) })
}

// supersede invalidates the pending and in-flight searches. Callers hold mu.
func (s *Searcher) supersede() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Searcher) run(gen uint64, q string) {
	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	refs, err := s.search(ctx, q)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.current(gen) {
		return
	}
	s.deliver(q, refs, err)
}

func (s *Searcher) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen && !s.closed
}

// Close drops pending work; nothing is delivered afterwards.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersede()
	s.closed = true
}
