package layout

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("layout: loop closed")

// DefaultFrame is the tick interval used when none is given.
const DefaultFrame = 16 * time.Millisecond

// Frame is what observers see after every tick or command.
type Frame struct {
	Phase     Phase
	Tick      int
	Positions map[string]Point
}

type command struct {
	fn   func(ctx context.Context, e *Engine)
	done chan struct{}
}

// Loop drives an Engine from a ticker on a single goroutine. All engine
// access goes through Do.
type Loop struct {
	engine   *Engine
	interval time.Duration
	onFrame  func(Frame)

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan command
	wg     sync.WaitGroup
	once   sync.Once

	mu        sync.Mutex
	observers map[int]func(Frame)
	nextObs   int
}

// NewLoop starts ticking e every interval. onFrame may be nil.
func NewLoop(e *Engine, interval time.Duration, onFrame func(Frame)) *Loop {
	if interval <= 0 {
		interval = DefaultFrame
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		engine:    e,
		interval:  interval,
		onFrame:   onFrame,
		ctx:       ctx,
		cancel:    cancel,
		cmds:      make(chan command),
		observers: map[int]func(Frame){},
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case cmd := <-l.cmds:
			cmd.fn(l.ctx, l.engine)
			close(cmd.done)
			l.emit()
		case <-ticker.C:
			if !l.engine.Running() {
				continue
			}
			l.engine.Tick(l.ctx)
			l.emit()
		}
	}
}

func (l *Loop) emit() {
	frame := Frame{
		Phase:     l.engine.Phase(),
		Tick:      l.engine.Ticks(),
		Positions: l.engine.Positions(),
	}
	if l.onFrame != nil {
		l.onFrame(frame)
	}

	l.mu.Lock()
	observers := make([]func(Frame), 0, len(l.observers))
	for _, obs := range l.observers {
		observers = append(observers, obs)
	}
	l.mu.Unlock()

	for _, obs := range observers {
		obs(frame)
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context, e *Engine)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case l.cmds <- cmd:
	case <-l.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Observe registers fn for every frame and returns a func that removes it.
func (l *Loop) Observe(fn func(Frame)) (disconnect func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.observers == nil {
		return func() {}
	}
	id := l.nextObs
	l.nextObs++
	l.observers[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.observers, id)
	}
}

func (l *Loop) Observers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.observers)
}

// Close stops the ticker, disconnects observers and waits for the loop
// goroutine to exit. It is safe to call more than once.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.cancel()
		l.wg.Wait()
		l.mu.Lock()
		l.observers = nil
		l.mu.Unlock()
	})
}
