package layout

import (
	"context"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/totegamma/questlog"
)

type Phase int

const (
	Uninitialized Phase = iota
	Simulating
	Stopped
	Dragging
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Simulating:
		return "simulating"
	case Stopped:
		return "stopped"
	case Dragging:
		return "dragging"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

type Options struct {
	TickBudget      int
	EnergyThreshold float64
	TimeStep        float64
	Params          Params
}

func DefaultOptions() Options {
	return Options{
		TickBudget:      300,
		EnergyThreshold: 0.01,
		TimeStep:        1,
		Params:          DefaultParams(),
	}
}

const (
	seedRadius = 120.0
	seedSpread = 80.0
)

// Engine owns the simulation of one visualization session. It is not safe
// for concurrent use; drive it through a Loop.
type Engine struct {
	store *PositionStore
	opts  Options

	state State
	index map[string]int
	phase Phase
	ticks int

	dragging string
	resume   Phase
}

func NewEngine(store *PositionStore, opts Options) *Engine {
	if opts.TickBudget <= 0 {
		opts.TickBudget = DefaultOptions().TickBudget
	}
	if opts.TimeStep <= 0 {
		opts.TimeStep = DefaultOptions().TimeStep
	}
	if opts.Params == (Params{}) {
		opts.Params = DefaultParams()
	}
	if store == nil {
		store = &PositionStore{}
	}
	return &Engine{
		store: store,
		opts:  opts,
		index: map[string]int{},
		phase: Uninitialized,
	}
}

// Load replaces the node set with the graph's. Stored positions of nodes
// still present start pinned; the rest are seeded around them.
func (e *Engine) Load(ctx context.Context, g questlog.Graph) {
	stored := e.store.Load(ctx)

	e.state = State{Params: e.opts.Params}
	e.index = make(map[string]int, len(g.Nodes))
	e.dragging = ""

	var cx, cy float64
	var hits int
	for _, n := range g.Nodes {
		if p, ok := stored[n.ID]; ok {
			cx += p.X
			cy += p.Y
			hits++
		}
	}
	if hits > 0 {
		cx /= float64(hits)
		cy /= float64(hits)
	}

	for _, n := range g.Nodes {
		if _, dup := e.index[n.ID]; dup {
			continue
		}
		node := Node{ID: n.ID}
		if p, ok := stored[n.ID]; ok {
			node.X, node.Y = p.X, p.Y
			node.Pinned = true
		} else {
			node.X, node.Y = seed(n.ID, cx, cy)
		}
		e.index[n.ID] = len(e.state.Nodes)
		e.state.Nodes = append(e.state.Nodes, node)
	}

	for _, edge := range g.Edges {
		s, ok1 := e.index[edge.Source]
		t, ok2 := e.index[edge.Target]
		if !ok1 || !ok2 || s == t {
			continue
		}
		e.state.Links = append(e.state.Links, Link{Source: s, Target: t})
	}

	e.ticks = 0
	if len(e.state.Nodes) == 0 {
		e.phase = Stopped
		return
	}
	e.phase = Simulating
}

// seed places a node on a ring around (cx, cy). The angle and radius come
// from a hash of the id, so a node always starts at the same spot.
func seed(id string, cx, cy float64) (float64, float64) {
	h := xxh3.HashString(id)
	angle := float64(h&0xffffffff) / float64(1<<32) * 2 * math.Pi
	radius := seedRadius + float64((h>>32)%1000)/1000*seedSpread
	return cx + radius*math.Cos(angle), cy + radius*math.Sin(angle)
}

func (e *Engine) Phase() Phase { return e.phase }

// Running reports whether Tick has work to do.
func (e *Engine) Running() bool {
	return e.phase == Simulating || e.phase == Dragging
}

// Tick advances the simulation one step. Reaching the energy threshold or
// the tick budget stops the engine: every node is pinned and the full
// position map is saved.
func (e *Engine) Tick(ctx context.Context) {
	if !e.Running() {
		return
	}

	var held Point
	if e.phase == Dragging {
		n := e.state.Nodes[e.index[e.dragging]]
		held = Point{X: n.X, Y: n.Y}
	}

	e.state = Step(e.state, e.opts.TimeStep)
	e.ticks++

	if e.phase == Dragging {
		n := &e.state.Nodes[e.index[e.dragging]]
		n.X, n.Y = held.X, held.Y
		n.VX, n.VY = 0, 0
		return
	}

	if e.state.Energy() < e.opts.EnergyThreshold || e.ticks >= e.opts.TickBudget {
		e.stop(ctx)
	}
}

func (e *Engine) stop(ctx context.Context) {
	for i := range e.state.Nodes {
		e.state.Nodes[i].Pinned = true
		e.state.Nodes[i].VX, e.state.Nodes[i].VY = 0, 0
	}
	e.phase = Stopped
	e.store.Save(ctx, e.Positions())
}

// BeginDrag unpins one node and hands its position to the pointer.
func (e *Engine) BeginDrag(id string) error {
	i, ok := e.index[id]
	if !ok {
		return fmt.Errorf("layout: unknown node %q", id)
	}
	if e.phase == Dragging {
		return fmt.Errorf("layout: already dragging %q", e.dragging)
	}
	e.resume = e.phase
	if e.resume == Stopped {
		e.ticks = 0
	}
	e.state.Nodes[i].Pinned = false
	e.state.Nodes[i].VX, e.state.Nodes[i].VY = 0, 0
	e.dragging = id
	e.phase = Dragging
	return nil
}

func (e *Engine) DragTo(id string, x, y float64) error {
	if e.phase != Dragging || e.dragging != id {
		return fmt.Errorf("layout: %q is not being dragged", id)
	}
	n := &e.state.Nodes[e.index[id]]
	n.X, n.Y = x, y
	return nil
}

// EndDrag pins the node where it was released and merges only its entry
// into the stored map.
func (e *Engine) EndDrag(ctx context.Context, id string) error {
	if e.phase != Dragging || e.dragging != id {
		return fmt.Errorf("layout: %q is not being dragged", id)
	}
	n := &e.state.Nodes[e.index[id]]
	n.Pinned = true
	n.VX, n.VY = 0, 0
	e.dragging = ""

	e.store.Merge(ctx, id, Point{X: n.X, Y: n.Y}, e.present())

	switch {
	case e.resume != Simulating:
		e.phase = Stopped
	case e.ticks < e.opts.TickBudget:
		e.phase = Simulating
	default:
		e.stop(ctx)
	}
	return nil
}

// Reset forgets the stored layout and simulates from fresh seeds.
func (e *Engine) Reset(ctx context.Context) {
	e.store.Clear(ctx)
	for i := range e.state.Nodes {
		n := &e.state.Nodes[i]
		n.X, n.Y = seed(n.ID, 0, 0)
		n.VX, n.VY = 0, 0
		n.Pinned = false
	}
	e.dragging = ""
	e.ticks = 0
	if len(e.state.Nodes) == 0 {
		e.phase = Stopped
		return
	}
	e.phase = Simulating
}

// reheat restarts the tick budget; only unpinned nodes move again.
func (e *Engine) reheat() {
	if e.phase == Uninitialized || e.phase == Dragging {
		return
	}
	e.ticks = 0
	for _, n := range e.state.Nodes {
		if !n.Pinned {
			e.phase = Simulating
			return
		}
	}
}

func (e *Engine) Positions() map[string]Point {
	positions := make(map[string]Point, len(e.state.Nodes))
	for _, n := range e.state.Nodes {
		positions[n.ID] = Point{X: n.X, Y: n.Y}
	}
	return positions
}

func (e *Engine) Pinned(id string) bool {
	i, ok := e.index[id]
	return ok && e.state.Nodes[i].Pinned
}

func (e *Engine) Ticks() int { return e.ticks }

func (e *Engine) present() map[string]struct{} {
	set := make(map[string]struct{}, len(e.index))
	for id := range e.index {
		set[id] = struct{}{}
	}
	return set
}
