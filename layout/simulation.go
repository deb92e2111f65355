// Package layout positions campaign network nodes with a force-directed
// simulation and remembers the result per campaign.
package layout

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID     string
	X, Y   float64
	VX, VY float64
	Pinned bool
}

// Link connects two nodes by index.
type Link struct {
	Source, Target int
}

type Params struct {
	Repulsion      float64
	SpringLength   float64
	SpringStrength float64
	Centering      float64
	Damping        float64 // velocity kept per step, 0..1
	MaxSpeed       float64
}

func DefaultParams() Params {
	return Params{
		Repulsion:      4000,
		SpringLength:   80,
		SpringStrength: 0.05,
		Centering:      0.01,
		Damping:        0.6,
		MaxSpeed:       50,
	}
}

type State struct {
	Nodes  []Node
	Links  []Link
	Params Params
}

func (s State) clone() State {
	nodes := make([]Node, len(s.Nodes))
	copy(nodes, s.Nodes)
	return State{Nodes: nodes, Links: s.Links, Params: s.Params}
}

// Energy is the kinetic energy of the unpinned nodes.
func (s State) Energy() float64 {
	var e float64
	for _, n := range s.Nodes {
		if n.Pinned {
			continue
		}
		e += 0.5 * (n.VX*n.VX + n.VY*n.VY)
	}
	return e
}

// Step advances the simulation by dt and returns the new state. The input is
// left untouched. Pinned nodes keep their position and still repel others.
func Step(s State, dt float64) State {
	next := s.clone()
	n := len(next.Nodes)
	if n == 0 {
		return next
	}
	p := next.Params

	fx := make([]float64, n)
	fy := make([]float64, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := next.Nodes[i].X - next.Nodes[j].X
			dy := next.Nodes[i].Y - next.Nodes[j].Y
			d2 := dx*dx + dy*dy
			if d2 < 1e-6 {
				// coincident nodes: separate along a fixed direction per pair
				angle := float64(i*31+j*17) * 0.7
				dx, dy = math.Cos(angle)*0.01, math.Sin(angle)*0.01
				d2 = dx*dx + dy*dy
			}
			d := math.Sqrt(d2)
			f := p.Repulsion / d2
			ux, uy := dx/d, dy/d
			fx[i] += f * ux
			fy[i] += f * uy
			fx[j] -= f * ux
			fy[j] -= f * uy
		}
	}

	for _, l := range next.Links {
		if l.Source == l.Target || l.Source < 0 || l.Target < 0 || l.Source >= n || l.Target >= n {
			continue
		}
		a, b := next.Nodes[l.Source], next.Nodes[l.Target]
		dx := b.X - a.X
		dy := b.Y - a.Y
		d := math.Sqrt(dx*dx + dy*dy)
		if d < 1e-9 {
			continue
		}
		f := p.SpringStrength * (d - p.SpringLength)
		ux, uy := dx/d, dy/d
		fx[l.Source] += f * ux
		fy[l.Source] += f * uy
		fx[l.Target] -= f * ux
		fy[l.Target] -= f * uy
	}

	for i := range next.Nodes {
		node := &next.Nodes[i]
		if node.Pinned {
			node.VX, node.VY = 0, 0
			continue
		}
		fx[i] -= p.Centering * node.X
		fy[i] -= p.Centering * node.Y

		node.VX = (node.VX + fx[i]*dt) * p.Damping
		node.VY = (node.VY + fy[i]*dt) * p.Damping
		if speed := math.Hypot(node.VX, node.VY); p.MaxSpeed > 0 && speed > p.MaxSpeed {
			node.VX *= p.MaxSpeed / speed
			node.VY *= p.MaxSpeed / speed
		}
		node.X += node.VX * dt
		node.Y += node.VY * dt
	}

	return next
}
