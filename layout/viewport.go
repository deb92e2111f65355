package layout

import "math"

const (
	minScale = 0.1
	maxScale = 8
)

// Viewport maps layout coordinates to the screen. It never changes pins or
// stored positions.
type Viewport struct {
	Width, Height float64
	Scale         float64
	Offset        Point
}

func NewViewport(width, height float64) *Viewport {
	return &Viewport{
		Width:  width,
		Height: height,
		Scale:  1,
		Offset: Point{X: width / 2, Y: height / 2},
	}
}

func (v *Viewport) ToScreen(p Point) Point {
	return Point{X: p.X*v.Scale + v.Offset.X, Y: p.Y*v.Scale + v.Offset.Y}
}

// Zoom scales by factor keeping the screen point anchor fixed.
func (v *Viewport) Zoom(factor float64, anchor Point) {
	if factor <= 0 {
		return
	}
	scale := math.Min(maxScale, math.Max(minScale, v.Scale*factor))
	applied := scale / v.Scale
	v.Offset.X = anchor.X - (anchor.X-v.Offset.X)*applied
	v.Offset.Y = anchor.Y - (anchor.Y-v.Offset.Y)*applied
	v.Scale = scale
}

// Center fits the bounding box of positions into the viewport with a margin.
func (v *Viewport) Center(positions map[string]Point, margin float64) {
	if len(positions) == 0 {
		v.Scale = 1
		v.Offset = Point{X: v.Width / 2, Y: v.Height / 2}
		return
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range positions {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	w := math.Max(maxX-minX, 1)
	h := math.Max(maxY-minY, 1)
	availW := math.Max(v.Width-2*margin, 1)
	availH := math.Max(v.Height-2*margin, 1)
	v.Scale = math.Min(maxScale, math.Max(minScale, math.Min(availW/w, availH/h)))

	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	v.Offset = Point{X: v.Width/2 - cx*v.Scale, Y: v.Height/2 - cy*v.Scale}
}

// Reheat restarts the engine's tick budget for its unpinned nodes.
func (v *Viewport) Reheat(e *Engine) {
	e.reheat()
}
