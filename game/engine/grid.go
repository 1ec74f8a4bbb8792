package engine

import "fmt"

// Coordinate identifies one cell of the overland map
type Coordinate struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	Plane int `json:"plane" yaml:"plane"`
}

// String returns the coordinate as "(x,y,plane)"
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Plane)
}

// Direction is one of the 8 neighbor directions, numbered clockwise from north
type Direction int

const (
	NoDirection Direction = iota
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// DirectionCount is the number of neighbor directions on a square grid
const DirectionCount = 8

var directionDeltas = [DirectionCount + 1]struct{ dx, dy int }{
	{0, 0},
	{0, -1},  // North
	{1, -1},  // North-East
	{1, 0},   // East
	{1, 1},   // South-East
	{0, 1},   // South
	{-1, 1},  // South-West
	{-1, 0},  // West
	{-1, -1}, // North-West
}

var directionNames = [DirectionCount + 1]string{"none", "n", "ne", "e", "se", "s", "sw", "w", "nw"}

// String returns the short compass name of the direction
func (d Direction) String() string {
	if d < NoDirection || d > NorthWest {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection converts a compass name ("n", "se", ...) into a Direction
func ParseDirection(name string) (Direction, bool) {
	for d := North; d <= NorthWest; d++ {
		if directionNames[d] == name {
			return d, true
		}
	}
	return NoDirection, false
}

// CoordinateSystem describes the map dimensions and wrapping rules
type CoordinateSystem struct {
	Width            int  `json:"width"`
	Height           int  `json:"height"`
	Planes           int  `json:"planes"`
	WrapsLeftToRight bool `json:"wraps_left_to_right"`
	WrapsTopToBottom bool `json:"wraps_top_to_bottom"`
}

// CellCount returns the total number of cells across all planes
func (s CoordinateSystem) CellCount() int {
	return s.Width * s.Height * s.Planes
}

// Contains reports whether the coordinate lies inside the map
func (s CoordinateSystem) Contains(c Coordinate) bool {
	return c.X >= 0 && c.X < s.Width &&
		c.Y >= 0 && c.Y < s.Height &&
		c.Plane >= 0 && c.Plane < s.Planes
}

// Move returns the neighbor of c in direction d on the same plane.
// The second result is false when the move leaves a non-wrapping edge.
func (s CoordinateSystem) Move(c Coordinate, d Direction) (Coordinate, bool) {
	if d < North || d > NorthWest {
		return c, false
	}
	delta := directionDeltas[d]
	x, y := c.X+delta.dx, c.Y+delta.dy

	if x < 0 || x >= s.Width {
		if !s.WrapsLeftToRight {
			return c, false
		}
		x = (x + s.Width) % s.Width
	}
	if y < 0 || y >= s.Height {
		if !s.WrapsTopToBottom {
			return c, false
		}
		y = (y + s.Height) % s.Height
	}

	return Coordinate{X: x, Y: y, Plane: c.Plane}, true
}

// Grid is a dense per-cell store laid out as a flat slice indexed
// ((plane * height) + y) * width + x
type Grid[T any] struct {
	sys   CoordinateSystem
	cells []T
}

// NewGrid allocates a grid covering every cell of the coordinate system
func NewGrid[T any](sys CoordinateSystem) *Grid[T] {
	return &Grid[T]{
		sys:   sys,
		cells: make([]T, sys.CellCount()),
	}
}

// System returns the coordinate system the grid was built for
func (g *Grid[T]) System() CoordinateSystem {
	return g.sys
}

// Index returns the flat offset of a coordinate
func (g *Grid[T]) Index(c Coordinate) int {
	return ((c.Plane*g.sys.Height)+c.Y)*g.sys.Width + c.X
}

// At returns the coordinate stored at a flat offset
func (g *Grid[T]) At(index int) Coordinate {
	x := index % g.sys.Width
	rest := index / g.sys.Width
	return Coordinate{X: x, Y: rest % g.sys.Height, Plane: rest / g.sys.Height}
}

// Get returns the value stored for a coordinate
func (g *Grid[T]) Get(c Coordinate) T {
	return g.cells[g.Index(c)]
}

// Set stores a value for a coordinate
func (g *Grid[T]) Set(c Coordinate, v T) {
	g.cells[g.Index(c)] = v
}

// Ptr returns a pointer to the stored value so callers can update it in place
func (g *Grid[T]) Ptr(c Coordinate) *T {
	return &g.cells[g.Index(c)]
}

// Len returns the number of cells in the grid
func (g *Grid[T]) Len() int {
	return len(g.cells)
}

// Each calls fn for every cell in index order
func (g *Grid[T]) Each(fn func(c Coordinate, v T)) {
	for i, v := range g.cells {
		fn(g.At(i), v)
	}
}

// Layers returns the grid as nested [plane][y][x] slices
func (g *Grid[T]) Layers() [][][]T {
	layers := make([][][]T, g.sys.Planes)
	for p := range layers {
		layers[p] = make([][]T, g.sys.Height)
		for y := range layers[p] {
			start := (p*g.sys.Height + y) * g.sys.Width
			layers[p][y] = append([]T(nil), g.cells[start:start+g.sys.Width]...)
		}
	}
	return layers
}

// Clone returns an independent copy of the grid
func (g *Grid[T]) Clone() *Grid[T] {
	cells := make([]T, len(g.cells))
	copy(cells, g.cells)
	return &Grid[T]{sys: g.sys, cells: cells}
}

// CoordinateSet is an unordered set of coordinates
type CoordinateSet map[Coordinate]struct{}

// Add inserts a coordinate into the set
func (s CoordinateSet) Add(c Coordinate) {
	s[c] = struct{}{}
}

// Contains reports whether the coordinate is in the set
func (s CoordinateSet) Contains(c Coordinate) bool {
	_, ok := s[c]
	return ok
}
