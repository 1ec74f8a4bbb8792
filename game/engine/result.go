package engine

import "fmt"

// MovementResult is the outcome of one movement query
type MovementResult struct {
	Start                    Coordinate
	DoubledMovementRemaining int
	cells                    *Grid[*CellResult]
}

// PathStep is one cell along a reconstructed path
type PathStep struct {
	Coordinate        Coordinate `json:"coordinate"`
	EdgeKind          EdgeKind   `json:"edge_kind"`
	Direction         Direction  `json:"direction,omitempty"`
	DoubledCost       int        `json:"doubled_cost"`
	ReachableThisTurn bool       `json:"reachable_this_turn"`
}

// CellEntry pairs a reachable coordinate with its result
type CellEntry struct {
	Coordinate Coordinate `json:"coordinate"`
	CellResult
}

// LegacyGrids is the parallel-array form of a result. Distances hold
// LegacyNotReached for cells that were never reached.
type LegacyGrids struct {
	DoubledDistances [][][]int       `json:"doubled_distances"`
	Directions       [][][]Direction `json:"directions"`
	MovedThisTurn    [][][]bool      `json:"moved_this_turn"`
}

// System returns the coordinate system of the result grid
func (r *MovementResult) System() CoordinateSystem {
	return r.cells.System()
}

// Cell returns the result for a coordinate, or nil when it was not reached
func (r *MovementResult) Cell(c Coordinate) *CellResult {
	if !r.cells.System().Contains(c) {
		return nil
	}
	return r.cells.Get(c)
}

// Reachable returns every reached coordinate in plane, row, column order
func (r *MovementResult) Reachable() []Coordinate {
	var coords []Coordinate
	for i, c := range r.cells.cells {
		if c != nil {
			coords = append(coords, r.cells.At(i))
		}
	}
	return coords
}

// Entries returns every reached cell with its result in plane, row, column order
func (r *MovementResult) Entries() []CellEntry {
	var entries []CellEntry
	for i, c := range r.cells.cells {
		if c != nil {
			entries = append(entries, CellEntry{Coordinate: r.cells.At(i), CellResult: *c})
		}
	}
	return entries
}

// CountReachable returns how many cells were reached, the start included
func (r *MovementResult) CountReachable() int {
	count := 0
	for _, c := range r.cells.cells {
		if c != nil {
			count++
		}
	}
	return count
}

// CountReachableThisTurn returns how many cells can be entered before the turn ends
func (r *MovementResult) CountReachableThisTurn() int {
	count := 0
	for _, c := range r.cells.cells {
		if c != nil && c.ReachableThisTurn {
			count++
		}
	}
	return count
}

// PathTo follows the predecessor chain from the destination back to the start.
// The returned steps exclude the start and end with the destination.
func (r *MovementResult) PathTo(dest Coordinate) ([]PathStep, error) {
	cell := r.Cell(dest)
	if cell == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, dest)
	}

	var reversed []PathStep
	current := dest
	for steps := 0; cell.EdgeKind != EdgeStart; steps++ {
		if steps > r.cells.Len() || cell.CameFrom == nil {
			return nil, fmt.Errorf("broken predecessor chain at %s", current)
		}
		reversed = append(reversed, PathStep{
			Coordinate:        current,
			EdgeKind:          cell.EdgeKind,
			Direction:         cell.Direction,
			DoubledCost:       cell.DoubledCost,
			ReachableThisTurn: cell.ReachableThisTurn,
		})
		current = *cell.CameFrom
		cell = r.cells.Get(current)
		if cell == nil {
			return nil, fmt.Errorf("broken predecessor chain at %s", current)
		}
	}

	path := make([]PathStep, len(reversed))
	for i, step := range reversed {
		path[len(reversed)-1-i] = step
	}
	return path, nil
}

// Legacy converts the result into parallel distance, direction and this-turn grids
func (r *MovementResult) Legacy() LegacyGrids {
	distances := NewGrid[int](r.cells.System())
	directions := NewGrid[Direction](r.cells.System())
	thisTurn := NewGrid[bool](r.cells.System())

	for i, c := range r.cells.cells {
		if c == nil {
			distances.cells[i] = LegacyNotReached
			continue
		}
		distances.cells[i] = c.DoubledCost
		directions.cells[i] = c.Direction
		thisTurn.cells[i] = c.ReachableThisTurn
	}

	return LegacyGrids{
		DoubledDistances: distances.Layers(),
		Directions:       directions.Layers(),
		MovedThisTurn:    thisTurn.Layers(),
	}
}
