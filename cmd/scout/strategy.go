package main

import (
	"sort"

	"github.com/wricardo/overland/game/engine"
	"github.com/wricardo/overland/game/service"
)

// ExploreStrategy sends stacks to the cells they have seen least, preferring
// the farthest cell reachable this turn. Cells where an order was refused are
// avoided for the rest of the run.
type ExploreStrategy struct {
	visits map[engine.Coordinate]int
	avoid  map[engine.Coordinate]bool
}

func NewExploreStrategy() *ExploreStrategy {
	return &ExploreStrategy{
		visits: make(map[engine.Coordinate]int),
		avoid:  make(map[engine.Coordinate]bool),
	}
}

// Reset forgets everything learned in the previous run
func (s *ExploreStrategy) Reset() {
	s.visits = make(map[engine.Coordinate]int)
	s.avoid = make(map[engine.Coordinate]bool)
}

// Visit records a stack standing on c
func (s *ExploreStrategy) Visit(c engine.Coordinate) {
	s.visits[c]++
}

// Avoid marks c as a cell no order should target again
func (s *ExploreStrategy) Avoid(c engine.Coordinate) {
	s.avoid[c] = true
}

// Visited returns how many distinct cells stacks have stood on
func (s *ExploreStrategy) Visited() int {
	return len(s.visits)
}

// Candidates returns the cells worth ordering a stack to, best first
func (s *ExploreStrategy) Candidates(rng *service.MovementRange) []engine.Coordinate {
	var cells []engine.CellEntry
	for _, c := range rng.Cells {
		if c.EdgeKind == engine.EdgeStart || !c.ReachableThisTurn || s.avoid[c.Coordinate] {
			continue
		}
		cells = append(cells, c)
	}

	sort.SliceStable(cells, func(i, j int) bool {
		vi, vj := s.visits[cells[i].Coordinate], s.visits[cells[j].Coordinate]
		if vi != vj {
			return vi < vj
		}
		if cells[i].DoubledCost != cells[j].DoubledCost {
			return cells[i].DoubledCost > cells[j].DoubledCost
		}
		// gate hops reach new ground faster
		return cells[i].EdgeKind != engine.EdgeAdjacent && cells[j].EdgeKind == engine.EdgeAdjacent
	})

	targets := make([]engine.Coordinate, len(cells))
	for i, c := range cells {
		targets[i] = c.Coordinate
	}
	return targets
}
