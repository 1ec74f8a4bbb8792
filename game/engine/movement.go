package engine

import (
	"fmt"
	"sort"

	list "github.com/bahlo/generic-list-go"
)

// MovementQuery identifies the stack being moved and how far it may still go this turn
type MovementQuery struct {
	Start                    Coordinate `json:"start"`
	MovingPlayerID           int        `json:"moving_player_id"`
	Stack                    *UnitStack `json:"stack"`
	DoubledMovementRemaining int        `json:"doubled_movement_remaining"`
}

// Environment is the read-only world a query is evaluated against
type Environment struct {
	Knowledge *Knowledge
	Players   []Player
	System    CoordinateSystem
	Database  Database
	// Rules defaults to StandardRules over Database and Knowledge
	Rules Rules
}

// attack lookups are cached per cell for the duration of one search
const (
	attackUnknown uint8 = iota
	attackNo
	attackYes
)

// movementSearch holds the tables and working state of one query
type movementSearch struct {
	query MovementQuery
	env   Environment
	rules Rules

	terrain     *Grid[TerrainCell]
	sys         CoordinateSystem
	transported bool

	rates       map[string]int
	needs       map[string]int
	capacity    *Grid[int]
	boarding    *Grid[int]
	blocked     BlockedLocations
	earthGates  []Coordinate
	isEarthGate CoordinateSet
	astralGates CoordinateSet

	cells   *Grid[*CellResult]
	attacks *Grid[uint8]
	queue   *list.List[Coordinate]
}

// CalculateOverlandMovementDistances finds every cell the stack can reach from the start,
// the cheapest doubled movement cost to get there and the edge used to arrive.
// Cells that cannot be reached are nil in the result. The inputs are never modified.
func CalculateOverlandMovementDistances(query MovementQuery, env Environment) (*MovementResult, error) {
	s, err := newMovementSearch(query, env)
	if err != nil {
		return nil, err
	}

	if err := s.run(); err != nil {
		return nil, err
	}

	s.sweepImpassable()

	return &MovementResult{
		Start:                    query.Start,
		DoubledMovementRemaining: query.DoubledMovementRemaining,
		cells:                    s.cells,
	}, nil
}

func newMovementSearch(query MovementQuery, env Environment) (*movementSearch, error) {
	if env.Knowledge == nil || env.Knowledge.Terrain == nil {
		return nil, fmt.Errorf("%w: knowledge snapshot has no terrain", ErrInvalidQuery)
	}
	if env.Database == nil {
		return nil, fmt.Errorf("%w: no database", ErrInvalidQuery)
	}

	terrain := env.Knowledge.Terrain
	sys := env.System
	if sys == (CoordinateSystem{}) {
		sys = terrain.System()
	} else if sys != terrain.System() {
		return nil, fmt.Errorf("%w: coordinate system does not match the terrain grid", ErrInvalidQuery)
	}
	if !sys.Contains(query.Start) {
		return nil, fmt.Errorf("%w: start %s is outside the map", ErrInvalidQuery, query.Start)
	}

	if err := query.Stack.Validate(); err != nil {
		return nil, err
	}
	if query.Stack.Location() != query.Start {
		return nil, invalidStack("stack is at %s, query starts at %s", query.Stack.Location(), query.Start)
	}

	rules := env.Rules
	if rules == nil {
		rules = NewStandardRules(env.Database, env.Knowledge)
	}

	s := &movementSearch{
		query:       query,
		env:         env,
		rules:       rules,
		terrain:     terrain,
		sys:         sys,
		transported: query.Stack.Transported(),
		cells:       NewGrid[*CellResult](sys),
		attacks:     NewGrid[uint8](sys),
		queue:       list.New[Coordinate](),
	}

	if err := s.buildTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *movementSearch) buildTables() error {
	var err error
	stack := s.query.Stack
	player := s.query.MovingPlayerID
	knowledge := s.env.Knowledge
	db := s.env.Database

	s.rates, err = CalculateDoubleMovementRatesForUnitStack(stack.Rated(), stack.CombinedSkills, db, s.rules)
	if err != nil {
		return err
	}

	if !s.transported {
		s.needs, err = CalculateUnitsNeedingTransport(stack.Units, stack.CombinedSkills, db, s.rules)
		if err != nil {
			return err
		}
		s.capacity, err = CalculateCellTransportCapacity(stack, player, knowledge, db, s.rules)
		if err != nil {
			return err
		}
		s.boarding, err = CalculateCellBoardingCosts(stack, player, knowledge, db, s.rules)
		if err != nil {
			return err
		}
	}

	ourCounts := CountOurAliveUnitsAtEveryLocation(player, knowledge.Units, s.terrain)
	s.blocked, err = DetermineBlockedLocations(stack, player, knowledge, s.env.Players, ourCounts, db)
	if err != nil {
		return err
	}

	earth, err := FindEarthGates(player, knowledge, s.rules)
	if err != nil {
		return err
	}
	s.isEarthGate = s.anchored(earth)
	s.earthGates = sortedCoordinates(s.isEarthGate)

	astral, err := FindAstralGates(player, knowledge, s.rules)
	if err != nil {
		return err
	}
	s.astralGates = s.anchored(astral)
	return nil
}

// anchorOf returns the coordinate holding the search record for c.
// A tower is one cell on every plane, anchored on plane 0.
func (s *movementSearch) anchorOf(c Coordinate) Coordinate {
	if s.terrain.Get(c).Tower {
		c.Plane = 0
	}
	return c
}

func (s *movementSearch) anchored(set CoordinateSet) CoordinateSet {
	out := make(CoordinateSet, len(set))
	for c := range set {
		out[s.anchorOf(c)] = struct{}{}
	}
	return out
}

// record stores result for c, on every plane when c is a tower
func (s *movementSearch) record(c Coordinate, result *CellResult) {
	forEachPlaneOf(s.terrain, c, func(at Coordinate) {
		s.cells.Set(at, result)
	})
}

func (s *movementSearch) run() error {
	start := s.anchorOf(s.query.Start)
	s.record(start, &CellResult{
		EdgeKind:          EdgeStart,
		DoubledCost:       0,
		ReachableThisTurn: true,
	})
	s.queue.PushBack(start)

	for s.queue.Len() > 0 {
		from := s.queue.Remove(s.queue.Front())
		if err := s.expand(from); err != nil {
			return err
		}
	}
	return nil
}

// expand considers every edge leaving from
func (s *movementSearch) expand(from Coordinate) error {
	planes := []int{from.Plane}
	if s.terrain.Get(from).Tower {
		planes = planes[:0]
		for p := 0; p < s.sys.Planes; p++ {
			planes = append(planes, p)
		}
	}

	for _, plane := range planes {
		origin := Coordinate{X: from.X, Y: from.Y, Plane: plane}
		for d := North; d <= NorthWest; d++ {
			to, ok := s.sys.Move(origin, d)
			if !ok {
				continue
			}
			if err := s.considerPossibleMove(from, EdgeAdjacent, d, to); err != nil {
				return err
			}
		}
	}

	if s.isEarthGate.Contains(from) {
		for _, gate := range s.earthGates {
			if gate == from || gate.Plane != from.Plane {
				continue
			}
			if err := s.considerPossibleMove(from, EdgeEarthGate, NoDirection, gate); err != nil {
				return err
			}
		}
	}

	if s.astralGates.Contains(from) {
		for p := 0; p < s.sys.Planes; p++ {
			if p == from.Plane {
				continue
			}
			mirror := Coordinate{X: from.X, Y: from.Y, Plane: p}
			if err := s.considerPossibleMove(from, EdgeAstralGate, NoDirection, mirror); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *movementSearch) considerPossibleMove(from Coordinate, kind EdgeKind, d Direction, to Coordinate) error {
	to = s.anchorOf(to)
	existing := s.cells.Get(to)
	if existing != nil && (existing.Impassable() || existing.DoubledCost == 0) {
		return nil
	}

	entry, passable, err := s.entryCost(kind, to)
	if err != nil {
		return err
	}
	if !passable {
		s.record(to, &CellResult{DoubledCost: DoubledCostImpassable})
		return nil
	}

	fromCost := s.cells.Get(from).DoubledCost
	newCost := fromCost + entry
	if existing != nil && newCost >= existing.DoubledCost {
		return nil
	}

	cameFrom := from
	result := &CellResult{
		EdgeKind:          kind,
		CameFrom:          &cameFrom,
		DoubledCost:       newCost,
		ReachableThisTurn: s.query.DoubledMovementRemaining-fromCost > 0,
	}
	if kind == EdgeAdjacent {
		result.Direction = d
	}
	s.record(to, result)

	if s.blocked[to] == BlockedByEnemyUnits {
		return nil
	}
	attack, err := s.triggersAttack(to)
	if err != nil {
		return err
	}
	if !attack {
		s.queue.PushBack(to)
	}
	return nil
}

// entryCost returns the doubled cost of stepping into to, or false when the stack cannot enter it
func (s *movementSearch) entryCost(kind EdgeKind, to Coordinate) (int, bool, error) {
	if s.blocked[to] == BlockedByStackingLimit {
		return 0, false, nil
	}

	cell := s.terrain.Get(to)
	rate, ok := s.rates[cell.TileTypeID]
	if !ok {
		if _, err := s.env.Database.FindTileType(cell.TileTypeID); err != nil {
			return 0, false, err
		}
	}

	switch {
	case ok:
		switch cell.Road {
		case EnchantedRoad:
			rate = 0
		case NormalRoad:
			rate = min(rate, 1)
		}
	case !s.transported:
		need := s.needs[cell.TileTypeID]
		if need <= 0 || s.capacity.Get(to) < need {
			return 0, false, nil
		}
		// capacity from transports stranded on terrain they cannot enter carries nobody in
		rate = s.boarding.Get(to)
		if rate == unsetCost {
			return 0, false, nil
		}
	default:
		return 0, false, nil
	}

	if kind == EdgeAstralGate {
		return 0, true, nil
	}
	return rate, true, nil
}

func (s *movementSearch) triggersAttack(to Coordinate) (bool, error) {
	switch s.attacks.Get(to) {
	case attackYes:
		return true, nil
	case attackNo:
		return false, nil
	}

	attack, err := s.rules.MoveTriggersAttack(s.query.MovingPlayerID, to)
	if err != nil {
		return false, err
	}
	if attack {
		s.attacks.Set(to, attackYes)
	} else {
		s.attacks.Set(to, attackNo)
	}
	return attack, nil
}

func (s *movementSearch) sweepImpassable() {
	for i, c := range s.cells.cells {
		if c != nil && c.Impassable() {
			s.cells.cells[i] = nil
		}
	}
}

// sortedCoordinates orders a set by plane, then row, then column
func sortedCoordinates(set CoordinateSet) []Coordinate {
	coords := make([]Coordinate, 0, len(set))
	for c := range set {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.Plane != b.Plane {
			return a.Plane < b.Plane
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return coords
}
