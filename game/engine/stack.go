package engine

// StackedUnit is a unit together with its resolved definition
type StackedUnit struct {
	Unit
	Definition *UnitDefinition `json:"-"`
}

// UnitStack is the set of units moving together in one query
type UnitStack struct {
	Units          []StackedUnit `json:"units"`
	Transports     []StackedUnit `json:"transports,omitempty"`
	CombinedSkills SkillSet      `json:"-"`
}

// NewUnitStack resolves the units and splits them into cargo and transports.
// The move is transported when the non-transport units fit into the combined
// capacity of the transport-capable units.
func NewUnitStack(units []Unit, movingPlayerID int, db Database) (*UnitStack, error) {
	if len(units) == 0 {
		return nil, invalidStack("no units")
	}

	seen := make(map[int]bool, len(units))
	var transports, others []StackedUnit
	capacity := 0

	for _, u := range units {
		if seen[u.ID] {
			return nil, invalidStack("unit %d listed twice", u.ID)
		}
		seen[u.ID] = true

		if !u.Alive() {
			return nil, invalidStack("unit %d is not alive", u.ID)
		}
		if u.OwnerID != movingPlayerID {
			return nil, invalidStack("unit %d belongs to player %d, not %d", u.ID, u.OwnerID, movingPlayerID)
		}
		if u.Location != units[0].Location {
			return nil, invalidStack("unit %d is at %s, stack is at %s", u.ID, u.Location, units[0].Location)
		}

		def, err := db.FindUnitDefinition(u.DefinitionID)
		if err != nil {
			return nil, err
		}

		su := StackedUnit{Unit: u, Definition: def}
		if def.TransportCapacity > 0 {
			transports = append(transports, su)
			capacity += def.TransportCapacity
		} else {
			others = append(others, su)
		}
	}

	stack := &UnitStack{}
	if len(transports) > 0 && len(others) > 0 && len(others) <= capacity {
		stack.Units = others
		stack.Transports = transports
	} else {
		stack.Units = append(transports, others...)
	}
	stack.CombinedSkills = combineSkills(stack.All())

	return stack, nil
}

func combineSkills(units []StackedUnit) SkillSet {
	skills := make(SkillSet)
	for _, u := range units {
		for _, s := range u.Definition.Skills {
			skills.Add(s)
		}
	}
	return skills
}

// Validate checks the structural invariants of a stack built outside NewUnitStack
func (s *UnitStack) Validate() error {
	if s == nil || len(s.Units) == 0 {
		return invalidStack("no units")
	}

	seen := make(map[int]bool, s.Size())
	location := s.Units[0].Location
	for _, u := range s.All() {
		if u.Definition == nil {
			return invalidStack("unit %d has no resolved definition", u.ID)
		}
		if seen[u.ID] {
			return invalidStack("unit %d appears more than once", u.ID)
		}
		seen[u.ID] = true
		if u.Location != location {
			return invalidStack("unit %d is at %s, stack is at %s", u.ID, u.Location, location)
		}
	}

	if s.Transported() {
		capacity := 0
		for _, t := range s.Transports {
			if t.Definition.TransportCapacity <= 0 {
				return invalidStack("transport %d has no capacity", t.ID)
			}
			capacity += t.Definition.TransportCapacity
		}
		if len(s.Units) > capacity {
			return invalidStack("%d units exceed transport capacity %d", len(s.Units), capacity)
		}
	}

	return nil
}

// Transported reports whether only transport movement rates apply
func (s *UnitStack) Transported() bool {
	return len(s.Transports) > 0
}

// Size returns the number of units moving, transports included
func (s *UnitStack) Size() int {
	return len(s.Units) + len(s.Transports)
}

// All returns transports followed by the other units
func (s *UnitStack) All() []StackedUnit {
	all := make([]StackedUnit, 0, s.Size())
	all = append(all, s.Transports...)
	return append(all, s.Units...)
}

// Rated returns the units whose movement rates govern the stack
func (s *UnitStack) Rated() []StackedUnit {
	if s.Transported() {
		return s.Transports
	}
	return s.Units
}

// Contains reports whether the unit id is part of the stack
func (s *UnitStack) Contains(unitID int) bool {
	for _, u := range s.All() {
		if u.ID == unitID {
			return true
		}
	}
	return false
}

// UnitIDs returns the ids of every unit in the stack
func (s *UnitStack) UnitIDs() []int {
	ids := make([]int, 0, s.Size())
	for _, u := range s.All() {
		ids = append(ids, u.ID)
	}
	return ids
}

// Location returns the cell the stack stands on
func (s *UnitStack) Location() Coordinate {
	return s.Units[0].Location
}

// DoubledMovementRemaining returns the lowest remaining movement among the rated units
func (s *UnitStack) DoubledMovementRemaining() int {
	rated := s.Rated()
	remaining := rated[0].DoubledMovementRemaining
	for _, u := range rated[1:] {
		if u.DoubledMovementRemaining < remaining {
			remaining = u.DoubledMovementRemaining
		}
	}
	return remaining
}
