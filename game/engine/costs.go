package engine

// BlockReason explains why a cell is in the blocked set
type BlockReason string

const (
	// BlockedByEnemyUnits cells may end a move (melee) but movement cannot continue past them
	BlockedByEnemyUnits BlockReason = "enemy_units"

	// BlockedByStackingLimit cells would hold more of our units than the cap allows
	BlockedByStackingLimit BlockReason = "stacking_limit"
)

// BlockedLocations maps cells unusable for continued movement to the reason
type BlockedLocations map[Coordinate]BlockReason

// unsetCost marks grid cells with no boarding cost
const unsetCost = -1

// forEachPlaneOf calls fn for c, or for c on every plane when c is a tower
func forEachPlaneOf(terrain *Grid[TerrainCell], c Coordinate, fn func(Coordinate)) {
	if !terrain.Get(c).Tower {
		fn(c)
		return
	}
	for plane := 0; plane < terrain.System().Planes; plane++ {
		fn(Coordinate{X: c.X, Y: c.Y, Plane: plane})
	}
}

// CalculateCellTransportCapacity returns the free embarkation slots per cell for a
// non-transported move, or nil for a transported one. Each of our living transports
// adds its capacity, each of our living units that cannot stand on its own terrain
// unaided takes one slot. Units of the moving stack are leaving and are not counted.
func CalculateCellTransportCapacity(stack *UnitStack, movingPlayerID int, knowledge *Knowledge, db Database, rules MovementRules) (*Grid[int], error) {
	if stack.Transported() {
		return nil, nil
	}

	capacity := NewGrid[int](knowledge.Terrain.System())
	for _, u := range knowledge.Units {
		if !u.Alive() || u.OwnerID != movingPlayerID || stack.Contains(u.ID) {
			continue
		}

		def, err := db.FindUnitDefinition(u.DefinitionID)
		if err != nil {
			return nil, err
		}

		delta := def.TransportCapacity
		if delta == 0 {
			tile := knowledge.Terrain.Get(u.Location).TileTypeID
			_, ok, err := rules.UnitDoubleMovementRate(def, nil, tile)
			if err != nil {
				return nil, err
			}
			if !ok {
				delta = -1
			}
		}

		if delta != 0 {
			forEachPlaneOf(knowledge.Terrain, u.Location, func(c Coordinate) {
				*capacity.Ptr(c) += delta
			})
		}
	}

	return capacity, nil
}

// CalculateCellBoardingCosts returns, for a non-transported move, the cheapest doubled
// rate at which one of our transports can enter the tile it stands on. Cells without
// a usable transport hold -1. Transported moves return nil.
func CalculateCellBoardingCosts(stack *UnitStack, movingPlayerID int, knowledge *Knowledge, db Database, rules MovementRules) (*Grid[int], error) {
	if stack.Transported() {
		return nil, nil
	}

	costs := NewGrid[int](knowledge.Terrain.System())
	for i := range costs.cells {
		costs.cells[i] = unsetCost
	}

	for _, u := range knowledge.Units {
		if !u.Alive() || u.OwnerID != movingPlayerID || stack.Contains(u.ID) {
			continue
		}

		def, err := db.FindUnitDefinition(u.DefinitionID)
		if err != nil {
			return nil, err
		}
		if def.TransportCapacity == 0 {
			continue
		}

		rate, ok, err := rules.UnitDoubleMovementRate(def, nil, knowledge.Terrain.Get(u.Location).TileTypeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		forEachPlaneOf(knowledge.Terrain, u.Location, func(c Coordinate) {
			if current := costs.Get(c); current == unsetCost || rate < current {
				costs.Set(c, rate)
			}
		})
	}

	return costs, nil
}

// CalculateDoubleMovementRatesForUnitStack returns the worst doubled cost among the
// rated units for every tile type. Tile types that any rated unit cannot enter are
// absent from the result.
func CalculateDoubleMovementRatesForUnitStack(units []StackedUnit, combinedSkills SkillSet, db Database, rules MovementRules) (map[string]int, error) {
	rates := make(map[string]int)

	for _, tile := range db.TileTypes() {
		worst := 0
		passable := true
		for _, u := range units {
			rate, ok, err := rules.UnitDoubleMovementRate(u.Definition, combinedSkills, tile.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				passable = false
				break
			}
			if rate > worst {
				worst = rate
			}
		}
		if passable {
			rates[tile.ID] = worst
		}
	}

	return rates, nil
}

// CalculateUnitsNeedingTransport counts, per tile type, the units that cannot enter it unaided.
// Tile types every unit can enter are absent.
func CalculateUnitsNeedingTransport(units []StackedUnit, combinedSkills SkillSet, db Database, rules MovementRules) (map[string]int, error) {
	needs := make(map[string]int)

	for _, tile := range db.TileTypes() {
		for _, u := range units {
			_, ok, err := rules.UnitDoubleMovementRate(u.Definition, combinedSkills, tile.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				needs[tile.ID]++
			}
		}
	}

	return needs, nil
}

// CountOurAliveUnitsAtEveryLocation counts the moving player's living units per cell
func CountOurAliveUnitsAtEveryLocation(movingPlayerID int, units []Unit, terrain *Grid[TerrainCell]) *Grid[int] {
	counts := NewGrid[int](terrain.System())
	for _, u := range units {
		if !u.Alive() || u.OwnerID != movingPlayerID {
			continue
		}
		forEachPlaneOf(terrain, u.Location, func(c Coordinate) {
			*counts.Ptr(c)++
		})
	}
	return counts
}

// DetermineBlockedLocations finds cells holding units of other players and cells where
// adding the stack would break the stacking cap. Every living unit's owner must be
// present in the roster.
func DetermineBlockedLocations(stack *UnitStack, movingPlayerID int, knowledge *Knowledge, players []Player, ourCounts *Grid[int], db Database) (BlockedLocations, error) {
	roster := make(map[int]bool, len(players))
	for _, p := range players {
		roster[p.ID] = true
	}

	blocked := make(BlockedLocations)
	for _, u := range knowledge.Units {
		if !u.Alive() {
			continue
		}
		if !roster[u.OwnerID] {
			return nil, playerNotFound(u.OwnerID, u.ID)
		}
		if u.OwnerID != movingPlayerID {
			forEachPlaneOf(knowledge.Terrain, u.Location, func(c Coordinate) {
				blocked[c] = BlockedByEnemyUnits
			})
		}
	}

	// The stack's own units are counted at its current cell but move with it
	leaving := NewGrid[int](ourCounts.System())
	for _, u := range stack.All() {
		forEachPlaneOf(knowledge.Terrain, u.Location, func(c Coordinate) {
			*leaving.Ptr(c)++
		})
	}

	limit := db.MaxUnitsPerCell()
	size := stack.Size()
	for i, count := range ourCounts.cells {
		if count-leaving.cells[i]+size > limit {
			blocked[ourCounts.At(i)] = BlockedByStackingLimit
		}
	}

	return blocked, nil
}

// FindEarthGates returns our cities holding a usable Earth Gate
func FindEarthGates(movingPlayerID int, knowledge *Knowledge, rules GateRules) (CoordinateSet, error) {
	gates := make(CoordinateSet)
	for _, spell := range knowledge.Spells {
		if spell.City == nil || gates.Contains(*spell.City) {
			continue
		}
		usable, err := rules.IsUsableGate(EarthGateSpell, movingPlayerID, *spell.City)
		if err != nil {
			return nil, err
		}
		if usable {
			gates.Add(*spell.City)
		}
	}
	return gates, nil
}

// FindAstralGates returns our cities holding a usable Astral Gate together with the
// same cell on every other plane, so the jump works in both directions
func FindAstralGates(movingPlayerID int, knowledge *Knowledge, rules GateRules) (CoordinateSet, error) {
	gates := make(CoordinateSet)
	planes := knowledge.Terrain.System().Planes
	for _, spell := range knowledge.Spells {
		if spell.City == nil || gates.Contains(*spell.City) {
			continue
		}
		usable, err := rules.IsUsableGate(AstralGateSpell, movingPlayerID, *spell.City)
		if err != nil {
			return nil, err
		}
		if !usable {
			continue
		}
		for plane := 0; plane < planes; plane++ {
			gates.Add(Coordinate{X: spell.City.X, Y: spell.City.Y, Plane: plane})
		}
	}
	return gates, nil
}
