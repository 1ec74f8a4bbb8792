package engine

import "sort"

// SkillSet is a set of skill ids
type SkillSet map[string]struct{}

// NewSkillSet builds a set from the given ids
func NewSkillSet(ids ...string) SkillSet {
	s := make(SkillSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts a skill id
func (s SkillSet) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether the skill id is present
func (s SkillSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the skill ids in lexical order
func (s SkillSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MovementRules answers how much entering a tile type costs a unit
type MovementRules interface {
	// UnitDoubleMovementRate returns the doubled cost for the unit to enter the tile type.
	// The bool result is false when the unit cannot enter it at all.
	UnitDoubleMovementRate(unit *UnitDefinition, stackSkills SkillSet, tileTypeID string) (int, bool, error)
}

// CombatRules answers whether moving into a cell starts a fight the moving player can see coming
type CombatRules interface {
	MoveTriggersAttack(movingPlayerID int, to Coordinate) (bool, error)
}

// GateRules answers whether a city cell holds a gate the moving player may use
type GateRules interface {
	IsUsableGate(effect GateEffect, movingPlayerID int, city Coordinate) (bool, error)
}

// Rules bundles every collaborator contract the search consumes
type Rules interface {
	MovementRules
	CombatRules
	GateRules
}

// StandardRules implements Rules on top of a Database and a knowledge snapshot
type StandardRules struct {
	db        Database
	knowledge *Knowledge
}

// NewStandardRules creates rules reading from the given catalog and snapshot
func NewStandardRules(db Database, knowledge *Knowledge) *StandardRules {
	return &StandardRules{db: db, knowledge: knowledge}
}

// UnitDoubleMovementRate evaluates the movement rules for a unit, treating stack-wide
// skills held anywhere in the stack as if the unit had them itself
func (r *StandardRules) UnitDoubleMovementRate(unit *UnitDefinition, stackSkills SkillSet, tileTypeID string) (int, bool, error) {
	if _, err := r.db.FindTileType(tileTypeID); err != nil {
		return 0, false, err
	}

	skills := NewSkillSet(unit.Skills...)
	for id := range stackSkills {
		if skills.Has(id) {
			continue
		}
		def, err := r.db.FindSkill(id)
		if err != nil {
			return 0, false, err
		}
		if def.StackWide {
			skills.Add(id)
		}
	}

	for _, rule := range r.db.MovementRateRules() {
		if rule.SkillID != "" && !skills.Has(rule.SkillID) {
			continue
		}
		if rule.TileTypeID != "" && rule.TileTypeID != tileTypeID {
			continue
		}
		if rule.DoubledMovement == nil {
			return 0, false, nil
		}
		return *rule.DoubledMovement, true, nil
	}

	return 0, false, nil
}

// MoveTriggersAttack reports enemy units, enemy cities and combat-triggering features at the cell
func (r *StandardRules) MoveTriggersAttack(movingPlayerID int, to Coordinate) (bool, error) {
	for _, u := range r.knowledge.Units {
		if u.Alive() && u.OwnerID != movingPlayerID && u.Location == to {
			return true, nil
		}
	}

	cell := r.knowledge.Terrain.Get(to)
	if cell.HasCity() && cell.CityOwnerID != movingPlayerID {
		return true, nil
	}
	if cell.MapFeatureID != "" {
		feature, err := r.db.FindMapFeature(cell.MapFeatureID)
		if err != nil {
			return false, err
		}
		if feature.TriggersCombat {
			return true, nil
		}
	}

	return false, nil
}

// IsUsableGate reports whether the moving player's own city holds a maintained
// spell of the moving player with the requested gate effect
func (r *StandardRules) IsUsableGate(effect GateEffect, movingPlayerID int, city Coordinate) (bool, error) {
	cell := r.knowledge.Terrain.Get(city)
	if !cell.HasCity() || cell.CityOwnerID != movingPlayerID {
		return false, nil
	}

	for _, spell := range r.knowledge.Spells {
		if spell.City == nil || *spell.City != city || spell.CastingPlayerID != movingPlayerID {
			continue
		}
		def, err := r.db.FindSpell(spell.SpellID)
		if err != nil {
			return false, err
		}
		if def.Effect == effect {
			return true, nil
		}
	}

	return false, nil
}
