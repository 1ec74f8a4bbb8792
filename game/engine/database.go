package engine

import "sort"

// TileType is a kind of terrain
type TileType struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// MapFeature is something standing on a cell besides terrain, such as a lair or a node
type MapFeature struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	TriggersCombat bool   `json:"triggers_combat,omitempty" yaml:"triggers_combat,omitempty"`
}

// SkillDefinition is a movement-relevant unit ability
type SkillDefinition struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// StackWide skills (wind walking) apply to every unit in the stack
	StackWide bool `json:"stack_wide,omitempty" yaml:"stack_wide,omitempty"`
}

// UnitDefinition describes a unit type
type UnitDefinition struct {
	ID                string   `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	DoubledMovement   int      `json:"double_movement" yaml:"double_movement"`
	TransportCapacity int      `json:"transport_capacity,omitempty" yaml:"transport_capacity,omitempty"`
	Skills            []string `json:"skills" yaml:"skills"`
}

// HasSkill reports whether the unit type carries the skill natively
func (d *UnitDefinition) HasSkill(skillID string) bool {
	for _, s := range d.Skills {
		if s == skillID {
			return true
		}
	}
	return false
}

// SpellDefinition describes a spell that can be maintained on a city
type SpellDefinition struct {
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name" yaml:"name"`
	Effect GateEffect `json:"effect,omitempty" yaml:"effect,omitempty"`
}

// MovementRateRule maps a skill and tile type onto a doubled movement cost.
// Empty SkillID or TileTypeID match anything; a nil DoubledMovement means impassable.
// Rules are evaluated in order and the first match wins.
type MovementRateRule struct {
	SkillID         string `json:"skill,omitempty" yaml:"skill,omitempty"`
	TileTypeID      string `json:"tile_type,omitempty" yaml:"tile_type,omitempty"`
	DoubledMovement *int   `json:"double_movement" yaml:"double_movement"`
}

// Database is the read-only catalog of terrain, units, skills and spells
type Database interface {
	FindTileType(id string) (*TileType, error)
	FindMapFeature(id string) (*MapFeature, error)
	FindSkill(id string) (*SkillDefinition, error)
	FindUnitDefinition(id string) (*UnitDefinition, error)
	FindSpell(id string) (*SpellDefinition, error)
	TileTypes() []TileType
	MovementRateRules() []MovementRateRule
	MaxUnitsPerCell() int
}

// Catalog is an in-memory Database
type Catalog struct {
	tileTypes       []TileType
	tileIndex       map[string]*TileType
	features        map[string]*MapFeature
	skills          map[string]*SkillDefinition
	units           map[string]*UnitDefinition
	spells          map[string]*SpellDefinition
	rules           []MovementRateRule
	maxUnitsPerCell int
}

// CatalogData is the raw content a Catalog is built from
type CatalogData struct {
	TileTypes       []TileType
	MapFeatures     []MapFeature
	Skills          []SkillDefinition
	Units           []UnitDefinition
	Spells          []SpellDefinition
	Rules           []MovementRateRule
	MaxUnitsPerCell int
}

// NewCatalog indexes the catalog data for lookups
func NewCatalog(data CatalogData) *Catalog {
	c := &Catalog{
		tileTypes:       append([]TileType(nil), data.TileTypes...),
		tileIndex:       make(map[string]*TileType, len(data.TileTypes)),
		features:        make(map[string]*MapFeature, len(data.MapFeatures)),
		skills:          make(map[string]*SkillDefinition, len(data.Skills)),
		units:           make(map[string]*UnitDefinition, len(data.Units)),
		spells:          make(map[string]*SpellDefinition, len(data.Spells)),
		rules:           append([]MovementRateRule(nil), data.Rules...),
		maxUnitsPerCell: data.MaxUnitsPerCell,
	}
	if c.maxUnitsPerCell <= 0 {
		c.maxUnitsPerCell = DefaultMaxUnitsPerCell
	}

	for i := range data.MapFeatures {
		f := data.MapFeatures[i]
		c.features[f.ID] = &f
	}
	for i := range data.Skills {
		s := data.Skills[i]
		c.skills[s.ID] = &s
	}
	for i := range data.Units {
		u := data.Units[i]
		u.Skills = append([]string(nil), u.Skills...)
		c.units[u.ID] = &u
	}
	for i := range data.Spells {
		s := data.Spells[i]
		c.spells[s.ID] = &s
	}

	sort.SliceStable(c.tileTypes, func(i, j int) bool { return c.tileTypes[i].ID < c.tileTypes[j].ID })
	for i := range c.tileTypes {
		c.tileIndex[c.tileTypes[i].ID] = &c.tileTypes[i]
	}

	return c
}

// FindTileType looks up a tile type by id
func (c *Catalog) FindTileType(id string) (*TileType, error) {
	if t, ok := c.tileIndex[id]; ok {
		return t, nil
	}
	return nil, recordNotFound("tile type", id)
}

// FindMapFeature looks up a map feature by id
func (c *Catalog) FindMapFeature(id string) (*MapFeature, error) {
	if f, ok := c.features[id]; ok {
		return f, nil
	}
	return nil, recordNotFound("map feature", id)
}

// FindSkill looks up a skill by id
func (c *Catalog) FindSkill(id string) (*SkillDefinition, error) {
	if s, ok := c.skills[id]; ok {
		return s, nil
	}
	return nil, recordNotFound("skill", id)
}

// FindUnitDefinition looks up a unit type by id
func (c *Catalog) FindUnitDefinition(id string) (*UnitDefinition, error) {
	if u, ok := c.units[id]; ok {
		return u, nil
	}
	return nil, recordNotFound("unit", id)
}

// FindSpell looks up a spell by id
func (c *Catalog) FindSpell(id string) (*SpellDefinition, error) {
	if s, ok := c.spells[id]; ok {
		return s, nil
	}
	return nil, recordNotFound("spell", id)
}

// TileTypes returns every tile type sorted by id
func (c *Catalog) TileTypes() []TileType {
	return c.tileTypes
}

// MovementRateRules returns the ordered movement rules
func (c *Catalog) MovementRateRules() []MovementRateRule {
	return c.rules
}

// MaxUnitsPerCell returns the per-player stacking cap
func (c *Catalog) MaxUnitsPerCell() int {
	return c.maxUnitsPerCell
}
