package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned when a scenario configuration fails validation
var ErrInvalidScenario = errors.New("config validation")

// ScenarioConfig describes a complete overland scenario: map, catalog and starting positions
type ScenarioConfig struct {
	Name             string `json:"name" yaml:"name"`
	Description      string `json:"description" yaml:"description"`
	Welcome          string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Width            int    `json:"width" yaml:"width"`
	Height           int    `json:"height" yaml:"height"`
	Planes           int    `json:"planes" yaml:"planes"`
	WrapsLeftToRight bool   `json:"wraps_left_to_right,omitempty" yaml:"wraps_left_to_right,omitempty"`
	WrapsTopToBottom bool   `json:"wraps_top_to_bottom,omitempty" yaml:"wraps_top_to_bottom,omitempty"`
	MaxUnitsPerCell  int    `json:"max_units_per_cell,omitempty" yaml:"max_units_per_cell,omitempty"`

	// Legend maps layout characters onto tile type ids
	Legend map[string]string `json:"legend" yaml:"legend"`
	// Layout holds one list of rows per plane
	Layout [][]string `json:"layout" yaml:"layout"`

	TileTypes       []TileType         `json:"tile_types" yaml:"tile_types"`
	Skills          []SkillDefinition  `json:"skills,omitempty" yaml:"skills,omitempty"`
	MovementRules   []MovementRateRule `json:"movement_rules" yaml:"movement_rules"`
	MapFeatures     []MapFeature       `json:"map_features,omitempty" yaml:"map_features,omitempty"`
	UnitDefinitions []UnitDefinition   `json:"unit_definitions" yaml:"unit_definitions"`
	Spells          []SpellDefinition  `json:"spells,omitempty" yaml:"spells,omitempty"`

	Players          []Player          `json:"players" yaml:"players"`
	Cities           []CityConfig      `json:"cities,omitempty" yaml:"cities,omitempty"`
	Towers           []TowerConfig     `json:"towers,omitempty" yaml:"towers,omitempty"`
	Roads            []RoadConfig      `json:"roads,omitempty" yaml:"roads,omitempty"`
	Features         []FeatureConfig   `json:"features,omitempty" yaml:"features,omitempty"`
	Units            []UnitConfig      `json:"units" yaml:"units"`
	MaintainedSpells []MaintainedSpell `json:"maintained_spells,omitempty" yaml:"maintained_spells,omitempty"`
}

// CityConfig places a city
type CityConfig struct {
	Name     string     `json:"name" yaml:"name"`
	Owner    int        `json:"owner" yaml:"owner"`
	Location Coordinate `json:"location" yaml:"location"`
}

// TowerConfig places a tower, which exists on every plane at (X, Y)
type TowerConfig struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// RoadConfig places a road
type RoadConfig struct {
	Location Coordinate `json:"location" yaml:"location"`
	Kind     RoadKind   `json:"kind" yaml:"kind"`
}

// FeatureConfig places a map feature
type FeatureConfig struct {
	Location Coordinate `json:"location" yaml:"location"`
	Feature  string     `json:"feature" yaml:"feature"`
}

// UnitConfig places a unit at the start of the scenario
type UnitConfig struct {
	ID       int        `json:"id" yaml:"id"`
	Unit     string     `json:"unit" yaml:"unit"`
	Owner    int        `json:"owner" yaml:"owner"`
	Location Coordinate `json:"location" yaml:"location"`
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}

// ValidateScenarioConfig validates a scenario configuration for consistency
func ValidateScenarioConfig(config *ScenarioConfig) error {
	if config == nil {
		return configError("config is nil")
	}
	if config.Name == "" {
		return configError("name is required")
	}
	if config.Description == "" {
		return configError("description is required")
	}

	if config.Width < MinMapSize || config.Width > MaxMapSize {
		return configError("width must be between %d and %d, got %d", MinMapSize, MaxMapSize, config.Width)
	}
	if config.Height < MinMapSize || config.Height > MaxMapSize {
		return configError("height must be between %d and %d, got %d", MinMapSize, MaxMapSize, config.Height)
	}
	if config.Planes < 1 || config.Planes > MaxPlanes {
		return configError("planes must be between 1 and %d, got %d", MaxPlanes, config.Planes)
	}
	if config.MaxUnitsPerCell < 0 {
		return configError("max_units_per_cell cannot be negative, got %d", config.MaxUnitsPerCell)
	}

	tiles := make(map[string]bool, len(config.TileTypes))
	if len(config.TileTypes) == 0 {
		return configError("at least one tile type is required")
	}
	for _, t := range config.TileTypes {
		if t.ID == "" {
			return configError("tile type id is required")
		}
		if tiles[t.ID] {
			return configError("duplicate tile type %q", t.ID)
		}
		tiles[t.ID] = true
	}

	for char, tile := range config.Legend {
		if len(char) != 1 {
			return configError("legend key %q must be a single character", char)
		}
		if !tiles[tile] {
			return configError("legend['%s'] references unknown tile type %q", char, tile)
		}
	}

	if err := validateLayout(config); err != nil {
		return err
	}

	skills := make(map[string]bool, len(config.Skills))
	for _, s := range config.Skills {
		if s.ID == "" || skills[s.ID] {
			return configError("skill id %q is empty or duplicated", s.ID)
		}
		skills[s.ID] = true
	}

	if len(config.MovementRules) == 0 {
		return configError("at least one movement rule is required")
	}
	for i, rule := range config.MovementRules {
		if rule.SkillID != "" && !skills[rule.SkillID] {
			return configError("movement rule %d references unknown skill %q", i+1, rule.SkillID)
		}
		if rule.TileTypeID != "" && !tiles[rule.TileTypeID] {
			return configError("movement rule %d references unknown tile type %q", i+1, rule.TileTypeID)
		}
		if rule.DoubledMovement != nil && (*rule.DoubledMovement < 0 || *rule.DoubledMovement > MaxDoubledMovement) {
			return configError("movement rule %d double_movement must be between 0 and %d", i+1, MaxDoubledMovement)
		}
	}

	features := make(map[string]bool, len(config.MapFeatures))
	for _, f := range config.MapFeatures {
		if f.ID == "" || features[f.ID] {
			return configError("map feature id %q is empty or duplicated", f.ID)
		}
		features[f.ID] = true
	}

	unitDefs := make(map[string]bool, len(config.UnitDefinitions))
	for _, u := range config.UnitDefinitions {
		if u.ID == "" || unitDefs[u.ID] {
			return configError("unit definition id %q is empty or duplicated", u.ID)
		}
		unitDefs[u.ID] = true
		if u.DoubledMovement < 0 || u.DoubledMovement > MaxDoubledMovement {
			return configError("unit %q double_movement must be between 0 and %d, got %d", u.ID, MaxDoubledMovement, u.DoubledMovement)
		}
		if u.TransportCapacity < 0 {
			return configError("unit %q transport_capacity cannot be negative", u.ID)
		}
		for _, s := range u.Skills {
			if !skills[s] {
				return configError("unit %q references unknown skill %q", u.ID, s)
			}
		}
	}

	spells := make(map[string]bool, len(config.Spells))
	for _, s := range config.Spells {
		if s.ID == "" || spells[s.ID] {
			return configError("spell id %q is empty or duplicated", s.ID)
		}
		switch s.Effect {
		case NoGate, EarthGateSpell, AstralGateSpell:
		default:
			return configError("spell %q has unknown effect %q", s.ID, s.Effect)
		}
		spells[s.ID] = true
	}

	players := make(map[int]bool, len(config.Players))
	if len(config.Players) == 0 {
		return configError("at least one player is required")
	}
	for _, p := range config.Players {
		if players[p.ID] {
			return configError("duplicate player id %d", p.ID)
		}
		players[p.ID] = true
	}

	sys := config.System()
	cities := make(map[Coordinate]bool, len(config.Cities))
	for _, c := range config.Cities {
		if c.Name == "" {
			return configError("city at %s needs a name", c.Location)
		}
		if !sys.Contains(c.Location) {
			return configError("city %q is outside the map at %s", c.Name, c.Location)
		}
		if !players[c.Owner] {
			return configError("city %q has unknown owner %d", c.Name, c.Owner)
		}
		if cities[c.Location] {
			return configError("two cities at %s", c.Location)
		}
		cities[c.Location] = true
	}

	towerCities := make(map[TowerConfig]string)
	for _, t := range config.Towers {
		if !sys.Contains(Coordinate{X: t.X, Y: t.Y}) {
			return configError("tower is outside the map at (%d,%d)", t.X, t.Y)
		}
		for _, c := range config.Cities {
			if c.Location.X != t.X || c.Location.Y != t.Y {
				continue
			}
			if other, ok := towerCities[t]; ok && other != c.Name {
				return configError("cities %q and %q share the tower at (%d,%d)", other, c.Name, t.X, t.Y)
			}
			towerCities[t] = c.Name
		}
	}

	for _, r := range config.Roads {
		if !sys.Contains(r.Location) {
			return configError("road is outside the map at %s", r.Location)
		}
		if r.Kind != NormalRoad && r.Kind != EnchantedRoad {
			return configError("road at %s has unknown kind %q", r.Location, r.Kind)
		}
	}

	for _, f := range config.Features {
		if !sys.Contains(f.Location) {
			return configError("feature is outside the map at %s", f.Location)
		}
		if !features[f.Feature] {
			return configError("feature at %s references unknown map feature %q", f.Location, f.Feature)
		}
	}

	unitIDs := make(map[int]bool, len(config.Units))
	for _, u := range config.Units {
		if unitIDs[u.ID] {
			return configError("duplicate unit id %d", u.ID)
		}
		unitIDs[u.ID] = true
		if !unitDefs[u.Unit] {
			return configError("unit %d references unknown unit definition %q", u.ID, u.Unit)
		}
		if !players[u.Owner] {
			return configError("unit %d has unknown owner %d", u.ID, u.Owner)
		}
		if !sys.Contains(u.Location) {
			return configError("unit %d is outside the map at %s", u.ID, u.Location)
		}
	}
	if err := validateStacking(config); err != nil {
		return err
	}

	for i, s := range config.MaintainedSpells {
		if !spells[s.SpellID] {
			return configError("maintained spell %d references unknown spell %q", i+1, s.SpellID)
		}
		if !players[s.CastingPlayerID] {
			return configError("maintained spell %d has unknown caster %d", i+1, s.CastingPlayerID)
		}
		if s.City != nil && !cities[*s.City] {
			return configError("maintained spell %d targets %s, which holds no city", i+1, *s.City)
		}
	}

	return nil
}

func validateLayout(config *ScenarioConfig) error {
	if len(config.Layout) != config.Planes {
		return configError("layout must have %d planes, got %d", config.Planes, len(config.Layout))
	}
	for p, rows := range config.Layout {
		if len(rows) != config.Height {
			return configError("plane %d must have %d rows to match height, got %d", p, config.Height, len(rows))
		}
		for y, row := range rows {
			if len(row) != config.Width {
				return configError("plane %d row %d must have %d characters to match width, got %d",
					p, y+1, config.Width, len(row))
			}
			for x, char := range row {
				if _, ok := config.Legend[string(char)]; !ok {
					return configError("invalid character '%c' at plane %d, row %d, col %d", char, p, y+1, x+1)
				}
			}
		}
	}
	return nil
}

func validateStacking(config *ScenarioConfig) error {
	limit := config.MaxUnitsPerCell
	if limit == 0 {
		limit = DefaultMaxUnitsPerCell
	}

	type key struct {
		owner int
		at    Coordinate
	}
	counts := make(map[key]int)
	for _, u := range config.Units {
		k := key{owner: u.Owner, at: u.Location}
		counts[k]++
		if counts[k] > limit {
			return configError("player %d has more than %d units at %s", u.Owner, limit, u.Location)
		}
	}
	return nil
}

// System returns the coordinate system of the scenario map
func (c *ScenarioConfig) System() CoordinateSystem {
	return CoordinateSystem{
		Width:            c.Width,
		Height:           c.Height,
		Planes:           c.Planes,
		WrapsLeftToRight: c.WrapsLeftToRight,
		WrapsTopToBottom: c.WrapsTopToBottom,
	}
}

// Catalog builds the scenario's read-only database
func (c *ScenarioConfig) Catalog() *Catalog {
	return NewCatalog(CatalogData{
		TileTypes:       c.TileTypes,
		MapFeatures:     c.MapFeatures,
		Skills:          c.Skills,
		Units:           c.UnitDefinitions,
		Spells:          c.Spells,
		Rules:           c.MovementRules,
		MaxUnitsPerCell: c.MaxUnitsPerCell,
	})
}

// Terrain builds the terrain grid from the layout and placed map objects
func (c *ScenarioConfig) Terrain() *Grid[TerrainCell] {
	terrain := NewGrid[TerrainCell](c.System())

	for p, rows := range c.Layout {
		for y, row := range rows {
			for x, char := range row {
				terrain.Ptr(Coordinate{X: x, Y: y, Plane: p}).TileTypeID = c.Legend[string(char)]
			}
		}
	}

	// a tower is the same cell on every plane and takes plane 0's tile type
	for _, t := range c.Towers {
		tile := terrain.Get(Coordinate{X: t.X, Y: t.Y}).TileTypeID
		for p := 0; p < c.Planes; p++ {
			cell := terrain.Ptr(Coordinate{X: t.X, Y: t.Y, Plane: p})
			cell.Tower = true
			cell.TileTypeID = tile
		}
	}
	for _, city := range c.Cities {
		forEachPlaneOf(terrain, city.Location, func(at Coordinate) {
			cell := terrain.Ptr(at)
			cell.CityName = city.Name
			cell.CityOwnerID = city.Owner
		})
	}
	for _, r := range c.Roads {
		forEachPlaneOf(terrain, r.Location, func(at Coordinate) {
			terrain.Ptr(at).Road = r.Kind
		})
	}
	for _, f := range c.Features {
		forEachPlaneOf(terrain, f.Location, func(at Coordinate) {
			terrain.Ptr(at).MapFeatureID = f.Feature
		})
	}

	return terrain
}

// InitialUnits returns the scenario's units alive and with full movement
func (c *ScenarioConfig) InitialUnits() []Unit {
	movement := make(map[string]int, len(c.UnitDefinitions))
	for _, d := range c.UnitDefinitions {
		movement[d.ID] = d.DoubledMovement
	}

	units := make([]Unit, 0, len(c.Units))
	for _, u := range c.Units {
		units = append(units, Unit{
			ID:                       u.ID,
			DefinitionID:             u.Unit,
			OwnerID:                  u.Owner,
			Location:                 u.Location,
			Status:                   UnitAlive,
			DoubledMovementRemaining: movement[u.Unit],
		})
	}
	return units
}

// Knowledge builds a snapshot of the scenario map with the given unit positions
func (c *ScenarioConfig) Knowledge(units []Unit) *Knowledge {
	return c.knowledgeOn(c.Terrain(), units)
}

func (c *ScenarioConfig) knowledgeOn(terrain *Grid[TerrainCell], units []Unit) *Knowledge {
	k := &Knowledge{
		Terrain: terrain,
		Units:   units,
		Spells:  c.MaintainedSpells,
	}
	return k.Clone()
}

// ParseScenarioConfig decodes a scenario from JSON or YAML and validates it.
// The format is "yaml" or "json"; anything else is sniffed from the content.
func ParseScenarioConfig(data []byte, format string) (*ScenarioConfig, error) {
	var config ScenarioConfig

	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	case "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			return ParseScenarioConfig(data, "json")
		}
		return ParseScenarioConfig(data, "yaml")
	}

	if err := ValidateScenarioConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadScenarioConfig loads a scenario configuration from a JSON or YAML file
func LoadScenarioConfig(filename string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseScenarioConfig(data, strings.TrimPrefix(filepath.Ext(filename), "."))
}

// InitGameStateFromConfig creates the starting game state of a scenario.
// A nil config uses DefaultScenarioConfig.
func InitGameStateFromConfig(config *ScenarioConfig) *GameState {
	if config == nil {
		config = DefaultScenarioConfig()
	}

	message := config.Welcome
	if message == "" {
		message = fmt.Sprintf("Welcome to %s!", config.Name)
	}

	return &GameState{
		Turn:        1,
		Units:       config.InitialUnits(),
		Message:     message,
		ConfigName:  config.Name,
		MoveHistory: []MoveHistoryEntry{},
		TotalMoves:  0,
	}
}

func intPtr(v int) *int {
	return &v
}

// DefaultScenarioConfig returns the built-in two-plane scenario
func DefaultScenarioConfig() *ScenarioConfig {
	return &ScenarioConfig{
		Name:        "default",
		Description: "Two planes joined by a tower, with a coast, a lair and gated cities",
		Welcome:     "Your armies await orders.",
		Width:       10,
		Height:      6,
		Planes:      2,
		Legend: map[string]string{
			"G": "grassland",
			"F": "forest",
			"M": "mountains",
			"O": "ocean",
		},
		Layout: [][]string{
			{
				"GGGGOOGGGG",
				"GFFGOOGFFG",
				"GGGGOOGGGG",
				"GMMGOOGMMG",
				"GGGGOOGGGG",
				"GGGGOOGGGG",
			},
			{
				"FFFFFFFFFF",
				"FGGGGGGGGF",
				"FGMMGGMMGF",
				"FGGGGGGGGF",
				"FGGGOOGGGF",
				"FFFFFFFFFF",
			},
		},
		TileTypes: []TileType{
			{ID: "forest", Name: "Forest"},
			{ID: "grassland", Name: "Grassland"},
			{ID: "mountains", Name: "Mountains"},
			{ID: "ocean", Name: "Ocean"},
		},
		Skills: []SkillDefinition{
			{ID: "flying", Name: "Flying"},
			{ID: "sailing", Name: "Sailing"},
			{ID: "wind_walking", Name: "Wind Walking", StackWide: true},
		},
		MovementRules: []MovementRateRule{
			{SkillID: "flying", DoubledMovement: intPtr(2)},
			{SkillID: "wind_walking", DoubledMovement: intPtr(2)},
			{SkillID: "sailing", TileTypeID: "ocean", DoubledMovement: intPtr(2)},
			{SkillID: "sailing"},
			{TileTypeID: "ocean"},
			{TileTypeID: "grassland", DoubledMovement: intPtr(2)},
			{TileTypeID: "forest", DoubledMovement: intPtr(4)},
			{TileTypeID: "mountains", DoubledMovement: intPtr(6)},
		},
		MapFeatures: []MapFeature{
			{ID: "lair", Name: "Monster Lair", TriggersCombat: true},
			{ID: "node", Name: "Nature Node"},
		},
		UnitDefinitions: []UnitDefinition{
			{ID: "spearmen", Name: "Spearmen", DoubledMovement: 2},
			{ID: "cavalry", Name: "Cavalry", DoubledMovement: 4},
			{ID: "trireme", Name: "Trireme", DoubledMovement: 6, TransportCapacity: 2, Skills: []string{"sailing"}},
			{ID: "sky_drake", Name: "Sky Drake", DoubledMovement: 8, Skills: []string{"flying"}},
		},
		Spells: []SpellDefinition{
			{ID: "earth_gate", Name: "Earth Gate", Effect: EarthGateSpell},
			{ID: "astral_gate", Name: "Astral Gate", Effect: AstralGateSpell},
		},
		Players: []Player{
			{ID: 1, Name: "Merlin", Human: true},
			{ID: 2, Name: "Tlaloc"},
		},
		Cities: []CityConfig{
			{Name: "Camelot", Owner: 1, Location: Coordinate{X: 1, Y: 2}},
			{Name: "Avalon", Owner: 1, Location: Coordinate{X: 8, Y: 2}},
			{Name: "Tenochtitlan", Owner: 2, Location: Coordinate{X: 8, Y: 4, Plane: 1}},
		},
		Towers: []TowerConfig{{X: 3, Y: 4}},
		Roads: []RoadConfig{
			{Location: Coordinate{X: 2, Y: 2}, Kind: NormalRoad},
			{Location: Coordinate{X: 3, Y: 2}, Kind: NormalRoad},
		},
		Features: []FeatureConfig{
			{Location: Coordinate{X: 6, Y: 0}, Feature: "lair"},
			{Location: Coordinate{X: 2, Y: 3, Plane: 1}, Feature: "node"},
		},
		Units: []UnitConfig{
			{ID: 1, Unit: "spearmen", Owner: 1, Location: Coordinate{X: 1, Y: 2}},
			{ID: 2, Unit: "cavalry", Owner: 1, Location: Coordinate{X: 1, Y: 2}},
			{ID: 3, Unit: "trireme", Owner: 1, Location: Coordinate{X: 4, Y: 2}},
			{ID: 4, Unit: "sky_drake", Owner: 1, Location: Coordinate{X: 8, Y: 2}},
			{ID: 5, Unit: "spearmen", Owner: 2, Location: Coordinate{X: 8, Y: 4, Plane: 1}},
			{ID: 6, Unit: "cavalry", Owner: 2, Location: Coordinate{X: 3, Y: 0}},
		},
		MaintainedSpells: []MaintainedSpell{
			{SpellID: "earth_gate", CastingPlayerID: 1, City: &Coordinate{X: 1, Y: 2}},
			{SpellID: "earth_gate", CastingPlayerID: 1, City: &Coordinate{X: 8, Y: 2}},
			{SpellID: "astral_gate", CastingPlayerID: 1, City: &Coordinate{X: 8, Y: 2}},
		},
	}
}
