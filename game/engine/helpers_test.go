package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testPlayer  = 1
	enemyPlayer = 2
)

func at(x, y int) Coordinate {
	return Coordinate{X: x, Y: y}
}

func at3(x, y, plane int) Coordinate {
	return Coordinate{X: x, Y: y, Plane: plane}
}

// createTestConfig returns a grassland map with a small catalog:
// grassland costs 2, forest 4, ocean needs sailing and void stops everything but flyers
func createTestConfig(width, height, planes int) *ScenarioConfig {
	layout := make([][]string, planes)
	for p := range layout {
		layout[p] = make([]string, height)
		for y := range layout[p] {
			layout[p][y] = strings.Repeat("G", width)
		}
	}

	return &ScenarioConfig{
		Name:        "test",
		Description: "Engine test scenario",
		Width:       width,
		Height:      height,
		Planes:      planes,
		Legend: map[string]string{
			"G": "grassland",
			"F": "forest",
			"O": "ocean",
			"X": "void",
		},
		Layout: layout,
		TileTypes: []TileType{
			{ID: "grassland", Name: "Grassland"},
			{ID: "forest", Name: "Forest"},
			{ID: "ocean", Name: "Ocean"},
			{ID: "void", Name: "Void"},
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
			{TileTypeID: "void"},
			{TileTypeID: "grassland", DoubledMovement: intPtr(2)},
			{TileTypeID: "forest", DoubledMovement: intPtr(4)},
		},
		MapFeatures: []MapFeature{
			{ID: "lair", Name: "Lair", TriggersCombat: true},
			{ID: "node", Name: "Node"},
		},
		UnitDefinitions: []UnitDefinition{
			{ID: "walker", Name: "Walker", DoubledMovement: 4},
			{ID: "flyer", Name: "Flyer", DoubledMovement: 4, Skills: []string{"flying"}},
			{ID: "wind_mage", Name: "Wind Mage", DoubledMovement: 4, Skills: []string{"wind_walking"}},
			{ID: "trireme", Name: "Trireme", DoubledMovement: 6, TransportCapacity: 1, Skills: []string{"sailing"}},
			{ID: "galley", Name: "Galley", DoubledMovement: 6, TransportCapacity: 2, Skills: []string{"sailing"}},
		},
		Spells: []SpellDefinition{
			{ID: "earth_gate", Name: "Earth Gate", Effect: EarthGateSpell},
			{ID: "astral_gate", Name: "Astral Gate", Effect: AstralGateSpell},
			{ID: "heavenly_light", Name: "Heavenly Light"},
		},
		Players: []Player{
			{ID: testPlayer, Name: "Tester", Human: true},
			{ID: enemyPlayer, Name: "Enemy"},
		},
	}
}

func setTile(config *ScenarioConfig, c Coordinate, char byte) {
	row := []byte(config.Layout[c.Plane][c.Y])
	row[c.X] = char
	config.Layout[c.Plane][c.Y] = string(row)
}

func addUnit(config *ScenarioConfig, id int, unit string, owner int, c Coordinate) {
	config.Units = append(config.Units, UnitConfig{ID: id, Unit: unit, Owner: owner, Location: c})
}

func addCity(config *ScenarioConfig, name string, owner int, c Coordinate) {
	config.Cities = append(config.Cities, CityConfig{Name: name, Owner: owner, Location: c})
}

func addSpell(config *ScenarioConfig, spell string, player int, city Coordinate) {
	config.MaintainedSpells = append(config.MaintainedSpells, MaintainedSpell{
		SpellID:         spell,
		CastingPlayerID: player,
		City:            &city,
	})
}

func newTestEngine(t *testing.T, config *ScenarioConfig) *GameEngine {
	t.Helper()
	e, err := NewEngine(config)
	require.NoError(t, err)
	return e
}

// reachFrom runs a query for the given units of testPlayer
func reachFrom(t *testing.T, config *ScenarioConfig, unitIDs ...int) *MovementResult {
	t.Helper()
	result, _, err := newTestEngine(t, config).CalculateMovement(testPlayer, unitIDs)
	require.NoError(t, err)
	return result
}

// queryFor builds the raw query and environment the engine would use
func queryFor(t *testing.T, e *GameEngine, playerID int, unitIDs ...int) (MovementQuery, Environment) {
	t.Helper()
	var units []Unit
	for _, id := range unitIDs {
		u, ok := e.GetState().FindUnit(id)
		require.True(t, ok, "unit %d", id)
		units = append(units, *u)
	}
	stack, err := NewUnitStack(units, playerID, e.Database())
	require.NoError(t, err)

	return MovementQuery{
			Start:                    stack.Location(),
			MovingPlayerID:           playerID,
			Stack:                    stack,
			DoubledMovementRemaining: stack.DoubledMovementRemaining(),
		}, Environment{
			Knowledge: e.Knowledge(),
			Players:   e.Players(),
			Database:  e.Database(),
		}
}

// referencesTo lists the cells whose predecessor is c
func referencesTo(result *MovementResult, c Coordinate) []Coordinate {
	var refs []Coordinate
	for _, entry := range result.Entries() {
		if entry.CameFrom != nil && *entry.CameFrom == c {
			refs = append(refs, entry.Coordinate)
		}
	}
	return refs
}
