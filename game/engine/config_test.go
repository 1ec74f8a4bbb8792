package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createValidTestConfig() *ScenarioConfig {
	config := createTestConfig(5, 5, 2)
	config.Towers = []TowerConfig{{X: 2, Y: 2}}
	addCity(config, "Home", testPlayer, at(1, 1))
	addSpell(config, "earth_gate", testPlayer, at(1, 1))
	addUnit(config, 1, "walker", testPlayer, at(1, 1))
	addUnit(config, 2, "galley", testPlayer, at(3, 3))
	return config
}

func TestValidateScenarioConfig_ValidConfig(t *testing.T) {
	if err := ValidateScenarioConfig(createValidTestConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got: %v", err)
	}
	if err := ValidateScenarioConfig(DefaultScenarioConfig()); err != nil {
		t.Errorf("Expected default config to pass validation, got: %v", err)
	}
}

func TestValidateScenarioConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ScenarioConfig)
		wantMsg string
	}{
		{"missing name", func(c *ScenarioConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *ScenarioConfig) { c.Description = "" }, "description is required"},
		{"too narrow", func(c *ScenarioConfig) { c.Width = 2 }, "width must be between"},
		{"too many planes", func(c *ScenarioConfig) { c.Planes = MaxPlanes + 1 }, "planes must be between"},
		{"negative stacking cap", func(c *ScenarioConfig) { c.MaxUnitsPerCell = -1 }, "max_units_per_cell"},
		{"no tile types", func(c *ScenarioConfig) { c.TileTypes = nil }, "at least one tile type"},
		{"duplicate tile type", func(c *ScenarioConfig) { c.TileTypes = append(c.TileTypes, TileType{ID: "ocean"}) }, "duplicate tile type"},
		{"legend to unknown tile", func(c *ScenarioConfig) { c.Legend["L"] = "lava" }, "unknown tile type"},
		{"missing plane", func(c *ScenarioConfig) { c.Layout = c.Layout[:1] }, "layout must have 2 planes"},
		{"short row", func(c *ScenarioConfig) { c.Layout[1][2] = "GGG" }, "must have 5 characters"},
		{"missing row", func(c *ScenarioConfig) { c.Layout[0] = c.Layout[0][:4] }, "must have 5 rows"},
		{"unknown char", func(c *ScenarioConfig) { setTile(c, at(0, 0), 'Q') }, "invalid character 'Q'"},
		{"no movement rules", func(c *ScenarioConfig) { c.MovementRules = nil }, "at least one movement rule"},
		{"rule with unknown skill", func(c *ScenarioConfig) {
			c.MovementRules = append(c.MovementRules, MovementRateRule{SkillID: "teleport"})
		}, "unknown skill"},
		{"rule with absurd cost", func(c *ScenarioConfig) { c.MovementRules[0].DoubledMovement = intPtr(1000) }, "double_movement must be between"},
		{"unit with unknown skill", func(c *ScenarioConfig) {
			c.UnitDefinitions[0].Skills = []string{"teleport"}
		}, "references unknown skill"},
		{"negative capacity", func(c *ScenarioConfig) { c.UnitDefinitions[3].TransportCapacity = -1 }, "transport_capacity"},
		{"spell with unknown effect", func(c *ScenarioConfig) { c.Spells[0].Effect = "warp" }, "unknown effect"},
		{"no players", func(c *ScenarioConfig) { c.Players = nil }, "at least one player"},
		{"duplicate player", func(c *ScenarioConfig) { c.Players = append(c.Players, Player{ID: testPlayer}) }, "duplicate player"},
		{"city off map", func(c *ScenarioConfig) { c.Cities[0].Location = at(9, 9) }, "outside the map"},
		{"city of unknown owner", func(c *ScenarioConfig) { c.Cities[0].Owner = 7 }, "unknown owner"},
		{"tower off map", func(c *ScenarioConfig) { c.Towers[0].X = 5 }, "tower is outside"},
		{"two cities on one tower", func(c *ScenarioConfig) {
			addCity(c, "Spire", testPlayer, at(2, 2))
			addCity(c, "Mirror Spire", enemyPlayer, at3(2, 2, 1))
		}, "share the tower"},
		{"bad road kind", func(c *ScenarioConfig) {
			c.Roads = []RoadConfig{{Location: at(0, 0), Kind: "dirt"}}
		}, "unknown kind"},
		{"unknown feature", func(c *ScenarioConfig) {
			c.Features = []FeatureConfig{{Location: at(0, 0), Feature: "portal"}}
		}, "unknown map feature"},
		{"duplicate unit", func(c *ScenarioConfig) { addUnit(c, 1, "walker", testPlayer, at(0, 0)) }, "duplicate unit id"},
		{"unit of unknown type", func(c *ScenarioConfig) { c.Units[0].Unit = "golem" }, "unknown unit definition"},
		{"unit off map", func(c *ScenarioConfig) { c.Units[0].Location = at3(0, 0, 2) }, "outside the map"},
		{"overstacked", func(c *ScenarioConfig) {
			c.MaxUnitsPerCell = 1
			addUnit(c, 3, "walker", testPlayer, at(1, 1))
		}, "more than 1 units"},
		{"spell on empty cell", func(c *ScenarioConfig) { addSpell(c, "earth_gate", testPlayer, at(0, 0)) }, "holds no city"},
		{"unknown spell", func(c *ScenarioConfig) { c.MaintainedSpells[0].SpellID = "ghost" }, "unknown spell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidTestConfig()
			tt.mutate(config)

			err := ValidateScenarioConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("Expected ErrInvalidScenario, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestScenarioConfig_Terrain(t *testing.T) {
	config := createValidTestConfig()
	setTile(config, at3(4, 0, 1), 'O')
	config.Roads = []RoadConfig{{Location: at(0, 1), Kind: EnchantedRoad}}
	config.Features = []FeatureConfig{{Location: at(4, 4), Feature: "lair"}}

	terrain := config.Terrain()

	if got := terrain.Get(at3(4, 0, 1)).TileTypeID; got != "ocean" {
		t.Errorf("tile at (4,0,1) = %q, want ocean", got)
	}
	if !terrain.Get(at(2, 2)).Tower || !terrain.Get(at3(2, 2, 1)).Tower {
		t.Error("tower should be set on every plane")
	}
	home := terrain.Get(at(1, 1))
	if !home.HasCity() || home.CityOwnerID != testPlayer || home.CityName != "Home" {
		t.Errorf("unexpected city cell %+v", home)
	}
	if terrain.Get(at(0, 1)).Road != EnchantedRoad {
		t.Error("road not placed")
	}
	if terrain.Get(at(4, 4)).MapFeatureID != "lair" {
		t.Error("feature not placed")
	}
}

func TestInitGameStateFromConfig(t *testing.T) {
	config := createValidTestConfig()
	state := InitGameStateFromConfig(config)

	if state.Turn != 1 {
		t.Errorf("Expected turn 1, got %d", state.Turn)
	}
	if state.ConfigName != "test" {
		t.Errorf("Expected config name 'test', got %q", state.ConfigName)
	}
	if len(state.Units) != 2 {
		t.Fatalf("Expected 2 units, got %d", len(state.Units))
	}
	galley, _ := state.FindUnit(2)
	if galley.DoubledMovementRemaining != 6 || !galley.Alive() {
		t.Errorf("Expected a live galley with 6 movement, got %+v", galley)
	}

	defaults := InitGameStateFromConfig(nil)
	if defaults.ConfigName != "default" || len(defaults.Units) == 0 {
		t.Errorf("Expected default scenario state, got %+v", defaults)
	}
}

const yamlScenario = `
name: yaml_test
description: Scenario written in YAML
width: 4
height: 3
planes: 1
legend:
  G: grassland
  O: ocean
layout:
  - - GGOO
    - GGOO
    - GGGO
tile_types:
  - id: grassland
    name: Grassland
  - id: ocean
    name: Ocean
skills:
  - id: sailing
    name: Sailing
movement_rules:
  - skill: sailing
    tile_type: ocean
    double_movement: 2
  - skill: sailing
  - tile_type: ocean
  - tile_type: grassland
    double_movement: 2
unit_definitions:
  - id: walker
    name: Walker
    double_movement: 4
  - id: boat
    name: Boat
    double_movement: 6
    transport_capacity: 2
    skills: [sailing]
players:
  - id: 1
    name: Blue
    human: true
cities:
  - name: Port
    owner: 1
    location: {x: 1, y: 1, plane: 0}
units:
  - id: 1
    unit: walker
    owner: 1
    location: {x: 0, y: 0, plane: 0}
maintained_spells: []
`

func TestParseScenarioConfig_YAML(t *testing.T) {
	config, err := ParseScenarioConfig([]byte(yamlScenario), "yaml")
	if err != nil {
		t.Fatalf("ParseScenarioConfig() error = %v", err)
	}

	if config.Name != "yaml_test" || config.Width != 4 {
		t.Errorf("unexpected header %+v", config)
	}
	if len(config.MovementRules) != 4 {
		t.Fatalf("Expected 4 movement rules, got %d", len(config.MovementRules))
	}
	if config.MovementRules[1].DoubledMovement != nil {
		t.Error("rule without double_movement should mean impassable")
	}
	if *config.MovementRules[0].DoubledMovement != 2 {
		t.Error("sailing rule should cost 2")
	}
	if config.Cities[0].Location != at(1, 1) {
		t.Errorf("city location = %s", config.Cities[0].Location)
	}

	// Sniffed format
	if _, err := ParseScenarioConfig([]byte(yamlScenario), ""); err != nil {
		t.Errorf("sniffed YAML failed: %v", err)
	}
}

func TestParseScenarioConfig_JSONMatchesYAML(t *testing.T) {
	fromYAML, err := ParseScenarioConfig([]byte(yamlScenario), "yaml")
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(fromYAML)
	if err != nil {
		t.Fatal(err)
	}

	fromJSON, err := ParseScenarioConfig(data, "")
	if err != nil {
		t.Fatalf("sniffed JSON failed: %v", err)
	}
	if fromJSON.Name != fromYAML.Name || len(fromJSON.Layout[0]) != 3 || fromJSON.UnitDefinitions[1].TransportCapacity != 2 {
		t.Errorf("JSON round trip lost data: %+v", fromJSON)
	}
}

func TestParseScenarioConfig_Errors(t *testing.T) {
	if _, err := ParseScenarioConfig([]byte("{not json"), "json"); err == nil {
		t.Error("Expected JSON syntax error")
	}
	if _, err := ParseScenarioConfig([]byte("name: [unclosed"), "yaml"); err == nil {
		t.Error("Expected YAML syntax error")
	}
	if _, err := ParseScenarioConfig([]byte(`{"name": "x"}`), "json"); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestLoadScenarioConfig(t *testing.T) {
	dir := t.TempDir()

	data, err := json.Marshal(createValidTestConfig())
	if err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "valid.json")
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(dir, "valid.yml")
	if err := os.WriteFile(yamlPath, []byte(yamlScenario), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("json", func(t *testing.T) {
		config, err := LoadScenarioConfig(jsonPath)
		if err != nil {
			t.Fatalf("LoadScenarioConfig() error = %v", err)
		}
		if config.Name != "test" {
			t.Errorf("Name = %q", config.Name)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		config, err := LoadScenarioConfig(yamlPath)
		if err != nil {
			t.Fatalf("LoadScenarioConfig() error = %v", err)
		}
		if config.Name != "yaml_test" {
			t.Errorf("Name = %q", config.Name)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadScenarioConfig(filepath.Join(dir, "nope.json")); !os.IsNotExist(err) {
			t.Errorf("Expected not-exist error, got %v", err)
		}
	})
}

func TestScenarioConfig_TerrainTowerIsOneCell(t *testing.T) {
	config := createValidTestConfig()
	setTile(config, at3(2, 2, 1), 'F')
	addCity(config, "Spire", testPlayer, at3(2, 2, 1))
	config.Roads = []RoadConfig{{Location: at(2, 2), Kind: NormalRoad}}

	terrain := config.Terrain()

	for plane := 0; plane < config.Planes; plane++ {
		cell := terrain.Get(at3(2, 2, plane))
		if cell.TileTypeID != "grassland" {
			t.Errorf("tower tile on plane %d = %q, want plane 0's grassland", plane, cell.TileTypeID)
		}
		if cell.CityName != "Spire" {
			t.Errorf("tower city on plane %d = %q, want Spire", plane, cell.CityName)
		}
		if cell.Road != NormalRoad {
			t.Errorf("tower road on plane %d = %q, want normal", plane, cell.Road)
		}
	}
}
