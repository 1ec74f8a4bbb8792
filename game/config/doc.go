// Package config provides scenario configuration management.
//
// The config package handles:
//   - Loading scenarios from JSON or YAML files
//   - Scenario validation through engine.ValidateScenarioConfig
//   - Default scenario management
//   - Scenario discovery and listing
//
// Scenario Format:
//
// Scenarios live in the configs directory as name.json, name.yaml or name.yml.
// The file name without extension is the config id used to create sessions.
// Each scenario defines:
//   - Map size, planes and wrapping, with one layout per plane
//   - A legend mapping layout characters to tile types
//   - The catalog: tile types, skills, ordered movement rules, features, units, spells
//   - Players, cities, towers, roads, features, starting units and maintained spells
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scenario, err := manager.LoadConfig("archipelago")
//	defaultScenario := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// When the directory holds no default scenario, the first valid file is the
// default, and an empty directory falls back to engine.DefaultScenarioConfig.
package config
