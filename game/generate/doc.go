// Package generate builds random overland scenarios.
//
// Terrain on every plane comes from Perlin noise cut into ocean, grassland,
// forest and mountain bands. Each player then gets cities spread over the
// planes with a garrison, and the map is dotted with towers and lairs. The
// human player (player 1) holds Earth Gates in its cities and an Astral Gate
// in its first city, so generated maps exercise every edge kind of the
// movement search.
//
//	opts := generate.DefaultOptions()
//	opts.Seed = 42
//	scenario, err := generate.Generate(opts)
//
// The result is a validated engine.ScenarioConfig that the config manager can
// save like any hand-written scenario.
package generate
