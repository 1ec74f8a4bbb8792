package generate

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/aquilax/go-perlin"

	"github.com/wricardo/overland/game/engine"
)

const (
	// noise parameters: smoothing, frequency and octaves
	noiseAlpha   = 2.0
	noiseBeta    = 2.0
	noiseOctaves = int32(3)
	// noiseScale spreads integer coordinates across the noise field
	noiseScale = 7.0
	// each plane samples a distant region of the field
	planeOffset = 97.0

	minCitySpacing = 3
	maxPlayers     = 8
)

var (
	ErrInvalidOptions = errors.New("invalid generator options")
	ErrNotEnoughLand  = errors.New("not enough land to place the scenario")
)

var playerNames = []string{"Merlin", "Tlaloc", "Freya", "Oberic", "Sss'ra", "Horus", "Ariel", "Kali"}

// Options control scenario generation. The same options always produce the same scenario.
type Options struct {
	Name            string  `json:"name"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Planes          int     `json:"planes"`
	Seed            int64   `json:"seed"`
	Players         int     `json:"players"`
	CitiesPerPlayer int     `json:"cities_per_player"`
	Towers          int     `json:"towers"`
	Lairs           int     `json:"lairs"`
	Wrap            bool    `json:"wrap"`
	WaterLevel      float64 `json:"water_level"`
	MountainLevel   float64 `json:"mountain_level"`
	ForestLevel     float64 `json:"forest_level"`
}

// DefaultOptions returns a two-player, two-plane setup on a 24x16 map
func DefaultOptions() Options {
	return Options{
		Width:           24,
		Height:          16,
		Planes:          2,
		Seed:            1,
		Players:         2,
		CitiesPerPlayer: 2,
		Towers:          2,
		Lairs:           3,
		Wrap:            true,
		WaterLevel:      0.25,
		MountainLevel:   0.12,
		ForestLevel:     0.25,
	}
}

func (o Options) validate() error {
	switch {
	case o.Width < engine.MinMapSize || o.Width > engine.MaxMapSize:
		return fmt.Errorf("%w: width must be between %d and %d", ErrInvalidOptions, engine.MinMapSize, engine.MaxMapSize)
	case o.Height < engine.MinMapSize || o.Height > engine.MaxMapSize:
		return fmt.Errorf("%w: height must be between %d and %d", ErrInvalidOptions, engine.MinMapSize, engine.MaxMapSize)
	case o.Planes < 1 || o.Planes > engine.MaxPlanes:
		return fmt.Errorf("%w: planes must be between 1 and %d", ErrInvalidOptions, engine.MaxPlanes)
	case o.Players < 1 || o.Players > maxPlayers:
		return fmt.Errorf("%w: players must be between 1 and %d", ErrInvalidOptions, maxPlayers)
	case o.CitiesPerPlayer < 1:
		return fmt.Errorf("%w: every player needs a city", ErrInvalidOptions)
	case o.Towers < 0 || o.Lairs < 0:
		return fmt.Errorf("%w: towers and lairs cannot be negative", ErrInvalidOptions)
	}
	for _, level := range []float64{o.WaterLevel, o.MountainLevel, o.ForestLevel} {
		if level < 0 || level > 1 {
			return fmt.Errorf("%w: terrain levels must be fractions between 0 and 1", ErrInvalidOptions)
		}
	}
	if o.WaterLevel+o.MountainLevel+o.ForestLevel > 1 {
		return fmt.Errorf("%w: water, mountain and forest levels add up to more than 1", ErrInvalidOptions)
	}
	return nil
}

// generator carries the working state of one Generate call
type generator struct {
	opts     Options
	rng      *rand.Rand
	sys      engine.CoordinateSystem
	layout   [][]string
	occupied map[engine.Coordinate]bool
	config   *engine.ScenarioConfig
	nextUnit int
}

// Generate builds a random scenario from Perlin noise terrain using the built-in catalog.
// Terrain bands are quantiles of the noise, so the water, mountain and forest levels are
// the fraction of cells of each type on every plane.
func Generate(opts Options) (*engine.ScenarioConfig, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("generated-%d", opts.Seed)
	}

	base := engine.DefaultScenarioConfig()
	g := &generator{
		opts:     opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		occupied: make(map[engine.Coordinate]bool),
		nextUnit: 1,
		sys: engine.CoordinateSystem{
			Width:            opts.Width,
			Height:           opts.Height,
			Planes:           opts.Planes,
			WrapsLeftToRight: opts.Wrap,
		},
	}
	g.config = &engine.ScenarioConfig{
		Name:             opts.Name,
		Description:      fmt.Sprintf("Generated %dx%d map with %d plane(s), seed %d", opts.Width, opts.Height, opts.Planes, opts.Seed),
		Welcome:          "A new world unfolds.",
		Width:            opts.Width,
		Height:           opts.Height,
		Planes:           opts.Planes,
		WrapsLeftToRight: opts.Wrap,
		Legend:           base.Legend,
		TileTypes:        base.TileTypes,
		Skills:           base.Skills,
		MovementRules:    base.MovementRules,
		MapFeatures:      base.MapFeatures,
		UnitDefinitions:  base.UnitDefinitions,
		Spells:           base.Spells,
	}

	g.terrain()
	g.config.Layout = g.layout

	for i := 0; i < opts.Players; i++ {
		g.config.Players = append(g.config.Players, engine.Player{
			ID:    i + 1,
			Name:  playerNames[i],
			Human: i == 0,
		})
	}

	if err := g.placeCities(); err != nil {
		return nil, err
	}
	g.placeTowers()
	g.placeLairs()
	g.placeGates()

	if err := engine.ValidateScenarioConfig(g.config); err != nil {
		return nil, fmt.Errorf("generated scenario is invalid: %w", err)
	}
	return g.config, nil
}

// terrain fills the layout of every plane from banded Perlin noise
func (g *generator) terrain() {
	noise := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, g.opts.Seed)
	g.layout = make([][]string, g.opts.Planes)

	for p := 0; p < g.opts.Planes; p++ {
		values := make([]float64, 0, g.opts.Width*g.opts.Height)
		heights := make([][]float64, g.opts.Height)
		for y := 0; y < g.opts.Height; y++ {
			heights[y] = make([]float64, g.opts.Width)
			for x := 0; x < g.opts.Width; x++ {
				v := noise.Noise2D(
					float64(x)/noiseScale+float64(p)*planeOffset+0.5,
					float64(y)/noiseScale+0.5,
				)
				heights[y][x] = v
				values = append(values, v)
			}
		}

		sort.Float64s(values)
		water := quantile(values, g.opts.WaterLevel)
		mountain := quantile(values, 1-g.opts.MountainLevel)
		forest := quantile(values, 1-g.opts.MountainLevel-g.opts.ForestLevel)

		rows := make([]string, g.opts.Height)
		for y := range heights {
			var b strings.Builder
			for _, v := range heights[y] {
				switch {
				case g.opts.WaterLevel > 0 && v < water:
					b.WriteByte('O')
				case g.opts.MountainLevel > 0 && v >= mountain:
					b.WriteByte('M')
				case g.opts.ForestLevel > 0 && v >= forest:
					b.WriteByte('F')
				default:
					b.WriteByte('G')
				}
			}
			rows[y] = b.String()
		}
		g.layout[p] = rows
	}
}

// quantile returns the value below which fraction of the sorted values fall
func quantile(sorted []float64, fraction float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(fraction * float64(len(sorted)))
	if i >= len(sorted) {
		return sorted[len(sorted)-1] + 1
	}
	return sorted[max(i, 0)]
}

// tile returns the layout character at c
func (g *generator) tile(c engine.Coordinate) byte {
	return g.layout[c.Plane][c.Y][c.X]
}

// landCells returns the free grassland and forest cells of a plane in row-major order
func (g *generator) landCells(plane int) []engine.Coordinate {
	var cells []engine.Coordinate
	for y := 0; y < g.opts.Height; y++ {
		for x := 0; x < g.opts.Width; x++ {
			c := engine.Coordinate{X: x, Y: y, Plane: plane}
			if t := g.tile(c); (t == 'G' || t == 'F') && !g.occupied[c] {
				cells = append(cells, c)
			}
		}
	}
	return cells
}

// pick removes and returns a random cell at least spacing away from every city, relaxing
// the spacing when the map is too crowded
func (g *generator) pick(cells []engine.Coordinate, spacing int) (engine.Coordinate, bool) {
	for s := spacing; s >= 0; s-- {
		var candidates []engine.Coordinate
		for _, c := range cells {
			if !g.occupied[c] && g.farFromCities(c, s) {
				candidates = append(candidates, c)
			}
		}
		if len(candidates) > 0 {
			c := candidates[g.rng.Intn(len(candidates))]
			g.occupied[c] = true
			return c, true
		}
	}
	return engine.Coordinate{}, false
}

func (g *generator) farFromCities(c engine.Coordinate, spacing int) bool {
	for _, city := range g.config.Cities {
		if city.Location.Plane == c.Plane && engine.ChebyshevDistance(g.sys, city.Location, c) < spacing {
			return false
		}
	}
	return true
}

// placeCities spreads each player's cities over the planes, with a road and a garrison in each.
// The first city of every player also gets a sky drake, and a trireme when it touches the sea.
func (g *generator) placeCities() error {
	for i := 0; i < g.opts.CitiesPerPlayer; i++ {
		for _, player := range g.config.Players {
			plane := (player.ID - 1 + i) % g.opts.Planes
			loc, ok := g.pick(g.landCells(plane), minCitySpacing)
			if !ok {
				return fmt.Errorf("%w: no free land for a city of player %d on plane %d", ErrNotEnoughLand, player.ID, plane)
			}

			g.config.Cities = append(g.config.Cities, engine.CityConfig{
				Name:     fmt.Sprintf("%s %d", player.Name, i+1),
				Owner:    player.ID,
				Location: loc,
			})
			g.config.Roads = append(g.config.Roads, engine.RoadConfig{Location: loc, Kind: engine.NormalRoad})

			g.addUnit("spearmen", player.ID, loc)
			g.addUnit("cavalry", player.ID, loc)
			if i == 0 {
				g.addUnit("sky_drake", player.ID, loc)
				if sea, ok := g.adjacentSea(loc); ok {
					g.occupied[sea] = true
					g.addUnit("trireme", player.ID, sea)
				}
			}
		}
	}
	return nil
}

func (g *generator) adjacentSea(c engine.Coordinate) (engine.Coordinate, bool) {
	for d := engine.North; d <= engine.NorthWest; d++ {
		n, ok := g.sys.Move(c, d)
		if ok && g.tile(n) == 'O' && !g.occupied[n] {
			return n, true
		}
	}
	return engine.Coordinate{}, false
}

func (g *generator) addUnit(def string, owner int, at engine.Coordinate) {
	g.config.Units = append(g.config.Units, engine.UnitConfig{
		ID:       g.nextUnit,
		Unit:     def,
		Owner:    owner,
		Location: at,
	})
	g.nextUnit++
}

// placeTowers puts towers on cells that are free land on every plane
func (g *generator) placeTowers() {
	if g.opts.Planes < 2 {
		return
	}

	var cells []engine.Coordinate
	for _, c := range g.landCells(0) {
		free := true
		for p := 1; p < g.opts.Planes; p++ {
			other := engine.Coordinate{X: c.X, Y: c.Y, Plane: p}
			if g.occupied[other] || g.tile(other) == 'O' {
				free = false
				break
			}
		}
		if free {
			cells = append(cells, c)
		}
	}

	for i := 0; i < g.opts.Towers; i++ {
		c, ok := g.pick(cells, 2)
		if !ok {
			return
		}
		for p := 1; p < g.opts.Planes; p++ {
			g.occupied[engine.Coordinate{X: c.X, Y: c.Y, Plane: p}] = true
		}
		g.config.Towers = append(g.config.Towers, engine.TowerConfig{X: c.X, Y: c.Y})
	}
}

// placeLairs scatters combat-triggering lairs over free land of all planes
func (g *generator) placeLairs() {
	var cells []engine.Coordinate
	for p := 0; p < g.opts.Planes; p++ {
		cells = append(cells, g.landCells(p)...)
	}
	for i := 0; i < g.opts.Lairs; i++ {
		c, ok := g.pick(cells, 2)
		if !ok {
			return
		}
		g.config.Features = append(g.config.Features, engine.FeatureConfig{Location: c, Feature: "lair"})
	}
}

// placeGates gives the human player an Earth Gate in every city when they hold
// two or more, and an Astral Gate in their first city on multi-plane maps
func (g *generator) placeGates() {
	var owned []engine.Coordinate
	for _, city := range g.config.Cities {
		if city.Owner == 1 {
			owned = append(owned, city.Location)
		}
	}

	if len(owned) >= 2 {
		for i := range owned {
			g.config.MaintainedSpells = append(g.config.MaintainedSpells, engine.MaintainedSpell{
				SpellID:         "earth_gate",
				CastingPlayerID: 1,
				City:            &owned[i],
			})
		}
	}
	if g.opts.Planes > 1 && len(owned) > 0 {
		g.config.MaintainedSpells = append(g.config.MaintainedSpells, engine.MaintainedSpell{
			SpellID:         "astral_gate",
			CastingPlayerID: 1,
			City:            &owned[0],
		})
	}
}
