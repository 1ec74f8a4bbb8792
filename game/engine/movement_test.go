package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovement_OpenGrid(t *testing.T) {
	config := createTestConfig(5, 5, 1)
	addUnit(config, 1, "walker", testPlayer, at(2, 2))

	result := reachFrom(t, config, 1)

	require.Equal(t, 25, result.CountReachable())
	for _, c := range result.Reachable() {
		cell := result.Cell(c)
		ring := ChebyshevDistance(result.System(), at(2, 2), c)
		assert.Equal(t, ring*2, cell.DoubledCost, "cost at %s", c)
		assert.True(t, cell.ReachableThisTurn, "reachable this turn at %s", c)
		if ring == 1 {
			assert.Equal(t, EdgeAdjacent, cell.EdgeKind)
			assert.Equal(t, at(2, 2), *cell.CameFrom)
		}
	}
	assert.Equal(t, 25, result.CountReachableThisTurn())
}

func TestMovement_StartInvariant(t *testing.T) {
	config := createTestConfig(5, 5, 1)
	addUnit(config, 1, "walker", testPlayer, at(0, 0))

	result := reachFrom(t, config, 1)
	start := result.Cell(at(0, 0))

	require.NotNil(t, start)
	assert.Equal(t, EdgeStart, start.EdgeKind)
	assert.Nil(t, start.CameFrom)
	assert.Equal(t, 0, start.DoubledCost)
	assert.True(t, start.ReachableThisTurn)
}

func TestMovement_ReachableThisTurnBoundary(t *testing.T) {
	config := createTestConfig(9, 3, 1)
	addUnit(config, 1, "walker", testPlayer, at(0, 1))

	result := reachFrom(t, config, 1)

	tests := []struct {
		x        int
		cost     int
		thisTurn bool
	}{
		{1, 2, true},
		{2, 4, true},
		{3, 6, false},
		{8, 16, false},
	}
	for _, tt := range tests {
		cell := result.Cell(at(tt.x, 1))
		require.NotNil(t, cell, "x=%d", tt.x)
		assert.Equal(t, tt.cost, cell.DoubledCost, "x=%d", tt.x)
		assert.Equal(t, tt.thisTurn, cell.ReachableThisTurn, "x=%d", tt.x)
	}
}

func TestMovement_EnemyStackEndsMovement(t *testing.T) {
	config := createTestConfig(5, 5, 1)
	addUnit(config, 1, "walker", testPlayer, at(2, 2))
	addUnit(config, 2, "walker", enemyPlayer, at(3, 2))

	result := reachFrom(t, config, 1)

	enemy := result.Cell(at(3, 2))
	require.NotNil(t, enemy)
	assert.Equal(t, 2, enemy.DoubledCost)
	assert.Empty(t, referencesTo(result, at(3, 2)))

	// Cells behind the enemy are still reached around it
	behind := result.Cell(at(4, 2))
	require.NotNil(t, behind)
	assert.Equal(t, 4, behind.DoubledCost)
}

func TestMovement_CombatTruncation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(config *ScenarioConfig)
	}{
		{
			name: "lair",
			mutate: func(config *ScenarioConfig) {
				config.Features = append(config.Features, FeatureConfig{Location: at(3, 2), Feature: "lair"})
			},
		},
		{
			name: "enemy city",
			mutate: func(config *ScenarioConfig) {
				addCity(config, "Enemy Town", enemyPlayer, at(3, 2))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig(5, 5, 1)
			addUnit(config, 1, "walker", testPlayer, at(2, 2))
			tt.mutate(config)

			result := reachFrom(t, config, 1)

			require.NotNil(t, result.Cell(at(3, 2)))
			assert.Empty(t, referencesTo(result, at(3, 2)))
		})
	}
}

func TestMovement_HarmlessFeatureAndOwnCityDoNotTruncate(t *testing.T) {
	config := createTestConfig(5, 5, 1)
	addUnit(config, 1, "walker", testPlayer, at(0, 2))
	config.Features = append(config.Features, FeatureConfig{Location: at(1, 2), Feature: "node"})
	addCity(config, "Home", testPlayer, at(1, 1))

	result := reachFrom(t, config, 1)

	// Both cells are expanded: something beyond them was reached through them
	assert.NotEmpty(t, referencesTo(result, at(1, 2)))
	assert.NotEmpty(t, referencesTo(result, at(1, 1)))
}

func TestMovement_TransportCapacity(t *testing.T) {
	build := func() *ScenarioConfig {
		config := createTestConfig(5, 3, 1)
		for y := 0; y < 3; y++ {
			setTile(config, at(2, y), 'O')
		}
		addUnit(config, 1, "walker", testPlayer, at(1, 1))
		addUnit(config, 2, "trireme", testPlayer, at(2, 1))
		return config
	}

	t.Run("free slot", func(t *testing.T) {
		result := reachFrom(t, build(), 1)

		boat := result.Cell(at(2, 1))
		require.NotNil(t, boat)
		assert.Equal(t, 2, boat.DoubledCost)
		assert.Nil(t, result.Cell(at(2, 0)))
		assert.Nil(t, result.Cell(at(2, 2)))
		assert.NotNil(t, result.Cell(at(3, 1)), "disembark on the far shore")
	})

	t.Run("slot taken by cargo", func(t *testing.T) {
		config := build()
		addUnit(config, 3, "walker", testPlayer, at(2, 1))

		result := reachFrom(t, config, 1)

		assert.Nil(t, result.Cell(at(2, 1)))
		assert.Nil(t, result.Cell(at(3, 1)))
		assert.Equal(t, 6, result.CountReachable())
	})

	t.Run("stack too big for the boat", func(t *testing.T) {
		config := build()
		addUnit(config, 3, "walker", testPlayer, at(1, 1))

		result := reachFrom(t, config, 1, 3)

		assert.Nil(t, result.Cell(at(2, 1)))
	})

	t.Run("enemy boat does not help", func(t *testing.T) {
		config := build()
		config.Units[1].Owner = enemyPlayer

		result := reachFrom(t, config, 1)

		boat := result.Cell(at(2, 1))
		assert.Nil(t, boat)
	})
}

func TestMovement_TransportedStack(t *testing.T) {
	config := createTestConfig(5, 3, 1)
	for y := 0; y < 3; y++ {
		setTile(config, at(2, y), 'O')
	}
	addUnit(config, 1, "galley", testPlayer, at(2, 1))
	addUnit(config, 2, "walker", testPlayer, at(2, 1))
	addUnit(config, 3, "walker", testPlayer, at(2, 1))

	e := newTestEngine(t, config)
	result, stack, err := e.CalculateMovement(testPlayer, []int{1, 2, 3})
	require.NoError(t, err)

	require.True(t, stack.Transported())
	assert.Equal(t, 2, result.Cell(at(2, 0)).DoubledCost)
	assert.Equal(t, 2, result.Cell(at(2, 2)).DoubledCost)
	assert.Nil(t, result.Cell(at(1, 1)), "galleys cannot go ashore")
	assert.Equal(t, 3, result.CountReachable())
}

func TestMovement_StackWideSkills(t *testing.T) {
	build := func(companion string) *ScenarioConfig {
		config := createTestConfig(5, 3, 1)
		for y := 0; y < 3; y++ {
			setTile(config, at(2, y), 'O')
		}
		addUnit(config, 1, "walker", testPlayer, at(1, 1))
		addUnit(config, 2, companion, testPlayer, at(1, 1))
		return config
	}

	t.Run("wind walking carries the stack", func(t *testing.T) {
		result := reachFrom(t, build("wind_mage"), 1, 2)
		require.NotNil(t, result.Cell(at(2, 1)))
		assert.Equal(t, 2, result.Cell(at(2, 1)).DoubledCost)
	})

	t.Run("flying is personal", func(t *testing.T) {
		result := reachFrom(t, build("flyer"), 1, 2)
		assert.Nil(t, result.Cell(at(2, 1)))
	})
}

func TestMovement_WorstRateGovernsStack(t *testing.T) {
	config := createTestConfig(5, 3, 1)
	setTile(config, at(2, 1), 'F')
	addUnit(config, 1, "walker", testPlayer, at(1, 1))
	addUnit(config, 2, "flyer", testPlayer, at(1, 1))

	alone := reachFrom(t, config, 2)
	together := reachFrom(t, config, 1, 2)

	assert.Equal(t, 2, alone.Cell(at(2, 1)).DoubledCost)
	assert.Equal(t, 4, together.Cell(at(2, 1)).DoubledCost)
}

func TestMovement_Roads(t *testing.T) {
	config := createTestConfig(6, 3, 1)
	for x := 0; x < 6; x++ {
		for y := 0; y < 3; y++ {
			setTile(config, at(x, y), 'F')
		}
	}
	config.Roads = []RoadConfig{
		{Location: at(1, 1), Kind: NormalRoad},
		{Location: at(2, 1), Kind: NormalRoad},
		{Location: at(3, 1), Kind: EnchantedRoad},
	}
	addUnit(config, 1, "walker", testPlayer, at(0, 1))

	result := reachFrom(t, config, 1)

	for _, tt := range []struct {
		c    Coordinate
		cost int
	}{
		{at(1, 1), 1},
		{at(2, 1), 2},
		{at(3, 1), 2},
		{at(4, 1), 6},
		{at(0, 0), 4},
	} {
		require.NotNil(t, result.Cell(tt.c), "%s", tt.c)
		assert.Equal(t, tt.cost, result.Cell(tt.c).DoubledCost, "%s", tt.c)
	}
}

func TestMovement_StackingLimit(t *testing.T) {
	config := createTestConfig(5, 5, 1)
	config.MaxUnitsPerCell = 2
	addUnit(config, 1, "walker", testPlayer, at(2, 2))
	addUnit(config, 2, "walker", testPlayer, at(3, 2))
	addUnit(config, 3, "walker", testPlayer, at(3, 2))

	result := reachFrom(t, config, 1)

	assert.Nil(t, result.Cell(at(3, 2)))
	require.NotNil(t, result.Cell(at(4, 2)))
	assert.Equal(t, 4, result.Cell(at(4, 2)).DoubledCost)
}

func TestMovement_EarthGates(t *testing.T) {
	build := func(gateAtDestination bool) *ScenarioConfig {
		config := createTestConfig(14, 3, 1)
		for x := 3; x <= 9; x++ {
			for y := 0; y < 3; y++ {
				setTile(config, at(x, y), 'X')
			}
		}
		addCity(config, "West", testPlayer, at(1, 1))
		addCity(config, "East", testPlayer, at(11, 1))
		addSpell(config, "earth_gate", testPlayer, at(1, 1))
		if gateAtDestination {
			addSpell(config, "earth_gate", testPlayer, at(11, 1))
		}
		addUnit(config, 1, "walker", testPlayer, at(1, 1))
		return config
	}

	t.Run("both cities gated", func(t *testing.T) {
		result := reachFrom(t, build(true), 1)

		east := result.Cell(at(11, 1))
		require.NotNil(t, east)
		assert.Equal(t, 2, east.DoubledCost)
		assert.Equal(t, EdgeEarthGate, east.EdgeKind)
		assert.Equal(t, at(1, 1), *east.CameFrom)
		assert.Equal(t, NoDirection, east.Direction)

		require.NotNil(t, result.Cell(at(12, 1)))
		assert.Equal(t, 4, result.Cell(at(12, 1)).DoubledCost)
	})

	t.Run("one gate is not enough", func(t *testing.T) {
		result := reachFrom(t, build(false), 1)
		assert.Nil(t, result.Cell(at(11, 1)))
	})

	t.Run("enemy gate does not open", func(t *testing.T) {
		config := build(true)
		config.MaintainedSpells[1].CastingPlayerID = enemyPlayer

		result := reachFrom(t, config, 1)
		assert.Nil(t, result.Cell(at(11, 1)))
	})
}

func TestMovement_AstralGate(t *testing.T) {
	config := createTestConfig(5, 5, 2)
	addCity(config, "Gate", testPlayer, at(1, 1))
	addSpell(config, "astral_gate", testPlayer, at(1, 1))
	addUnit(config, 1, "walker", testPlayer, at(1, 1))

	result := reachFrom(t, config, 1)

	mirror := result.Cell(at3(1, 1, 1))
	require.NotNil(t, mirror)
	assert.Equal(t, EdgeAstralGate, mirror.EdgeKind)
	assert.Equal(t, 0, mirror.DoubledCost)
	assert.Equal(t, at(1, 1), *mirror.CameFrom)

	require.NotNil(t, result.Cell(at3(2, 2, 1)))
	assert.Equal(t, 2, result.Cell(at3(2, 2, 1)).DoubledCost)
}

func TestMovement_AstralGateWorksBackwards(t *testing.T) {
	config := createTestConfig(5, 5, 2)
	addCity(config, "Gate", testPlayer, at(1, 1))
	addSpell(config, "astral_gate", testPlayer, at(1, 1))
	addUnit(config, 1, "walker", testPlayer, at3(2, 1, 1))

	result := reachFrom(t, config, 1)

	city := result.Cell(at(1, 1))
	require.NotNil(t, city)
	assert.Equal(t, EdgeAstralGate, city.EdgeKind)
	assert.Equal(t, 2, city.DoubledCost)
}

func TestMovement_TowerJoinsPlanes(t *testing.T) {
	config := createTestConfig(7, 7, 2)
	config.Towers = []TowerConfig{{X: 3, Y: 3}}
	addUnit(config, 1, "walker", testPlayer, at(3, 3))

	result := reachFrom(t, config, 1)

	other := result.Cell(at3(2, 2, 1))
	require.NotNil(t, other)
	assert.Equal(t, 2, other.DoubledCost)
	assert.Equal(t, EdgeAdjacent, other.EdgeKind)
	assert.Equal(t, NorthWest, other.Direction)
	assert.Equal(t, at(3, 3), *other.CameFrom)
}

func TestMovement_TowerSymmetry(t *testing.T) {
	run := func(plane int) *MovementResult {
		config := createTestConfig(7, 7, 2)
		config.Towers = []TowerConfig{{X: 3, Y: 3}}
		addUnit(config, 1, "walker", testPlayer, at3(2, 3, plane))
		return reachFrom(t, config, 1)
	}

	fromArcanus := run(0)
	fromMyrror := run(1)

	require.Equal(t, fromArcanus.CountReachable(), fromMyrror.CountReachable())
	for _, c := range fromArcanus.Reachable() {
		mirror := Coordinate{X: c.X, Y: c.Y, Plane: 1 - c.Plane}
		cell := fromMyrror.Cell(mirror)
		require.NotNil(t, cell, "mirror of %s", c)
		assert.Equal(t, fromArcanus.Cell(c).DoubledCost, cell.DoubledCost, "mirror of %s", c)
	}
}

func TestMovement_StartOnTower(t *testing.T) {
	for plane := 0; plane < 2; plane++ {
		t.Run(fmt.Sprintf("plane %d", plane), func(t *testing.T) {
			config := createTestConfig(7, 7, 2)
			config.Towers = []TowerConfig{{X: 3, Y: 3}}
			addUnit(config, 1, "walker", testPlayer, at3(3, 3, plane))

			result := reachFrom(t, config, 1)

			for p := 0; p < 2; p++ {
				cell := result.Cell(at3(3, 3, p))
				require.NotNil(t, cell, "tower on plane %d", p)
				assert.Equal(t, EdgeStart, cell.EdgeKind, "tower on plane %d", p)
				assert.Equal(t, 0, cell.DoubledCost, "tower on plane %d", p)
				assert.Nil(t, cell.CameFrom, "tower on plane %d", p)

				path, err := result.PathTo(at3(3, 3, p))
				require.NoError(t, err)
				assert.Empty(t, path)

				assert.Equal(t, 2, result.Cell(at3(4, 3, p)).DoubledCost)
			}
		})
	}
}

func TestMovement_EnterTower(t *testing.T) {
	config := createTestConfig(7, 7, 2)
	config.Towers = []TowerConfig{{X: 3, Y: 3}}
	// the tower takes plane 0's tile, so the forest above it does not count
	setTile(config, at3(3, 3, 1), 'F')
	addUnit(config, 1, "walker", testPlayer, at(2, 3))

	result := reachFrom(t, config, 1)

	for p := 0; p < 2; p++ {
		cell := result.Cell(at3(3, 3, p))
		require.NotNil(t, cell, "tower on plane %d", p)
		assert.Equal(t, 2, cell.DoubledCost, "tower on plane %d", p)
		assert.Equal(t, EdgeAdjacent, cell.EdgeKind)
		assert.Equal(t, at(2, 3), *cell.CameFrom)
	}

	path, err := result.PathTo(at3(3, 3, 1))
	require.NoError(t, err)
	require.Len(t, path, 1)
	assert.Equal(t, at3(3, 3, 1), path[0].Coordinate)

	beyond := result.Cell(at3(4, 3, 1))
	require.NotNil(t, beyond)
	assert.Equal(t, 4, beyond.DoubledCost)
}

func TestMovement_StrandedTransportCarriesNobody(t *testing.T) {
	config := createTestConfig(5, 3, 1)
	setTile(config, at(2, 1), 'X')
	addUnit(config, 1, "walker", testPlayer, at(1, 1))
	// a galley on the void has free slots but cannot move there itself
	addUnit(config, 2, "galley", testPlayer, at(2, 1))

	result := reachFrom(t, config, 1)

	assert.Nil(t, result.Cell(at(2, 1)))
}

// Many equal-cost gate edges re-enqueue cells repeatedly; the search must still drain its queue.
func TestMovement_ManyGatesTerminate(t *testing.T) {
	config := createTestConfig(16, 16, 2)
	config.Towers = []TowerConfig{{X: 8, Y: 9}, {X: 3, Y: 12}}

	var gates []Coordinate
	for i := 0; i < 16; i++ {
		c := at((i*5)%16, (i*3)%16)
		gates = append(gates, c)
		addCity(config, fmt.Sprintf("Gate %d", i), testPlayer, c)
		addSpell(config, "earth_gate", testPlayer, c)
	}
	addSpell(config, "astral_gate", testPlayer, at(0, 0))
	addUnit(config, 1, "walker", testPlayer, at(0, 0))

	result := reachFrom(t, config, 1)

	assert.Equal(t, 16*16*2, result.CountReachable())
	for _, g := range gates[1:] {
		cell := result.Cell(g)
		require.NotNil(t, cell, "%s", g)
		assert.Equal(t, 2, cell.DoubledCost, "%s", g)
	}
	require.NotNil(t, result.Cell(at3(0, 0, 1)))
	assert.Equal(t, 0, result.Cell(at3(0, 0, 1)).DoubledCost)

	for _, entry := range result.Entries() {
		if entry.CameFrom != nil {
			assert.GreaterOrEqual(t, entry.DoubledCost, result.Cell(*entry.CameFrom).DoubledCost)
		}
	}
}

func TestMovement_Wrapping(t *testing.T) {
	config := createTestConfig(6, 3, 1)
	config.WrapsLeftToRight = true
	addUnit(config, 1, "walker", testPlayer, at(0, 1))

	result := reachFrom(t, config, 1)

	west := result.Cell(at(5, 1))
	require.NotNil(t, west)
	assert.Equal(t, 2, west.DoubledCost)
	assert.Equal(t, West, west.Direction)
}

func TestMovement_Properties(t *testing.T) {
	config := mixedTerrainConfig()
	e := newTestEngine(t, config)

	first, _, err := e.CalculateMovement(testPlayer, []int{1})
	require.NoError(t, err)
	second, _, err := e.CalculateMovement(testPlayer, []int{1})
	require.NoError(t, err)

	t.Run("determinism", func(t *testing.T) {
		assert.Equal(t, first.Entries(), second.Entries())
	})

	t.Run("monotonicity", func(t *testing.T) {
		for _, entry := range first.Entries() {
			assert.GreaterOrEqual(t, entry.DoubledCost, 0)
			if entry.CameFrom != nil {
				assert.GreaterOrEqual(t, entry.DoubledCost, first.Cell(*entry.CameFrom).DoubledCost)
			}
		}
	})

	t.Run("closure", func(t *testing.T) {
		for _, c := range first.Reachable() {
			if c == first.Start {
				continue
			}
			path, err := first.PathTo(c)
			require.NoError(t, err, "%s", c)
			assert.LessOrEqual(t, len(path), first.CountReachable())
			assert.Equal(t, c, path[len(path)-1].Coordinate)
			assert.Equal(t, first.Cell(c).DoubledCost, path[len(path)-1].DoubledCost)
		}
	})

	t.Run("matches reference costs", func(t *testing.T) {
		want := referenceCosts(config, first.Start)
		index := NewGrid[int](config.System())
		for i, cost := range want {
			c := index.At(i)
			cell := first.Cell(c)
			if cost < 0 {
				assert.Nil(t, cell, "%s should be unreachable", c)
				continue
			}
			require.NotNil(t, cell, "%s should be reachable", c)
			assert.Equal(t, cost, cell.DoubledCost, "%s", c)
		}
	})
}

// mixedTerrainConfig is a 24x24 map of grassland, forest and ocean patches
func mixedTerrainConfig() *ScenarioConfig {
	config := createTestConfig(24, 24, 1)
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			switch {
			case (x+2*y)%11 == 0:
				setTile(config, at(x, y), 'O')
			case (3*x+5*y)%7 == 0:
				setTile(config, at(x, y), 'F')
			}
		}
	}
	setTile(config, at(12, 12), 'G')
	addUnit(config, 1, "walker", testPlayer, at(12, 12))
	return config
}

// referenceCosts is a plain O(n^2) Dijkstra over a single plane for walkers
func referenceCosts(config *ScenarioConfig, start Coordinate) []int {
	terrain := config.Terrain()
	sys := terrain.System()
	rate := map[string]int{"grassland": 2, "forest": 4}

	dist := make([]int, terrain.Len())
	done := make([]bool, terrain.Len())
	for i := range dist {
		dist[i] = -1
	}
	dist[terrain.Index(start)] = 0

	for {
		best := -1
		for i, d := range dist {
			if d >= 0 && !done[i] && (best < 0 || d < dist[best]) {
				best = i
			}
		}
		if best < 0 {
			return dist
		}
		done[best] = true

		from := terrain.At(best)
		for d := North; d <= NorthWest; d++ {
			to, ok := sys.Move(from, d)
			if !ok {
				continue
			}
			cost, passable := rate[terrain.Get(to).TileTypeID]
			if !passable {
				continue
			}
			i := terrain.Index(to)
			if dist[i] < 0 || dist[best]+cost < dist[i] {
				dist[i] = dist[best] + cost
			}
		}
	}
}

func TestMovement_DoesNotMutateInputs(t *testing.T) {
	config := mixedTerrainConfig()
	e := newTestEngine(t, config)
	query, env := queryFor(t, e, testPlayer, 1)

	before := env.Knowledge.Clone()
	_, err := CalculateOverlandMovementDistances(query, env)
	require.NoError(t, err)

	assert.Equal(t, before.Units, env.Knowledge.Units)
	assert.Equal(t, before.Spells, env.Knowledge.Spells)
	assert.Equal(t, before.Terrain.Layers(), env.Knowledge.Terrain.Layers())
}

func TestMovement_Errors(t *testing.T) {
	config := createTestConfig(5, 5, 1)
	addUnit(config, 1, "walker", testPlayer, at(2, 2))
	addUnit(config, 2, "walker", enemyPlayer, at(4, 4))
	addUnit(config, 3, "walker", testPlayer, at(0, 0))

	tests := []struct {
		name    string
		mutate  func(q *MovementQuery, env *Environment)
		wantErr error
	}{
		{
			name: "unknown tile type",
			mutate: func(q *MovementQuery, env *Environment) {
				env.Knowledge.Terrain.Ptr(at(3, 2)).TileTypeID = "lava"
			},
			wantErr: ErrRecordNotFound,
		},
		{
			name: "unknown map feature",
			mutate: func(q *MovementQuery, env *Environment) {
				env.Knowledge.Terrain.Ptr(at(3, 2)).MapFeatureID = "portal"
			},
			wantErr: ErrRecordNotFound,
		},
		{
			name: "unknown spell",
			mutate: func(q *MovementQuery, env *Environment) {
				city := at(2, 2)
				env.Knowledge.Spells = append(env.Knowledge.Spells, MaintainedSpell{SpellID: "ghost", CastingPlayerID: testPlayer, City: &city})
				env.Knowledge.Terrain.Ptr(city).CityName = "Home"
				env.Knowledge.Terrain.Ptr(city).CityOwnerID = testPlayer
			},
			wantErr: ErrRecordNotFound,
		},
		{
			name: "owner missing from roster",
			mutate: func(q *MovementQuery, env *Environment) {
				env.Players = env.Players[:1]
			},
			wantErr: ErrPlayerNotFound,
		},
		{
			name: "start differs from stack location",
			mutate: func(q *MovementQuery, env *Environment) {
				q.Start = at(1, 1)
			},
			wantErr: ErrInvalidStack,
		},
		{
			name: "empty stack",
			mutate: func(q *MovementQuery, env *Environment) {
				q.Stack = &UnitStack{}
			},
			wantErr: ErrInvalidStack,
		},
		{
			name: "no terrain",
			mutate: func(q *MovementQuery, env *Environment) {
				env.Knowledge = &Knowledge{}
			},
			wantErr: ErrInvalidQuery,
		},
		{
			name: "system mismatch",
			mutate: func(q *MovementQuery, env *Environment) {
				env.System = CoordinateSystem{Width: 9, Height: 9, Planes: 1}
			},
			wantErr: ErrInvalidQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, config)
			query, env := queryFor(t, e, testPlayer, 1)
			tt.mutate(&query, &env)

			result, err := CalculateOverlandMovementDistances(query, env)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
			assert.Nil(t, result)
		})
	}
}

func TestMovement_CustomRules(t *testing.T) {
	config := createTestConfig(5, 5, 1)
	addUnit(config, 1, "walker", testPlayer, at(2, 2))
	e := newTestEngine(t, config)
	query, env := queryFor(t, e, testPlayer, 1)

	env.Rules = &fogRules{
		Rules:  NewStandardRules(env.Database, env.Knowledge),
		hidden: at(1, 2),
	}

	result, err := CalculateOverlandMovementDistances(query, env)
	require.NoError(t, err)

	require.NotNil(t, result.Cell(at(1, 2)))
	assert.Empty(t, referencesTo(result, at(1, 2)))
}

// fogRules reports an unseen ambush at one cell
type fogRules struct {
	Rules
	hidden Coordinate
}

func (r *fogRules) MoveTriggersAttack(movingPlayerID int, to Coordinate) (bool, error) {
	if to == r.hidden {
		return true, nil
	}
	return r.Rules.MoveTriggersAttack(movingPlayerID, to)
}

func TestMovementResult_PathTo(t *testing.T) {
	config := createTestConfig(6, 3, 1)
	addUnit(config, 1, "walker", testPlayer, at(0, 1))
	result := reachFrom(t, config, 1)

	path, err := result.PathTo(at(3, 1))
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, 6, path[2].DoubledCost)
	assert.Equal(t, at(3, 1), path[2].Coordinate)
	for i, step := range path {
		assert.Equal(t, (i+1)*2, step.DoubledCost)
	}

	start, err := result.PathTo(at(0, 1))
	require.NoError(t, err)
	assert.Empty(t, start)

	_, err = result.PathTo(at(9, 9))
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestMovementResult_Legacy(t *testing.T) {
	config := createTestConfig(5, 3, 1)
	setTile(config, at(4, 1), 'O')
	addUnit(config, 1, "walker", testPlayer, at(2, 1))
	result := reachFrom(t, config, 1)

	legacy := result.Legacy()

	require.Len(t, legacy.DoubledDistances, 1)
	require.Len(t, legacy.DoubledDistances[0], 3)
	assert.Equal(t, []int{4, 2, 0, 2, LegacyNotReached}, legacy.DoubledDistances[0][1])
	assert.Equal(t, West, legacy.Directions[0][1][1])
	assert.Equal(t, NoDirection, legacy.Directions[0][1][2])
	assert.Equal(t, []bool{true, true, true, true, false}, legacy.MovedThisTurn[0][1])
}

func TestRenderReachability(t *testing.T) {
	config := createTestConfig(5, 3, 1)
	setTile(config, at(4, 1), 'O')
	addUnit(config, 1, "walker", testPlayer, at(0, 1))
	result := reachFrom(t, config, 1)

	want := "***++\n" +
		"S**+.\n" +
		"***++\n"
	assert.Equal(t, want, RenderReachability(result, 0))
}
