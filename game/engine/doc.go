// Package engine provides the overland movement engine.
//
// The engine package answers one question for a stack of units standing on a
// multi-plane grid map: which cells can it reach, at what cost, which of them
// this turn, and along which path. It implements:
//   - Doubled movement point costs per tile type, roads, and stack-wide skills
//   - Transport capacity shared between our ships and units that need carrying
//   - Earth Gate and Astral Gate warp edges and towers joining the planes
//   - Truncation of movement at enemy stacks, enemy cities and lairs
//   - A stateful scenario engine executing orders turn by turn
//
// Core Types:
//
// CalculateOverlandMovementDistances is the stateless entry point. It takes a
// MovementQuery (start, moving player, UnitStack, remaining movement) and an
// Environment (Knowledge snapshot, player roster, CoordinateSystem, Database and
// Rules) and returns a MovementResult, a grid holding a CellResult for every
// reached cell and nil everywhere else.
//
// The Engine interface wraps a ScenarioConfig loaded from JSON or YAML and keeps
// unit positions, remaining movement, the turn counter and order history.
//
// Usage:
//
//	config, err := engine.LoadScenarioConfig("configs/default.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Show where units 1 and 2 of player 1 can go
//	result, _, err := gameEngine.CalculateMovement(1, []int{1, 2})
//	fmt.Print(engine.RenderReachability(result, 0))
//
//	// Send them towards (5,3) on plane 0
//	outcome, err := gameEngine.MoveStack(1, []int{1, 2}, engine.Coordinate{X: 5, Y: 3})
//
// Movement Rules:
//
// All costs are doubled movement points so half moves stay integral: one move is
// 2. A cell counts as reachable this turn while the stack still had movement left
// before the step into it, so a unit with half a move left may always try one more
// step. The search relaxes costs breadth first with a FIFO queue and rewrites a
// cell whenever a strictly cheaper path shows up; only the minimum cost is stable,
// equal-cost predecessor chains are not.
package engine
