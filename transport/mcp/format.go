package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/overland/game/engine"
	"github.com/wricardo/overland/game/service"
)

// maxListedCells caps how many reachable cells a movement range prints
const maxListedCells = 40

// formatMP renders doubled movement points as whole or half points
func formatMP(doubled int) string {
	if doubled%2 == 0 {
		return fmt.Sprintf("%d", doubled/2)
	}
	return fmt.Sprintf("%d.5", doubled/2)
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nConfig: %s\nCreated: %s\n\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"))

	if cfg := session.GameConfig; cfg != nil {
		fmt.Fprintf(&b, "Map: %dx%d, %d plane(s)", cfg.Width, cfg.Height, cfg.Planes)
		if cfg.WrapsLeftToRight {
			b.WriteString(", wraps left to right")
		}
		if cfg.WrapsTopToBottom {
			b.WriteString(", wraps top to bottom")
		}
		b.WriteString("\n")
		for p, rows := range cfg.Layout {
			fmt.Fprintf(&b, "\nPlane %d:\n%s\n", p, strings.Join(rows, "\n"))
		}
		b.WriteString("\n")
	}

	b.WriteString(formatGameState(session.GameState))
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turn: %d | Orders: %d\n\n", state.Turn, state.TotalMoves)

	units := append([]engine.Unit(nil), state.Units...)
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].OwnerID != units[j].OwnerID {
			return units[i].OwnerID < units[j].OwnerID
		}
		return units[i].ID < units[j].ID
	})

	owner := -1
	for _, u := range units {
		if u.OwnerID != owner {
			owner = u.OwnerID
			fmt.Fprintf(&b, "Player %d:\n", owner)
		}
		fmt.Fprintf(&b, "  #%d %s at %s, %s MP left", u.ID, u.DefinitionID, u.Location, formatMP(u.DoubledMovementRemaining))
		if !u.Alive() {
			fmt.Fprintf(&b, " [%s]", u.Status)
		}
		b.WriteString("\n")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func formatMovementRange(rng *service.MovementRange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stack %v of player %d at %s, %s MP left",
		rng.UnitIDs, rng.PlayerID, rng.Start, formatMP(rng.DoubledMovementRemaining))
	if rng.Transported {
		b.WriteString(" (carried by its transports)")
	}
	fmt.Fprintf(&b, "\nReachable: %d cells, %d this turn\n\n", rng.ReachableCount, rng.ReachableThisTurnCount)

	cells := make([]engine.CellEntry, 0, len(rng.Cells))
	for _, c := range rng.Cells {
		if c.EdgeKind != engine.EdgeStart && c.ReachableThisTurn {
			cells = append(cells, c)
		}
	}
	sort.SliceStable(cells, func(i, j int) bool { return cells[i].DoubledCost < cells[j].DoubledCost })

	if len(cells) > 0 {
		b.WriteString("This turn:\n")
		for i, c := range cells {
			if i == maxListedCells {
				fmt.Fprintf(&b, "  ... %d more\n", len(cells)-maxListedCells)
				break
			}
			fmt.Fprintf(&b, "  %s cost %s", c.Coordinate, formatMP(c.DoubledCost))
			if c.EdgeKind != engine.EdgeAdjacent {
				fmt.Fprintf(&b, " via %s", c.EdgeKind)
			}
			b.WriteString("\n")
		}
	}

	for p, m := range rng.Map {
		fmt.Fprintf(&b, "\nPlane %d:\n%s", p, m)
	}

	return b.String()
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	o := result.Outcome
	switch {
	case o == nil:
		b.WriteString("✗ Move failed\n")
	case o.Arrived():
		fmt.Fprintf(&b, "✓ Arrived at %s\n", o.To)
	default:
		fmt.Fprintf(&b, "✗ Stopped at %s short of %s (%s)\n", o.To, o.Requested, o.StopReason)
	}

	if o != nil {
		steps := make([]string, 0, len(o.Path))
		for _, step := range o.Path {
			steps = append(steps, step.Coordinate.String())
		}
		fmt.Fprintf(&b, "Path: %s -> %s\nCost: %s MP\n", o.From, strings.Join(steps, " -> "), formatMP(o.DoubledCost))
	}

	for _, ev := range result.Events {
		if ev.Type != "move" {
			fmt.Fprintf(&b, "Event: %s\n", ev.Message)
		}
	}

	if result.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", result.Message)
	}

	return b.String()
}

func formatStackEvaluations(playerID int, stacks []service.StackEvaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Player %d has %d stack(s):\n\n", playerID, len(stacks))
	for _, s := range stacks {
		fmt.Fprintf(&b, "• %v at %s, %s MP left\n", s.UnitIDs, s.Location, formatMP(s.DoubledMovementRemaining))
		if s.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", s.Error)
			continue
		}
		fmt.Fprintf(&b, "  reaches %d cells, %d this turn\n", s.ReachableCount, s.ReachableThisTurnCount)
		if s.FarthestThisTurn != nil {
			fmt.Fprintf(&b, "  farthest this turn: %s\n", s.FarthestThisTurn)
		}
		if len(s.CombatTargets) > 0 {
			targets := make([]string, len(s.CombatTargets))
			for i, c := range s.CombatTargets {
				targets[i] = c.String()
			}
			fmt.Fprintf(&b, "  combat in reach: %s\n", strings.Join(targets, ", "))
		}
	}
	return b.String()
}

func formatCellDescription(cell *service.CellDescription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s: %s", cell.Location, cell.TileName)
	if cell.TileType != "" && cell.TileType != cell.TileName {
		fmt.Fprintf(&b, " (%s)", cell.TileType)
	}
	b.WriteString("\n")

	if cell.Feature != "" {
		fmt.Fprintf(&b, "Feature: %s", cell.Feature)
		if cell.TriggersCombat {
			b.WriteString(" (entering starts combat)")
		}
		b.WriteString("\n")
	}
	if cell.Road != engine.NoRoad {
		fmt.Fprintf(&b, "Road: %s\n", cell.Road)
	}
	if cell.Tower {
		b.WriteString("Tower: links every plane\n")
	}
	if cell.City != "" {
		fmt.Fprintf(&b, "City: %s (player %d)\n", cell.City, cell.CityOwner)
	}
	if len(cell.Spells) > 0 {
		fmt.Fprintf(&b, "Spells: %s\n", strings.Join(cell.Spells, ", "))
	}

	if len(cell.Units) == 0 {
		b.WriteString("Units: none\n")
	} else {
		b.WriteString("Units:\n")
		for _, u := range cell.Units {
			fmt.Fprintf(&b, "  #%d %s (player %d), %s MP left\n", u.ID, u.DefinitionID, u.OwnerID, formatMP(u.DoubledMovementRemaining))
		}
	}

	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order History (Page %d/%d, %d total):\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%s #%d turn %d: player %d moved %v %s -> %s (cost %s)",
			status, move.MoveNumber, move.Turn, move.PlayerID, move.UnitIDs, move.From, move.To, formatMP(move.DoubledCost))
		if move.To != move.Requested {
			fmt.Fprintf(&b, ", asked for %s", move.Requested)
		}
		b.WriteString("\n")
	}

	if history.HasNext {
		b.WriteString("\n(more on the next page)")
	}

	return b.String()
}
