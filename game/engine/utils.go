package engine

import "strings"

// ChebyshevDistance returns the number of king moves between two cells on the same plane,
// honoring the wrap rules of the coordinate system
func ChebyshevDistance(sys CoordinateSystem, from, to Coordinate) int {
	dx := abs(from.X - to.X)
	if sys.WrapsLeftToRight && sys.Width-dx < dx {
		dx = sys.Width - dx
	}
	dy := abs(from.Y - to.Y)
	if sys.WrapsTopToBottom && sys.Height-dy < dy {
		dy = sys.Height - dy
	}
	return max(dx, dy)
}

// RenderTerrain draws one plane of the terrain as text using the scenario legend.
// Towers print as T and cities as C, unknown tile types as '?'.
func RenderTerrain(terrain *Grid[TerrainCell], legend map[string]string, plane int) string {
	chars := make(map[string]string, len(legend))
	for char, tile := range legend {
		chars[tile] = char
	}

	sys := terrain.System()
	var b strings.Builder
	for y := 0; y < sys.Height; y++ {
		for x := 0; x < sys.Width; x++ {
			cell := terrain.Get(Coordinate{X: x, Y: y, Plane: plane})
			switch {
			case cell.HasCity():
				b.WriteByte('C')
			case cell.Tower:
				b.WriteByte('T')
			default:
				if char, ok := chars[cell.TileTypeID]; ok {
					b.WriteString(char)
				} else {
					b.WriteByte('?')
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderReachability draws one plane of a movement result: S is the start, * a cell
// reachable this turn, + a cell reachable on a later turn and . a cell not reached
func RenderReachability(result *MovementResult, plane int) string {
	sys := result.System()
	var b strings.Builder
	for y := 0; y < sys.Height; y++ {
		for x := 0; x < sys.Width; x++ {
			c := Coordinate{X: x, Y: y, Plane: plane}
			cell := result.Cell(c)
			switch {
			case cell == nil:
				b.WriteByte('.')
			case cell.EdgeKind == EdgeStart:
				b.WriteByte('S')
			case cell.ReachableThisTurn:
				b.WriteByte('*')
			default:
				b.WriteByte('+')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
