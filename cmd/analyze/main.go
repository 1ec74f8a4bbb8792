// Command analyze prints quick, human-readable reachability statistics for the
// scenario files in the configs directory. For every starting stack it runs a
// movement query and reports how much of the map the stack reaches, how much
// of it this turn, and how many cells are only reachable through gates.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/overland/game/engine"
)

// StackAnalysis summarizes one movement query
type StackAnalysis struct {
	PlayerID          int
	UnitIDs           []int
	Location          engine.Coordinate
	Reachable         int
	ReachableThisTurn int
	ViaEarthGate      int
	ViaAstralGate     int
	PlanesReached     int
	Err               error
}

// ScenarioAnalysis is the report for one scenario file
type ScenarioAnalysis struct {
	Name     string
	Cells    int
	Planes   int
	Terrain  map[string]int
	Towers   int
	Stacks   []StackAnalysis
	Isolated int
}

func analyzeScenario(cfg *engine.ScenarioConfig) (*ScenarioAnalysis, error) {
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	sys := cfg.System()
	analysis := &ScenarioAnalysis{
		Name:    cfg.Name,
		Cells:   sys.CellCount(),
		Planes:  cfg.Planes,
		Terrain: map[string]int{},
		Towers:  len(cfg.Towers),
	}

	for _, rows := range cfg.Layout {
		for _, row := range rows {
			for _, char := range row {
				analysis.Terrain[cfg.Legend[string(char)]]++
			}
		}
	}

	for _, player := range eng.Players() {
		for _, group := range eng.Stacks(player.ID) {
			stack := StackAnalysis{
				PlayerID: player.ID,
				UnitIDs:  group.UnitIDs,
				Location: group.Location,
			}

			result, _, err := eng.CalculateMovement(player.ID, group.UnitIDs)
			if err != nil {
				stack.Err = err
				analysis.Stacks = append(analysis.Stacks, stack)
				continue
			}

			planes := map[int]bool{}
			for _, entry := range result.Entries() {
				planes[entry.Coordinate.Plane] = true
				switch entry.EdgeKind {
				case engine.EdgeEarthGate:
					stack.ViaEarthGate++
				case engine.EdgeAstralGate:
					stack.ViaAstralGate++
				}
			}
			stack.Reachable = result.CountReachable()
			stack.ReachableThisTurn = result.CountReachableThisTurn()
			stack.PlanesReached = len(planes)
			if stack.Reachable <= 1 {
				analysis.Isolated++
			}

			analysis.Stacks = append(analysis.Stacks, stack)
		}
	}

	return analysis, nil
}

func percent(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return humanize.FtoaWithDigits(float64(part)*100/float64(total), 1) + "%"
}

func printAnalysis(w io.Writer, a *ScenarioAnalysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Cells: %s on %d plane(s), %d tower(s)\n", humanize.Comma(int64(a.Cells)), a.Planes, a.Towers)

	tiles := make([]string, 0, len(a.Terrain))
	for tile := range a.Terrain {
		tiles = append(tiles, tile)
	}
	sort.Strings(tiles)
	parts := make([]string, len(tiles))
	for i, tile := range tiles {
		parts[i] = fmt.Sprintf("%s %s", tile, percent(a.Terrain[tile], a.Cells))
	}
	fmt.Fprintf(w, "Terrain: %s\n", strings.Join(parts, ", "))

	for _, s := range a.Stacks {
		fmt.Fprintf(w, "Player %d stack %v at %s: ", s.PlayerID, s.UnitIDs, s.Location)
		if s.Err != nil {
			fmt.Fprintf(w, "error: %v\n", s.Err)
			continue
		}
		fmt.Fprintf(w, "reaches %s cells (%s), %s this turn, %d plane(s)",
			humanize.Comma(int64(s.Reachable)), percent(s.Reachable, a.Cells),
			humanize.Comma(int64(s.ReachableThisTurn)), s.PlanesReached)
		if s.ViaEarthGate > 0 || s.ViaAstralGate > 0 {
			fmt.Fprintf(w, ", gates: %d earth, %d astral", s.ViaEarthGate, s.ViaAstralGate)
		}
		fmt.Fprintln(w)
	}

	if a.Isolated > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d stack(s) cannot leave their cell\n", a.Isolated)
	} else {
		fmt.Fprintf(w, "✅ Every stack can move\n")
	}
}

func analyzeFile(w io.Writer, path string) {
	cfg, err := engine.LoadScenarioConfig(path)
	if err != nil {
		fmt.Fprintf(w, "Error loading scenario: %v\n", err)
		return
	}
	analysis, err := analyzeScenario(cfg)
	if err != nil {
		fmt.Fprintf(w, "Error building scenario: %v\n", err)
		return
	}
	printAnalysis(w, analysis)
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "print reachability statistics for scenario files",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
					matches, err := filepath.Glob(filepath.Join(cmd.String("dir"), pattern))
					if err != nil {
						return err
					}
					files = append(files, matches...)
				}
				sort.Strings(files)
			}

			for _, file := range files {
				fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
				analyzeFile(os.Stdout, file)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
