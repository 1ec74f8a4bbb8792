// Command validate checks scenario files in a configuration directory. It checks:
//   - the document against the embedded JSON Schema (structure, types, ranges)
//   - scenario consistency: layout versus legend, known ids, units and cities on the map
//   - mobility: every starting stack can reach at least one other cell
//
// JSON and YAML scenarios are both supported.
package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/overland/game/engine"
)

//go:embed scenario.schema.json
var scenarioSchemaText string

var scenarioSchema = jsonschema.MustCompileString("scenario.schema.json", scenarioSchemaText)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func formatOf(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// decodeDocument decodes a scenario into generic JSON values for schema validation.
// YAML documents are round-tripped through JSON so numbers and maps match what
// encoding/json produces.
func decodeDocument(data []byte, format string) (any, error) {
	var doc any
	if format == "yaml" {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		normalized, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("YAML is not representable as JSON: %w", err)
		}
		data = normalized
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return doc, nil
}

// schemaErrors flattens a schema validation error into one line per failing location
func schemaErrors(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var lines []string
	for _, e := range ve.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		location := e.InstanceLocation
		if location == "" {
			location = "/"
		}
		lines = append(lines, fmt.Sprintf("Schema: %s: %s", location, e.Error))
	}
	if len(lines) == 0 {
		lines = append(lines, fmt.Sprintf("Schema: %v", ve))
	}
	return lines
}

// validateConfig loads and validates a single scenario file.
// It performs schema checks, semantic scenario validation, and a mobility
// analysis of every starting stack.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	format := formatOf(filePath)
	doc, err := decodeDocument(data, format)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	if err := scenarioSchema.Validate(doc); err != nil {
		for _, line := range schemaErrors(err) {
			result.fail("%s", line)
		}
		return result
	}

	config, err := engine.ParseScenarioConfig(data, format)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	mobility := validateMobility(config)
	result.Errors = append(result.Errors, mobility.Errors...)
	if !mobility.Valid {
		result.Valid = false
		return result
	}

	gates := map[engine.GateEffect]int{}
	catalog := config.Catalog()
	for _, ms := range config.MaintainedSpells {
		if spell, err := catalog.FindSpell(ms.SpellID); err == nil && spell.Effect != "" {
			gates[spell.Effect]++
		}
	}

	result.info("✓ Name: %s", config.Name)
	result.info("✓ Map: %dx%d, %d plane(s)", config.Width, config.Height, config.Planes)
	result.info("✓ Players: %d, units: %d, cities: %d", len(config.Players), len(config.Units), len(config.Cities))
	result.info("✓ Towers: %d, earth gates: %d, astral gates: %d",
		len(config.Towers), gates[engine.EarthGateSpell], gates[engine.AstralGateSpell])

	return result
}

// validateMobility runs a movement query for every starting stack. A stack
// that cannot leave its cell is an error.
func validateMobility(config *engine.ScenarioConfig) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		result.fail("Cannot build scenario: %v", err)
		return result
	}

	stacks, stuck := 0, 0
	for _, player := range eng.Players() {
		for _, group := range eng.Stacks(player.ID) {
			stacks++
			movement, _, err := eng.CalculateMovement(player.ID, group.UnitIDs)
			if err != nil {
				result.fail("Stack %v of player %d at %s: %v", group.UnitIDs, player.ID, group.Location, err)
				continue
			}
			if movement.CountReachable() <= 1 {
				stuck++
				result.fail("Stack %v of player %d at %s cannot move anywhere", group.UnitIDs, player.ID, group.Location)
			}
		}
	}

	if stuck == 0 && result.Valid {
		result.info("✓ Mobility: all %d starting stacks can move", stacks)
	}
	return result
}

// scenarioFiles lists the scenario files of a directory in name order
func scenarioFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// report prints one result and returns whether it was valid
func report(result ValidationResult) bool {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Errors {
			fmt.Println("  " + info)
		}
		return true
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Println("  ❌ " + err)
		}
	}
	return false
}

func run(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		var err error
		files, err = scenarioFiles(cmd.String("dir"))
		if err != nil {
			return fmt.Errorf("finding scenario files: %w", err)
		}
	}
	if len(files) == 0 {
		return cli.Exit(fmt.Sprintf("no scenario files in %s", cmd.String("dir")), 1)
	}

	allValid := true
	for _, file := range files {
		if !report(validateConfig(file)) {
			allValid = false
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return cli.Exit("❌ Some scenarios have errors", 1)
	}
	fmt.Println("✅ All scenarios are valid!")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check scenario files against the schema and the movement rules",
		ArgsUsage: "[file ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "directory scanned when no files are given",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
