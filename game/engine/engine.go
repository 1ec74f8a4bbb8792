package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wricardo/overland/logging"
)

// ErrCombatRequired means the first step of an order would start a fight
var ErrCombatRequired = errors.New("move triggers combat")

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	EndTurn() *GameState

	// Configuration
	GetConfig() *ScenarioConfig
	SetConfig(config *ScenarioConfig) error
	Database() Database
	Knowledge() *Knowledge
	Players() []Player

	// Movement
	CalculateMovement(playerID int, unitIDs []int) (*MovementResult, *UnitStack, error)
	CalculateMovementOn(knowledge *Knowledge, playerID int, unitIDs []int) (*MovementResult, *UnitStack, error)
	MoveStack(playerID int, unitIDs []int, dest Coordinate) (*MoveOutcome, error)
	Stacks(playerID int) []StackGroup

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// StopReason explains why an order ended where it did
type StopReason string

const (
	StopArrived    StopReason = "arrived"
	StopOutOfMoves StopReason = "out_of_movement"
	StopCombat     StopReason = "combat_ahead"
)

// MoveOutcome describes an executed order
type MoveOutcome struct {
	OrderID     string     `json:"order_id"`
	From        Coordinate `json:"from"`
	To          Coordinate `json:"to"`
	Requested   Coordinate `json:"requested"`
	Path        []PathStep `json:"path"`
	DoubledCost int        `json:"doubled_cost"`
	StopReason  StopReason `json:"stop_reason"`
}

// Arrived reports whether the stack reached the requested cell
func (o *MoveOutcome) Arrived() bool {
	return o.StopReason == StopArrived
}

// StackGroup is the set of a player's living units sharing one cell
type StackGroup struct {
	Location Coordinate `json:"location"`
	UnitIDs  []int      `json:"unit_ids"`
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state   *GameState
	config  *ScenarioConfig
	catalog *Catalog
	terrain *Grid[TerrainCell]
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *ScenarioConfig) (*GameEngine, error) {
	e := &GameEngine{}
	if err := e.SetConfig(config); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates a new game engine running DefaultScenarioConfig
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultScenarioConfig())
	if err != nil {
		panic(fmt.Sprintf("default scenario is invalid: %v", err))
	}
	return e
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	for _, u := range state.Units {
		if _, err := e.catalog.FindUnitDefinition(u.DefinitionID); err != nil {
			return err
		}
		if !e.terrain.System().Contains(u.Location) {
			return fmt.Errorf("unit %d is outside the map at %s", u.ID, u.Location)
		}
	}
	e.state = state
	return nil
}

// Reset resets the scenario to its starting positions
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves

	e.state = InitGameStateFromConfig(e.config)

	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal

	return e.state
}

// EndTurn advances the turn counter and restores every living unit's movement
func (e *GameEngine) EndTurn() *GameState {
	e.state.Turn++
	for i := range e.state.Units {
		u := &e.state.Units[i]
		if !u.Alive() {
			continue
		}
		if def, err := e.catalog.FindUnitDefinition(u.DefinitionID); err == nil {
			u.DoubledMovementRemaining = def.DoubledMovement
		}
	}
	e.state.Message = fmt.Sprintf("Turn %d begins", e.state.Turn)
	return e.state
}

// GetConfig returns the current scenario configuration
func (e *GameEngine) GetConfig() *ScenarioConfig {
	return e.config
}

// SetConfig sets a new scenario configuration and resets the game
func (e *GameEngine) SetConfig(config *ScenarioConfig) error {
	if err := ValidateScenarioConfig(config); err != nil {
		return err
	}

	e.config = config
	e.catalog = config.Catalog()
	e.terrain = config.Terrain()
	e.state = InitGameStateFromConfig(config)
	return nil
}

// Database returns the scenario catalog
func (e *GameEngine) Database() Database {
	return e.catalog
}

// Knowledge returns a fresh snapshot of the map with the current unit positions
func (e *GameEngine) Knowledge() *Knowledge {
	return e.config.knowledgeOn(e.terrain, e.state.Units)
}

// Players returns the player roster
func (e *GameEngine) Players() []Player {
	return append([]Player(nil), e.config.Players...)
}

// CalculateMovement runs a movement query for the given units of a player
func (e *GameEngine) CalculateMovement(playerID int, unitIDs []int) (*MovementResult, *UnitStack, error) {
	return e.CalculateMovementOn(e.Knowledge(), playerID, unitIDs)
}

// CalculateMovementOn runs a movement query against a caller-owned knowledge snapshot.
// It only reads engine state, so concurrent calls are safe while nothing mutates the engine.
func (e *GameEngine) CalculateMovementOn(knowledge *Knowledge, playerID int, unitIDs []int) (*MovementResult, *UnitStack, error) {
	if len(unitIDs) > MaxUnitsPerStack {
		return nil, nil, invalidStack("%d units exceed the maximum of %d per stack", len(unitIDs), MaxUnitsPerStack)
	}

	units := make([]Unit, 0, len(unitIDs))
	for _, id := range unitIDs {
		u, ok := e.state.FindUnit(id)
		if !ok {
			return nil, nil, invalidStack("unknown unit %d", id)
		}
		units = append(units, *u)
	}

	stack, err := NewUnitStack(units, playerID, e.catalog)
	if err != nil {
		return nil, nil, err
	}

	result, err := CalculateOverlandMovementDistances(MovementQuery{
		Start:                    stack.Location(),
		MovingPlayerID:           playerID,
		Stack:                    stack,
		DoubledMovementRemaining: stack.DoubledMovementRemaining(),
	}, Environment{
		Knowledge: knowledge,
		Players:   e.config.Players,
		System:    e.terrain.System(),
		Database:  e.catalog,
		Rules:     NewStandardRules(e.catalog, knowledge),
	})
	if err != nil {
		return nil, nil, err
	}

	return result, stack, nil
}

// MoveStack executes an order moving the units towards dest. The stack follows the
// cheapest path and stops at the last cell it can enter this turn, or in front of a
// cell that would start a fight.
func (e *GameEngine) MoveStack(playerID int, unitIDs []int, dest Coordinate) (*MoveOutcome, error) {
	log := logging.Component("engine").WithFields(logrus.Fields{
		"player_id": playerID,
		"unit_ids":  unitIDs,
		"requested": dest,
	})

	result, stack, err := e.CalculateMovement(playerID, unitIDs)
	if err != nil {
		return nil, err
	}

	from := stack.Location()
	if dest == from {
		return nil, fmt.Errorf("%w: stack is already at %s", ErrUnreachable, dest)
	}
	if stack.DoubledMovementRemaining() <= 0 {
		return nil, ErrNoMovementLeft
	}

	path, err := result.PathTo(dest)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		// dest is the stack's own tower seen from another plane
		return nil, fmt.Errorf("%w: stack is already at %s", ErrUnreachable, dest)
	}

	rules := NewStandardRules(e.catalog, e.Knowledge())
	outcome := &MoveOutcome{
		OrderID:    uuid.NewString(),
		From:       from,
		To:         from,
		Requested:  dest,
		StopReason: StopArrived,
	}

	for _, step := range path {
		if !step.ReachableThisTurn {
			outcome.StopReason = StopOutOfMoves
			break
		}
		attack, err := rules.MoveTriggersAttack(playerID, step.Coordinate)
		if err != nil {
			return nil, err
		}
		if attack {
			outcome.StopReason = StopCombat
			break
		}
		outcome.Path = append(outcome.Path, step)
		outcome.To = step.Coordinate
		outcome.DoubledCost = step.DoubledCost
	}

	if len(outcome.Path) == 0 {
		if outcome.StopReason == StopCombat {
			return nil, fmt.Errorf("%w at %s", ErrCombatRequired, path[0].Coordinate)
		}
		return nil, ErrNoMovementLeft
	}

	for _, id := range stack.UnitIDs() {
		u, _ := e.state.FindUnit(id)
		u.Location = outcome.To
		u.DoubledMovementRemaining = max(0, u.DoubledMovementRemaining-outcome.DoubledCost)
	}

	e.state.addMoveToHistory(playerID, stack.UnitIDs(), outcome)
	e.state.Message = fmt.Sprintf("Stack moved from %s to %s (%s)", from, outcome.To, outcome.StopReason)

	log.WithFields(logrus.Fields{
		"order_id":     outcome.OrderID,
		"to":           outcome.To,
		"doubled_cost": outcome.DoubledCost,
		"stop_reason":  outcome.StopReason,
		"steps":        len(outcome.Path),
	}).Debug("order executed")

	return outcome, nil
}

// Stacks groups a player's living units by cell, in plane, row, column order
func (e *GameEngine) Stacks(playerID int) []StackGroup {
	byCell := make(map[Coordinate][]int)
	for _, u := range e.state.Units {
		if u.Alive() && u.OwnerID == playerID {
			byCell[u.Location] = append(byCell[u.Location], u.ID)
		}
	}

	set := make(CoordinateSet, len(byCell))
	for c := range byCell {
		set.Add(c)
	}

	groups := make([]StackGroup, 0, len(byCell))
	for _, c := range sortedCoordinates(set) {
		ids := byCell[c]
		sort.Ints(ids)
		groups = append(groups, StackGroup{Location: c, UnitIDs: ids})
	}
	return groups
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// addMoveToHistory records an executed order
func (gs *GameState) addMoveToHistory(playerID int, unitIDs []int, outcome *MoveOutcome) {
	gs.TotalMoves++

	path := make([]Coordinate, len(outcome.Path))
	for i, step := range outcome.Path {
		path[i] = step.Coordinate
	}

	gs.MoveHistory = append(gs.MoveHistory, MoveHistoryEntry{
		OrderID:     outcome.OrderID,
		PlayerID:    playerID,
		UnitIDs:     unitIDs,
		From:        outcome.From,
		To:          outcome.To,
		Requested:   outcome.Requested,
		DoubledCost: outcome.DoubledCost,
		Path:        path,
		Turn:        gs.Turn,
		Timestamp:   time.Now().Unix(),
		Success:     outcome.Arrived(),
		MoveNumber:  gs.TotalMoves,
	})
}
