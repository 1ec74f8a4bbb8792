package service

import (
	"time"

	"github.com/wricardo/overland/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string                 `json:"id"`
	ConfigName     string                 `json:"config_name"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	GameState      *engine.GameState      `json:"game_state"`
	GameConfig     *engine.ScenarioConfig `json:"game_config"`
}

// MovementRange is the answer to a movement query for one stack
type MovementRange struct {
	PlayerID                 int                 `json:"player_id"`
	UnitIDs                  []int               `json:"unit_ids"`
	Start                    engine.Coordinate   `json:"start"`
	DoubledMovementRemaining int                 `json:"doubled_movement_remaining"`
	Transported              bool                `json:"transported"`
	ReachableCount           int                 `json:"reachable_count"`
	ReachableThisTurnCount   int                 `json:"reachable_this_turn_count"`
	Cells                    []engine.CellEntry  `json:"cells"`
	Map                      []string            `json:"map,omitempty"`
	Legacy                   *engine.LegacyGrids `json:"legacy,omitempty"`
}

// MovementOptions tunes what a movement query returns
type MovementOptions struct {
	IncludeMap    bool `json:"include_map"`
	IncludeLegacy bool `json:"include_legacy"`
}

// MoveResult contains the result of an executed order
type MoveResult struct {
	Success   bool                `json:"success"`
	Outcome   *engine.MoveOutcome `json:"outcome"`
	GameState *engine.GameState   `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string             `json:"type"` // "move", "combat_ahead", "out_of_movement", "end_turn", "reset"
	Message   string             `json:"message"`
	Timestamp time.Time          `json:"timestamp"`
	Location  *engine.Coordinate `json:"location,omitempty"`
}

// StackEvaluation summarizes what one stack of a player can do this turn
type StackEvaluation struct {
	Location                 engine.Coordinate   `json:"location"`
	UnitIDs                  []int               `json:"unit_ids"`
	DoubledMovementRemaining int                 `json:"doubled_movement_remaining"`
	ReachableCount           int                 `json:"reachable_count"`
	ReachableThisTurnCount   int                 `json:"reachable_this_turn_count"`
	FarthestThisTurn         *engine.Coordinate  `json:"farthest_this_turn,omitempty"`
	CombatTargets            []engine.Coordinate `json:"combat_targets,omitempty"`
	Error                    string              `json:"error,omitempty"`
}

// CellDescription is everything a player knows about one map cell
type CellDescription struct {
	Location       engine.Coordinate `json:"location"`
	TileType       string            `json:"tile_type"`
	TileName       string            `json:"tile_name"`
	Feature        string            `json:"feature,omitempty"`
	TriggersCombat bool              `json:"triggers_combat"`
	Road           engine.RoadKind   `json:"road,omitempty"`
	Tower          bool              `json:"tower"`
	City           string            `json:"city,omitempty"`
	CityOwner      int               `json:"city_owner,omitempty"`
	Spells         []string          `json:"spells,omitempty"`
	Units          []engine.Unit     `json:"units"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a scenario configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Planes      int    `json:"planes"`
	Players     int    `json:"players"`
	Units       int    `json:"units"`
}
