package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/overland/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Movement
	MovementRange(ctx context.Context, sessionID string, playerID int, unitIDs []int, opts MovementOptions) (*MovementRange, error)
	MoveStack(ctx context.Context, sessionID string, playerID int, unitIDs []int, dest engine.Coordinate) (*MoveResult, error)
	EvaluateStacks(ctx context.Context, sessionID string, playerID int) ([]StackEvaluation, error)
	DescribeCell(ctx context.Context, sessionID string, c engine.Coordinate) (*CellDescription, error)

	// Turn flow
	EndTurn(ctx context.Context, sessionID string) (*engine.GameState, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.ScenarioConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.ScenarioConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.ScenarioConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.ScenarioConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles scenario configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.ScenarioConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.ScenarioConfig
	SaveConfig(name string, config *engine.ScenarioConfig) error
}

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.ScenarioConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
