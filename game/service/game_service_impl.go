package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/overland/game/engine"
	"github.com/wricardo/overland/logging"
)

// DefaultEvaluationWorkers bounds how many stacks EvaluateStacks searches at once
const DefaultEvaluationWorkers = 4

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	metrics  *Metrics
	workers  int
	log      *logrus.Entry
	mu       sync.RWMutex
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(sess *Session) string {
	if sess.ConfigID != "" {
		return sess.ConfigID
	}
	configName := sess.Config.Name
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance with unregistered metrics
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return NewGameServiceWithMetrics(sessions, configs, NewMetrics(nil))
}

// NewGameServiceWithMetrics creates a new game service reporting to the given metrics
func NewGameServiceWithMetrics(sessions SessionManager, configs ConfigManager, metrics *Metrics) GameService {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		metrics:  metrics,
		workers:  DefaultEvaluationWorkers,
		log:      logging.Component("service"),
	}
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess), // Return the config_id, not the display name
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// getSession looks a session up and touches its last access time
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist saves a session after a state change, logging instead of failing
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"after":      after,
		}).WithError(err).Warn("failed to persist session")
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.ScenarioConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: config '%s' not found. Available configs: %v", err, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: config '%s' not found. Use /api/configs to list available configurations", err, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.ConfigID = configName
	if sess.ConfigID == "" {
		sess.ConfigID = s.getConfigID(sess)
	}
	s.persist(sess.ID, "create")
	s.metrics.sessionsCreated.Inc()

	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"config":     sess.ConfigID,
	}).Info("session created")

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// MovementRange runs a movement query for a stack of the session
func (s *gameServiceImpl) MovementRange(ctx context.Context, sessionID string, playerID int, unitIDs []int, opts MovementOptions) (*MovementRange, error) {
	if len(unitIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one unit id is required", ErrInvalidRequest)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, stack, err := sess.Engine.CalculateMovement(playerID, unitIDs)
	s.metrics.queryDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.movementQueries.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("movement query: %w", err)
	}
	s.metrics.movementQueries.WithLabelValues("ok").Inc()
	s.metrics.reachableCells.Observe(float64(result.CountReachable()))

	rng := &MovementRange{
		PlayerID:                 playerID,
		UnitIDs:                  stack.UnitIDs(),
		Start:                    result.Start,
		DoubledMovementRemaining: result.DoubledMovementRemaining,
		Transported:              stack.Transported(),
		ReachableCount:           result.CountReachable(),
		ReachableThisTurnCount:   result.CountReachableThisTurn(),
		Cells:                    result.Entries(),
	}
	if opts.IncludeMap {
		for p := 0; p < result.System().Planes; p++ {
			rng.Map = append(rng.Map, engine.RenderReachability(result, p))
		}
	}
	if opts.IncludeLegacy {
		legacy := result.Legacy()
		rng.Legacy = &legacy
	}

	return rng, nil
}

// MoveStack executes a move order for a stack of the session
func (s *gameServiceImpl) MoveStack(ctx context.Context, sessionID string, playerID int, unitIDs []int, dest engine.Coordinate) (*MoveResult, error) {
	if len(unitIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one unit id is required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.Engine.MoveStack(playerID, unitIDs, dest)
	if err != nil {
		s.metrics.ordersExecuted.WithLabelValues("rejected").Inc()
		return nil, err
	}
	s.metrics.ordersExecuted.WithLabelValues(string(outcome.StopReason)).Inc()

	state := sess.Engine.GetState()
	to := outcome.To
	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Stack moved from %s to %s", outcome.From, outcome.To),
		Timestamp: time.Now(),
		Location:  &to,
	}}
	switch outcome.StopReason {
	case engine.StopCombat:
		events = append(events, GameEvent{
			Type:      "combat_ahead",
			Message:   "Stack halted in front of a hostile cell",
			Timestamp: time.Now(),
			Location:  &to,
		})
	case engine.StopOutOfMoves:
		events = append(events, GameEvent{
			Type:      "out_of_movement",
			Message:   fmt.Sprintf("Stack ran out of movement short of %s", outcome.Requested),
			Timestamp: time.Now(),
			Location:  &to,
		})
	}

	s.log.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"player_id":   playerID,
		"order_id":    outcome.OrderID,
		"to":          outcome.To.String(),
		"stop_reason": outcome.StopReason,
	}).Info("order executed")

	s.persist(sessionID, "move")

	return &MoveResult{
		Success:   outcome.Arrived(),
		Outcome:   outcome,
		GameState: state,
		Message:   state.Message,
		Events:    events,
	}, nil
}

// DescribeCell reports terrain, feature, city, spells and units of one cell
func (s *gameServiceImpl) DescribeCell(ctx context.Context, sessionID string, c engine.Coordinate) (*CellDescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	knowledge := sess.Engine.Knowledge()
	if !knowledge.Terrain.System().Contains(c) {
		return nil, fmt.Errorf("%w: %s is outside the map", ErrInvalidRequest, c)
	}

	db := sess.Engine.Database()
	cell := knowledge.Terrain.Get(c)
	desc := &CellDescription{
		Location:  c,
		TileType:  cell.TileTypeID,
		Feature:   cell.MapFeatureID,
		Road:      cell.Road,
		Tower:     cell.Tower,
		City:      cell.CityName,
		CityOwner: cell.CityOwnerID,
		Units:     []engine.Unit{},
	}

	tile, err := db.FindTileType(cell.TileTypeID)
	if err != nil {
		return nil, err
	}
	desc.TileName = tile.Name

	if cell.MapFeatureID != "" {
		feature, err := db.FindMapFeature(cell.MapFeatureID)
		if err != nil {
			return nil, err
		}
		desc.TriggersCombat = feature.TriggersCombat
	}

	for _, spell := range knowledge.Spells {
		if spell.City != nil && *spell.City == c {
			desc.Spells = append(desc.Spells, spell.SpellID)
		}
	}
	for _, u := range knowledge.Units {
		if u.Alive() && u.Location == c {
			desc.Units = append(desc.Units, u)
		}
	}

	return desc, nil
}

// EndTurn advances the session to the next turn
func (s *gameServiceImpl) EndTurn(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.EndTurn()
	s.persist(sessionID, "end_turn")
	return state, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.persist(sessionID, "reset")
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	var moves []engine.MoveHistoryEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = history[start:end]
	}

	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available scenario configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific scenario configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.ScenarioConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a scenario configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.ScenarioConfig) error {
	return s.configs.SaveConfig(configName, config)
}
