package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/overland/game/engine"
	"github.com/wricardo/overland/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Overland Movement",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Overland Movement - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Each session holds a multi-plane map with units owned by players. Units on
the same cell form a stack and move together. Ask where a stack can go with
movement_range, then order it with move_stack. Movement refills on end_turn.

AVAILABLE TOOLS:
- create_session / get_session / list_sessions: manage sessions
- game_state: units and turn of a session
- movement_range: every cell a stack can reach, with costs
- move_stack: move a stack toward a destination
- end_turn: refill movement and advance the turn
- reset_game: restore the starting state
- move_history: past orders
- evaluate_stacks: what every stack of a player can do this turn
- describe_cell: what a player knows about one cell
- list_configs / generate_scenario: available and random scenarios
- game_instructions: movement rules in detail

Costs are reported doubled: 2 is one full movement point.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func unitIDsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "integer"},
		"description": "IDs of the units to move together. They must share one cell.",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new session from a scenario (optional config_id, see list_configs)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Scenario to use (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Movement
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the turn and every unit of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "movement_range",
		Description: "List every cell a stack can reach and what it costs. Cells with reachable_this_turn can be reached before movement runs out.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Player owning the units",
				},
				"unit_ids": unitIDsProperty(),
				"include_map": map[string]interface{}{
					"type":        "boolean",
					"description": "Also draw the reachable area per plane (S start, * this turn, + later turn, . unreached)",
				},
			},
			Required: []string{"session_id", "player_id", "unit_ids"},
		},
	}, c.handleMovementRange)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_stack",
		Description: "Move a stack toward a cell. The stack stops early when movement runs out or the next step would start combat.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Player owning the units",
				},
				"unit_ids": unitIDsProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Destination column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Destination row (0-based)",
				},
				"plane": map[string]interface{}{
					"type":        "integer",
					"description": "Destination plane (0 when omitted)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "player_id", "unit_ids", "x", "y"},
		},
	}, c.handleMoveStack)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "evaluate_stacks",
		Description: "Summarize every stack of a player: movement left, reach this turn and hostile cells in range",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"player_id": map[string]interface{}{
					"type":        "integer",
					"description": "Player to evaluate",
				},
			},
			Required: []string{"session_id", "player_id"},
		},
	}, c.handleEvaluateStacks)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get terrain, feature, road, city, tower, spells and units of a single cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column (0-based)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row (0-based)",
				},
				"plane": map[string]interface{}{
					"type":        "integer",
					"description": "Plane (0 when omitted)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Turn flow
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "end_turn",
		Description: "End the turn: every unit gets its full movement back",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleEndTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the session to the scenario's starting state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get order history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Scenarios
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "generate_scenario",
		Description: "Generate and save a random scenario. Every field is optional.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name":    map[string]interface{}{"type": "string", "description": "Scenario name"},
				"seed":    map[string]interface{}{"type": "integer", "description": "Noise seed"},
				"width":   map[string]interface{}{"type": "integer", "description": "Map width"},
				"height":  map[string]interface{}{"type": "integer", "description": "Map height"},
				"planes":  map[string]interface{}{"type": "integer", "description": "Number of planes"},
				"players": map[string]interface{}{"type": "integer", "description": "Number of players"},
			},
		},
	}, c.handleGenerateScenario)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the movement rules in detail",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool arguments, or an empty map when none were sent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// intListArg reads an array of JSON numbers
func intListArg(args map[string]interface{}, key string) []int {
	raw, _ := args[key].([]interface{})
	ids := make([]int, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			ids = append(ids, int(f))
		}
	}
	return ids
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configID, _ := arguments(request)["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", url.PathEscape(sessionID)), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMovementRange(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	playerID, ok := intArg(args, "player_id")
	if !ok {
		return mcp.NewToolResultError("player_id is required"), nil
	}
	unitIDs := intListArg(args, "unit_ids")
	if len(unitIDs) == 0 {
		return mcp.NewToolResultError("unit_ids must list at least one unit"), nil
	}
	includeMap, _ := args["include_map"].(bool)

	query := url.Values{}
	query.Set("player", fmt.Sprint(playerID))
	query.Set("units", joinInts(unitIDs))
	if includeMap {
		query.Set("map", "true")
	}

	var rng service.MovementRange
	path := fmt.Sprintf("/api/sessions/%s/movement?%s", url.PathEscape(sessionID), query.Encode())
	if err := c.apiCall(ctx, "GET", path, nil, &rng); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMovementRange(&rng)), nil
}

func (c *Client) handleMoveStack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	playerID, ok := intArg(args, "player_id")
	if !ok {
		return mcp.NewToolResultError("player_id is required"), nil
	}
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}
	plane, _ := intArg(args, "plane")

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	body := map[string]interface{}{
		"player_id": playerID,
		"unit_ids":  intListArg(args, "unit_ids"),
		"to":        engine.Coordinate{X: x, Y: y, Plane: plane},
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/move", url.PathEscape(sessionID)), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleEvaluateStacks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	playerID, ok := intArg(args, "player_id")
	if !ok {
		return mcp.NewToolResultError("player_id is required"), nil
	}

	var response struct {
		PlayerID int                       `json:"player_id"`
		Stacks   []service.StackEvaluation `json:"stacks"`
	}
	path := fmt.Sprintf("/api/sessions/%s/stacks?player=%d", url.PathEscape(sessionID), playerID)
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStackEvaluations(playerID, response.Stacks)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}
	if x < 0 || y < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("coordinates must not be negative, got (%d,%d)", x, y)), nil
	}
	plane, _ := intArg(args, "plane")

	var cell service.CellDescription
	path := fmt.Sprintf("/api/sessions/%s/cells/%d/%d/%d", url.PathEscape(sessionID), plane, x, y)
	if err := c.apiCall(ctx, "GET", path, nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellDescription(&cell)), nil
}

func (c *Client) handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/end-turn", url.PathEscape(sessionID)), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/reset", url.PathEscape(sessionID)), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}

	var history service.HistoryResponse
	path := fmt.Sprintf("/api/sessions/%s/history?%s", url.PathEscape(sessionID), query.Encode())
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Scenarios:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Map: %dx%d, %d plane(s), %d players, %d units\n\n",
			config.Name, config.ConfigID, config.Description,
			config.Width, config.Height, config.Planes, config.Players, config.Units)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGenerateScenario(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]interface{}{}
	if name, ok := args["name"].(string); ok && name != "" {
		body["name"] = name
	}
	for _, key := range []string{"seed", "width", "height", "planes", "players"} {
		if v, ok := intArg(args, key); ok {
			body[key] = v
		}
	}

	var response struct {
		ConfigID string                 `json:"config_id"`
		Config   *engine.ScenarioConfig `json:"config"`
	}
	if err := c.apiCall(ctx, "POST", "/api/configs/generate", body, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generated scenario %q. Start it with create_session config_id=%s\n", response.ConfigID, response.ConfigID)
	if cfg := response.Config; cfg != nil {
		fmt.Fprintf(&b, "Map: %dx%d, %d plane(s), %d players, %d cities, %d towers, %d units\n",
			cfg.Width, cfg.Height, cfg.Planes, len(cfg.Players), len(cfg.Cities), len(cfg.Towers), len(cfg.Units))
		for p, rows := range cfg.Layout {
			fmt.Fprintf(&b, "\nPlane %d:\n%s\n", p, strings.Join(rows, "\n"))
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Overland Movement - Rules

MAP:
• A session has one or more planes of the same size. Coordinates are (x,y,plane), 0-based.
• Maps may wrap left to right and top to bottom.
• Every cell has a tile type (grassland, forest, hills, mountains, ocean...),
  and may carry a feature, a road, a city or a tower.

STACKS:
• Units of one player on one cell form a stack. Order any subset of them.
• A stack moves at the speed of its slowest unit. Skills can change the cost
  of a tile for the whole stack (forester, mountaineer, flying, swimming...).
• A ship with transport capacity carries land units across water when it has
  room for every unit that cannot cross on its own.

COSTS:
• Costs are doubled: 2 equals one movement point, so half points are exact.
• Roads make a step cost 1 (half a point). Enchanted roads make it free.
• Cells the stack can never enter are left out of the range.

CROSSING PLANES:
• Towers stand on every plane at the same spot. Entering one lets the stack
  step onto the other plane for free.
• Earth gates link every gate city of a player on one plane.
• Astral gates link a city to the same spot on the other plane.

LIMITS:
• A stack with any movement left can make one more step, whatever it costs.
• Cells reachable only on later turns have reachable_this_turn false.
• move_stack stops before the first cell that would start combat
  (an enemy stack, enemy city or a lair) and when movement runs out.
• end_turn refills movement for every unit.

WORKFLOW:
1. list_configs, then create_session
2. evaluate_stacks to see what each stack can do
3. movement_range for one stack, include_map to see the area
4. move_stack toward a cell, then end_turn
`
