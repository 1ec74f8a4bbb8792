// Package mcp exposes the movement API to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against a
// running API server, and the JSON answer is rendered as text for the agent.
//
// MCP Tools:
//   - create_session, get_session, list_sessions: session management
//   - game_state: turn and units of a session
//   - movement_range: reachable cells and costs for a stack
//   - move_stack: execute a move order
//   - evaluate_stacks: per-stack summary for a player
//   - describe_cell: terrain, feature, city and units of a cell
//   - end_turn, reset_game: turn flow
//   - move_history: paginated order history
//   - list_configs, generate_scenario: scenarios
//   - game_instructions: the movement rules
//
// Movement points are shown as whole or half points; the API reports them doubled.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
