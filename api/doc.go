// Package api provides the HTTP REST API for overland movement sessions.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "default"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Movement:
//   - GET /api/sessions/{id}/state - Current game state
//   - GET /api/sessions/{id}/movement?player=1&units=1,2 - Movement range of a stack
//     (&map=true adds an ASCII map per plane, &legacy=true the flat per-plane grids)
//   - POST /api/sessions/{id}/move - Execute a move order
//   - GET /api/sessions/{id}/stacks?player=1 - Evaluate every stack of a player
//   - GET /api/sessions/{id}/cells/{plane}/{x}/{y} - Describe one cell
//
// Turn Flow:
//   - POST /api/sessions/{id}/end-turn - Refill movement and advance the turn
//   - POST /api/sessions/{id}/reset - Restore the scenario's starting state
//   - GET /api/sessions/{id}/history - Order history (?page=1&limit=20&order=desc)
//
// Configuration:
//   - GET /api/configs - List scenarios
//   - GET /api/configs/{name} - Get one scenario
//   - POST /api/configs - Save a scenario
//   - POST /api/configs/generate - Generate a random scenario (?save=false to skip saving)
//
// Other:
//   - GET /ws?session={id} - WebSocket push updates
//   - GET /health - Liveness check
//   - GET /metrics - Prometheus metrics, when a registry is configured
//
// A move order looks like:
//
//	{"player_id": 1, "unit_ids": [4], "to": {"x": 7, "y": 2, "plane": 0}}
//
// Errors are returned as {"error": "...", "code": 422}. Unknown sessions,
// scenarios, players and units answer 404. Orders the movement rules reject
// (unreachable destination, no movement left, combat on the first step)
// answer 422. Malformed requests answer 400.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	server := api.NewServer(gameService, hub, api.WithRegistry(reg))
//	http.ListenAndServe(":8080", server)
package api
