// Package websocket pushes session updates to browser clients.
//
// A central Hub owns every connection. Its Run loop is the only place the
// client set changes, and each connection gets its own read and write
// goroutines. Clients join a session with ?session=<id> on /ws and then
// receive one JSON Message per frame:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "move", "data": {...move result...}}
//
// Events are state_update, move, turn_ended and reset. Incoming frames are
// read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.BroadcastToSession(sessionID, state)
//
// Broadcasts are queued and never block the caller. A client whose send
// buffer is full is dropped.
package websocket
