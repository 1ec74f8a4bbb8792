// Package service provides the business logic layer for overland movement sessions.
//
// The service package implements:
//   - Multi-session scenario management
//   - Movement range queries and move orders for unit stacks
//   - Turn flow (end turn, reset) and move history
//   - Parallel stack evaluation for AI players
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages scenario configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the movement engine. Each session owns its own engine instance. Reads take a
// shared lock and orders take an exclusive one, so movement queries of one
// session run concurrently while orders are serialized.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rng, err := gameService.MovementRange(ctx, info.ID, 1, []int{1, 2}, service.MovementOptions{})
//	result, err := gameService.MoveStack(ctx, info.ID, 1, []int{1, 2}, engine.Coordinate{X: 4, Y: 2})
//
// Metrics:
//
// NewGameServiceWithMetrics reports query durations, reached-cell counts, orders
// by stop reason and stack evaluations through prometheus collectors.
package service
