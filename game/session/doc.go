// Package session provides session management for overland movement games.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Persistence to JSON files, zstd compressed files or SQLite
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the session manager that handles all session operations. Each
// service.Session owns its own engine, scenario and timestamps.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. IDs are matched
// case-insensitively, and generated IDs skip those already live or stored.
//
// Persistence:
//
// A SessionPersistence stores a session's game state alongside a snapshot of
// its scenario, so generated scenarios survive a restart. Records written
// without a snapshot are rebuilt from the named config.
//
//	store, err := session.NewSQLitePersistence("data/sessions.db", configs)
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", scenario)
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// CleanupExpiredSessions evicts idle sessions from memory only. Delete removes
// them from storage too.
package session
