// Package session provides run storage for the kick room solver.
//
// The session package implements:
//   - Thread-safe run storage and retrieval
//   - UUID run identifiers
//   - Optional write-through persistence to JSON files
//   - Expiry of old finished runs
//
// Core Types:
//
// Manager keeps runs in memory and implements service.RunStore.
// FilePersistence stores one JSON file per run so that finished runs survive
// a restart.
//
// Concurrency:
//
// The manager is safe for concurrent use. Runs are treated as immutable once
// stored: Update replaces the stored pointer instead of modifying it, so a
// run handed to a reader never changes underneath it.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("runs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedRuns(); err != nil {
//		log.Fatal(err)
//	}
//
//	run, err := manager.Create(&service.Run{PuzzleID: "classic"})
//	runs := manager.List()
package session
