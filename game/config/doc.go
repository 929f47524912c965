// Package config provides puzzle file management for the kick room solver.
//
// The config package handles:
//   - Loading puzzles from JSON or YAML files in a directory
//   - Validation through engine.ValidatePuzzleConfig
//   - Default puzzle selection and listing
//   - Cache invalidation when puzzle files change on disk
//
// Puzzle Format:
//
// Each puzzle file describes a room layout with one character per cell
// (# wall, @ player, G goal, O rock, % fragile, K key, L lock, o/e hazards)
// plus the default search mode and move budget.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	puzzle, err := manager.LoadPuzzle("classic")
//	puzzles, err := manager.ListPuzzles()
//
//	// Drop cached puzzles as files are edited
//	go manager.Watch(ctx, nil)
//
// A directory without a classic puzzle uses its first valid file as the
// default, and an empty directory falls back to the built-in room.
package config
