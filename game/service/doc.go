// Package service provides the business logic layer for the kick room solver.
//
// The service package implements:
//   - Puzzle listing, inspection and storage
//   - Solving with either search mode and recording each invocation as a run
//   - Concurrent batch solving of independent puzzles
//   - Live progress notification and prometheus metrics
//
// Core Interfaces:
//
// SolverService is the main service interface used by the HTTP and MCP
// transports. PuzzleStore loads puzzle files, RunStore keeps runs and
// ProgressSink receives run events as they happen.
//
// Architecture:
//
// The service layer sits between the transports (HTTP/WebSocket/MCP) and the
// engine. Each search is single-threaded; the service only runs separate
// searches side by side.
//
// Usage:
//
//	puzzles, _ := config.NewManager("configs")
//	runs := session.NewManager()
//	solver := service.NewSolverService(runs, puzzles,
//		service.WithProgressSink(hub),
//		service.WithDefaultStateLimit(5_000_000))
//
//	res, err := solver.Solve(ctx, service.SolveRequest{PuzzleID: "classic"})
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Run.Status, res.Run.Moves)
package service
