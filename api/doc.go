// Package api provides HTTP REST API handlers for the kick room solver.
//
// The api package implements:
//   - Puzzle catalog endpoints (list, describe, render, save)
//   - Solve endpoints for single puzzles and batches
//   - Run history endpoints
//   - WebSocket upgrade handling for live solve progress
//   - Prometheus metrics and a health check
//
// Endpoints:
//
// Puzzles:
//   - GET /api/puzzles - List puzzle files
//   - POST /api/puzzles?id=<id> - Validate and save a puzzle (id defaults to a slug of its name)
//   - GET /api/puzzles/{id} - Puzzle detail with the drawn room and legal first moves
//   - GET /api/puzzles/{id}/render - The room as plain text
//   - POST /api/puzzles/{id}/solve - Solve a puzzle (?render=true adds every intermediate room)
//
// Runs:
//   - POST /api/solve/batch - Solve up to 32 puzzles concurrently
//   - GET /api/runs - List runs (?puzzle=, ?status=, ?order=asc, ?limit=)
//   - GET /api/runs/{id} - Get one run
//   - DELETE /api/runs/{id} - Delete a run
//
// Streaming:
//   - GET /ws?run=<id> - Events of one run
//   - GET /ws?puzzle=<id> - Events of every run of a puzzle
//   - GET /ws - Events of every run
//
// Request/Response Format:
//
// All endpoints except render and metrics accept and return JSON. A solve
// body is optional:
//
//	{
//	  "mode": "shortest|budget",
//	  "budget": 33,
//	  "state_limit": 1000000,
//	  "render": false
//	}
//
// Errors are returned as {"error": "..."} with 404 for unknown puzzles
// and runs, 400 for invalid puzzles or requests, and 500 otherwise.
package api
