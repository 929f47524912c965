// Package mcp exposes the kick room solver to AI agents over the Model
// Context Protocol.
//
// The client registers its tools on a mark3labs/mcp-go server and answers
// every call by proxying to the REST API, so the MCP process holds no solver
// state of its own.
//
// MCP Tools:
//   - list_puzzles: puzzle catalog
//   - describe_puzzle: rendered room with a coordinate ruler, stats and first moves
//   - solve_puzzle: solve with optional mode, budget and state limit
//   - get_run, list_runs: recorded runs
//   - solver_instructions: rules and output format
//
// API failures are returned as tool error results rather than protocol
// errors so the agent can read them.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
