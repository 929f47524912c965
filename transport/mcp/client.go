package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/kickroom/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// searches on large rooms can take a while
			Timeout: 2 * time.Minute,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Kick Room Solver",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Kick Room Solver - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A kick room is a grid puzzle: walk the player (@) to the goal (G). Walking
into a rock (O) or fragile block (%) kicks it one cell further while the
player stays put. The solver finds the shortest solution or, in budget mode, any
solution within a move budget.

AVAILABLE TOOLS:
- list_puzzles: List puzzle files on the server
- describe_puzzle: Show a puzzle's room, legend and static stats
- solve_puzzle: Solve a puzzle and return the move list
- get_run: Fetch a recorded solve run
- list_runs: List recent solve runs
- solver_instructions: Full rules and output format`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_puzzles",
		Description: "List available puzzles",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPuzzles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_puzzle",
		Description: "Describe a puzzle: rendered room with coordinates, legend and stats",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle ID (omit for the default puzzle)",
				},
			},
		},
	}, c.handleDescribePuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_puzzle",
		Description: "Solve a puzzle and record the run",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle ID (omit for the default puzzle)",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"shortest", "budget"},
					"description": "Search mode (defaults to the puzzle's mode)",
				},
				"budget": map[string]interface{}{
					"type":        "number",
					"description": "Move budget for budget mode",
				},
				"state_limit": map[string]interface{}{
					"type":        "number",
					"description": "Stop after this many distinct states (optional)",
				},
			},
		},
	}, c.handleSolvePuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_run",
		Description: "Get a recorded solve run",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID returned by solve_puzzle",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleGetRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List recent solve runs, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Only runs of this puzzle (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of runs (default 20)",
				},
			},
		},
	}, c.handleListRuns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solver_instructions",
		Description: "Get the kick room rules and how to read solver output",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSolverInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// puzzlePath returns the API path for a puzzle, using "default" when empty.
func puzzlePath(puzzleID string, suffix string) string {
	if puzzleID == "" {
		puzzleID = "default"
	}
	return "/api/puzzles/" + url.PathEscape(puzzleID) + suffix
}

// Tool handlers

func (c *Client) handleListPuzzles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count   int                  `json:"count"`
		Puzzles []service.PuzzleInfo `json:"puzzles"`
	}
	if err := c.apiCall(ctx, "GET", "/api/puzzles", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPuzzleList(response.Puzzles)), nil
}

func (c *Client) handleDescribePuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	puzzleID := request.GetString("puzzle_id", "")

	var detail service.PuzzleDetail
	if err := c.apiCall(ctx, "GET", puzzlePath(puzzleID, ""), nil, &detail); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPuzzleDetail(&detail)), nil
}

func (c *Client) handleSolvePuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	puzzleID := request.GetString("puzzle_id", "")

	body := service.SolveRequest{
		Mode:       request.GetString("mode", ""),
		Budget:     request.GetInt("budget", 0),
		StateLimit: request.GetInt("state_limit", 0),
		Render:     true,
	}

	var result service.SolveResult
	if err := c.apiCall(ctx, "POST", puzzlePath(puzzleID, "/solve"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSolveResult(&result)), nil
}

func (c *Client) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var run service.Run
	if err := c.apiCall(ctx, "GET", "/api/runs/"+url.PathEscape(runID), nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRun(&run)), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(request.GetInt("limit", 20)))
	if puzzleID := request.GetString("puzzle_id", ""); puzzleID != "" {
		query.Set("puzzle", puzzleID)
	}

	var response struct {
		Count int           `json:"count"`
		Total int           `json:"total"`
		Runs  []service.Run `json:"runs"`
	}
	if err := c.apiCall(ctx, "GET", "/api/runs?"+query.Encode(), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Runs (%d of %d):\n\n", response.Count, response.Total)
	for i := range response.Runs {
		b.WriteString(formatRunLine(&response.Runs[i]))
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleSolverInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(solverInstructions), nil
}

const solverInstructions = `Kick Room Solver - Instructions

OBJECTIVE:
Move the player from @ to the goal G in as few moves as possible.

GRID LEGEND:
  #  wall
  (space) or .  floor
  @  player
  G  goal
  O  rock: kicked when you walk into it
  %  fragile block: kicked like a rock, shatters if it cannot move
  K  key: picked up by walking onto it
  L  lock: a wall until the key is held
  o  hazard, active after an odd number of moves
  e  hazard, active after an even number of moves

MOVEMENT RULES:
- A move is up, down, left or right.
- Walking onto floor, key, goal or an opened lock moves the player.
- Walking into a rock kicks it: the player stays put and the rock moves one
  cell. A rock with something behind it cannot be kicked.
- A fragile block is kicked the same way, or shatters if it cannot move.
- Walls, closed locks and the grid edge block the player; bumping into
  them is not a move.
- Landing on an active hazard costs one extra round before you can move on.

SEARCH MODES:
- shortest: breadth-first search, the answer has the fewest moves.
- budget: depth-first search for any solution within the budget; the
  result reports the steps left.

READING RESULTS:
- status: solved, unsolvable or truncated (state limit reached).
- moves: the move list from the start; verified means it was replayed and
  ends on the goal.
- rendered: the room after each move.

COORDINATES:
x grows to the right, y grows downward, (0,0) is the top-left cell.`

// Formatting helpers

func formatPuzzleList(puzzles []service.PuzzleInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Available Puzzles (%d):\n\n", len(puzzles))
	for _, p := range puzzles {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d, Mode: %s",
			p.PuzzleID, p.Name, p.Description, p.Width, p.Height, p.Mode)
		if p.Mode == "budget" {
			fmt.Fprintf(&b, ", Budget: %d", p.Budget)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func formatPuzzleDetail(d *service.PuzzleDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Puzzle: %s (%s)\n", d.PuzzleID, d.Name)
	if d.Description != "" {
		fmt.Fprintf(&b, "%s\n", d.Description)
	}
	fmt.Fprintf(&b, "Grid: %dx%d, Mode: %s", d.Width, d.Height, d.Mode)
	if d.Mode == "budget" {
		fmt.Fprintf(&b, ", Budget: %d", d.Budget)
	}
	b.WriteString("\n\n")

	b.WriteString(formatGrid(d.Rendered))

	s := d.Stats
	fmt.Fprintf(&b, "\nStats: open=%d reachable=%d rocks=%d fragile=%d goal_distance=%d\n",
		s.OpenCells, s.ReachableCells, s.Rocks, s.Fragile, s.GoalDistance)
	if s.HasKey || s.HasLock {
		fmt.Fprintf(&b, "Key: %v, Lock: %v\n", s.HasKey, s.HasLock)
	}
	if s.Hazards {
		b.WriteString("Hazards present: timing matters\n")
	}
	if s.GoalEnclosed {
		b.WriteString("⚠ Goal is not reachable without kicking something\n")
	}
	if len(d.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible first moves: %s\n", strings.Join(d.PossibleMoves, ", "))
	}
	return b.String()
}

// formatGrid prefixes rows with y coordinates and adds an x ruler.
func formatGrid(rows []string) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	width := len([]rune(rows[0]))
	b.WriteString("   ")
	for x := 0; x < width; x++ {
		b.WriteString(strconv.Itoa(x % 10))
	}
	b.WriteByte('\n')
	for y, row := range rows {
		fmt.Fprintf(&b, "%2d %s\n", y, row)
	}
	return b.String()
}

func formatSolveResult(res *service.SolveResult) string {
	if res.Run == nil {
		return "No run recorded"
	}
	var b strings.Builder
	b.WriteString(formatRun(res.Run))
	if res.Rendered != "" {
		b.WriteString("\nSolution:\n")
		b.WriteString(res.Rendered)
	}
	return b.String()
}

func formatRun(run *service.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", run.ID)
	fmt.Fprintf(&b, "Puzzle: %s, Mode: %s", run.PuzzleID, run.Mode)
	if run.Mode == "budget" {
		fmt.Fprintf(&b, ", Budget: %d", run.Budget)
	}
	b.WriteByte('\n')

	switch run.Status {
	case service.RunSolved:
		verified := ""
		if run.Verified {
			verified = " (verified)"
		}
		fmt.Fprintf(&b, "✓ Solved in %d moves%s\n", run.MoveCount, verified)
		fmt.Fprintf(&b, "Moves: %s\n", strings.Join(run.Moves, ", "))
		if run.Mode == "budget" {
			fmt.Fprintf(&b, "Steps left: %d\n", run.StepsLeft)
		}
	case service.RunUnsolvable:
		b.WriteString("✗ No solution\n")
	case service.RunTruncated:
		b.WriteString("⚠ Search stopped at the state limit\n")
	case service.RunFailed:
		fmt.Fprintf(&b, "✗ Failed: %s\n", run.Error)
	default:
		fmt.Fprintf(&b, "Status: %s\n", run.Status)
	}

	if run.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", run.Message)
	}
	fmt.Fprintf(&b, "States visited: %d, expanded: %d, time: %dms\n", run.Visited, run.Expanded, run.DurationMS)
	return b.String()
}

func formatRunLine(run *service.Run) string {
	line := fmt.Sprintf("- %s %s [%s] %s", run.CreatedAt.Format("15:04:05"), run.ID, run.Mode, run.PuzzleID)
	switch run.Status {
	case service.RunSolved:
		line += fmt.Sprintf(": solved in %d", run.MoveCount)
	default:
		line += ": " + string(run.Status)
	}
	return line
}
