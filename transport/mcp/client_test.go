package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/kickroom/game/service"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client == nil {
		t.Fatal("Expected client to be created")
	}
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"puzzle_id": "classic", "width": 16})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response service.PuzzleInfo
	if err := client.apiCall(context.Background(), "GET", "/api/puzzles/classic", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response.PuzzleID != "classic" || response.Width != 16 {
		t.Errorf("Unexpected response: %+v", response)
	}
}

func TestClient_apiCall_Error(t *testing.T) {
	client := NewClient("http://invalid-url-that-does-not-exist:9999")

	if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
		t.Error("Expected error for invalid URL")
	}
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	t.Run("plain body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error', got: %v", err)
		}
	})

	t.Run("json error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "puzzle not found: 'x'"})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || err.Error() != "puzzle not found: 'x'" {
			t.Errorf("Expected API error message, got: %v", err)
		}
	})
}

func TestClient_handleListPuzzles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/api/puzzles" {
			t.Errorf("Expected GET /api/puzzles, got %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count": 2,
			"puzzles": []service.PuzzleInfo{
				{PuzzleID: "classic", Name: "Classic", Description: "The original room", Width: 16, Height: 8, Mode: "budget", Budget: 33},
				{PuzzleID: "corridor", Name: "Corridor", Width: 5, Height: 3, Mode: "shortest"},
			},
		})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleListPuzzles(context.Background(), callTool("list_puzzles", nil))
	if err != nil {
		t.Fatalf("handleListPuzzles failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Available Puzzles (2)", "classic (Classic)", "Grid: 16x8, Mode: budget, Budget: 33", "corridor"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}
}

func TestClient_handleDescribePuzzle(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(service.PuzzleDetail{
			PuzzleInfo:    service.PuzzleInfo{PuzzleID: "default", Name: "Corridor", Width: 5, Height: 3, Mode: "shortest"},
			Rendered:      []string{"#####", "#@ G#", "#####"},
			PossibleMoves: []string{"right"},
			Stats:         service.PuzzleStats{OpenCells: 3, ReachableCells: 3, GoalDistance: 2},
		})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleDescribePuzzle(context.Background(), callTool("describe_puzzle", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleDescribePuzzle failed: %v", err)
	}
	if gotPath != "/api/puzzles/default" {
		t.Errorf("Expected default puzzle path, got %s", gotPath)
	}

	text := resultText(t, result)
	for _, want := range []string{"   01234\n", " 1 #@ G#\n", "goal_distance=2", "Possible first moves: right"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}
}

func TestClient_handleSolvePuzzle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/puzzles/classic/solve" {
			t.Errorf("Expected POST /api/puzzles/classic/solve, got %s %s", r.Method, r.URL.Path)
		}
		var req service.SolveRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Mode != "budget" || req.Budget != 33 || !req.Render {
			t.Errorf("Unexpected solve request: %+v", req)
		}

		json.NewEncoder(w).Encode(service.SolveResult{
			Run: &service.Run{
				ID:        "run-42",
				PuzzleID:  "classic",
				Mode:      "budget",
				Budget:    33,
				Status:    service.RunSolved,
				Verified:  true,
				Moves:     []string{"down", "right"},
				MoveCount: 2,
				StepsLeft: 31,
				Message:   "Solved in 2 moves",
			},
			Rendered: "step 1\n",
		})
	}))
	defer server.Close()

	args := map[string]interface{}{"puzzle_id": "classic", "mode": "budget", "budget": float64(33)}
	result, err := NewClient(server.URL).handleSolvePuzzle(context.Background(), callTool("solve_puzzle", args))
	if err != nil {
		t.Fatalf("handleSolvePuzzle failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Run: run-42", "✓ Solved in 2 moves (verified)", "Moves: down, right", "Steps left: 31", "Solution:\nstep 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}
}

func TestClient_handleSolvePuzzle_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request: budget"})
	}))
	defer server.Close()

	result, err := NewClient(server.URL).handleSolvePuzzle(context.Background(), callTool("solve_puzzle", map[string]interface{}{"budget": float64(5000)}))
	if err != nil {
		t.Fatalf("Tool errors should be reported in the result, got %v", err)
	}
	if !result.IsError {
		t.Error("Expected an error result")
	}
}

func TestClient_handleGetRun(t *testing.T) {
	t.Run("missing run_id", func(t *testing.T) {
		result, err := NewClient("http://localhost:1").handleGetRun(context.Background(), callTool("get_run", map[string]interface{}{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("Expected an error result without run_id")
		}
	})

	t.Run("unsolvable run", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/runs/abc" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(service.Run{ID: "abc", PuzzleID: "sealed", Mode: "shortest", Status: service.RunUnsolvable, Message: "No way out", Visited: 9})
		}))
		defer server.Close()

		result, err := NewClient(server.URL).handleGetRun(context.Background(), callTool("get_run", map[string]interface{}{"run_id": "abc"}))
		if err != nil {
			t.Fatalf("handleGetRun failed: %v", err)
		}
		text := resultText(t, result)
		for _, want := range []string{"✗ No solution", "Message: No way out", "States visited: 9"} {
			if !strings.Contains(text, want) {
				t.Errorf("Expected %q in output, got: %s", want, text)
			}
		}
	})
}

func TestClient_handleListRuns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("puzzle") != "classic" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count": 2,
			"total": 7,
			"runs": []service.Run{
				{ID: "r2", PuzzleID: "classic", Mode: "shortest", Status: service.RunSolved, MoveCount: 12, CreatedAt: time.Now()},
				{ID: "r1", PuzzleID: "classic", Mode: "budget", Status: service.RunTruncated, CreatedAt: time.Now()},
			},
		})
	}))
	defer server.Close()

	args := map[string]interface{}{"puzzle_id": "classic", "limit": float64(5)}
	result, err := NewClient(server.URL).handleListRuns(context.Background(), callTool("list_runs", args))
	if err != nil {
		t.Fatalf("handleListRuns failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Runs (2 of 7)", "r2 [shortest] classic: solved in 12", "r1 [budget] classic: truncated"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}
}

func TestClient_handleSolverInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleSolverInstructions(context.Background(), callTool("solver_instructions", nil))
	if err != nil {
		t.Fatalf("handleSolverInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"OBJECTIVE:", "GRID LEGEND:", "MOVEMENT RULES:", "SEARCH MODES:", "READING RESULTS:", "COORDINATES:"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in instructions", want)
		}
	}
}

func TestFormatRun_Failed(t *testing.T) {
	text := formatRun(&service.Run{ID: "x", Status: service.RunFailed, Error: "invalid move budget"})
	if !strings.Contains(text, "✗ Failed: invalid move budget") {
		t.Errorf("Unexpected output: %s", text)
	}
}

func TestFormatGrid(t *testing.T) {
	if formatGrid(nil) != "" {
		t.Error("Expected empty grid for no rows")
	}
	got := formatGrid([]string{"#@#", "#G#"})
	want := "   012\n 0 #@#\n 1 #G#\n"
	if got != want {
		t.Errorf("formatGrid = %q, want %q", got, want)
	}
}
