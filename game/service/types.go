package service

import (
	"time"

	"github.com/wricardo/kickroom/game/engine"
)

// RunStatus is the outcome of a solver run.
type RunStatus string

const (
	RunRunning    RunStatus = "running"
	RunSolved     RunStatus = "solved"
	RunUnsolvable RunStatus = "unsolvable"
	RunTruncated  RunStatus = "truncated"
	RunFailed     RunStatus = "failed"
)

// Run is one recorded invocation of the solver on a puzzle
type Run struct {
	ID         string     `json:"id"`
	PuzzleID   string     `json:"puzzle_id"`
	PuzzleName string     `json:"puzzle_name"`
	Mode       string     `json:"mode"`
	Budget     int        `json:"budget,omitempty"`
	Status     RunStatus  `json:"status"`
	Found      bool       `json:"found"`
	Verified   bool       `json:"verified"`
	Moves      []string   `json:"moves,omitempty"`
	MoveCount  int        `json:"move_count"`
	StepsLeft  int        `json:"steps_left,omitempty"`
	Visited    int        `json:"visited"`
	Expanded   int        `json:"expanded"`
	Rounds     int        `json:"rounds,omitempty"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	DurationMS int64      `json:"duration_ms"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the run has finished.
func (r *Run) Done() bool {
	return r.Status != RunRunning
}

// SolveRequest asks for one puzzle to be solved. Zero Mode and Budget fall
// back to the puzzle's own defaults.
type SolveRequest struct {
	PuzzleID   string `json:"puzzle_id" validate:"required,max=128,excludesall=/\\"`
	Mode       string `json:"mode,omitempty" validate:"omitempty,oneof=shortest budget"`
	Budget     int    `json:"budget,omitempty" validate:"gte=0,lte=1000"`
	StateLimit int    `json:"state_limit,omitempty" validate:"gte=0"`
	// Render adds the drawn room after every move to the result
	Render bool `json:"render,omitempty"`
}

// StepView is one move of a solution as reported to clients.
type StepView struct {
	Index     int    `json:"index"`
	Direction string `json:"direction"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Kick      bool   `json:"kick,omitempty"`
	HasKey    bool   `json:"has_key,omitempty"`
}

// SolveResult contains the recorded run plus the solution detail
type SolveResult struct {
	Run      *Run       `json:"run"`
	Steps    []StepView `json:"steps,omitempty"`
	Rendered string     `json:"rendered,omitempty"`
}

// PuzzleInfo provides information about a puzzle file
type PuzzleInfo struct {
	Filename    string `json:"filename"`
	PuzzleID    string `json:"puzzle_id"` // The identifier to use for solving
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Mode        string `json:"mode"`
	Budget      int    `json:"budget"`
}

// PuzzleStats are static facts about a room, computed without searching.
type PuzzleStats struct {
	OpenCells      int  `json:"open_cells"`
	ReachableCells int  `json:"reachable_cells"`
	Walls          int  `json:"walls"`
	Rocks          int  `json:"rocks"`
	Fragile        int  `json:"fragile"`
	HasKey         bool `json:"has_key"`
	HasLock        bool `json:"has_lock"`
	Hazards        bool `json:"hazards"`
	GoalEnclosed   bool `json:"goal_enclosed"`
	GoalDistance   int  `json:"goal_distance"`
}

// PuzzleDetail is a puzzle with its rendered room and stats
type PuzzleDetail struct {
	PuzzleInfo
	Layout        []string          `json:"layout"`
	Rendered      []string          `json:"rendered"`
	Legend        map[string]string `json:"legend"`
	PossibleMoves []string          `json:"possible_moves"`
	Stats         PuzzleStats       `json:"stats"`
}

// ComputeStats derives PuzzleStats from a built room.
func ComputeStats(b *engine.Board, root engine.State) PuzzleStats {
	return PuzzleStats{
		OpenCells:      engine.CountCells(b),
		ReachableCells: engine.ReachableCells(b, root).Len(),
		Walls:          b.Walls.Len(),
		Rocks:          root.Obstacles.Len(),
		Fragile:        root.Fragile.Len(),
		HasKey:         b.HasKey,
		HasLock:        b.HasLock,
		Hazards:        b.Hazards,
		GoalEnclosed:   engine.GoalEnclosed(b, root),
		GoalDistance:   engine.ManhattanDistance(root.Player, b.Goal),
	}
}

// DirectionNames converts directions to their wire names.
func DirectionNames(dirs []engine.Direction) []string {
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = d.String()
	}
	return names
}

// StepViews converts a solution to its client form.
func StepViews(sol *engine.Solution) []StepView {
	if sol == nil {
		return nil
	}
	views := make([]StepView, len(sol.Steps))
	for i, st := range sol.Steps {
		views[i] = StepView{
			Index:     st.Index,
			Direction: st.Direction.String(),
			X:         int(st.After.Player.X),
			Y:         int(st.After.Player.Y),
			Kick:      st.After.Player == st.Before.Player,
			HasKey:    st.After.HasKey,
		}
	}
	return views
}
