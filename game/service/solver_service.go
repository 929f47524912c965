package service

import (
	"context"
	"errors"

	"github.com/wricardo/kickroom/game/engine"
)

var (
	ErrPuzzleNotFound = errors.New("puzzle not found")
	ErrRunNotFound    = errors.New("run not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// SolverService defines all solver operations
type SolverService interface {
	// Puzzles
	ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error)
	GetPuzzle(ctx context.Context, puzzleID string) (*PuzzleDetail, error)
	SavePuzzle(ctx context.Context, puzzleID string, puzzle *engine.PuzzleConfig) error
	Render(ctx context.Context, puzzleID string) (string, error)

	// Solving
	Solve(ctx context.Context, req SolveRequest) (*SolveResult, error)
	SolveBatch(ctx context.Context, reqs []SolveRequest) ([]*SolveResult, error)

	// Runs
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context) ([]*Run, error)
	DeleteRun(ctx context.Context, runID string) error
}

// PuzzleStore handles puzzle loading
type PuzzleStore interface {
	LoadPuzzle(name string) (*engine.PuzzleConfig, error)
	ListPuzzles() ([]*PuzzleInfo, error)
	GetDefault() *engine.PuzzleConfig
	SavePuzzle(name string, puzzle *engine.PuzzleConfig) error
}

// RunStore defines run storage operations
type RunStore interface {
	Create(run *Run) (*Run, error)
	Get(id string) (*Run, error)
	Update(run *Run) error
	List() []*Run
	Delete(id string) error
}

// ProgressSink receives live notifications while a run executes. The
// WebSocket hub implements it.
type ProgressSink interface {
	SolveStarted(run *Run)
	SolveProgress(run *Run, p engine.Progress)
	SolveFinished(run *Run)
}

type nopSink struct{}

func (nopSink) SolveStarted(*Run)                   {}
func (nopSink) SolveProgress(*Run, engine.Progress) {}
func (nopSink) SolveFinished(*Run)                  {}
