package engine

import "fmt"

// Engine is a built puzzle ready to be solved: its config, board and root
// state. It holds no search state, so one Engine may serve many searches.
type Engine struct {
	config *PuzzleConfig
	board  *Board
	root   State
}

// NewEngine validates config and builds its board.
func NewEngine(config *PuzzleConfig) (*Engine, error) {
	if err := ValidatePuzzleConfig(config); err != nil {
		return nil, err
	}
	board, root, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPuzzle, err)
	}
	return &Engine{config: config, board: board, root: root}, nil
}

// NewEngineWithDefaults builds the classic room.
func NewEngineWithDefaults() *Engine {
	e, err := NewEngine(DefaultPuzzle())
	if err != nil {
		panic(fmt.Sprintf("engine: default puzzle is invalid: %v", err))
	}
	return e
}

// GetConfig returns the puzzle configuration.
func (e *Engine) GetConfig() *PuzzleConfig {
	return e.config
}

// Board returns the immutable board.
func (e *Engine) Board() *Board {
	return e.board
}

// Root returns the initial state.
func (e *Engine) Root() State {
	return e.root
}

// Solve runs a search. Zero mode and budget fall back to the puzzle defaults.
func (e *Engine) Solve(mode Mode, budget int, opts ...Option) (Result, error) {
	if mode == "" {
		mode = e.config.EffectiveMode()
	}
	if budget == 0 {
		budget = e.config.EffectiveBudget()
	}
	return Search(e.board, e.root, mode, budget, opts...)
}

// Verify replays moves from the root and reports whether they end on the goal.
func (e *Engine) Verify(moves []Direction) (bool, error) {
	final, err := Replay(e.board, e.root, moves)
	if err != nil {
		return false, err
	}
	return final.AtGoal(e.board), nil
}

// Render draws the initial room.
func (e *Engine) Render() string {
	return Render(e.board, e.root)
}

// GetPossibleMoves lists the legal directions from the root.
func (e *Engine) GetPossibleMoves() []Direction {
	return PossibleMoves(e.board, e.root)
}
