package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/kickroom/game/engine"
)

// requestValidate checks SolveRequest tags.
var requestValidate = validator.New()

// solverServiceImpl implements the SolverService interface
type solverServiceImpl struct {
	runs       RunStore
	puzzles    PuzzleStore
	sink       ProgressSink
	logger     *slog.Logger
	stateLimit int
	batchLimit int
}

// Option configures the solver service.
type Option func(*solverServiceImpl)

// WithProgressSink forwards run events to sink.
func WithProgressSink(sink ProgressSink) Option {
	return func(s *solverServiceImpl) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *solverServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultStateLimit caps the visited table of every run that does not
// ask for its own limit. Zero means unlimited.
func WithDefaultStateLimit(n int) Option {
	return func(s *solverServiceImpl) { s.stateLimit = n }
}

// WithBatchLimit sets how many puzzles SolveBatch searches at once.
func WithBatchLimit(n int) Option {
	return func(s *solverServiceImpl) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// NewSolverService creates a new solver service instance
func NewSolverService(runs RunStore, puzzles PuzzleStore, opts ...Option) SolverService {
	s := &solverServiceImpl{
		runs:       runs,
		puzzles:    puzzles,
		sink:       nopSink{},
		logger:     slog.Default(),
		batchLimit: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "solver")
	return s
}

// loadPuzzle resolves a puzzle ID, with a helpful list of IDs on a miss.
func (s *solverServiceImpl) loadPuzzle(puzzleID string) (*engine.PuzzleConfig, string, error) {
	if puzzleID == "" || puzzleID == "default" {
		p := s.puzzles.GetDefault()
		if p == nil {
			return nil, "", fmt.Errorf("%w: no default puzzle", ErrPuzzleNotFound)
		}
		return p, "default", nil
	}

	p, err := s.puzzles.LoadPuzzle(puzzleID)
	if err == nil {
		return p, puzzleID, nil
	}
	if !errors.Is(err, ErrPuzzleNotFound) {
		return nil, "", fmt.Errorf("failed to load puzzle %s: %w", puzzleID, err)
	}

	available, listErr := s.puzzles.ListPuzzles()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, info := range available {
			ids = append(ids, info.PuzzleID)
		}
		return nil, "", fmt.Errorf("%w: '%s'. Available puzzles: %s", ErrPuzzleNotFound, puzzleID, strings.Join(ids, ", "))
	}
	return nil, "", fmt.Errorf("%w: '%s'", ErrPuzzleNotFound, puzzleID)
}

// ListPuzzles returns every loadable puzzle
func (s *solverServiceImpl) ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error) {
	return s.puzzles.ListPuzzles()
}

// GetPuzzle returns a puzzle with its rendered room and static stats
func (s *solverServiceImpl) GetPuzzle(ctx context.Context, puzzleID string) (*PuzzleDetail, error) {
	p, id, err := s.loadPuzzle(puzzleID)
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewEngine(p)
	if err != nil {
		return nil, err
	}

	dims := p.Dims()
	legend := make(map[string]string, len(engine.Legend))
	for k, v := range engine.Legend {
		legend[k] = v
	}

	return &PuzzleDetail{
		PuzzleInfo: PuzzleInfo{
			Filename:    filenameFor(s.puzzles, id),
			PuzzleID:    id,
			Name:        p.Name,
			Description: p.Description,
			Width:       dims.Width,
			Height:      dims.Height,
			Mode:        string(p.EffectiveMode()),
			Budget:      p.EffectiveBudget(),
		},
		Layout:        p.Layout,
		Rendered:      engine.RenderRows(eng.Board(), eng.Root()),
		Legend:        legend,
		PossibleMoves: DirectionNames(eng.GetPossibleMoves()),
		Stats:         ComputeStats(eng.Board(), eng.Root()),
	}, nil
}

func filenameFor(store PuzzleStore, id string) string {
	infos, err := store.ListPuzzles()
	if err != nil {
		return ""
	}
	for _, info := range infos {
		if info.PuzzleID == id {
			return info.Filename
		}
	}
	return ""
}

// SavePuzzle validates and stores a puzzle
func (s *solverServiceImpl) SavePuzzle(ctx context.Context, puzzleID string, puzzle *engine.PuzzleConfig) error {
	if puzzleID == "" || puzzleID == "default" {
		return fmt.Errorf("%w: puzzle id %q is reserved", ErrInvalidRequest, puzzleID)
	}
	if err := s.puzzles.SavePuzzle(puzzleID, puzzle); err != nil {
		return err
	}
	s.logger.Info("puzzle saved", "puzzle_id", puzzleID, "name", puzzle.Name)
	return nil
}

// Render draws the initial room of a puzzle
func (s *solverServiceImpl) Render(ctx context.Context, puzzleID string) (string, error) {
	p, _, err := s.loadPuzzle(puzzleID)
	if err != nil {
		return "", err
	}
	eng, err := engine.NewEngine(p)
	if err != nil {
		return "", err
	}
	return eng.Render(), nil
}

// Solve runs one search and records it as a run
func (s *solverServiceImpl) Solve(ctx context.Context, req SolveRequest) (*SolveResult, error) {
	if req.PuzzleID == "" {
		req.PuzzleID = "default"
	}
	if err := requestValidate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	puzzle, puzzleID, err := s.loadPuzzle(req.PuzzleID)
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewEngine(puzzle)
	if err != nil {
		return nil, err
	}

	mode := puzzle.EffectiveMode()
	if req.Mode != "" {
		mode = engine.Mode(req.Mode)
	}
	budget := 0
	if mode == engine.ModeBudget {
		budget = req.Budget
		if budget == 0 {
			budget = puzzle.EffectiveBudget()
		}
	}
	limit := req.StateLimit
	if limit == 0 {
		limit = s.stateLimit
	}

	run, err := s.runs.Create(&Run{
		PuzzleID:   puzzleID,
		PuzzleName: puzzle.Name,
		Mode:       string(mode),
		Budget:     budget,
		Status:     RunRunning,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	log := s.logger.With("run_id", run.ID, "puzzle_id", puzzleID, "mode", mode)
	log.Info("solve started", "budget", budget, "state_limit", limit)
	s.sink.SolveStarted(run)

	opts := []engine.Option{
		engine.WithObserver(func(p engine.Progress) { s.sink.SolveProgress(run, p) }),
	}
	if limit > 0 {
		opts = append(opts, engine.WithStateLimit(limit))
	}

	start := time.Now()
	res, solveErr := eng.Solve(mode, budget, opts...)
	elapsed := time.Since(start)

	// finished runs are stored as a fresh copy so readers of run never race
	final := *run
	finished := time.Now()
	final.FinishedAt = &finished
	final.DurationMS = elapsed.Milliseconds()
	final.Visited = res.Visited
	final.Expanded = res.Expanded
	final.Rounds = res.Rounds

	switch {
	case solveErr != nil:
		final.Status = RunFailed
		final.Error = solveErr.Error()
	case res.Found:
		moves := res.Solution.Moves()
		verified, verr := eng.Verify(moves)
		if verr != nil {
			log.Error("solution failed replay", "error", verr)
		}
		final.Status = RunSolved
		final.Found = true
		final.Verified = verified
		final.Moves = DirectionNames(moves)
		final.MoveCount = len(moves)
		final.StepsLeft = res.StepsLeft
		final.Message = puzzle.SolvedMessage(len(moves))
	case res.Truncated:
		final.Status = RunTruncated
		final.Message = fmt.Sprintf("Search stopped after %d states", res.Visited)
	default:
		final.Status = RunUnsolvable
		final.Message = puzzle.UnsolvableMessage()
	}

	if err := s.runs.Update(&final); err != nil {
		log.Warn("failed to store run", "error", err)
	}

	solveTotal.WithLabelValues(string(mode), string(final.Status)).Inc()
	solveDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	statesVisited.WithLabelValues(string(mode)).Observe(float64(res.Visited))

	log.Info("solve finished",
		"status", final.Status,
		"moves", final.MoveCount,
		"visited", final.Visited,
		"expanded", final.Expanded,
		"duration_ms", final.DurationMS)
	s.sink.SolveFinished(&final)

	if solveErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, solveErr)
	}

	out := &SolveResult{Run: &final, Steps: StepViews(res.Solution)}
	if req.Render && res.Solution != nil {
		out.Rendered = engine.RenderSolution(eng.Board(), *res.Solution)
	}
	return out, nil
}

// SolveBatch solves independent puzzles concurrently. Results keep the
// order of reqs; the first error cancels runs that have not started.
func (s *solverServiceImpl) SolveBatch(ctx context.Context, reqs []SolveRequest) ([]*SolveResult, error) {
	results := make([]*SolveResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Solve(gctx, req)
			if err != nil {
				return fmt.Errorf("puzzle %s: %w", req.PuzzleID, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// GetRun returns a recorded run
func (s *solverServiceImpl) GetRun(ctx context.Context, runID string) (*Run, error) {
	return s.runs.Get(runID)
}

// ListRuns returns every recorded run, newest first
func (s *solverServiceImpl) ListRuns(ctx context.Context) ([]*Run, error) {
	runs := s.runs.List()
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

// DeleteRun removes a recorded run
func (s *solverServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	return s.runs.Delete(runID)
}
