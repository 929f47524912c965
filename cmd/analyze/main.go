// Command analyze prints quick, human-readable heuristics about the puzzle
// files in a directory. It summarizes dimensions, counts of rocks, fragile
// obstacles and hazards, and flags rooms whose goal is walled off. With
// --solve it also runs both search modes under a state limit.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/kickroom/game/config"
	"github.com/wricardo/kickroom/game/engine"
	"github.com/wricardo/kickroom/game/service"
)

// Analysis is the report for one puzzle.
type Analysis struct {
	PuzzleID string
	Name     string
	Dims     engine.Dims
	Stats    service.PuzzleStats
	Moves    []engine.Direction // legal first moves

	Shortest *SearchSummary
	Budget   *SearchSummary
}

// SearchSummary condenses an engine.Result.
type SearchSummary struct {
	Found     bool
	Moves     int
	StepsLeft int
	Visited   int
	Truncated bool
	Elapsed   time.Duration
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "Print heuristics about puzzle files",
		ArgsUsage: "[puzzle id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "Puzzle directory"},
			&cli.BoolFlag{Name: "solve", Usage: "Also run both search modes"},
			&cli.IntFlag{Name: "state-limit", Value: 1_000_000, Usage: "State cap per search"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return analyzeDir(os.Stdout, cmd.String("dir"), cmd.Args().Slice(), cmd.Bool("solve"), cmd.Int("state-limit"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// analyzeDir reports on ids, or on every valid puzzle in dir when ids is empty.
func analyzeDir(w io.Writer, dir string, ids []string, solve bool, stateLimit int) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		infos, err := manager.ListPuzzles()
		if err != nil {
			return err
		}
		for _, info := range infos {
			ids = append(ids, info.PuzzleID)
		}
	}

	for _, id := range ids {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", id)
		p, err := manager.LoadPuzzle(id)
		if err != nil {
			fmt.Fprintf(w, "Error loading puzzle: %v\n", err)
			continue
		}
		a, err := analyzePuzzle(id, p, solve, stateLimit)
		if err != nil {
			fmt.Fprintf(w, "Error analyzing puzzle: %v\n", err)
			continue
		}
		printAnalysis(w, a)
	}
	return nil
}

// analyzePuzzle computes the static stats and, when solve is set, both searches.
func analyzePuzzle(id string, p *engine.PuzzleConfig, solve bool, stateLimit int) (*Analysis, error) {
	eng, err := engine.NewEngine(p)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		PuzzleID: id,
		Name:     p.Name,
		Dims:     p.Dims(),
		Stats:    service.ComputeStats(eng.Board(), eng.Root()),
		Moves:    eng.GetPossibleMoves(),
	}
	if !solve {
		return a, nil
	}

	var opts []engine.Option
	if stateLimit > 0 {
		opts = append(opts, engine.WithStateLimit(stateLimit))
	}
	if a.Shortest, err = summarize(eng, engine.ModeShortest, 0, opts); err != nil {
		return nil, err
	}
	if a.Budget, err = summarize(eng, engine.ModeBudget, p.EffectiveBudget(), opts); err != nil {
		return nil, err
	}
	return a, nil
}

func summarize(eng *engine.Engine, mode engine.Mode, budget int, opts []engine.Option) (*SearchSummary, error) {
	start := time.Now()
	r, err := eng.Solve(mode, budget, opts...)
	if err != nil {
		return nil, err
	}
	return &SearchSummary{
		Found:     r.Found,
		Moves:     r.Moves(),
		StepsLeft: r.StepsLeft,
		Visited:   r.Visited,
		Truncated: r.Truncated,
		Elapsed:   time.Since(start),
	}, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	s := a.Stats
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Dims.Width, a.Dims.Height)
	fmt.Fprintf(w, "Open Cells: %d (reachable ignoring obstacles: %d)\n", s.OpenCells, s.ReachableCells)
	fmt.Fprintf(w, "Rocks: %d  Fragile: %d\n", s.Rocks, s.Fragile)
	fmt.Fprintf(w, "Key: %t  Lock: %t  Hazards: %t\n", s.HasKey, s.HasLock, s.Hazards)
	fmt.Fprintf(w, "Goal Distance: %d\n", s.GoalDistance)

	if len(a.Moves) == 0 {
		fmt.Fprintf(w, "⚠️  WARNING: the player has no legal first move\n")
	}
	if s.HasLock && !s.HasKey {
		fmt.Fprintf(w, "⚠️  WARNING: lock without a key is treated as floor\n")
	}
	if s.GoalEnclosed {
		fmt.Fprintf(w, "⚠️  CRITICAL: walls cut the player off from the goal\n")
	} else {
		fmt.Fprintf(w, "✅ Goal is connected to the player through open cells\n")
	}

	printSummary(w, "Shortest", a.Shortest)
	printSummary(w, "Budget", a.Budget)
}

func printSummary(w io.Writer, label string, r *SearchSummary) {
	if r == nil {
		return
	}
	switch {
	case r.Found:
		fmt.Fprintf(w, "%s: %d moves", label, r.Moves)
		if r.StepsLeft > 0 {
			fmt.Fprintf(w, ", %d left", r.StepsLeft)
		}
	case r.Truncated:
		fmt.Fprintf(w, "%s: gave up", label)
	default:
		fmt.Fprintf(w, "%s: no solution", label)
	}
	fmt.Fprintf(w, " (%d states, %s)\n", r.Visited, r.Elapsed.Round(time.Millisecond))
}
