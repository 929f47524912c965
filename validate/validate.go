// Command validate provides a small CLI that validates the puzzle files
// (.json, .yaml, .yml) in the ../configs directory. It checks:
//   - File structure and required fields
//   - Grid dimensions, row widths and allowed layout characters
//   - Exactly one player and one goal, at most one key and one lock
//   - Budget range and message placeholders
//   - Connectivity: the goal is reachable from the player through non-wall cells
//   - Optionally, that a solution exists (--solve)
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/kickroom/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validatePuzzle loads and validates a single puzzle file. A positive
// solveLimit also requires a shortest-mode solution found within that many
// states.
func validatePuzzle(filePath string, solveLimit int) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	puzzle, err := engine.DecodePuzzle(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("Invalid file: %v", err)
		return result
	}

	if err := engine.ValidatePuzzleConfig(puzzle); err != nil {
		result.fail("%v", err)
		return result
	}

	// Rows shorter than the grid are padded with floor, which is usually a typo
	dims := puzzle.Dims()
	for i, row := range puzzle.Layout {
		if n := len([]rune(row)); n != len([]rune(puzzle.Layout[0])) {
			result.Errors = append(result.Errors, fmt.Sprintf("Warning: row %d has %d characters, row 1 has %d", i+1, n, len([]rune(puzzle.Layout[0]))))
		}
	}

	board, root, err := puzzle.Build()
	if err != nil {
		result.fail("%v", err)
		return result
	}
	if board.HasLock && !board.HasKey {
		result.Errors = append(result.Errors, "Warning: lock without a key is plain floor")
	}

	connectivity := validateConnectivity(board, root)
	if !connectivity.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, connectivity.Errors...)

	if result.Valid && solveLimit > 0 {
		res := engine.SearchShortest(board, root, engine.WithStateLimit(solveLimit))
		switch {
		case res.Found:
			result.info("Solvable in %d moves (%d states)", res.Moves(), res.Visited)
		case res.Truncated:
			result.Errors = append(result.Errors, fmt.Sprintf("Warning: no solution within %d states", solveLimit))
		default:
			result.fail("Unsolvable: explored all %d states", res.Visited)
		}
	}

	// Add informational data
	if result.Valid {
		result.info("Name: %s", puzzle.Name)
		result.info("Grid: %s", dims)
		result.info("Rocks: %d", root.Obstacles.Len())
		result.info("Fragile: %d", root.Fragile.Len())
		result.info("Key/Lock: %t/%t", board.HasKey, board.HasLock)
		result.info("Mode: %s (budget %d)", puzzle.EffectiveMode(), puzzle.EffectiveBudget())
	}

	return result
}

// validateConnectivity ensures the goal is reachable from the player using
// 4-directional movement over non-wall cells. Obstacles and the lock are
// treated as passable since they can be moved or opened.
func validateConnectivity(b *engine.Board, root engine.State) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	reachable := engine.ReachableCells(b, root)
	if !reachable.Contains(b.Goal) {
		result.fail("Connectivity failure: goal at %s unreachable from player at %s", b.Goal, root.Player)
		return result
	}
	if b.HasKey && !reachable.Contains(b.Key) {
		result.Errors = append(result.Errors, fmt.Sprintf("Warning: key at %s is unreachable", b.Key))
	}

	result.info("Connectivity: goal reachable, %d of %d open cells reachable", reachable.Len(), engine.CountCells(b))
	return result
}

// puzzleFiles lists the puzzle files in dir, sorted by name.
func puzzleFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// validateDir validates every puzzle in dir, writes a report to w and
// reports whether all were valid.
func validateDir(w io.Writer, dir string, solveLimit int) (bool, error) {
	files, err := puzzleFiles(dir)
	if err != nil {
		return false, fmt.Errorf("error finding puzzle files: %w", err)
	}

	allValid := true
	for _, file := range files {
		result := validatePuzzle(file, solveLimit)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All puzzles are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some puzzles have errors")
	}
	return allValid, nil
}

// main validates the puzzle directory, exiting with non-zero status if any
// file is invalid.
func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "Validate puzzle files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "../configs", Usage: "Puzzle directory"},
			&cli.IntFlag{Name: "solve", Usage: "Also require a solution within this many states (0 = skip)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ok, err := validateDir(os.Stdout, cmd.String("dir"), cmd.Int("solve"))
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit("", 1)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
