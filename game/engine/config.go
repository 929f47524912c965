package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPuzzle wraps every puzzle validation failure.
var ErrInvalidPuzzle = errors.New("invalid puzzle")

// PuzzleConfig is a puzzle file: a layout plus the default way to solve it.
type PuzzleConfig struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Width       int               `json:"width,omitempty" yaml:"width,omitempty"`
	Height      int               `json:"height,omitempty" yaml:"height,omitempty"`
	Layout      []string          `json:"layout" yaml:"layout"`
	Mode        Mode              `json:"mode,omitempty" yaml:"mode,omitempty"`
	Budget      int               `json:"budget,omitempty" yaml:"budget,omitempty"`
	Legend      map[string]string `json:"legend,omitempty" yaml:"legend,omitempty"`
	Messages    PuzzleMessages    `json:"messages" yaml:"messages"`
}

// PuzzleMessages are shown by the CLI and MCP tools after a solve.
type PuzzleMessages struct {
	Solved     string `json:"solved,omitempty" yaml:"solved,omitempty"`
	Unsolvable string `json:"unsolvable,omitempty" yaml:"unsolvable,omitempty"`
}

// Dims returns the puzzle's grid size, defaulting to 16x8.
func (p *PuzzleConfig) Dims() Dims {
	d := DefaultDims()
	if p.Width > 0 {
		d.Width = p.Width
	}
	if p.Height > 0 {
		d.Height = p.Height
	}
	return d
}

// EffectiveMode returns the configured mode, defaulting to shortest.
func (p *PuzzleConfig) EffectiveMode() Mode {
	if p.Mode == "" {
		return ModeShortest
	}
	return p.Mode
}

// EffectiveBudget returns the configured budget, defaulting to DefaultBudget.
func (p *PuzzleConfig) EffectiveBudget() int {
	if p.Budget <= 0 {
		return DefaultBudget
	}
	return p.Budget
}

// SolvedMessage formats the success message for a solution of n moves.
func (p *PuzzleConfig) SolvedMessage(n int) string {
	if p.Messages.Solved == "" {
		return fmt.Sprintf("Solved in %d moves", n)
	}
	return fmt.Sprintf(p.Messages.Solved, n)
}

// UnsolvableMessage returns the message for a puzzle with no solution.
func (p *PuzzleConfig) UnsolvableMessage() string {
	if p.Messages.Unsolvable == "" {
		return "No solution"
	}
	return p.Messages.Unsolvable
}

// Build parses the layout into a board and root state.
func (p *PuzzleConfig) Build() (*Board, State, error) {
	return ParseLayout(p.Dims(), p.Layout)
}

// ValidatePuzzleConfig checks a puzzle for correctness. It does not solve it.
func ValidatePuzzleConfig(p *PuzzleConfig) error {
	if p == nil {
		return fmt.Errorf("%w: puzzle is nil", ErrInvalidPuzzle)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPuzzle)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidPuzzle)
	}

	dims := p.Dims()
	if err := dims.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPuzzle, err)
	}

	if len(p.Layout) == 0 {
		return fmt.Errorf("%w: layout is empty", ErrInvalidPuzzle)
	}
	if len(p.Layout) > dims.Height {
		return fmt.Errorf("%w: layout has %d rows but height is %d", ErrInvalidPuzzle, len(p.Layout), dims.Height)
	}
	for i, row := range p.Layout {
		if n := len([]rune(row)); n > dims.Width {
			return fmt.Errorf("%w: row %d has %d characters but width is %d", ErrInvalidPuzzle, i+1, n, dims.Width)
		}
	}

	if _, err := ParseMode(string(p.Mode)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPuzzle, err)
	}
	if p.Budget < 0 || p.Budget > MaxBudget {
		return fmt.Errorf("%w: budget must be between 0 and %d, got %d", ErrInvalidPuzzle, MaxBudget, p.Budget)
	}

	for key, value := range p.Legend {
		if expected, ok := Legend[key]; !ok || expected != value {
			return fmt.Errorf("%w: legend['%s'] must be '%s', got '%s'", ErrInvalidPuzzle, key, expected, value)
		}
	}

	if p.Messages.Solved != "" && !strings.Contains(p.Messages.Solved, "%d") {
		return fmt.Errorf("%w: messages.solved must contain %%d for the move count", ErrInvalidPuzzle)
	}

	if _, _, err := p.Build(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPuzzle, err)
	}
	return nil
}

// DecodePuzzle reads a puzzle in the given format ("json", "yaml" or "yml").
func DecodePuzzle(data []byte, format string) (*PuzzleConfig, error) {
	var p PuzzleConfig
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse yaml puzzle: %w", err)
		}
	case "json", "":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse json puzzle: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported puzzle format %q", format)
	}
	return &p, nil
}

// LoadPuzzleConfig reads and validates a puzzle file. The format follows
// the file extension.
func LoadPuzzleConfig(path string) (*PuzzleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := DecodePuzzle(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if err := ValidatePuzzleConfig(p); err != nil {
		return nil, err
	}
	return p, nil
}

// DefaultPuzzle returns the classic 16x8 room.
func DefaultPuzzle() *PuzzleConfig {
	return &PuzzleConfig{
		Name:        "classic",
		Description: "Kick rocks aside, fetch the key and reach the goal behind the lock",
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		Layout: []string{
			"###########",
			"#### G ####",
			"####OLO####",
			"##O#O  # ##",
			"#O  OOO  K#",
			"# OOO  OO #",
			"##@ O  O ##",
			"###########",
		},
		Mode:   ModeShortest,
		Budget: DefaultBudget,
		Messages: PuzzleMessages{
			Solved:     "Reached the goal in %d moves",
			Unsolvable: "The goal cannot be reached",
		},
	}
}
