package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/wricardo/kickroom/game/engine"
	"github.com/wricardo/kickroom/game/service"
)

var (
	ErrPuzzleNotFound = service.ErrPuzzleNotFound
	ErrInvalidPuzzle  = engine.ErrInvalidPuzzle
)

// puzzleExts are tried in order when a puzzle is named without extension.
var puzzleExts = []string{".json", ".yaml", ".yml"}

// Manager handles puzzle loading and caching
type Manager struct {
	dir           string
	defaultPuzzle *engine.PuzzleConfig
	puzzles       map[string]*engine.PuzzleConfig
	mu            sync.RWMutex
	logger        *slog.Logger
}

// NewManager creates a new puzzle manager over dir
func NewManager(dir string) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("puzzle directory does not exist: %s", dir)
	}

	m := &Manager{
		dir:     dir,
		puzzles: make(map[string]*engine.PuzzleConfig),
		logger:  slog.Default().With("component", "puzzles"),
	}

	if err := m.loadDefaultPuzzle(); err != nil {
		return nil, fmt.Errorf("failed to load default puzzle: %w", err)
	}

	return m, nil
}

// Dir returns the puzzle directory.
func (m *Manager) Dir() string {
	return m.dir
}

// puzzleID strips any known extension from name.
func puzzleID(name string) string {
	ext := filepath.Ext(name)
	for _, known := range puzzleExts {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// findFile locates the file backing a puzzle ID.
func (m *Manager) findFile(name string) (string, error) {
	if ext := filepath.Ext(name); ext != "" && puzzleID(name) != name {
		path := filepath.Join(m.dir, name)
		if _, err := os.Stat(path); err != nil {
			return "", ErrPuzzleNotFound
		}
		return path, nil
	}
	for _, ext := range puzzleExts {
		path := filepath.Join(m.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrPuzzleNotFound
}

// LoadPuzzle loads a puzzle by ID, with or without a file extension
func (m *Manager) LoadPuzzle(name string) (*engine.PuzzleConfig, error) {
	if strings.ContainsAny(name, `/\`) || name == "" || name == "." || name == ".." {
		return nil, ErrPuzzleNotFound
	}
	id := puzzleID(name)

	m.mu.RLock()
	if p, exists := m.puzzles[id]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if p, exists := m.puzzles[id]; exists {
		return p, nil
	}

	path, err := m.findFile(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	p, err := engine.DecodePuzzle(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}

	if err := engine.ValidatePuzzleConfig(p); err != nil {
		return nil, fmt.Errorf("puzzle %s: %w", id, err)
	}

	m.puzzles[id] = p
	return p, nil
}

// ListPuzzles returns information about every loadable puzzle, sorted by ID
func (m *Manager) ListPuzzles() ([]*service.PuzzleInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle directory: %w", err)
	}

	seen := make(map[string]bool)
	var puzzles []*service.PuzzleInfo

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := puzzleID(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}
		seen[id] = true

		p, err := m.LoadPuzzle(entry.Name())
		if err != nil {
			m.logger.Warn("skipping invalid puzzle", "file", entry.Name(), "error", err)
			continue
		}

		dims := p.Dims()
		puzzles = append(puzzles, &service.PuzzleInfo{
			Filename:    entry.Name(),
			PuzzleID:    id,
			Name:        p.Name,
			Description: p.Description,
			Width:       dims.Width,
			Height:      dims.Height,
			Mode:        string(p.EffectiveMode()),
			Budget:      p.EffectiveBudget(),
		})
	}

	sort.Slice(puzzles, func(i, j int) bool { return puzzles[i].PuzzleID < puzzles[j].PuzzleID })
	return puzzles, nil
}

// GetDefault returns the default puzzle
func (m *Manager) GetDefault() *engine.PuzzleConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPuzzle
}

// SetDefault sets the default puzzle by ID
func (m *Manager) SetDefault(name string) error {
	p, err := m.LoadPuzzle(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPuzzle = p
	return nil
}

// RefreshCache drops every cached puzzle and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.puzzles = make(map[string]*engine.PuzzleConfig)
	m.mu.Unlock()

	return m.loadDefaultPuzzle()
}

// Invalidate drops one cached puzzle.
func (m *Manager) Invalidate(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.puzzles, puzzleID(name))
}

// loadDefaultPuzzle picks classic, then the first valid file, then the
// built-in room.
func (m *Manager) loadDefaultPuzzle() error {
	p, err := m.LoadPuzzle("classic")
	if err != nil {
		puzzles, listErr := m.ListPuzzles()
		if listErr != nil || len(puzzles) == 0 {
			m.setDefault(engine.DefaultPuzzle())
			return nil
		}

		p, err = m.LoadPuzzle(puzzles[0].PuzzleID)
		if err != nil {
			m.setDefault(engine.DefaultPuzzle())
			return nil
		}
	}

	m.setDefault(p)
	return nil
}

func (m *Manager) setDefault(p *engine.PuzzleConfig) {
	m.mu.Lock()
	m.defaultPuzzle = p
	m.mu.Unlock()
}

// SavePuzzle validates a puzzle and writes it as JSON
func (m *Manager) SavePuzzle(name string, p *engine.PuzzleConfig) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad puzzle id %q", ErrInvalidPuzzle, name)
	}
	if err := engine.ValidatePuzzleConfig(p); err != nil {
		return err
	}

	id := puzzleID(name)
	path := filepath.Join(m.dir, id+".json")

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal puzzle: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write puzzle file: %w", err)
	}

	m.mu.Lock()
	m.puzzles[id] = p
	m.mu.Unlock()

	return nil
}

// Watch invalidates cached puzzles when their files change. It blocks until
// ctx is cancelled. onChange, if non-nil, is called with each changed ID.
func (m *Manager) Watch(ctx context.Context, onChange func(id string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			id := puzzleID(name)
			if id == name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			m.Invalidate(id)
			m.logger.Info("puzzle file changed", "puzzle_id", id, "op", event.Op.String())

			if id == "classic" {
				if err := m.loadDefaultPuzzle(); err != nil {
					m.logger.Warn("reload default puzzle", "error", err)
				}
			}
			if onChange != nil {
				onChange(id)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("puzzle watcher error", "error", err)
		}
	}
}
