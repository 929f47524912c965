package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/kickroom/game/service"
)

var (
	ErrRunNotFound      = service.ErrRunNotFound
	ErrRunAlreadyExists = errors.New("run already exists")
	ErrInvalidRunID     = errors.New("invalid run ID")
)

// Manager handles run storage
type Manager struct {
	runs        map[string]*service.Run
	persistence RunPersistence
	logger      *slog.Logger
	mu          sync.RWMutex
}

// NewManager creates a new in-memory run manager
func NewManager() *Manager {
	return &Manager{
		runs:   make(map[string]*service.Run),
		logger: slog.Default().With("component", "runs"),
	}
}

// NewManagerWithPersistence creates a new run manager with persistence
func NewManagerWithPersistence(persistence RunPersistence) *Manager {
	m := NewManager()
	m.persistence = persistence
	return m
}

// normalizeID lower-cases an ID and checks it is a UUID.
func normalizeID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}
	return parsed.String(), nil
}

// Create stores a new run. An empty run.ID is replaced by a fresh UUID.
func (m *Manager) Create(run *service.Run) (*service.Run, error) {
	if run == nil {
		return nil, fmt.Errorf("run cannot be nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	id, err := normalizeID(run.ID)
	if err != nil {
		return nil, err
	}
	run.ID = id
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[id]; exists {
		return nil, ErrRunAlreadyExists
	}
	m.runs[id] = run

	m.persist(run)
	return run, nil
}

// persist writes run through to storage, logging failures.
func (m *Manager) persist(run *service.Run) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(run); err != nil {
		m.logger.Warn("failed to persist run", "run_id", run.ID, "error", err)
	}
}

// Get retrieves a run by ID, falling back to persistence
func (m *Manager) Get(id string) (*service.Run, error) {
	key, err := normalizeID(id)
	if err != nil {
		return nil, ErrRunNotFound
	}

	m.mu.RLock()
	run, exists := m.runs[key]
	m.mu.RUnlock()
	if exists {
		return run, nil
	}

	if m.persistence != nil && m.persistence.Exists(key) {
		run, err := m.persistence.Load(key)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted run: %w", err)
		}

		m.mu.Lock()
		m.runs[key] = run
		m.mu.Unlock()

		return run, nil
	}

	return nil, ErrRunNotFound
}

// Update replaces a stored run
func (m *Manager) Update(run *service.Run) error {
	key, err := normalizeID(run.ID)
	if err != nil {
		return ErrRunNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[key]; !exists {
		return ErrRunNotFound
	}
	m.runs[key] = run

	m.persist(run)
	return nil
}

// List returns all runs in memory
func (m *Manager) List() []*service.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run)
	}
	return result
}

// Delete removes a run from memory and persistence
func (m *Manager) Delete(id string) error {
	key, err := normalizeID(id)
	if err != nil {
		return ErrRunNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.runs[key]
	delete(m.runs, key)

	if m.persistence != nil && m.persistence.Exists(key) {
		if err := m.persistence.Delete(key); err != nil {
			return fmt.Errorf("failed to delete persisted run: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrRunNotFound
	}
	return nil
}

// DeleteFromMemory removes a run from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	key, err := normalizeID(id)
	if err != nil {
		return ErrRunNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[key]; !exists {
		return ErrRunNotFound
	}
	delete(m.runs, key)
	return nil
}

// CleanupExpired removes finished runs older than maxAge from memory.
// Running runs are never removed.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, run := range m.runs {
		if !run.Done() {
			continue
		}
		last := run.CreatedAt
		if run.FinishedAt != nil {
			last = *run.FinishedAt
		}
		if last.Before(cutoff) {
			delete(m.runs, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of runs in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// LoadPersistedRuns loads all persisted runs into memory
func (m *Manager) LoadPersistedRuns() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted runs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.runs[id]; exists {
			continue
		}

		run, err := m.persistence.Load(id)
		if err != nil {
			m.logger.Warn("failed to load persisted run", "run_id", id, "error", err)
			continue
		}

		m.runs[id] = run
		loaded++
	}

	if loaded > 0 {
		m.logger.Info("loaded persisted runs", "count", loaded)
	}
	return nil
}

// SaveAllRuns saves all in-memory runs to persistence
func (m *Manager) SaveAllRuns() error {
	if m.persistence == nil {
		return nil
	}

	runs := m.List()

	errorCount := 0
	for _, run := range runs {
		if err := m.persistence.Save(run); err != nil {
			m.logger.Warn("failed to save run", "run_id", run.ID, "error", err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d runs", errorCount)
	}
	return nil
}
