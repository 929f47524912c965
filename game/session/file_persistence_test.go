package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/kickroom/game/service"
)

func TestFilePersistence(t *testing.T) {
	tempDir := t.TempDir()

	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	finishedAt := time.Now().Truncate(time.Second)
	run := &service.Run{
		ID:         uuid.NewString(),
		PuzzleID:   "classic",
		PuzzleName: "Classic",
		Mode:       "budget",
		Budget:     30,
		Status:     service.RunSolved,
		Found:      true,
		Verified:   true,
		Moves:      []string{"up", "up", "left"},
		MoveCount:  3,
		StepsLeft:  27,
		Visited:    120,
		CreatedAt:  finishedAt.Add(-time.Second),
		FinishedAt: &finishedAt,
	}

	t.Run("Save and Load Run", func(t *testing.T) {
		if err := persistence.Save(run); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
		if !persistence.Exists(run.ID) {
			t.Error("Run file should exist after save")
		}

		loaded, err := persistence.Load(run.ID)
		if err != nil {
			t.Fatalf("Failed to load run: %v", err)
		}
		if loaded.ID != run.ID {
			t.Errorf("Expected ID %s, got %s", run.ID, loaded.ID)
		}
		if loaded.Status != service.RunSolved || loaded.StepsLeft != 27 {
			t.Errorf("Unexpected loaded run: %+v", loaded)
		}
		if loaded.FinishedAt == nil || !loaded.FinishedAt.Equal(finishedAt) {
			t.Errorf("Expected FinishedAt %v, got %v", finishedAt, loaded.FinishedAt)
		}
	})

	t.Run("List All Runs", func(t *testing.T) {
		second := &service.Run{ID: uuid.NewString(), PuzzleID: "other", Status: service.RunRunning}
		if err := persistence.Save(second); err != nil {
			t.Fatalf("Failed to save second run: %v", err)
		}
		// stray files are ignored
		os.WriteFile(filepath.Join(tempDir, "notes.json"), []byte("{}"), 0644)
		os.WriteFile(filepath.Join(tempDir, "readme.txt"), []byte("x"), 0644)

		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list runs: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("Expected 2 runs, got %d: %v", len(ids), ids)
		}
	})

	t.Run("Load Non-existent Run", func(t *testing.T) {
		if _, err := persistence.Load(uuid.NewString()); err != ErrRunNotFound {
			t.Errorf("Expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Rejects path-like IDs", func(t *testing.T) {
		bad := &service.Run{ID: "../../etc/passwd"}
		if err := persistence.Save(bad); err == nil {
			t.Error("Expected error for non-UUID run ID")
		}
		if persistence.Exists("../" + run.ID) {
			t.Error("Exists must not resolve path-like IDs")
		}
	})

	t.Run("Delete Run", func(t *testing.T) {
		if err := persistence.Delete(run.ID); err != nil {
			t.Fatalf("Failed to delete run: %v", err)
		}
		if persistence.Exists(run.ID) {
			t.Error("Run file should not exist after delete")
		}
		if err := persistence.Delete(run.ID); err != ErrRunNotFound {
			t.Errorf("Expected ErrRunNotFound, got %v", err)
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	tempDir := t.TempDir()
	persistence, err := NewFilePersistence(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	run := &service.Run{
		ID:       uuid.NewString(),
		PuzzleID: "structure",
		Mode:     "shortest",
		Status:   service.RunUnsolvable,
		Message:  "No way out",
	}
	if err := persistence.Save(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tempDir, run.ID+".json"))
	if err != nil {
		t.Fatalf("Failed to read run file: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Run file is not valid JSON: %v", err)
	}
	for _, field := range []string{"id", "puzzle_id", "mode", "status", "message"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("Run file missing field %q", field)
		}
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("Run file should be indented")
	}

	entries, _ := os.ReadDir(tempDir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Temporary file left behind: %s", e.Name())
		}
	}
}
