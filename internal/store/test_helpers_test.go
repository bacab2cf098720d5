package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/classkit/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a test run with minimal required fields.
func createTestRun(id, class string, seq int64) ir.Run {
	return ir.Run{
		ID:            id,
		Class:         class,
		Args:          ir.IRArray{},
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// createTestEvent creates a construction event for runID.
func createTestEvent(runID string, seq int64, class, target, kind string) ir.ConstructionEvent {
	return ir.ConstructionEvent{RunID: runID, Seq: seq, Class: class, Target: target, Kind: kind}
}
