package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/queryir"
)

// ReadClasses returns every stored class ordered by name.
func (s *Store) ReadClasses(ctx context.Context) ([]ir.ClassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, spec_hash, supers, spec
		FROM classes
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

// ReadRunClasses returns the class versions a run was built from, ordered
// by name. Runs recorded without spec hashes yield an empty slice.
func (s *Store) ReadRunClasses(ctx context.Context, runID string) ([]ir.ClassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.name, v.spec_hash, v.supers, v.spec
		FROM run_classes r
		JOIN class_versions v ON v.name = r.class AND v.spec_hash = r.spec_hash
		WHERE r.run_id = ?
		ORDER BY v.name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run classes: %w", err)
	}
	defer rows.Close()
	return scanClasses(rows)
}

func scanClasses(rows *sql.Rows) ([]ir.ClassRecord, error) {
	classes := []ir.ClassRecord{}
	for rows.Next() {
		var rec ir.ClassRecord
		var supersJSON, specJSON string
		if err := rows.Scan(&rec.Name, &rec.SpecHash, &supersJSON, &specJSON); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		if err := unmarshalStruct("supers", supersJSON, &rec.Supers); err != nil {
			return nil, err
		}
		if err := unmarshalStruct("spec", specJSON, &rec.Spec); err != nil {
			return nil, err
		}
		classes = append(classes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return classes, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, class, args, seq, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return ir.Run{}, err
	}
	if run.SpecHashes, err = s.readSpecHashes(ctx, run.ID); err != nil {
		return ir.Run{}, err
	}
	return run, nil
}

// readSpecHashes returns nil when the run has no recorded hashes.
func (s *Store) readSpecHashes(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT class, spec_hash FROM run_classes WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query spec hashes: %w", err)
	}
	defer rows.Close()

	var hashes map[string]string
	for rows.Next() {
		var class, hash string
		if err := rows.Scan(&class, &hash); err != nil {
			return nil, fmt.Errorf("scan spec hash: %w", err)
		}
		if hashes == nil {
			hashes = map[string]string{}
		}
		hashes[class] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spec hashes: %w", err)
	}
	return hashes, nil
}

// ListRuns returns all runs ordered by seq ASC, id ASC. A non-empty class
// restricts the result to runs of that class.
func (s *Store) ListRuns(ctx context.Context, class string) ([]ir.Run, error) {
	var filter queryir.Predicate
	if class != "" {
		filter = queryir.Equals{Field: "class", Value: ir.IRString(class)}
	}
	return s.QueryRuns(ctx, filter)
}

// LastSeq returns the highest seq stored in runs or construction events,
// or 0 for an empty store. A clock resuming after it keeps seqs unique
// across the whole database.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var last int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(seq) FROM runs), 0),
			COALESCE((SELECT MAX(seq) FROM construction_events), 0)
		)
	`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return last, nil
}

// ReadRunEvents returns a run's construction events in seq order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadRunEvents(ctx context.Context, runID string) ([]ir.ConstructionEvent, error) {
	return s.QueryEvents(ctx, queryir.Equals{Field: "run_id", Value: ir.IRString(runID)})
}

// ReadSnapshot returns a run's snapshot and its digest.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSnapshot(ctx context.Context, runID string) (ir.InstanceSnapshot, string, error) {
	var digest, snapJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT digest, snapshot FROM snapshots WHERE run_id = ?
	`, runID).Scan(&digest, &snapJSON)
	if err != nil {
		return ir.InstanceSnapshot{}, "", err
	}

	var snap ir.InstanceSnapshot
	if err := unmarshalStruct("snapshot", snapJSON, &snap); err != nil {
		return ir.InstanceSnapshot{}, "", err
	}
	return snap, digest, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.Run, error) {
	var run ir.Run
	var argsJSON string
	if err := row.Scan(&run.ID, &run.Class, &argsJSON, &run.Seq, &run.EngineVersion, &run.IRVersion); err != nil {
		if err == sql.ErrNoRows {
			return ir.Run{}, err
		}
		return ir.Run{}, fmt.Errorf("scan run: %w", err)
	}
	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return ir.Run{}, err
	}
	run.Args = args
	return run, nil
}
