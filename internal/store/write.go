package store

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/classkit/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WriteClass upserts a class record. Re-writing the same spec is a no-op;
// a changed spec replaces the stored one. Every version written is also
// kept in class_versions under its spec hash.
func (s *Store) WriteClass(ctx context.Context, rec ir.ClassRecord) error {
	supers := rec.Supers
	if supers == nil {
		supers = []string{}
	}
	supersJSON, err := marshalStruct("supers", supers)
	if err != nil {
		return fmt.Errorf("write class: %w", err)
	}
	specJSON, err := marshalStruct("spec", rec.Spec)
	if err != nil {
		return fmt.Errorf("write class: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write class: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classes (name, spec_hash, supers, spec)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			spec_hash = excluded.spec_hash,
			supers = excluded.supers,
			spec = excluded.spec
		WHERE classes.spec_hash != excluded.spec_hash
	`, rec.Name, rec.SpecHash, supersJSON, specJSON)
	if err != nil {
		return fmt.Errorf("write class: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO class_versions (name, spec_hash, supers, spec)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name, spec_hash) DO NOTHING
	`, rec.Name, rec.SpecHash, supersJSON, specJSON)
	if err != nil {
		return fmt.Errorf("write class version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write class: commit: %w", err)
	}
	return nil
}

// WriteRun inserts a run record. Uses ON CONFLICT(id) DO NOTHING for
// idempotency.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	if err := insertRun(ctx, s.db, run); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvent inserts one construction event. The run must exist
// (foreign key constraint); rewriting the same (run_id, seq) is a no-op.
func (s *Store) WriteEvent(ctx context.Context, ev ir.ConstructionEvent) error {
	if err := insertEvent(ctx, s.db, ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteSnapshot stores the snapshot of a run and returns its digest.
// The run must exist.
func (s *Store) WriteSnapshot(ctx context.Context, snap ir.InstanceSnapshot) (string, error) {
	digest, err := insertSnapshot(ctx, s.db, snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return digest, nil
}

// RecordRun writes a run, its events and its snapshot in one transaction
// and returns the snapshot digest.
func (s *Store) RecordRun(ctx context.Context, run ir.Run, events []ir.ConstructionEvent, snap ir.InstanceSnapshot) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertRun(ctx, tx, run); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	for _, ev := range events {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return "", fmt.Errorf("record run: event %d: %w", ev.Seq, err)
		}
	}
	digest, err := insertSnapshot(ctx, tx, snap)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: commit: %w", err)
	}
	return digest, nil
}

func insertRun(ctx context.Context, x execer, run ir.Run) error {
	argsJSON, err := marshalArgs(run.Args)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx, `
		INSERT INTO runs (id, class, args, seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Class, argsJSON, run.Seq, run.EngineVersion, run.IRVersion)
	if err != nil {
		return err
	}
	for _, class := range slices.Sorted(maps.Keys(run.SpecHashes)) {
		_, err = x.ExecContext(ctx, `
			INSERT INTO run_classes (run_id, class, spec_hash)
			VALUES (?, ?, ?)
			ON CONFLICT(run_id, class) DO NOTHING
		`, run.ID, class, run.SpecHashes[class])
		if err != nil {
			return fmt.Errorf("run class %s: %w", class, err)
		}
	}
	return nil
}

func insertEvent(ctx context.Context, x execer, ev ir.ConstructionEvent) error {
	_, err := x.ExecContext(ctx, `
		INSERT INTO construction_events (run_id, seq, class, target, kind, depth)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, ev.RunID, ev.Seq, ev.Class, ev.Target, ev.Kind, ev.Depth)
	return err
}

func insertSnapshot(ctx context.Context, x execer, snap ir.InstanceSnapshot) (string, error) {
	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return "", err
	}
	snapJSON, err := marshalStruct("snapshot", snap)
	if err != nil {
		return "", err
	}
	_, err = x.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, digest, snapshot)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, snap.RunID, digest, snapJSON)
	if err != nil {
		return "", err
	}
	return digest, nil
}
