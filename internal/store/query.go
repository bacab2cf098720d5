package store

import (
	"context"
	"fmt"

	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/queryir"
	"github.com/roach88/classkit/internal/querysql"
)

// QueryRuns returns the runs matching filter, ordered by seq ASC, id ASC.
// A nil filter matches every run.
func (s *Store) QueryRuns(ctx context.Context, filter queryir.Predicate) ([]ir.Run, error) {
	runs, err := s.queryRunRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	// The single connection is free again once the run rows are closed.
	for i := range runs {
		if runs[i].SpecHashes, err = s.readSpecHashes(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) queryRunRows(ctx context.Context, filter queryir.Predicate) ([]ir.Run, error) {
	query, params, err := querysql.Compile(queryir.Select{
		From:    queryir.TableRuns,
		Columns: queryir.ColumnNames(queryir.TableRuns),
		Filter:  filter,
	})
	if err != nil {
		return nil, fmt.Errorf("compile runs query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// QueryEvents returns the construction events matching filter across all
// runs, ordered by seq ASC, run_id ASC. A nil filter matches every event.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryEvents(ctx context.Context, filter queryir.Predicate) ([]ir.ConstructionEvent, error) {
	query, params, err := querysql.Compile(queryir.Select{
		From:    queryir.TableEvents,
		Columns: queryir.ColumnNames(queryir.TableEvents),
		Filter:  filter,
	})
	if err != nil {
		return nil, fmt.Errorf("compile events query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.ConstructionEvent{}
	for rows.Next() {
		var ev ir.ConstructionEvent
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.Class, &ev.Target, &ev.Kind, &ev.Depth); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
