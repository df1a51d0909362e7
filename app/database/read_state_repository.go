package database

import (
	"context"
	"fmt"
)

// ReadStateRepository stores per-dataset read flags keyed by article link.
type ReadStateRepository struct {
	db *DB
}

func NewReadStateRepository(db *DB) *ReadStateRepository {
	return &ReadStateRepository{db: db}
}

// GetReadState returns every stored flag for dataset. An unknown dataset
// yields an empty map.
func (r *ReadStateRepository) GetReadState(ctx context.Context, dataset string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT link, read FROM read_state WHERE dataset = ?`, dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to query read state: %w", err)
	}
	defer rows.Close()

	state := make(map[string]bool)
	for rows.Next() {
		var link string
		var read bool
		if err := rows.Scan(&link, &read); err != nil {
			return nil, fmt.Errorf("failed to scan read state: %w", err)
		}
		state[link] = read
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate read state: %w", err)
	}

	return state, nil
}

// ReplaceReadState overwrites all flags of dataset in one transaction.
func (r *ReadStateRepository) ReplaceReadState(ctx context.Context, dataset string, state map[string]bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM read_state WHERE dataset = ?`, dataset); err != nil {
		return fmt.Errorf("failed to clear read state: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO read_state (dataset, link, read) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for link, read := range state {
		if _, err := stmt.ExecContext(ctx, dataset, link, read); err != nil {
			return fmt.Errorf("failed to insert read state for %s: %w", link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit read state: %w", err)
	}
	return nil
}
