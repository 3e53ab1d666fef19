// Package db provides optional PostgreSQL persistence for pipeline runs,
// per-stage artifacts, and the final selection. The schema is in schema.sql.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmeier/structure-harvester/internal/types"
)

// Stage identifiers for persisted artifacts.
const (
	StageTargets    = "targets"
	StageAccessions = "accessions"
	StageCrossRef   = "crossref"
	StageQuality    = "quality"
	StageSelection  = "selection"
	StageDownload   = "download"
	StageConvert    = "convert"
)

// Artifact categories.
const (
	CategoryResolution = "resolution"
	CategoryMapping    = "mapping"
	CategorySelection  = "selection"
	CategoryDelivery   = "delivery"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusNoWork    = "no_work"
	StatusFailed    = "failed"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// CreateRun records a new pipeline run and returns its ID.
func (db *DB) CreateRun(ctx context.Context, targetListURL string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pipeline_runs (target_list_url, status)
		 VALUES ($1, $2)
		 RETURNING id`,
		targetListURL, StatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a pipeline run as finished with the given status.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveArtifact stores a JSON artifact for a run, replacing any previous
// artifact for the same stage.
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, stage, category string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO artifacts (run_id, stage, category, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, stage) DO UPDATE SET category = $3, content = $4, created_at = NOW()`,
		runID, stage, category, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", stage, err)
	}
	return nil
}

// SaveSelection stores the final one-structure-per-accession result rows.
func (db *DB) SaveSelection(ctx context.Context, runID uuid.UUID, selected []types.SelectedStructure) error {
	for _, s := range selected {
		_, err := db.pool.Exec(ctx,
			`INSERT INTO selected_structures (run_id, accession, structure_id, resolution, method)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (run_id, accession) DO UPDATE SET structure_id = $3, resolution = $4, method = $5`,
			runID, s.Accession, s.StructureID, s.Resolution, s.Method,
		)
		if err != nil {
			return fmt.Errorf("failed to save selection for %s: %w", s.Accession, err)
		}
	}
	return nil
}
