// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AleutianAI/driftgate/pkg/validation"
)

const schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	name       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	run_id     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	artifact   TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	PRIMARY KEY (name, version)
);

CREATE TABLE IF NOT EXISTS model_metrics (
	name    TEXT NOT NULL,
	version INTEGER NOT NULL,
	metric  TEXT NOT NULL,
	value   REAL NOT NULL,
	PRIMARY KEY (name, version, metric),
	FOREIGN KEY (name, version) REFERENCES model_versions(name, version)
);
`

// SQLiteRegistry is the registry's local backing store.
//
// The single-Production invariant is enforced inside the Promote
// transaction: promoting a version to Production archives whichever
// version currently holds it.
type SQLiteRegistry struct {
	db *sql.DB
}

var _ Registry = (*SQLiteRegistry)(nil)

// OpenSQLite opens (and migrates) a registry database. Use ":memory:" for
// an ephemeral registry in tests.
func OpenSQLite(path string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate registry: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// Register stores a new model version with the next version number and its
// run metrics, in one transaction.
func (r *SQLiteRegistry) Register(ctx context.Context, model ModelVersion, metrics MetricSet) (ModelVersion, error) {
	if err := validation.ValidateModelName(model.Name); err != nil {
		return ModelVersion{}, err
	}
	if model.Stage == "" {
		model.Stage = StageStaging
	}
	if _, err := ParseStage(string(model.Stage)); err != nil {
		return ModelVersion{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("begin register: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM model_versions WHERE name = ?`,
		model.Name).Scan(&next)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("next version: %w", err)
	}

	model.Version = next
	model.Created = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO model_versions (name, version, run_id, stage, artifact, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		model.Name, model.Version, model.RunID, string(model.Stage),
		model.Artifact, model.Created.Format(time.RFC3339Nano))
	if err != nil {
		return ModelVersion{}, fmt.Errorf("insert version: %w", err)
	}

	for metric, value := range metrics {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO model_metrics (name, version, metric, value) VALUES (?, ?, ?, ?)`,
			model.Name, model.Version, metric, value)
		if err != nil {
			return ModelVersion{}, fmt.Errorf("insert metric %s: %w", metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ModelVersion{}, fmt.Errorf("commit register: %w", err)
	}
	return model, nil
}

// ListVersions returns all versions of a model, oldest first.
func (r *SQLiteRegistry) ListVersions(ctx context.Context, name string) ([]ModelVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, version, run_id, stage, artifact, created_at
		 FROM model_versions WHERE name = ? ORDER BY version ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []ModelVersion
	for rows.Next() {
		mv, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, mv)
	}
	return versions, rows.Err()
}

// LatestVersion returns the newest version currently in the given stage.
func (r *SQLiteRegistry) LatestVersion(ctx context.Context, name string, stage Stage) (ModelVersion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT name, version, run_id, stage, artifact, created_at
		 FROM model_versions WHERE name = ? AND stage = ?
		 ORDER BY version DESC LIMIT 1`, name, string(stage))
	mv, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelVersion{}, fmt.Errorf("%s/%s: %w", name, stage, ErrNotFound)
	}
	return mv, err
}

// GetMetrics returns a version's logged metrics.
func (r *SQLiteRegistry) GetMetrics(ctx context.Context, name string, version int) (MetricSet, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM model_versions WHERE name = ? AND version = ?`,
		name, version).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("metrics lookup: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%s v%d: %w", name, version, ErrNotFound)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT metric, value FROM model_metrics WHERE name = ? AND version = ?`,
		name, version)
	if err != nil {
		return nil, fmt.Errorf("metrics query: %w", err)
	}
	defer rows.Close()

	metrics := make(MetricSet)
	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		metrics[metric] = value
	}
	return metrics, rows.Err()
}

// Promote transitions a version to the target stage. Promotion to
// Production archives the current Production version of the same model in
// the same transaction, so at most one Production version can ever be
// observed.
func (r *SQLiteRegistry) Promote(ctx context.Context, name string, version int, target Stage) error {
	if _, err := ParseStage(string(target)); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promote: %w", err)
	}
	defer tx.Rollback()

	if target == StageProduction {
		_, err = tx.ExecContext(ctx,
			`UPDATE model_versions SET stage = ? WHERE name = ? AND stage = ? AND version != ?`,
			string(StageArchived), name, string(StageProduction), version)
		if err != nil {
			return fmt.Errorf("archive previous production: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE model_versions SET stage = ? WHERE name = ? AND version = ?`,
		string(target), name, version)
	if err != nil {
		return fmt.Errorf("promote: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s v%d: %w", name, version, ErrNotFound)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (ModelVersion, error) {
	var mv ModelVersion
	var stage, created string
	if err := row.Scan(&mv.Name, &mv.Version, &mv.RunID, &stage, &mv.Artifact, &created); err != nil {
		return ModelVersion{}, err
	}
	mv.Stage = Stage(stage)
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		mv.Created = t
	}
	return mv, nil
}
