package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/rundigest/domain/plan"
	"github.com/felixgeelhaar/rundigest/domain/source"
)

// Archive is a SQLite-backed record archive implementing source.Source.
// It stores RECORDS (plans and runs), never reports.
type Archive struct {
	db *sql.DB
}

// NewArchive creates a new SQLite archive with the given configuration.
func NewArchive(cfg Config, opts ...Option) (*Archive, error) {
	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	a := &Archive{db: db}

	// Auto-migrate if enabled
	if cfg.AutoMigrate {
		if err := a.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return a, nil
}

// NewArchiveFromDB creates an archive from an existing database connection.
func NewArchiveFromDB(db *sql.DB) (*Archive, error) {
	a := &Archive{db: db}

	if err := a.migrate(); err != nil {
		return nil, err
	}

	return a, nil
}

// migrate creates the archive tables if they don't exist.
func (a *Archive) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			plan_id TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			completed_at INTEGER,
			duration_ms INTEGER,
			metadata TEXT,
			archived_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_plan_id ON runs(plan_id);
		CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state);
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

		CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			archived_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);

		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			since INTEGER NOT NULL,
			until INTEGER NOT NULL,
			run_count INTEGER NOT NULL,
			plan_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
	`

	_, err := a.db.Exec(schema)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveRuns upserts runs into the archive.
func (a *Archive) SaveRuns(ctx context.Context, runs ...plan.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, r := range runs {
		if r.ID == "" {
			return plan.ErrInvalidRunID
		}

		var metadata []byte
		if r.Metadata != nil {
			metadata, err = json.Marshal(r.Metadata)
			if err != nil {
				return err
			}
		}

		var completedAt, durationMs sql.NullInt64
		if r.CompletedAt != nil {
			completedAt = sql.NullInt64{Int64: r.CompletedAt.UnixMilli(), Valid: true}
		}
		if r.DurationMs != nil {
			durationMs = sql.NullInt64{Int64: *r.DurationMs, Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO runs (id, plan_id, state, created_at, completed_at, duration_ms, metadata, archived_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   plan_id=excluded.plan_id, state=excluded.state, created_at=excluded.created_at,
			   completed_at=excluded.completed_at, duration_ms=excluded.duration_ms,
			   metadata=excluded.metadata, archived_at=excluded.archived_at`,
			r.ID, r.PlanID, string(r.State), r.CreatedAt.UnixMilli(),
			completedAt, durationMs, metadata, now,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SavePlans upserts plans into the archive.
func (a *Archive) SavePlans(ctx context.Context, plans ...plan.Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, p := range plans {
		if p.ID == "" {
			return plan.ErrInvalidPlanID
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO plans (id, name, description, created_at, updated_at, archived_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   name=excluded.name, description=excluded.description,
			   created_at=excluded.created_at, updated_at=excluded.updated_at,
			   archived_at=excluded.archived_at`,
			p.ID, p.Name, p.Description, p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli(), now,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecordSnapshot records one archive snapshot and returns its identifier.
func (a *Archive) RecordSnapshot(ctx context.Context, since, until time.Time, runCount, planCount int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, since, until, run_count, plan_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, since.UnixMilli(), until.UnixMilli(), runCount, planCount, time.Now().UnixMilli(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListRuns returns archived runs matching the query, ordered by creation
// time then run ID.
func (a *Archive) ListRuns(ctx context.Context, query source.RunQuery) ([]plan.Run, error) {
	q := `SELECT id, plan_id, state, created_at, completed_at, duration_ms, metadata FROM runs WHERE 1=1`
	var args []any

	if query.PlanID != "" {
		q += ` AND plan_id = ?`
		args = append(args, query.PlanID)
	}
	if query.State != "" {
		q += ` AND state = ?`
		args = append(args, string(query.State))
	}
	if !query.Since.IsZero() {
		q += ` AND created_at >= ?`
		args = append(args, query.Since.UnixMilli())
	}
	if !query.Until.IsZero() {
		q += ` AND created_at < ?`
		args = append(args, query.Until.UnixMilli())
	}
	q += ` ORDER BY created_at, id`
	if query.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, query.Limit)
	}

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []plan.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListPlans returns up to limit archived plans ordered by creation time
// then plan ID.
func (a *Archive) ListPlans(ctx context.Context, limit int) ([]plan.Plan, error) {
	q := `SELECT id, name, description, created_at, updated_at FROM plans ORDER BY created_at, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetPlan retrieves an archived plan by ID.
func (a *Archive) GetPlan(ctx context.Context, id string) (plan.Plan, error) {
	if id == "" {
		return plan.Plan{}, plan.ErrInvalidPlanID
	}

	row := a.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Plan{}, plan.ErrPlanNotFound
	}
	return p, err
}

// GetRun retrieves an archived run by ID.
func (a *Archive) GetRun(ctx context.Context, id string) (plan.Run, error) {
	if id == "" {
		return plan.Run{}, plan.ErrInvalidRunID
	}

	row := a.db.QueryRowContext(ctx,
		`SELECT id, plan_id, state, created_at, completed_at, duration_ms, metadata FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Run{}, plan.ErrRunNotFound
	}
	return r, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (plan.Run, error) {
	var (
		r           plan.Run
		state       string
		createdAt   int64
		completedAt sql.NullInt64
		durationMs  sql.NullInt64
		metadata    sql.NullString
	)
	if err := s.Scan(&r.ID, &r.PlanID, &state, &createdAt, &completedAt, &durationMs, &metadata); err != nil {
		return plan.Run{}, err
	}

	r.State = plan.State(state)
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		r.CompletedAt = &t
	}
	if durationMs.Valid {
		ms := durationMs.Int64
		r.DurationMs = &ms
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return plan.Run{}, err
		}
	}
	return r, nil
}

func scanPlan(s scanner) (plan.Plan, error) {
	var (
		p           plan.Plan
		description sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	if err := s.Scan(&p.ID, &p.Name, &description, &createdAt, &updatedAt); err != nil {
		return plan.Plan{}, err
	}

	p.Description = description.String
	p.CreatedAt = time.UnixMilli(createdAt).UTC()
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return p, nil
}

// Ensure Archive implements the source interfaces.
var (
	_ source.Source    = (*Archive)(nil)
	_ source.RunGetter = (*Archive)(nil)
)
