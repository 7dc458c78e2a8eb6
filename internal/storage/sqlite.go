package storage

import (
	"context"
	"database/sql"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/san-kum/gravsim/internal/dynamo"
)

// IF NOT EXISTS keeps the DDL safe to run on every open.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    bodies     INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snapshots (
    run_id TEXT    NOT NULL,
    step   INTEGER NOT NULL,
    time   REAL    NOT NULL,
    body   INTEGER NOT NULL,
    m      REAL    NOT NULL,
    x      REAL    NOT NULL,
    y      REAL    NOT NULL,
    vx     REAL    NOT NULL,
    vy     REAL    NOT NULL,
    fx     REAL    NOT NULL,
    fy     REAL    NOT NULL,
    PRIMARY KEY (run_id, step, body)
);
`

// SQLiteRecorder writes every step of one run into a SQLite database in
// WAL mode.
type SQLiteRecorder struct {
	db    *sql.DB
	runID string
	err   error
}

// NewSQLiteRecorder opens (or creates) the database at dbPath and registers
// runID.
func NewSQLiteRecorder(ctx context.Context, dbPath, runID, name string, bodies int) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO runs (run_id, name, bodies) VALUES (?, ?, ?)", runID, name, bodies); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: register run %q: %w", runID, err)
	}

	return &SQLiteRecorder{db: db, runID: runID}, nil
}

func (r *SQLiteRecorder) RunID() string { return r.runID }

// OnStep stores snap in a single transaction. The first failure stops
// recording and is reported by Err.
func (r *SQLiteRecorder) OnStep(snap dynamo.Snapshot) {
	if r.err != nil {
		return
	}
	if err := r.insert(context.Background(), snap); err != nil {
		r.err = err
	}
}

func (r *SQLiteRecorder) insert(ctx context.Context, snap dynamo.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx for step %d: %w", snap.Step, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const q = `
		INSERT INTO snapshots (run_id, step, time, body, m, x, y, vx, vy, fx, fy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("storage: prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i := range snap.R {
		if _, err := stmt.ExecContext(ctx, r.runID, snap.Step, snap.Time, i, snap.M[i],
			snap.R[i].X, snap.R[i].Y, snap.V[i].X, snap.V[i].Y, snap.F[i].X, snap.F[i].Y); err != nil {
			return fmt.Errorf("storage: insert step %d body %d: %w", snap.Step, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit step %d: %w", snap.Step, err)
	}
	return nil
}

func (r *SQLiteRecorder) Err() error { return r.err }

// Steps counts the distinct steps recorded for this run.
func (r *SQLiteRecorder) Steps(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT step) FROM snapshots WHERE run_id = ?", r.runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count steps: %w", err)
	}
	return n, nil
}

// Snapshots reads back every recorded step of this run in order.
func (r *SQLiteRecorder) Snapshots(ctx context.Context) ([]dynamo.Snapshot, error) {
	const q = `
		SELECT step, time, body, m, x, y, vx, vy, fx, fy
		FROM snapshots WHERE run_id = ? ORDER BY step, body`

	rows, err := r.db.QueryContext(ctx, q, r.runID)
	if err != nil {
		return nil, fmt.Errorf("storage: query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []dynamo.Snapshot
	for rows.Next() {
		var (
			step, body int
			t, m       float64
			pos, vel   r2.Vec
			force      r2.Vec
		)
		if err := rows.Scan(&step, &t, &body, &m, &pos.X, &pos.Y, &vel.X, &vel.Y, &force.X, &force.Y); err != nil {
			return nil, fmt.Errorf("storage: scan snapshot: %w", err)
		}
		if len(snaps) == 0 || snaps[len(snaps)-1].Step != step {
			snaps = append(snaps, dynamo.Snapshot{Step: step, Time: t})
		}
		cur := &snaps[len(snaps)-1]
		cur.M = append(cur.M, m)
		cur.R = append(cur.R, pos)
		cur.V = append(cur.V, vel)
		cur.F = append(cur.F, force)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate snapshots: %w", err)
	}
	return snaps, nil
}

func (r *SQLiteRecorder) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("storage: close database: %w", err)
	}
	return nil
}
