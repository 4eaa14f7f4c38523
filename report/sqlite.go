package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Noofbiz/sharkcast/tracker"
)

// StoredError is an ErrorRecord as saved by one evaluation run.
type StoredError struct {
	RunID     string
	CreatedAt time.Time
	tracker.ErrorRecord
}

// SQLiteStore persists held-out error records in a SQLite database. Every
// SaveErrors call is one run with its own id, so runs can be compared.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS model_errors (
        run_id TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        shark_id TEXT NOT NULL,
        train_size INTEGER,
        test_size INTEGER,
        error_pos_km REAL,
        error_temp_c REAL,
        error_chl_mg REAL,
        PRIMARY KEY(run_id, shark_id)
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// SaveErrors stores recs under a new run id, which it returns.
func (s *SQLiteStore) SaveErrors(ctx context.Context, recs []tracker.ErrorRecord) (string, error) {
	runID := uuid.NewString()
	now := time.Now().UTC().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO model_errors
        (run_id, created_at, shark_id, train_size, test_size, error_pos_km, error_temp_c, error_chl_mg)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, runID, now, r.ID, r.TrainSize, r.TestSize, r.PositionKm, r.TempC, r.Chl); err != nil {
			return "", fmt.Errorf("insert %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// Query returns the records of runID ordered by shark id. An empty runID
// selects the most recent run.
func (s *SQLiteStore) Query(ctx context.Context, runID string) ([]StoredError, error) {
	if runID == "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT run_id FROM model_errors ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&runID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, shark_id, train_size, test_size,
        error_pos_km, error_temp_c, error_chl_mg
        FROM model_errors WHERE run_id = ? ORDER BY shark_id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var res []StoredError
	for rows.Next() {
		var e StoredError
		var ts int64
		if err := rows.Scan(&e.RunID, &ts, &e.ID, &e.TrainSize, &e.TestSize, &e.PositionKm, &e.TempC, &e.Chl); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(ts, 0).UTC()
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
