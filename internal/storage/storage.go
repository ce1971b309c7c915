// Package storage provides SQLite-backed persistence for invitation rounds and
// candidate-pool distribution snapshots.
//
// Rounds are unique per (category, date, score) and snapshots per calendar date, so
// re-ingesting an overlapping feed is idempotent. The first snapshot stored for a date
// wins. Rotation keeps the most recent rounds per category to bound the database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rewired-gh/drawcast/internal/models"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
	id          TEXT PRIMARY KEY,
	category    TEXT NOT NULL,
	date        TEXT NOT NULL,
	score       INTEGER NOT NULL,
	invitations INTEGER NOT NULL DEFAULT 0,
	UNIQUE (category, date, score)
);
CREATE INDEX IF NOT EXISTS idx_rounds_category_date ON rounds (category, date);

CREATE TABLE IF NOT EXISTS snapshots (
	as_of TEXT PRIMARY KEY,
	total INTEGER NOT NULL,
	bands TEXT NOT NULL
);
`

// Storage persists rounds and snapshots in a SQLite database
type Storage struct {
	db                   *sql.DB
	maxRoundsPerCategory int
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an ephemeral store.
func New(maxRoundsPerCategory int, dbPath string) (*Storage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{db: db, maxRoundsPerCategory: maxRoundsPerCategory}, nil
}

// Close releases the database handle
func (s *Storage) Close() error {
	return s.db.Close()
}

// AddRound stores a round. It returns false without error when an identical
// (category, date, score) round already exists.
func (s *Storage) AddRound(ctx context.Context, round *models.Round) (bool, error) {
	n, err := s.AddRounds(ctx, []models.Round{*round})
	return n == 1, err
}

// AddRounds stores rounds in one transaction and returns how many were new.
// Invalid rounds abort the whole batch. Rounds older than everything a full category
// retains are skipped, since rotation would delete them again.
func (s *Storage) AddRounds(ctx context.Context, rounds []models.Round) (int, error) {
	for i := range rounds {
		if err := rounds[i].Validate(); err != nil {
			return 0, fmt.Errorf("invalid round: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	floors, err := retentionFloors(ctx, tx, s.maxRoundsPerCategory)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO rounds (id, category, date, score, invitations) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, r := range rounds {
		if floor, full := floors[r.Category]; full && models.FormatDate(r.Date) < floor {
			continue
		}
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		res, err := stmt.ExecContext(ctx, id, r.Category, models.FormatDate(r.Date), r.Score, r.Invitations)
		if err != nil {
			return 0, fmt.Errorf("failed to insert round: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rounds: %w", err)
	}
	return added, nil
}

// retentionFloors returns, for each category already holding limit rounds, the date
// of its oldest retained round.
func retentionFloors(ctx context.Context, tx *sql.Tx, limit int) (map[string]string, error) {
	floors := make(map[string]string)
	if limit <= 0 {
		return floors, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT category, date FROM (
			SELECT category, date, ROW_NUMBER() OVER (
				PARTITION BY category ORDER BY date DESC, rowid DESC
			) AS rn FROM rounds
		) WHERE rn = ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query retention floors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, date string
		if err := rows.Scan(&category, &date); err != nil {
			return nil, fmt.Errorf("failed to scan retention floor: %w", err)
		}
		floors[category] = date
	}
	return floors, rows.Err()
}

// GetRounds returns a category's rounds ordered by date ascending
func (s *Storage) GetRounds(ctx context.Context, category string) ([]models.Round, error) {
	return s.queryRounds(ctx,
		`SELECT id, category, date, score, invitations FROM rounds WHERE category = ? ORDER BY date, rowid`, category)
}

// GetAllRounds returns every stored round ordered by date ascending
func (s *Storage) GetAllRounds(ctx context.Context) ([]models.Round, error) {
	return s.queryRounds(ctx,
		`SELECT id, category, date, score, invitations FROM rounds ORDER BY date, rowid`)
}

func (s *Storage) queryRounds(ctx context.Context, query string, args ...interface{}) ([]models.Round, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	rounds := []models.Round{}
	for rows.Next() {
		var r models.Round
		var date string
		if err := rows.Scan(&r.ID, &r.Category, &date, &r.Score, &r.Invitations); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if r.Date, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// GetCategories returns the distinct categories in alphabetical order
func (s *Storage) GetCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM rounds ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AddSnapshot stores a distribution snapshot. It returns false without error when a
// snapshot for the same date is already stored.
func (s *Storage) AddSnapshot(ctx context.Context, snapshot *models.DistributionSnapshot) (bool, error) {
	if err := snapshot.Validate(); err != nil {
		return false, fmt.Errorf("invalid snapshot: %w", err)
	}

	bands, err := json.Marshal(snapshot.Bands)
	if err != nil {
		return false, fmt.Errorf("failed to marshal bands: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO snapshots (as_of, total, bands) VALUES (?, ?, ?)`,
		models.FormatDate(snapshot.AsOf), snapshot.Total, string(bands))
	if err != nil {
		return false, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetSnapshots returns all snapshots ordered by date ascending
func (s *Storage) GetSnapshots(ctx context.Context) ([]models.DistributionSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT as_of, total, bands FROM snapshots ORDER BY as_of`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []models.DistributionSnapshot{}
	for rows.Next() {
		var asOf, bands string
		var snap models.DistributionSnapshot
		if err := rows.Scan(&asOf, &snap.Total, &bands); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snap.AsOf, err = models.ParseDate(asOf); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", asOf, err)
		}
		if err := json.Unmarshal([]byte(bands), &snap.Bands); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bands for %s: %w", asOf, err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// RotateRounds deletes all but the most recent maxRoundsPerCategory rounds of each
// category and returns how many rows were removed.
func (s *Storage) RotateRounds(ctx context.Context) (int64, error) {
	if s.maxRoundsPerCategory <= 0 {
		return 0, errors.New("rotation limit must be positive")
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM rounds WHERE rowid IN (
			SELECT rowid FROM (
				SELECT rowid, ROW_NUMBER() OVER (
					PARTITION BY category ORDER BY date DESC, rowid DESC
				) AS rn FROM rounds
			) WHERE rn > ?
		)`, s.maxRoundsPerCategory)
	if err != nil {
		return 0, fmt.Errorf("failed to rotate rounds: %w", err)
	}
	return res.RowsAffected()
}
