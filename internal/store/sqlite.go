package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/stable/internal/types"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite is the local file backend. Timestamps are stored as Unix nanoseconds.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path. ":memory:" gives a private in-memory database.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stat_cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			speed INTEGER NOT NULL,
			stamina INTEGER NOT NULL,
			jump INTEGER NOT NULL,
			tuning TEXT NOT NULL,
			image_id TEXT NOT NULL,
			image_size INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS races (
			id TEXT PRIMARY KEY,
			name_a TEXT NOT NULL,
			name_b TEXT NOT NULL,
			winner TEXT NOT NULL,
			score_a REAL NOT NULL,
			score_b REAL NOT NULL,
			raced_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS races_raced_at_idx ON races (raced_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database handle.
func (s *SQLite) Close(ctx context.Context) {
	s.db.Close()
}

// SaveCard inserts a card and returns its row ID.
func (s *SQLite) SaveCard(ctx context.Context, card types.StatCard, imageID string, imageSize int64) (int, error) {
	tuning, err := json.Marshal(card.Tuning)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stat_cards (name, speed, stamina, jump, tuning, image_id, image_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, card.Name, card.Speed, card.Stamina, card.Jump, string(tuning), imageID, imageSize, time.Now().UTC().UnixNano())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// ListCards returns every registered card, oldest first.
func (s *SQLite) ListCards(ctx context.Context) ([]CardRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, speed, stamina, jump, tuning, image_id, image_size, created_at
		FROM stat_cards ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []CardRecord
	for rows.Next() {
		var rec CardRecord
		var tuning string
		var created int64
		if err := rows.Scan(&rec.ID, &rec.Card.Name, &rec.Card.Speed, &rec.Card.Stamina, &rec.Card.Jump,
			&tuning, &rec.ImageID, &rec.ImageSize, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tuning), &rec.Card.Tuning); err != nil {
			return nil, fmt.Errorf("card %d has corrupt tuning: %w", rec.ID, err)
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		cards = append(cards, rec)
	}
	return cards, rows.Err()
}

// RenameCard updates the name of a registered card.
func (s *SQLite) RenameCard(ctx context.Context, id int, name string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE stat_cards SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRace saves a race outcome.
func (s *SQLite) RecordRace(ctx context.Context, nameA, nameB string, res types.RaceResult) (RaceRecord, error) {
	rec := newRaceRecord(nameA, nameB, res)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO races (id, name_a, name_b, winner, score_a, score_b, raced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID.String(), nameA, nameB, res.Winner, res.ScoreA, res.ScoreB, rec.RacedAt.UnixNano())
	return rec, err
}

// ListRaces returns recent races, newest first.
func (s *SQLite) ListRaces(ctx context.Context, limit int) ([]RaceRecord, error) {
	query := `SELECT id, name_a, name_b, winner, score_a, score_b, raced_at FROM races ORDER BY raced_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []RaceRecord
	for rows.Next() {
		var rec RaceRecord
		var id string
		var raced int64
		if err := rows.Scan(&id, &rec.NameA, &rec.NameB, &rec.Result.Winner,
			&rec.Result.ScoreA, &rec.Result.ScoreB, &raced); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		rec.RacedAt = time.Unix(0, raced).UTC()
		races = append(races, rec)
	}
	return races, rows.Err()
}

// Reset drops all registry tables.
func (s *SQLite) Reset(ctx context.Context) error {
	for _, stmt := range []string{"DROP TABLE IF EXISTS races", "DROP TABLE IF EXISTS stat_cards"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
