package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/andresmejia3/stable/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Postgres manages a single PostgreSQL connection. A pgx.Conn is not safe for
// concurrent use, so every call holds mu.
type Postgres struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// NewPostgres establishes a connection to the database and ensures the schema is initialized.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initPostgresSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Postgres{conn: conn}, nil
}

// initPostgresSchema creates the registry tables if they don't exist (Auto-Migration).
func initPostgresSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS stat_cards (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			speed INT NOT NULL,
			stamina INT NOT NULL,
			jump INT NOT NULL,
			tuning JSONB NOT NULL,
			image_id TEXT NOT NULL,
			image_size BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS races (
			id UUID PRIMARY KEY,
			name_a TEXT NOT NULL,
			name_b TEXT NOT NULL,
			winner TEXT NOT NULL,
			score_a DOUBLE PRECISION NOT NULL,
			score_b DOUBLE PRECISION NOT NULL,
			raced_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS races_raced_at_idx ON races (raced_at DESC);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Postgres) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close(ctx)
}

// SaveCard inserts a card and returns its serial ID.
func (s *Postgres) SaveCard(ctx context.Context, card types.StatCard, imageID string, imageSize int64) (int, error) {
	tuning, err := json.Marshal(card.Tuning)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id int
	err = s.conn.QueryRow(ctx, `
		INSERT INTO stat_cards (name, speed, stamina, jump, tuning, image_id, image_size)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		RETURNING id
	`, card.Name, card.Speed, card.Stamina, card.Jump, string(tuning), imageID, imageSize).Scan(&id)
	return id, err
}

// ListCards returns every registered card, oldest first.
func (s *Postgres) ListCards(ctx context.Context) ([]CardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, `
		SELECT id, name, speed, stamina, jump, tuning::text, image_id, image_size, created_at
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
		if err := rows.Scan(&rec.ID, &rec.Card.Name, &rec.Card.Speed, &rec.Card.Stamina, &rec.Card.Jump,
			&tuning, &rec.ImageID, &rec.ImageSize, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tuning), &rec.Card.Tuning); err != nil {
			return nil, fmt.Errorf("card %d has corrupt tuning: %w", rec.ID, err)
		}
		cards = append(cards, rec)
	}
	return cards, rows.Err()
}

// RenameCard updates the name of a registered card.
func (s *Postgres) RenameCard(ctx context.Context, id int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.conn.Exec(ctx, "UPDATE stat_cards SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecordRace saves a race outcome.
func (s *Postgres) RecordRace(ctx context.Context, nameA, nameB string, res types.RaceResult) (RaceRecord, error) {
	rec := newRaceRecord(nameA, nameB, res)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(ctx, `
		INSERT INTO races (id, name_a, name_b, winner, score_a, score_b, raced_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
	`, rec.ID.String(), nameA, nameB, res.Winner, res.ScoreA, res.ScoreB, rec.RacedAt)
	return rec, err
}

// ListRaces returns recent races, newest first.
func (s *Postgres) ListRaces(ctx context.Context, limit int) ([]RaceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id::text, name_a, name_b, winner, score_a, score_b, raced_at FROM races ORDER BY raced_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []RaceRecord
	for rows.Next() {
		var rec RaceRecord
		var id string
		if err := rows.Scan(&id, &rec.NameA, &rec.NameB, &rec.Result.Winner,
			&rec.Result.ScoreA, &rec.Result.ScoreB, &rec.RacedAt); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		races = append(races, rec)
	}
	return races, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Postgres) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS races CASCADE;
		DROP TABLE IF EXISTS stat_cards CASCADE;
	`)
	return err
}
