// Package store is the optional stable registry: saved cards and race history.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresmejia3/stable/internal/types"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a card ID does not exist.
var ErrNotFound = errors.New("not found")

// CardRecord is a registered stat card.
type CardRecord struct {
	ID        int            `json:"id"`
	Card      types.StatCard `json:"card"`
	ImageID   string         `json:"image_id"`
	ImageSize int64          `json:"image_size"`
	CreatedAt time.Time      `json:"created_at"`
}

// RaceRecord is a recorded race outcome.
type RaceRecord struct {
	ID      uuid.UUID        `json:"id"`
	NameA   string           `json:"name_a"`
	NameB   string           `json:"name_b"`
	Result  types.RaceResult `json:"result"`
	RacedAt time.Time        `json:"raced_at"`
}

// Store is implemented by the PostgreSQL and SQLite backends.
type Store interface {
	// SaveCard registers a card and returns its ID.
	SaveCard(ctx context.Context, card types.StatCard, imageID string, imageSize int64) (int, error)
	// ListCards returns all cards, oldest first.
	ListCards(ctx context.Context) ([]CardRecord, error)
	// RenameCard changes a card's name.
	RenameCard(ctx context.Context, id int, name string) error
	// RecordRace stores a race outcome.
	RecordRace(ctx context.Context, nameA, nameB string, res types.RaceResult) (RaceRecord, error)
	// ListRaces returns the most recent races first. limit <= 0 means all.
	ListRaces(ctx context.Context, limit int) ([]RaceRecord, error)
	// Reset drops all registry tables.
	Reset(ctx context.Context) error
	Close(ctx context.Context)
}

// Open picks a backend from the DSN scheme and initializes its schema.
//
//	postgres://... or postgresql://...  PostgreSQL
//	sqlite://path, :memory:, or a bare path  SQLite
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "":
		return nil, fmt.Errorf("empty store DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pg, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		lite, err := NewSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return lite, nil
	}
}

func newRaceRecord(nameA, nameB string, res types.RaceResult) RaceRecord {
	return RaceRecord{
		ID:      uuid.New(),
		NameA:   nameA,
		NameB:   nameB,
		Result:  res,
		RacedAt: time.Now().UTC(),
	}
}
