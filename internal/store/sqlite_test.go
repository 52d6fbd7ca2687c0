package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresmejia3/stable/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

// exerciseStore runs the shared scenario against any backend.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	comet := types.StatCard{Name: "Comet", Speed: 70, Stamina: 65, Jump: 60, Tuning: types.Identity()}
	storm := types.StatCard{Name: "Storm", Speed: 55, Stamina: 90, Jump: 40,
		Tuning: types.Tuning{Brightness: 1.25, Contrast: 0.8, Color: 1.6, Sharpness: 2.0, Blur: true}}

	idA, err := s.SaveCard(ctx, comet, "aaaa", 1024)
	require.NoError(t, err)
	idB, err := s.SaveCard(ctx, storm, "bbbb", 2048)
	require.NoError(t, err)
	assert.Greater(t, idB, idA)

	cards, err := s.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, comet, cards[0].Card)
	assert.Equal(t, storm, cards[1].Card, "tuning must survive storage")
	assert.Equal(t, "bbbb", cards[1].ImageID)
	assert.Equal(t, int64(2048), cards[1].ImageSize)
	assert.WithinDuration(t, time.Now(), cards[0].CreatedAt, time.Minute)

	require.NoError(t, s.RenameCard(ctx, idA, "Comet II"))
	cards, err = s.ListCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Comet II", cards[0].Card.Name)

	err = s.RenameCard(ctx, 9999, "Ghost")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	first, err := s.RecordRace(ctx, "Comet", "Storm", types.RaceResult{Winner: "Comet", ScoreA: 70.25, ScoreB: 61.5})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := s.RecordRace(ctx, "Storm", "Comet", types.RaceResult{Winner: "Comet", ScoreA: 60, ScoreB: 66.1})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	races, err := s.ListRaces(ctx, 0)
	require.NoError(t, err)
	require.Len(t, races, 2)
	assert.Equal(t, second.ID, races[0].ID, "newest first")
	assert.Equal(t, first.Result, races[1].Result)

	races, err = s.ListRaces(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, races, 1)

	require.NoError(t, s.Reset(ctx))
	_, err = s.ListCards(ctx)
	assert.Error(t, err, "tables should be gone after reset")
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, openMemory(t))
}

func TestSQLiteFileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "stable.db")

	s, err := Open(ctx, "sqlite://"+path)
	require.NoError(t, err)
	_, err = s.SaveCard(ctx, types.StatCard{Name: "Raven", Speed: 1, Stamina: 2, Jump: 3, Tuning: types.Identity()}, "cc", 1)
	require.NoError(t, err)
	s.Close(ctx)

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close(ctx)

	cards, err := s.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Raven", cards[0].Card.Name)
}

func TestOpenEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}
