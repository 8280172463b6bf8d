package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fittrack/internal/domain"
)

func TestActivityRepositoryPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository()
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

	for _, a := range []domain.Activity{
		{ID: "a", UserID: "u1", Kind: domain.ActivityKindRun, Date: day(10)},
		{ID: "b", UserID: "u1", Kind: domain.ActivityKindRun, Date: day(12)},
		{ID: "c", UserID: "u1", Kind: domain.ActivityKindRun, Date: day(12)},
		{ID: "d", UserID: "u2", Kind: domain.ActivityKindRun, Date: day(11)},
	} {
		require.NoError(t, repo.Create(ctx, a))
	}
	require.ErrorIs(t, repo.Create(ctx, domain.Activity{ID: "a", UserID: "u1"}), domain.ErrActivityExists)

	page, next, err := repo.ListByUser(ctx, "u1", nil, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, ids(page))
	require.NotNil(t, next)

	page, next, err = repo.ListByUser(ctx, "u1", next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids(page))
	require.Nil(t, next)

	inRange, err := repo.ListByUserInRange(ctx, "u1", day(11), day(13))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b", "c"}, ids(inRange))
}

func TestMarkerStoreSerialisesPerKey(t *testing.T) {
	ctx := context.Background()
	store := NewMarkerStore()
	key := domain.MarkerKey{Stream: "weekly", UserID: "u1"}
	other := domain.MarkerKey{Stream: "weekly", UserID: "u2"}

	err := store.Update(ctx, key, func(ctx context.Context, current string) (string, error) {
		require.Empty(t, current)
		busy := store.Update(ctx, key, func(context.Context, string) (string, error) { return "x", nil })
		require.ErrorIs(t, busy, domain.ErrMarkerBusy)
		require.NoError(t, store.Update(ctx, other, func(context.Context, string) (string, error) { return "2025-W10", nil }))
		return "2025-W11", nil
	})
	require.NoError(t, err)

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "2025-W11", value)
	value, err = store.Get(ctx, other)
	require.NoError(t, err)
	require.Equal(t, "2025-W10", value)
}

func TestMarkerStoreKeepsValueOnFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMarkerStore()
	key := domain.MarkerKey{Stream: "ai-weekly", UserID: "u1"}
	require.NoError(t, store.Update(ctx, key, func(context.Context, string) (string, error) { return "2025-W10", nil }))

	boom := errors.New("smtp down")
	err := store.Update(ctx, key, func(context.Context, string) (string, error) { return "2025-W11", boom })
	require.ErrorIs(t, err, boom)

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "2025-W10", value)
}

func ids(activities []domain.Activity) []string {
	out := make([]string, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ID)
	}
	return out
}

func TestMarkerStoreReleasesKeyAfterPanic(t *testing.T) {
	ctx := context.Background()
	store := NewMarkerStore()
	key := domain.MarkerKey{Stream: "weekly", UserID: "u1"}

	require.Panics(t, func() {
		_ = store.Update(ctx, key, func(context.Context, string) (string, error) { panic("template exploded") })
	})

	require.NoError(t, store.Update(ctx, key, func(context.Context, string) (string, error) { return "2025-W11", nil }))
	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "2025-W11", value)
}
