package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/stylecast/internal/domain/session"
	"github.com/yanqian/stylecast/internal/domain/stylist"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	sess := session.Session{
		ID:        "s1",
		State:     session.StateReady,
		Profile:   &session.Profile{City: "Paris", Age: 40, Gender: stylist.GenderOthers},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, sess))

	got, ok, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, session.StateReady, got.State)
	require.Equal(t, "Paris", got.Profile.City)

	got.Profile.City = "Lyon"
	again, _, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Paris", again.Profile.City)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, ok, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreListsExpiredOldestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Save(ctx, session.Session{ID: "late", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, session.Session{ID: "early", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, session.Session{ID: "live", ExpiresAt: now.Add(time.Hour)}))

	ids, err := store.ListExpired(ctx, now, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"early", "late"}, ids)

	ids, err = store.ListExpired(ctx, now, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"early"}, ids)

	// Expired records stay readable until deleted so their images can be released.
	_, ok, err := store.Get(ctx, "early")
	require.NoError(t, err)
	require.True(t, ok)
}
