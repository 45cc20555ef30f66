package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lotas/readlater/internal/config"
	"github.com/lotas/readlater/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func page(id string, saved time.Time) types.Page {
	return types.Page{ID: id, URL: "https://github.com/" + id, Title: id, SavedAt: saved, Tags: []string{"t"}}
}

// repoContract runs the behavior every Repository must share.
func repoContract(t *testing.T, repo Repository, user string) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.List(ctx, "")
	assert.ErrorIs(t, err, ErrNoIdentity)
	assert.ErrorIs(t, repo.Upsert(ctx, "", page("x", base)), ErrNoIdentity)
	assert.ErrorIs(t, repo.SetRead(ctx, "", "x", true), ErrNoIdentity)
	assert.ErrorIs(t, repo.Delete(ctx, "", "x"), ErrNoIdentity)
	_, err = repo.Subscribe(ctx, "")
	assert.ErrorIs(t, err, ErrNoIdentity)

	require.NoError(t, repo.Upsert(ctx, user, page("old", base)))
	require.NoError(t, repo.Upsert(ctx, user, page("new", base.Add(time.Hour))))
	require.NoError(t, repo.Upsert(ctx, user+"-other", page("foreign", base)))

	got, err := repo.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "old", got[1].ID)
	require.NotNil(t, got[0].SNS, "platform recomputed from url")
	assert.Equal(t, "GitHub", got[0].SNS.Name)

	// upsert is idempotent by id
	updated := page("old", base)
	updated.Title = "renamed"
	require.NoError(t, repo.Upsert(ctx, user, updated))
	require.NoError(t, repo.Upsert(ctx, user, updated))
	got, _ = repo.List(ctx, user)
	require.Len(t, got, 2)
	assert.Equal(t, "renamed", got[1].Title)

	require.NoError(t, repo.SetRead(ctx, user, "old", true))
	require.NoError(t, repo.SetRead(ctx, user, "missing", true))
	got, _ = repo.List(ctx, user)
	assert.True(t, got[1].Read)
	assert.False(t, got[0].Read)

	// scoped: another user's delete does nothing
	require.NoError(t, repo.Delete(ctx, user+"-other", "old"))
	got, _ = repo.List(ctx, user)
	assert.Len(t, got, 2)

	require.NoError(t, repo.Delete(ctx, user, "old"))
	require.NoError(t, repo.Delete(ctx, user, "old"))
	got, _ = repo.List(ctx, user)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].ID)
}

func TestMemoryContract(t *testing.T) {
	repoContract(t, NewMemory(), "u1")
}

func TestMemorySubscribe(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Subscribe(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Subscribers("u1"))

	require.NoError(t, m.Upsert(context.Background(), "u2", page("other", time.Now())))
	require.NoError(t, m.Upsert(context.Background(), "u1", page("a", time.Now())))
	require.NoError(t, m.SetRead(context.Background(), "u1", "a", true))
	require.NoError(t, m.Delete(context.Background(), "u1", "a"))

	want := []Change{
		{Op: OpInsert, UserID: "u1", PageID: "a"},
		{Op: OpUpdate, UserID: "u1", PageID: "a"},
		{Op: OpDelete, UserID: "u1", PageID: "a"},
	}
	for _, w := range want {
		select {
		case c := <-ch:
			assert.Equal(t, w, c)
		case <-time.After(time.Second):
			t.Fatalf("missing change %+v", w)
		}
	}

	cancel()
	for range ch {
	}
	assert.Equal(t, 0, m.Subscribers("u1"))
}

func TestMemoryCoalescesWhenSubscriberLags(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := m.Subscribe(ctx, "u1")
	require.NoError(t, err)

	for i := 0; i < changeBuffer*2; i++ {
		require.NoError(t, m.SetRead(context.Background(), "u1", "none", true))
		require.NoError(t, m.Upsert(context.Background(), "u1", page("p", time.Now())))
	}
	assert.Equal(t, changeBuffer, len(ch))
}

func TestMemoryHonorsCanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Upsert(ctx, "u1", page("a", time.Now()))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOpen(t *testing.T) {
	repo, err := Open(context.Background(), config.CloudConfig{Provider: config.ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, repo)

	repo, err = Open(context.Background(), config.CloudConfig{Provider: config.ProviderMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, repo)

	_, err = Open(context.Background(), config.CloudConfig{Provider: "dynamo"})
	assert.Error(t, err)
}
