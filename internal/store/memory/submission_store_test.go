package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("sub-%d", g.n), nil
}

func TestSubmissionStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	store := NewSubmissionStore(&seqIDGen{})
	ctx := context.Background()
	now := time.Now().UTC()

	sub, err := store.Create(ctx, "https://a.com/x", "owner-1", now)
	require.NoError(t, err)
	require.Equal(t, "sub-1", sub.ID)
	require.Equal(t, seo.SubmissionPending, sub.Status)

	got, err := store.Get(ctx, sub.ID, "owner-1")
	require.NoError(t, err)
	require.Equal(t, sub, got)
}

func TestSubmissionStoreOwnershipIsEnforced(t *testing.T) {
	t.Parallel()

	store := NewSubmissionStore(&seqIDGen{})
	ctx := context.Background()

	sub, err := store.Create(ctx, "https://a.com/x", "owner-1", time.Now().UTC())
	require.NoError(t, err)

	// A different owner reads the same as an unknown ID.
	_, err = store.Get(ctx, sub.ID, "owner-2")
	require.ErrorIs(t, err, seo.ErrNotFound)

	subs, err := store.ListByURL(ctx, "https://a.com/x", "owner-2")
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestSubmissionStoreListByURLNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewSubmissionStore(&seqIDGen{})
	ctx := context.Background()
	base := time.Now().UTC()

	older, err := store.Create(ctx, "https://a.com/x", "owner-1", base)
	require.NoError(t, err)
	newer, err := store.Create(ctx, "https://a.com/x", "owner-1", base.Add(time.Minute))
	require.NoError(t, err)
	_, err = store.Create(ctx, "https://a.com/other", "owner-1", base)
	require.NoError(t, err)

	subs, err := store.ListByURL(ctx, "https://a.com/x", "owner-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, newer.ID, subs[0].ID)
	require.Equal(t, older.ID, subs[1].ID)
}

func TestSubmissionStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewSubmissionStore(&seqIDGen{})
	ctx := context.Background()
	now := time.Now().UTC()

	sub, err := store.Create(ctx, "https://a.com/x", "owner-1", now)
	require.NoError(t, err)

	require.NoError(t, store.MarkCrawling(ctx, sub.ID))
	got, err := store.Get(ctx, sub.ID, "owner-1")
	require.NoError(t, err)
	require.Equal(t, seo.SubmissionCrawling, got.Status)

	done := now.Add(time.Second)
	require.NoError(t, store.MarkCompleted(ctx, sub.ID, done))
	got, err = store.Get(ctx, sub.ID, "owner-1")
	require.NoError(t, err)
	require.Equal(t, seo.SubmissionCompleted, got.Status)
	require.Equal(t, done, *got.CompletedAt)

	// Terminal submissions are frozen; later marks are ignored.
	require.NoError(t, store.MarkFailed(ctx, sub.ID, "late failure", done.Add(time.Second)))
	got, err = store.Get(ctx, sub.ID, "owner-1")
	require.NoError(t, err)
	require.Equal(t, seo.SubmissionCompleted, got.Status)
	require.Empty(t, got.ErrorMessage)

	require.ErrorIs(t, store.MarkCrawling(ctx, "missing"), seo.ErrNotFound)
}

func TestSubmissionStoreMarkFailed(t *testing.T) {
	t.Parallel()

	store := NewSubmissionStore(&seqIDGen{})
	ctx := context.Background()
	now := time.Now().UTC()

	sub, err := store.Create(ctx, "https://a.com/x", "owner-1", now)
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, sub.ID, "dns error", now))
	got, err := store.Get(ctx, sub.ID, "owner-1")
	require.NoError(t, err)
	require.Equal(t, seo.SubmissionFailed, got.Status)
	require.Equal(t, "dns error", got.ErrorMessage)
	require.NotNil(t, got.CompletedAt)
}
