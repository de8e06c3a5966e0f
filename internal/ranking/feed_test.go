package ranking_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/ranking"
)

func newItem(mmr int) *ranking.Item {
	return &ranking.Item{ID: uuid.New(), StoreID: uuid.New(), Metrics: &ranking.RatingMetrics{MMR: mmr}}
}

func TestFeedServesHighestRatedFirst(t *testing.T) {
	a := newItem(1200)
	b := newItem(1800)
	q := ranking.NewFeedQueue([]*ranking.Item{a, b})

	got, err := q.Next()
	require.NoError(t, err)
	require.Equal(t, b.ID, got.ID)

	require.NoError(t, q.Swipe(true))
	require.Equal(t, 1, b.Metrics.LikeCount)
	_, checkedOut := q.Current()
	require.False(t, checkedOut)

	got, err = q.Next()
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)

	require.NoError(t, q.Swipe(false))
	require.Equal(t, 1, a.Metrics.DislikeCount)

	_, err = q.Next()
	require.ErrorIs(t, err, ranking.ErrFeedEmpty)
}

func TestNextIsIdempotentUntilSwipe(t *testing.T) {
	q := ranking.NewFeedQueue([]*ranking.Item{newItem(1500), newItem(1400)})
	first, err := q.Next()
	require.NoError(t, err)
	second, err := q.Next()
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, q.Len())
}

func TestSwipeChecksOutWhenIdle(t *testing.T) {
	top := newItem(1700)
	q := ranking.NewFeedQueue([]*ranking.Item{newItem(1000), top})

	require.NoError(t, q.Swipe(true))
	require.Equal(t, 1, top.Metrics.LikeCount)
	require.Equal(t, 1, q.Len())
}

func TestSwipeOnEmptyFeed(t *testing.T) {
	q := ranking.NewFeedQueue(nil)
	require.ErrorIs(t, q.Swipe(true), ranking.ErrFeedEmpty)
	_, err := q.Next()
	require.ErrorIs(t, err, ranking.ErrFeedEmpty)
}

func TestSwipedItemNeverReturns(t *testing.T) {
	items := []*ranking.Item{newItem(1500), newItem(1500), newItem(1600), newItem(900)}
	q := ranking.NewFeedQueue(items)

	seen := map[uuid.UUID]bool{}
	for {
		it, err := q.Next()
		if err != nil {
			require.ErrorIs(t, err, ranking.ErrFeedEmpty)
			break
		}
		require.False(t, seen[it.ID], "item %s served twice", it.ID)
		seen[it.ID] = true
		require.NoError(t, q.Swipe(len(seen)%2 == 0))
	}
	require.Len(t, seen, len(items))
}

func TestEqualRatingsServedInInsertionOrder(t *testing.T) {
	first := newItem(1500)
	second := newItem(1500)
	q := ranking.NewFeedQueue([]*ranking.Item{first, second})

	got, err := q.Next()
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
}

func TestMissingMetricsDefaultToBaseline(t *testing.T) {
	bare := &ranking.Item{ID: uuid.New()}
	q := ranking.NewFeedQueue([]*ranking.Item{bare, newItem(1400)})

	got, err := q.Next()
	require.NoError(t, err)
	require.Equal(t, bare.ID, got.ID)
	require.Equal(t, ranking.BaselineMMR, got.Metrics.MMR)
}

func TestSkipDropsItemWithoutRating(t *testing.T) {
	top := newItem(1700)
	rest := newItem(1600)
	q := ranking.NewFeedQueue([]*ranking.Item{rest, top})

	require.False(t, q.Skip())

	_, err := q.Next()
	require.NoError(t, err)
	require.True(t, q.Skip())
	require.Equal(t, ranking.RatingMetrics{MMR: 1700}, *top.Metrics)

	got, err := q.Next()
	require.NoError(t, err)
	require.Equal(t, rest.ID, got.ID)
}
