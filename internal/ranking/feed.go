package ranking

import (
	"container/heap"
	"errors"

	"github.com/google/uuid"
)

// ErrFeedEmpty is returned when a session has no item left to serve.
var ErrFeedEmpty = errors.New("feed is empty")

// Item is a rankable entry of a feed session.
type Item struct {
	ID      uuid.UUID
	StoreID uuid.UUID
	Metrics *RatingMetrics
}

// FeedQueue serves items by descending MMR with at most one item checked out
// awaiting a swipe. Items with equal MMR are served in insertion order.
//
// A FeedQueue belongs to a single session and is not safe for concurrent use.
type FeedQueue struct {
	pending entries
	current *Item
	seq     int
}

// NewFeedQueue builds a queue from a snapshot of eligible items. Items
// without metrics are treated as unrated.
func NewFeedQueue(items []*Item) *FeedQueue {
	q := &FeedQueue{pending: make(entries, 0, len(items))}
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Metrics == nil {
			m := NewRatingMetrics()
			it.Metrics = &m
		}
		q.pending = append(q.pending, entry{item: it, priority: -it.Metrics.MMR, seq: q.seq})
		q.seq++
	}
	heap.Init(&q.pending)
	return q
}

// Next returns the checked out item, or checks out the highest rated pending
// one. Repeated calls without a swipe return the same item.
func (q *FeedQueue) Next() (*Item, error) {
	if q.current != nil {
		return q.current, nil
	}
	if q.pending.Len() == 0 {
		return nil, ErrFeedEmpty
	}
	q.current = heap.Pop(&q.pending).(entry).item
	return q.current, nil
}

// Swipe judges the checked out item, checking one out first if needed. The
// item is never served again by this queue.
func (q *FeedQueue) Swipe(like bool) error {
	item, err := q.Next()
	if err != nil {
		return err
	}
	if like {
		item.Metrics.AddLike()
	} else {
		item.Metrics.AddDislike()
	}
	q.current = nil
	return nil
}

// Skip drops the checked out item without rating it. It reports whether an
// item was checked out.
func (q *FeedQueue) Skip() bool {
	if q.current == nil {
		return false
	}
	q.current = nil
	return true
}

// Current returns the checked out item without changing state.
func (q *FeedQueue) Current() (*Item, bool) {
	return q.current, q.current != nil
}

// Len reports how many items are still pending, excluding the checked out one.
func (q *FeedQueue) Len() int { return q.pending.Len() }

type entry struct {
	item     *Item
	priority int
	seq      int
}

// entries is a min-heap on (priority, seq).
type entries []entry

func (e entries) Len() int { return len(e) }

func (e entries) Less(i, j int) bool {
	if e[i].priority != e[j].priority {
		return e[i].priority < e[j].priority
	}
	return e[i].seq < e[j].seq
}

func (e entries) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

func (e *entries) Push(x any) { *e = append(*e, x.(entry)) }

func (e *entries) Pop() any {
	old := *e
	n := len(old)
	it := old[n-1]
	old[n-1] = entry{}
	*e = old[:n-1]
	return it
}
