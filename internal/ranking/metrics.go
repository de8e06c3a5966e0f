package ranking

import "math"

const (
	// BaselineMMR is the rating every item starts from and the fixed reference
	// point of the expected score.
	BaselineMMR = 1500
	// KFactor bounds how far a single swipe can move the rating.
	KFactor = 32
)

// RatingMetrics is the mutable rating state of one item.
type RatingMetrics struct {
	MMR          int `json:"mmr"`
	LikeCount    int `json:"like_count"`
	DislikeCount int `json:"dislike_count"`
}

// NewRatingMetrics returns metrics for an item that has never been swiped.
func NewRatingMetrics() RatingMetrics {
	return RatingMetrics{MMR: BaselineMMR}
}

// PositiveRatio is the share of likes, or 0.5 for an unrated item.
func (m *RatingMetrics) PositiveRatio() float64 {
	total := m.LikeCount + m.DislikeCount
	if total == 0 {
		return 0.5
	}
	return float64(m.LikeCount) / float64(total)
}

// AddLike records a like and recomputes the rating.
func (m *RatingMetrics) AddLike() {
	m.LikeCount++
	m.recalculate()
}

// AddDislike records a dislike and recomputes the rating.
func (m *RatingMetrics) AddDislike() {
	m.DislikeCount++
	m.recalculate()
}

// recalculate compares the current rating against BaselineMMR, not against
// another item's rating.
func (m *RatingMetrics) recalculate() {
	expected := 1.0 / (1.0 + math.Pow(10, float64(BaselineMMR-m.MMR)/400.0))
	next := m.MMR + int(math.Floor(KFactor*(m.PositiveRatio()-expected)))
	if next < 0 {
		next = 0
	}
	m.MMR = next
}
