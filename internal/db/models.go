package db

import (
	"time"

	"github.com/google/uuid"
)

// Numeric columns travel as their text rendering so callers can parse them
// into exact decimals.

// ItemPricingRow carries what a price label needs about one item.
type ItemPricingRow struct {
	ItemID      uuid.UUID
	StoreID     uuid.UUID
	Price       string
	Currency    string
	DiscountCap *string
}

// FeedCandidateRow is an item the user has not swiped yet.
type FeedCandidateRow struct {
	ID           uuid.UUID
	StoreID      uuid.UUID
	Name         string
	ImgURL       *string
	Price        string
	Currency     string
	MMR          int32
	LikeCount    int32
	DislikeCount int32
}

// ItemRatingRow is the persisted rating of one item.
type ItemRatingRow struct {
	MMR          int32
	LikeCount    int32
	DislikeCount int32
}

// Discount mirrors a row of the discounts table.
type Discount struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	ItemID     *uuid.UUID
	Percentage string
	StartDate  time.Time
	EndDate    time.Time
	CreatedAt  time.Time
}
