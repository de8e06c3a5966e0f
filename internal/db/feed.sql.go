package db

import (
	"context"

	"github.com/google/uuid"
)

const listFeedCandidates = `-- name: ListFeedCandidates :many
SELECT i.id, i.store_id, i.name, i.img_url, i.price::text, i.currency, i.mmr, i.like_count, i.dislike_count
FROM items i
WHERE NOT EXISTS (
  SELECT 1 FROM swipes s WHERE s.item_id = i.id AND s.user_id = $1
)
ORDER BY i.mmr DESC, i.created_at, i.id
LIMIT $2`

// ListFeedCandidatesParams bounds the feed of one user.
type ListFeedCandidatesParams struct {
	UserID uuid.UUID
	Limit  int32
}

// ListFeedCandidates returns the best rated items the user has not swiped.
func (q *Queries) ListFeedCandidates(ctx context.Context, arg ListFeedCandidatesParams) ([]FeedCandidateRow, error) {
	rows, err := q.db.Query(ctx, listFeedCandidates, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FeedCandidateRow
	for rows.Next() {
		var r FeedCandidateRow
		if err := rows.Scan(&r.ID, &r.StoreID, &r.Name, &r.ImgURL, &r.Price, &r.Currency, &r.MMR, &r.LikeCount, &r.DislikeCount); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getItemRating = `-- name: GetItemRating :one
SELECT mmr, like_count, dislike_count FROM items WHERE id = $1`

func (q *Queries) GetItemRating(ctx context.Context, itemID uuid.UUID) (ItemRatingRow, error) {
	var r ItemRatingRow
	err := q.db.QueryRow(ctx, getItemRating, itemID).Scan(&r.MMR, &r.LikeCount, &r.DislikeCount)
	return r, err
}

const insertSwipe = `-- name: InsertSwipe :exec
INSERT INTO swipes (id, user_id, item_id, is_like) VALUES ($1, $2, $3, $4)`

const updateItemRating = `-- name: UpdateItemRating :exec
UPDATE items SET mmr = $2, like_count = $3, dislike_count = $4, updated_at = now() WHERE id = $1`

// RecordSwipeParams is one swipe together with the rating it produced.
type RecordSwipeParams struct {
	SwipeID uuid.UUID
	UserID  uuid.UUID
	ItemID  uuid.UUID
	IsLike  bool
	Rating  ItemRatingRow
}

// InsertSwipe stores the swipe row. A second swipe by the same user on the
// same item yields ErrDuplicate.
func (q *Queries) InsertSwipe(ctx context.Context, arg RecordSwipeParams) error {
	if _, err := q.db.Exec(ctx, insertSwipe, arg.SwipeID, arg.UserID, arg.ItemID, arg.IsLike); err != nil {
		return mapError("insert swipe", err)
	}
	return nil
}

// UpdateItemRating overwrites the rating columns of an item.
func (q *Queries) UpdateItemRating(ctx context.Context, itemID uuid.UUID, r ItemRatingRow) error {
	if _, err := q.db.Exec(ctx, updateItemRating, itemID, r.MMR, r.LikeCount, r.DislikeCount); err != nil {
		return mapError("update item rating", err)
	}
	return nil
}

// RecordSwipe writes the swipe and the new rating in one transaction.
func (s *Store) RecordSwipe(ctx context.Context, arg RecordSwipeParams) error {
	return s.ExecTx(ctx, func(q *Queries) error {
		if err := q.InsertSwipe(ctx, arg); err != nil {
			return err
		}
		return q.UpdateItemRating(ctx, arg.ItemID, arg.Rating)
	})
}
