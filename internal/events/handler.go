package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StoreLikesKey counts likes received by a store's items.
func StoreLikesKey(storeID uuid.UUID) string { return fmt.Sprintf("store:%s:likes", storeID) }

// ItemLikesKey counts likes received by one item.
func ItemLikesKey(itemID uuid.UUID) string { return fmt.Sprintf("item:%s:likes", itemID) }

// LikeCounter keeps the like counters that back store dashboards.
type LikeCounter struct {
	R      redis.Cmdable
	Logger *zerolog.Logger
}

// HandleItemLiked implements asynq.HandlerFunc for TopicItemLiked.
func (c LikeCounter) HandleItemLiked(ctx context.Context, t *asynq.Task) error {
	var evt ItemLiked
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("decode %s: %v: %w", TopicItemLiked, err, asynq.SkipRetry)
	}
	if evt.ItemID == uuid.Nil || evt.StoreID == uuid.Nil {
		return fmt.Errorf("decode %s: missing ids: %w", TopicItemLiked, asynq.SkipRetry)
	}

	pipe := c.R.TxPipeline()
	pipe.Incr(ctx, StoreLikesKey(evt.StoreID))
	pipe.Incr(ctx, ItemLikesKey(evt.ItemID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("count like: %w", err)
	}
	if c.Logger != nil {
		c.Logger.Debug().Str("item_id", evt.ItemID.String()).Str("store_id", evt.StoreID.String()).Msg("like counted")
	}
	return nil
}

// NewMux routes every task type to its handler.
func NewMux(counter LikeCounter) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TopicItemLiked, counter.HandleItemLiked)
	return mux
}
