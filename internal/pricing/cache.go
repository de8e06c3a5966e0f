package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache keeps computed labels in redis. Each store tracks the items it has
// cached labels for so a discount change can drop them all at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func labelKey(itemID uuid.UUID) string {
	return fmt.Sprintf("pricing:item:%s", itemID)
}

func storeItemsKey(storeID uuid.UUID) string {
	return fmt.Sprintf("pricing:store:%s:items", storeID)
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns the cached label of itemID and whether it was present.
func (c *Cache) Get(ctx context.Context, itemID uuid.UUID) (Label, bool, error) {
	if !c.enabled() {
		return Label{}, false, nil
	}
	data, err := c.client.Get(ctx, labelKey(itemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Label{}, false, nil
		}
		return Label{}, false, err
	}
	var label Label
	if err := json.Unmarshal(data, &label); err != nil {
		return Label{}, false, err
	}
	return label, true, nil
}

// Set stores label for itemID and records it under storeID.
func (c *Cache) Set(ctx context.Context, storeID, itemID uuid.UUID, label Label) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(label)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, labelKey(itemID), data, c.ttl)
	pipe.SAdd(ctx, storeItemsKey(storeID), itemID.String())
	pipe.Expire(ctx, storeItemsKey(storeID), c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateStore drops every cached label of storeID.
func (c *Cache) InvalidateStore(ctx context.Context, storeID uuid.UUID) error {
	if !c.enabled() {
		return nil
	}
	setKey := storeItemsKey(storeID)
	members, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		keys = append(keys, labelKey(id))
	}
	keys = append(keys, setKey)
	return c.client.Del(ctx, keys...).Err()
}
