package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ItemLiked is emitted when a user likes an item in their feed.
type ItemLiked struct {
	ItemID  uuid.UUID `json:"item_id"`
	StoreID uuid.UUID `json:"store_id"`
	UserID  uuid.UUID `json:"user_id"`
}

// Enqueuer is the part of *asynq.Client the publisher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher turns domain events into asynq tasks.
type Publisher struct {
	Client    Enqueuer
	Queue     string
	MaxRetry  int
	Retention time.Duration
}

// NewItemLikedTask encodes evt as an asynq task.
func NewItemLikedTask(evt ItemLiked) (*asynq.Task, error) {
	if evt.ItemID == uuid.Nil || evt.StoreID == uuid.Nil {
		return nil, errors.New("events: item and store are required")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("events: encode payload: %w", err)
	}
	return asynq.NewTask(TopicItemLiked, payload), nil
}

// PublishItemLiked enqueues evt. The user/item pair is the task id, so a
// retried swipe does not count the like twice.
func (p Publisher) PublishItemLiked(ctx context.Context, evt ItemLiked) error {
	if p.Client == nil {
		return errors.New("events: client not configured")
	}
	task, err := NewItemLikedTask(evt)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID(fmt.Sprintf("%s:%s:%s", TopicItemLiked, evt.UserID, evt.ItemID))}
	if p.Queue != "" {
		opts = append(opts, asynq.Queue(p.Queue))
	}
	if p.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(p.MaxRetry))
	}
	if p.Retention > 0 {
		opts = append(opts, asynq.Retention(p.Retention))
	}
	if _, err := p.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("events: enqueue %s: %w", TopicItemLiked, err)
	}
	return nil
}
