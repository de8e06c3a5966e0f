package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-vetrina/internal/events"
)

type captureClient struct {
	tasks []*asynq.Task
	err   error
}

func (c *captureClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

func sampleEvent() events.ItemLiked {
	return events.ItemLiked{ItemID: uuid.New(), StoreID: uuid.New(), UserID: uuid.New()}
}

func TestPublishItemLiked(t *testing.T) {
	client := &captureClient{}
	evt := sampleEvent()

	require.NoError(t, events.Publisher{Client: client, MaxRetry: 3}.PublishItemLiked(context.Background(), evt))
	require.Len(t, client.tasks, 1)
	require.Equal(t, events.TopicItemLiked, client.tasks[0].Type())

	var decoded events.ItemLiked
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &decoded))
	require.Equal(t, evt, decoded)
}

func TestPublishItemLikedTreatsDuplicateAsDone(t *testing.T) {
	client := &captureClient{err: asynq.ErrTaskIDConflict}
	require.NoError(t, events.Publisher{Client: client}.PublishItemLiked(context.Background(), sampleEvent()))

	client.err = errors.New("redis down")
	require.Error(t, events.Publisher{Client: client}.PublishItemLiked(context.Background(), sampleEvent()))
}

func TestNewItemLikedTaskRequiresIDs(t *testing.T) {
	_, err := events.NewItemLikedTask(events.ItemLiked{UserID: uuid.New()})
	require.Error(t, err)
}

func TestLikeCounterIncrementsCounters(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	counter := events.LikeCounter{R: rdb}
	evt := sampleEvent()
	task, err := events.NewItemLikedTask(evt)
	require.NoError(t, err)

	require.NoError(t, counter.HandleItemLiked(context.Background(), task))
	require.NoError(t, counter.HandleItemLiked(context.Background(), task))

	storeLikes, err := mr.Get(events.StoreLikesKey(evt.StoreID))
	require.NoError(t, err)
	require.Equal(t, "2", storeLikes)
	itemLikes, err := mr.Get(events.ItemLikesKey(evt.ItemID))
	require.NoError(t, err)
	require.Equal(t, "2", itemLikes)
}

func TestLikeCounterSkipsMalformedPayload(t *testing.T) {
	counter := events.LikeCounter{}
	err := counter.HandleItemLiked(context.Background(), asynq.NewTask(events.TopicItemLiked, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMuxRoutesItemLiked(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	evt := sampleEvent()
	task, err := events.NewItemLikedTask(evt)
	require.NoError(t, err)
	require.NoError(t, events.NewMux(events.LikeCounter{R: rdb}).ProcessTask(context.Background(), task))
	require.True(t, mr.Exists(events.ItemLikesKey(evt.ItemID)))
}
