package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dontdude/tiobot/internal/domain"
)

func newTestQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	q := NewRedisQueue(client, Options{Consumer: "test-consumer"})
	q.readBlock = 50 * time.Millisecond
	return q, client
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestDialUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Dial(context.Background(), addr)
	assert.Error(t, err)
}

func TestNewRedisQueueDefaults(t *testing.T) {
	q := NewRedisQueue(nil, Options{})

	assert.Equal(t, DefaultStream, q.stream)
	assert.Equal(t, DefaultGroup, q.group)
	assert.Equal(t, DefaultResultsChannel, q.results)
	assert.NotEmpty(t, q.consumer)
}

func TestPublishSubscribeAcknowledge(t *testing.T) {
	q, client := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs, err := q.Subscribe(ctx)
	require.NoError(t, err)

	want := domain.Job{
		ID: "job-1",
		Invocation: domain.Invocation{
			ID:       "inv-1",
			UserID:   "42",
			Language: "py",
			Code:     "print(1)",
		},
	}
	require.NoError(t, q.Publish(ctx, want))

	got := receive(t, jobs)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Invocation, got.Invocation)
	require.NotEmpty(t, got.RawID)

	pending, err := client.XPending(ctx, q.stream, q.group).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)

	require.NoError(t, q.Acknowledge(ctx, got.RawID))

	pending, err = client.XPending(ctx, q.stream, q.group).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending.Count)
}

func TestSubscribeTwiceReusesGroup(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := q.Subscribe(ctx)
	require.NoError(t, err)
	_, err = q.Subscribe(ctx)
	assert.NoError(t, err)
}

func TestSubscribeSkipsUndecodableEntries(t *testing.T) {
	q, client := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs, err := q.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: q.stream, Values: map[string]interface{}{jobField: "{not json"}}).Err())
	require.NoError(t, q.Publish(ctx, domain.Job{ID: "good"}))

	assert.Equal(t, "good", receive(t, jobs).ID)
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())

	jobs, err := q.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-jobs:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestBroadcastSubscribeResults(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results, err := q.SubscribeResults(ctx)
	require.NoError(t, err)

	want := domain.JobResult{
		JobID: "job-1",
		Response: domain.Response{
			Content: "<@42>",
			Embed:   &domain.Embed{Title: "Eval results (python3)", Description: "```\n1\n```", Color: domain.ColorGreen},
		},
	}
	require.NoError(t, q.Broadcast(ctx, want))

	assert.Equal(t, want, receive(t, results))
}

func TestRecoverStale(t *testing.T) {
	q, client := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.ensureGroup(ctx))
	results, err := q.SubscribeResults(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, domain.Job{ID: "abandoned", Invocation: domain.Invocation{Mention: "<@7>"}}))

	// A worker that reads and then dies leaves the entry pending.
	_, err = client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: "dead-worker",
		Streams:  []string{q.stream, ">"},
		Count:    1,
	}).Result()
	require.NoError(t, err)

	var handled []string
	n, err := q.RecoverStale(ctx, 0, func(job domain.Job) domain.Response {
		handled = append(handled, job.ID)
		return domain.Response{Content: job.Invocation.Mention, Embed: &domain.Embed{Title: "Something Went Wrong"}}
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"abandoned"}, handled)

	got := receive(t, results)
	assert.Equal(t, "abandoned", got.JobID)
	assert.Equal(t, "<@7>", got.Response.Content)

	pending, err := client.XPending(ctx, q.stream, q.group).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending.Count)

	n, err = q.RecoverStale(ctx, 0, func(domain.Job) domain.Response { return domain.Response{} })
	require.NoError(t, err)
	assert.Zero(t, n)
}
