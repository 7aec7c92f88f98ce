package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dontdude/tiobot/internal/domain"
)

// Defaults used when the caller leaves a name empty.
const (
	DefaultStream         = "tiobot:jobs"
	DefaultGroup          = "tiobot:workers"
	DefaultResultsChannel = "tiobot:results"
)

// jobField is the stream entry field holding the JSON-encoded job.
const jobField = "job"

// RedisQueue implements domain.JobQueue using Redis Streams for invocations
// and Pub/Sub for rendered results.
type RedisQueue struct {
	client   *redis.Client
	stream   string
	group    string
	results  string
	consumer string

	readBlock time.Duration
}

// Ensure RedisQueue satisfies the interface
var _ domain.JobQueue = (*RedisQueue)(nil)

// Options names the stream, consumer group and result channel of a queue.
type Options struct {
	Stream         string
	Group          string
	ResultsChannel string

	// Consumer identifies this reader inside the group. Defaults to hostname-pid.
	Consumer string
}

// Dial connects to Redis and fails fast when the server is unreachable.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisQueue returns a queue adapter on an existing client.
func NewRedisQueue(client *redis.Client, opts Options) *RedisQueue {
	q := &RedisQueue{
		client:    client,
		stream:    orDefault(opts.Stream, DefaultStream),
		group:     orDefault(opts.Group, DefaultGroup),
		results:   orDefault(opts.ResultsChannel, DefaultResultsChannel),
		consumer:  opts.Consumer,
		readBlock: 2 * time.Second,
	}
	if q.consumer == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "consumer"
		}
		q.consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	return q
}

// Publish enqueues a job on the stream with XADD.
func (r *RedisQueue) Publish(ctx context.Context, job domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{jobField: data},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe joins the consumer group and streams new jobs until ctx is done.
func (r *RedisQueue) Subscribe(ctx context.Context) (<-chan domain.Job, error) {
	if err := r.ensureGroup(ctx); err != nil {
		return nil, err
	}

	outCh := make(chan domain.Job)

	go func() {
		defer close(outCh)

		for ctx.Err() == nil {
			streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    r.group,
				Consumer: r.consumer,
				Streams:  []string{r.stream, ">"},
				Count:    1,
				Block:    r.readBlock,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				slog.Error("Redis read error", "error", err)
				sleep(ctx, time.Second)
				continue
			}

			for _, stream := range streams {
				for _, msg := range stream.Messages {
					job, err := decodeJob(msg)
					if err != nil {
						slog.Error("Dropping undecodable job", "msgID", msg.ID, "error", err)
						r.Acknowledge(ctx, msg.ID)
						continue
					}

					select {
					case outCh <- job:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return outCh, nil
}

// Acknowledge removes a delivered entry from the group's pending list with XACK.
func (r *RedisQueue) Acknowledge(ctx context.Context, rawID string) error {
	return r.client.XAck(ctx, r.stream, r.group, rawID).Err()
}

// Broadcast publishes a rendered result on the results channel.
func (r *RedisQueue) Broadcast(ctx context.Context, result domain.JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return r.client.Publish(ctx, r.results, data).Err()
}

// SubscribeResults streams results published by every worker.
func (r *RedisQueue) SubscribeResults(ctx context.Context) (<-chan domain.JobResult, error) {
	pubsub := r.client.Subscribe(ctx, r.results)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to results: %w", err)
	}

	outCh := make(chan domain.JobResult)

	go func() {
		defer close(outCh)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var result domain.JobResult
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					slog.Error("Failed to unmarshal result", "error", err)
					continue
				}

				select {
				case outCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return outCh, nil
}

func (r *RedisQueue) ensureGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, r.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func decodeJob(msg redis.XMessage) (domain.Job, error) {
	val, ok := msg.Values[jobField].(string)
	if !ok {
		return domain.Job{}, fmt.Errorf("missing %q field", jobField)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return domain.Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	job.RawID = msg.ID
	job.Delivered = time.Now()
	return job, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
