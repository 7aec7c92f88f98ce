package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dontdude/tiobot/internal/domain"
)

// recoveryConsumer owns entries claimed back from dead workers.
const recoveryConsumer = "recovery-agent"

// StaleHandler renders the reply for a job whose worker never acknowledged it.
type StaleHandler func(job domain.Job) domain.Response

// StartRecoveryRoutine reclaims stale entries every interval until ctx is done.
func (r *RedisQueue) StartRecoveryRoutine(ctx context.Context, interval, maxAge time.Duration, respond StaleHandler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Starting Redis recovery routine", "interval", interval, "maxAge", maxAge)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RecoverStale(ctx, maxAge, respond); err != nil && ctx.Err() == nil {
				slog.Error("Recovery routine failed", "error", err)
			}
		}
	}
}

// RecoverStale claims every entry pending for longer than maxAge with XAUTOCLAIM.
// Claimed invocations are not run again: the caller is sent the handler's reply and the
// entry is acknowledged. It returns the number of entries recovered.
func (r *RedisQueue) RecoverStale(ctx context.Context, maxAge time.Duration, respond StaleHandler) (int, error) {
	start := "0-0"
	recovered := 0

	for {
		messages, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.stream,
			Group:    r.group,
			MinIdle:  maxAge,
			Start:    start,
			Count:    10,
			Consumer: recoveryConsumer,
		}).Result()
		if err != nil {
			return recovered, err
		}

		for _, msg := range messages {
			job, err := decodeJob(msg)
			if err != nil {
				slog.Error("Dropping undecodable stale job", "msgID", msg.ID, "error", err)
			} else {
				slog.Warn("Stale job claimed by recovery agent", "msgID", msg.ID, "jobID", job.ID)
				result := domain.JobResult{JobID: job.ID, RawID: msg.ID, Response: respond(job)}
				if err := r.Broadcast(ctx, result); err != nil {
					slog.Error("Failed to broadcast stale job reply", "jobID", job.ID, "error", err)
				}
			}

			if err := r.Acknowledge(ctx, msg.ID); err != nil {
				return recovered, err
			}
			recovered++
		}

		if next == "0-0" || len(messages) == 0 {
			break
		}
		start = next
	}

	if recovered > 0 {
		slog.Info("Recovered stale jobs", "count", recovered)
	}
	return recovered, nil
}
