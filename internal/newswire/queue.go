package newswire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue holds pending search jobs in a Redis list. Jobs that survive a
// run (rate limited or interrupted) stay queued and are picked up by
// the next run, which replaces the rerun files the system once kept on
// disk.
type Queue struct {
	rdb *redis.Client
	key string
}

// NewQueue wraps an existing Redis client. key names the list holding
// the jobs.
func NewQueue(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

// Push appends jobs to the queue.
func (q *Queue) Push(ctx context.Context, jobs ...Job) error {
	if len(jobs) == 0 {
		return nil
	}
	payloads := make([]interface{}, len(jobs))
	for i, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}
		payloads[i] = data
	}
	if err := q.rdb.LPush(ctx, q.key, payloads...).Err(); err != nil {
		return fmt.Errorf("queue jobs: %w", err)
	}
	return nil
}

// Pop removes and returns the oldest job. The bool is false when the
// queue is empty, which is a normal end-of-run condition.
func (q *Queue) Pop(ctx context.Context) (Job, bool, error) {
	data, err := q.rdb.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("pop job: %w", err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, false, fmt.Errorf("decode job: %w", err)
	}
	return job, true, nil
}

// Len reports the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// JobsForPlaces builds one job per place over [begin, end].
func JobsForPlaces(places map[int64]string, begin, end time.Time) []Job {
	jobs := make([]Job, 0, len(places))
	for id, name := range places {
		jobs = append(jobs, Job{
			PlaceID:   id,
			PlaceName: name,
			BeginDate: begin.Format(DateFormat),
			EndDate:   end.Format(DateFormat),
		})
	}
	return jobs
}
