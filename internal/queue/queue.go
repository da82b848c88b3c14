package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BackupJob asks the worker to ship a copy of the datastore file offsite.
// The payload carries the path and the request time so the worker never has
// to reconstruct them from its own config.
type BackupJob struct {
	ID          string    `json:"id"`
	DBPath      string    `json:"db_path"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewBackupJob stamps a new job for the given datastore file.
func NewBackupJob(dbPath string) BackupJob {
	return BackupJob{ID: uuid.NewString(), DBPath: dbPath, RequestedAt: time.Now()}
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, job BackupJob) error
	Consume(ctx context.Context) (<-chan BackupJob, error)
	Healthy(ctx context.Context) bool
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan BackupJob
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan BackupJob, size)}
}

// Publish enqueues a job.
func (q *InMemory) Publish(ctx context.Context, job BackupJob) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan BackupJob, error) {
	out := make(chan BackupJob)
	go func() {
		defer close(out)
		for {
			select {
			case job := <-q.ch:
				out <- job
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Healthy reports whether the queue can accept jobs. The channel always can.
func (q *InMemory) Healthy(context.Context) bool { return true }

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to redis with short timeouts and builds a queue
// using LPUSH/BRPOP semantics.
func NewRedisQueue(addr, key string) *RedisQueue {
	if key == "" {
		key = "visitorgate:backups"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a job.
func (q *RedisQueue) Publish(ctx context.Context, job BackupJob) error {
	data, err := encodeJob(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Consume streams jobs using BRPOP. Payloads that fail to decode are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan BackupJob, error) {
	out := make(chan BackupJob)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				if job, err := decodeJob([]byte(res[1])); err == nil {
					out <- job
				}
			}
		}
	}()
	return out, nil
}

// Healthy verifies redis connectivity.
func (q *RedisQueue) Healthy(ctx context.Context) bool {
	if q == nil || q.client == nil {
		return false
	}
	return q.client.Ping(ctx).Err() == nil
}

func encodeJob(job BackupJob) ([]byte, error) {
	return json.Marshal(job)
}

func decodeJob(data []byte) (BackupJob, error) {
	var job BackupJob
	if err := json.Unmarshal(data, &job); err != nil {
		return BackupJob{}, err
	}
	return job, nil
}
