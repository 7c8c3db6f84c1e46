package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/claimlens/sync-api/internal/bulk"
	"github.com/redis/go-redis/v9"
)

const (
	contentViewTTL  = 5 * time.Minute
	bulkProgressTTL = 24 * time.Hour
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("Connected to Redis at %s", redisURL)
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, key).Bytes()
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, key, value, contentViewTTL).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ContentKey is the cache key for one content record's API view.
func ContentKey(contentID int64) string {
	return "content:" + strconv.FormatInt(contentID, 10)
}

func bulkKey(operationID string) string {
	return "bulk:" + operationID
}

// Init stores a fresh progress hash for a bulk operation. Together with
// Enqueued, BatchDone and GetProgress it implements bulk.ProgressSink, so
// progress survives server restarts and is visible across replicas.
func (c *RedisCache) Init(ctx context.Context, operationID string, totalChunks int) error {
	key := bulkKey(operationID)
	if err := c.client.HSet(ctx, key,
		"total_chunks", totalChunks,
		"chunks_enqueued", 0,
		"batches_done", 0,
		"success_count", 0,
		"error_count", 0,
	).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, bulkProgressTTL).Err()
}

func (c *RedisCache) Enqueued(ctx context.Context, operationID string, chunksEnqueued int) error {
	return c.client.HSet(ctx, bulkKey(operationID), "chunks_enqueued", chunksEnqueued).Err()
}

func (c *RedisCache) BatchDone(ctx context.Context, operationID string, successCount, errorCount int) error {
	key := bulkKey(operationID)
	pipe := c.client.Pipeline()
	pipe.HIncrBy(ctx, key, "batches_done", 1)
	pipe.HIncrBy(ctx, key, "success_count", int64(successCount))
	pipe.HIncrBy(ctx, key, "error_count", int64(errorCount))
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) GetProgress(ctx context.Context, operationID string) (*bulk.Progress, error) {
	fields, err := c.client.HGetAll(ctx, bulkKey(operationID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", bulk.ErrUnknownOperation, operationID)
	}

	p := &bulk.Progress{
		TotalChunks:    atoi(fields["total_chunks"]),
		ChunksEnqueued: atoi(fields["chunks_enqueued"]),
		BatchesDone:    atoi(fields["batches_done"]),
		SuccessCount:   atoi(fields["success_count"]),
		ErrorCount:     atoi(fields["error_count"]),
	}
	p.Done = p.TotalChunks > 0 && p.BatchesDone >= p.TotalChunks
	return p, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
