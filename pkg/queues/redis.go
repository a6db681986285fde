package queues

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// MediaJobStream is the Redis stream consumed by the media worker fleet.
const MediaJobStream = "cadenza.media.jobs"

// RedisMediaJobProducer appends media jobs to a Redis stream.
type RedisMediaJobProducer struct {
	client redis.UniversalClient
	stream string
}

func NewRedisMediaJobProducer(client redis.UniversalClient) *RedisMediaJobProducer {
	return &RedisMediaJobProducer{
		client: client,
		stream: MediaJobStream,
	}
}

func (p *RedisMediaJobProducer) EnqueueMediaJob(ctx context.Context, job MediaJob) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"asset_id":   job.AssetID,
			"source_url": job.SourceURL,
			"operation":  job.Operation,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue media job for asset %s: %w", job.AssetID, err)
	}

	return nil
}
