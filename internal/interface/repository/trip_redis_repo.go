package repository

import (
	"context"
	"errors"
	"fmt"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/domain/repository"
	"trip-planner-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
)

const (
	fieldDoc       = "doc"
	fieldUpdatedAt = "updatedAt"
	fieldUpdatedBy = "updatedBy"
)

// RedisTripRepository stores trip documents in hashes and announces every
// write on a per-path channel
type RedisTripRepository struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

// NewRedisTripRepository creates a new trip repository. Keys are prefix+path.
func NewRedisTripRepository(client *redis.Client, prefix string, logger logger.Logger) repository.LiveTripRepository {
	return &RedisTripRepository{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *RedisTripRepository) key(path string) string {
	return r.prefix + path
}

func (r *RedisTripRepository) channel(path string) string {
	return r.prefix + path + ":changes"
}

// Read returns the document at path
func (r *RedisTripRepository) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := r.client.HGet(ctx, r.key(path), fieldDoc).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read trip %s: %w", path, err)
	}
	return data, nil
}

// ReadMeta reads the meta fields kept next to the document without fetching
// the document. Write always sets updatedAt, so its absence means no trip.
func (r *RedisTripRepository) ReadMeta(ctx context.Context, path string) (entity.RemoteMeta, error) {
	vals, err := r.client.HMGet(ctx, r.key(path), fieldUpdatedAt, fieldUpdatedBy).Result()
	if err != nil {
		return entity.RemoteMeta{}, fmt.Errorf("failed to read trip meta %s: %w", path, err)
	}
	if len(vals) < 2 || vals[0] == nil {
		return entity.RemoteMeta{}, repository.ErrNotFound
	}

	var meta entity.RemoteMeta
	if at, err := cast.ToInt64E(vals[0]); err == nil && at >= 0 {
		meta.UpdatedAt = at
	}
	meta.UpdatedBy = cast.ToString(vals[1])
	return meta, nil
}

// Write replaces the document at path and publishes it to subscribers
func (r *RedisTripRepository) Write(ctx context.Context, path string, doc []byte) error {
	var meta entity.RemoteMeta
	if v, err := normalize.Decode(doc); err == nil {
		meta = normalize.RemoteMeta(v)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key(path),
			fieldDoc, doc,
			fieldUpdatedAt, meta.UpdatedAt,
			fieldUpdatedBy, meta.UpdatedBy,
		)
		pipe.Publish(ctx, r.channel(path), doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write trip %s: %w", path, err)
	}
	return nil
}

// Subscribe delivers every document published for path until unsubscribed
func (r *RedisTripRepository) Subscribe(ctx context.Context, path string, onChange func([]byte)) (func(), error) {
	pubsub := r.client.Subscribe(ctx, r.channel(path))

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to trip %s: %w", path, err)
	}

	ch := pubsub.Channel()
	go func() {
		for msg := range ch {
			onChange([]byte(msg.Payload))
		}
		r.logger.Debug("Trip subscription closed", "path", path)
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			r.logger.Warn("Failed to close trip subscription", "path", path, "error", err)
		}
	}, nil
}
