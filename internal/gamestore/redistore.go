package gamestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisStateKey = "nodechess:games"

// RedisPersister keeps the collection as a single namespaced blob in Redis,
// for deployments where local disk does not survive restarts.
type RedisPersister struct {
	rdb *redis.Client
}

func NewRedisPersister(rdb *redis.Client) *RedisPersister {
	return &RedisPersister{rdb: rdb}
}

// NewRedisPersisterURL dials the Redis named by a redis:// URL and verifies
// connectivity before returning.
func NewRedisPersisterURL(ctx context.Context, rawURL string) (*RedisPersister, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPersister{rdb: rdb}, nil
}

func (p *RedisPersister) Load(ctx context.Context) (Collection, error) {
	raw, err := p.rdb.Get(ctx, redisStateKey).Bytes()
	if err == redis.Nil {
		return make(Collection), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var games Collection
	if err := json.Unmarshal(raw, &games); err != nil {
		return nil, fmt.Errorf("decode state blob: %w", err)
	}
	return games, nil
}

func (p *RedisPersister) Save(ctx context.Context, games Collection) error {
	raw, err := json.Marshal(games)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := p.rdb.Set(ctx, redisStateKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (p *RedisPersister) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
