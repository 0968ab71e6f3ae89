package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// RedisSink keeps the latest report and a capped history list in Redis.
type RedisSink struct {
	client *redis.Client
	config RedisConfig
}

// RedisConfig holds Redis sink configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr     string
	Password string
	DB       int
	// Key prefixes the ":latest" and ":history" keys
	Key string
	// History is the number of reports kept in the history list
	History int
}

// DefaultRedisConfig returns a default Redis sink configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:    "localhost:6379",
		Key:     "metareg:health",
		History: 50,
	}
}

// NewRedisSink connects to Redis and checks the connection.
func NewRedisSink(ctx context.Context, config RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", config.Addr, err)
	}
	return NewRedisSinkWithClient(client, config), nil
}

// NewRedisSinkWithClient creates a Redis sink with an existing client
func NewRedisSinkWithClient(client *redis.Client, config RedisConfig) *RedisSink {
	defaults := DefaultRedisConfig()
	if config.Key == "" {
		config.Key = defaults.Key
	}
	if config.History <= 0 {
		config.History = defaults.History
	}
	return &RedisSink{client: client, config: config}
}

func (s *RedisSink) latestKey() string  { return s.config.Key + ":latest" }
func (s *RedisSink) historyKey() string { return s.config.Key + ":history" }

// Publish stores report as the latest report and prepends it to the history list.
func (s *RedisSink) Publish(ctx context.Context, report *registry.HealthReport) error {
	data, err := encode(report)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.latestKey(), data, 0)
		pipe.LPush(ctx, s.historyKey(), data)
		pipe.LTrim(ctx, s.historyKey(), 0, int64(s.config.History-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing health report to redis: %w", err)
	}
	return nil
}

// Latest returns the most recently published report.
func (s *RedisSink) Latest(ctx context.Context) (*registry.HealthReport, error) {
	data, err := s.client.Get(ctx, s.latestKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoReport
		}
		return nil, err
	}
	return decode(data)
}

// History returns up to n published reports, newest first. n <= 0 returns all kept.
func (s *RedisSink) History(ctx context.Context, n int) ([]*registry.HealthReport, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	items, err := s.client.LRange(ctx, s.historyKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	reports := make([]*registry.HealthReport, 0, len(items))
	for _, item := range items {
		report, err := decode([]byte(item))
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
