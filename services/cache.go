package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"purchase-prediction-api/config"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrCacheMiss is returned by Get when the key is absent or the cache is
// disabled.
var ErrCacheMiss = errors.New("cache miss")

// CacheService is the optional Redis tier for rendered responses. With no
// client every read misses and every write is dropped, so callers never
// branch on availability.
type CacheService struct {
	client *redis.Client
	prefix string
}

const pingAttempts = 5

func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	if !cfg.Enabled {
		return &CacheService{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for i := 0; i < pingAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			return NewCacheServiceWithClient(client), nil
		}
		log.WithFields(log.Fields{"attempt": i + 1, "addr": cfg.Addr(), "error": lastErr}).Warn("redis ping failed")
		time.Sleep(time.Second)
	}
	client.Close()
	return &CacheService{}, fmt.Errorf("redis ping failed after %d attempts: %w", pingAttempts, lastErr)
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(client *redis.Client) *CacheService {
	return &CacheService{client: client, prefix: "purchase-dashboard:"}
}

func (s *CacheService) Available() bool {
	return s.client != nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest any) error {
	if s.client == nil {
		return ErrCacheMiss
	}
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *CacheService) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *CacheService) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

func (s *CacheService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
