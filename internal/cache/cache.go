package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/filmfluent/pkg/models"
)

const overviewKey = "overview"

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Processed file markers

// MarkProcessed records that the file with the given content hash has been
// stored under fileID
func (c *Cache) MarkProcessed(ctx context.Context, hash, fileID string, ttl time.Duration) error {
	key := fmt.Sprintf("processed:%s", hash)
	return c.client.Set(ctx, key, fileID, ttl).Err()
}

// ProcessedFileID returns the file id recorded for hash, or "" on a miss
func (c *Cache) ProcessedFileID(ctx context.Context, hash string) (string, error) {
	key := fmt.Sprintf("processed:%s", hash)
	id, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // Cache miss
		}
		return "", fmt.Errorf("failed to get processed marker: %w", err)
	}
	return id, nil
}

// Analysis Cache Operations

// SetAnalysis caches an analysis result keyed by file content hash.
// Sentences are dropped to keep entries small.
func (c *Cache) SetAnalysis(ctx context.Context, hash string, result *models.AnalysisResult, ttl time.Duration) error {
	summary := *result
	summary.Sentences = nil

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	key := fmt.Sprintf("analysis:%s", hash)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetAnalysis retrieves a cached analysis, or nil on a miss
func (c *Cache) GetAnalysis(ctx context.Context, hash string) (*models.AnalysisResult, error) {
	key := fmt.Sprintf("analysis:%s", hash)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get analysis from cache: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}

	return &result, nil
}

// Overview Cache Operations

// SetOverview caches the corpus overview served by the API
func (c *Cache) SetOverview(ctx context.Context, overview *models.Overview, ttl time.Duration) error {
	return c.setJSON(ctx, overviewKey, overview, ttl)
}

// GetOverview returns the cached overview, or nil on a miss
func (c *Cache) GetOverview(ctx context.Context) (*models.Overview, error) {
	var overview models.Overview
	found, err := c.getJSON(ctx, overviewKey, &overview)
	if err != nil || !found {
		return nil, err
	}
	return &overview, nil
}

// InvalidateOverview drops the cached overview after new data is stored
func (c *Cache) InvalidateOverview(ctx context.Context) error {
	return c.client.Del(ctx, overviewKey).Err()
}

// Locking Operations for Distributed Systems

// AcquireLock attempts to acquire a distributed lock
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.Del(ctx, key).Err()
}

// setJSON stores value under key as JSON
func (c *Cache) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Cache miss
		}
		return false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return true, nil
}
