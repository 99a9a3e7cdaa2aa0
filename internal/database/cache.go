package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/Ayash-Bera/ticketconsole/pkg/utils"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cache key constants
const (
	SuggestionResultsKey = "suggest:results:%s:%d"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string, logger *logrus.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisOpts.PoolSize = 20
	redisOpts.MinIdleConns = 2
	redisOpts.MaxConnAge = time.Hour
	redisOpts.IdleTimeout = 30 * time.Minute

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return client, nil
}

// Cache stores suggestion results in Redis so identical descriptions do
// not hit the ranking backend twice within the TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// SuggestionKey normalizes the description so trivially different
// inputs share an entry.
func SuggestionKey(description string, topK int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(description)), " ")
	return fmt.Sprintf(SuggestionResultsKey, utils.MD5Hash(normalized), topK)
}

// GetSuggestion reports a miss on any Redis or decode error.
func (c *Cache) GetSuggestion(ctx context.Context, description string, topK int) (*models.RecommendationResult, bool) {
	data, err := c.client.Get(ctx, SuggestionKey(description, topK)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("Suggestion cache read failed")
		}
		return nil, false
	}

	var result models.RecommendationResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WithError(err).Warn("Discarding undecodable cached suggestion")
		return nil, false
	}
	result.Query = description
	return &result, true
}

func (c *Cache) SetSuggestion(ctx context.Context, description string, topK int, result models.RecommendationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal suggestion")
		return
	}
	if err := c.client.Set(ctx, SuggestionKey(description, topK), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to cache suggestion")
	}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
