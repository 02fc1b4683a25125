// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/voice-capture/pkg/commons"
)

const (
	resultKeyPrefix = "capture:result:"

	DefaultResultTTL = 24 * time.Hour
)

// ResultCache keeps completed analysis results close to the results page.
type ResultCache struct {
	client *redis.Client
	logger commons.Logger
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, logger commons.Logger, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{client: client, logger: logger, ttl: ttl}
}

func resultKey(sessionID string) string {
	return resultKeyPrefix + sessionID
}

func (c *ResultCache) Put(ctx context.Context, sessionID, result string) error {
	if err := c.client.Set(ctx, resultKey(sessionID), result, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result of %s: %w", sessionID, err)
	}
	c.logger.Debugw("cached analysis result", "session", sessionID)
	return nil
}

// Get reports false when the result is not cached or has expired.
func (c *ResultCache) Get(ctx context.Context, sessionID string) (string, bool, error) {
	result, err := c.client.Get(ctx, resultKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached result of %s: %w", sessionID, err)
	}
	return result, true, nil
}
