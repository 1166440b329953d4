// Copyright (c) 2026 Amparo. All rights reserved.
// Author: backend@amparo.social

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amparo-social/amparo-api/internal/platform/constants"
)

// RedisResetTokenRepository implements ResetTokenRepository using Redis.
//
// Reset tokens are short-lived and self-expiring, so the TTL machinery of
// Redis does the cleanup for free. Keys store the token DIGEST, never the
// raw token.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

/*
Set stores a reset token digest mapped to its user id with a TTL.

Parameters:
  - context: context.Context
  - tokenHash: string (digest of the raw token)
  - userID: int64
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Set(context context.Context, tokenHash string, userID int64, ttl time.Duration) error {
	key := constants.RedisPrefixResetToken + tokenHash

	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}

	return nil
}

/*
Get resolves a token digest to its user id.

Returns:
  - int64: The user id the token was minted for
  - error: ErrResetTokenNotFound if absent or expired, or connectivity errors
*/
func (repository *RedisResetTokenRepository) Get(context context.Context, tokenHash string) (int64, error) {
	key := constants.RedisPrefixResetToken + tokenHash

	value, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrResetTokenNotFound
		}
		return 0, fmt.Errorf("redis_reset_token_get_failed: %w", err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis_reset_token_decode_failed: %w", err)
	}

	return userID, nil
}

/*
Delete removes a token digest so it cannot be replayed. Idempotent.
*/
func (repository *RedisResetTokenRepository) Delete(context context.Context, tokenHash string) error {
	key := constants.RedisPrefixResetToken + tokenHash

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_delete_failed: %w", err)
	}

	return nil
}
