// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/edura/internal/platform/constants"
)

// RedisResetTokenRepository implements ResetTokenRepository using Redis key TTLs.
type RedisResetTokenRepository struct {
	client redis.UniversalClient
}

// NewRedisResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewRedisResetTokenRepository(client redis.UniversalClient) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

func resetTokenKey(tokenHash string) string {
	return constants.RedisPrefixResetToken + tokenHash
}

/*
Set stores a reset token hash with its associated userID and TTL.

Parameters:
  - context: context.Context
  - tokenHash: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Set(context context.Context, tokenHash, userID string, ttl time.Duration) error {
	if err := repository.client.Set(context, resetTokenKey(tokenHash), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}
	return nil
}

/*
Consume reads and deletes the token in one GETDEL round trip, so two
concurrent resets with the same token cannot both succeed.

Returns:
  - string: Original UserID
  - error: ErrInvalidOrExpiredCode or connectivity errors
*/
func (repository *RedisResetTokenRepository) Consume(context context.Context, tokenHash string) (string, error) {
	userID, err := repository.client.GetDel(context, resetTokenKey(tokenHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidOrExpiredCode
		}
		return "", fmt.Errorf("redis_reset_token_consume_failed: %w", err)
	}

	return userID, nil
}
