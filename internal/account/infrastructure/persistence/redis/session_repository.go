// Package redis 提供了会话存储接口的 Redis 实现。
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wyfcoding/paperbroker/internal/account/domain"
	"github.com/wyfcoding/paperbroker/pkg/cache"
)

// sessionRepositoryImpl 是 domain.SessionRepository 接口的 Redis 实现。
type sessionRepositoryImpl struct {
	cache *cache.RedisCache
}

// NewSessionRepository 创建会话仓储实例
func NewSessionRepository(c *cache.RedisCache) domain.SessionRepository {
	return &sessionRepositoryImpl{cache: c}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Save 实现 domain.SessionRepository.Save
func (r *sessionRepositoryImpl) Save(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return r.cache.Set(ctx, sessionKey(token), strconv.FormatUint(uint64(userID), 10), ttl)
}

// Get 实现 domain.SessionRepository.Get；不存在或过期返回 0
func (r *sessionRepositoryImpl) Get(ctx context.Context, token string) (uint, error) {
	val, err := r.cache.Get(ctx, sessionKey(token))
	if err != nil {
		return 0, err
	}
	if val == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value: %w", err)
	}
	return uint(id), nil
}

// Delete 实现 domain.SessionRepository.Delete
func (r *sessionRepositoryImpl) Delete(ctx context.Context, token string) error {
	return r.cache.Delete(ctx, sessionKey(token))
}
