// Package session реализует domain.SessionStore поверх Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gazel-funnel/internal/domain"
)

// RedisStore хранит состояние воронки в Redis. Сессионные записи
// получают TTL и продлеваются при каждой записи; долговременные
// живут без срока.
type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
}

// NewRedisStore создаёт хранилище с заданным временем жизни сессии.
func NewRedisStore(client *redis.Client, sessionTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, sessionTTL: sessionTTL}
}

func storageKey(scope domain.Scope, sessionID, key string) string {
	return fmt.Sprintf("gazel:%s:%s:%s", scope, sessionID, key)
}

// Get возвращает значение либо domain.ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, scope domain.Scope, sessionID, key string) (string, error) {
	value, err := s.client.Get(ctx, storageKey(scope, sessionID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("чтение %s/%s: %w", scope, key, err)
	}
	return value, nil
}

// Set записывает значение с TTL по области видимости.
func (s *RedisStore) Set(ctx context.Context, scope domain.Scope, sessionID, key, value string) error {
	ttl := time.Duration(0)
	if scope == domain.ScopeSession {
		ttl = s.sessionTTL
	}
	if err := s.client.Set(ctx, storageKey(scope, sessionID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("запись %s/%s: %w", scope, key, err)
	}
	return nil
}

// Delete удаляет значение; отсутствие ключа не считается ошибкой.
func (s *RedisStore) Delete(ctx context.Context, scope domain.Scope, sessionID, key string) error {
	if err := s.client.Del(ctx, storageKey(scope, sessionID, key)).Err(); err != nil {
		return fmt.Errorf("удаление %s/%s: %w", scope, key, err)
	}
	return nil
}

var _ domain.SessionStore = (*RedisStore)(nil)
