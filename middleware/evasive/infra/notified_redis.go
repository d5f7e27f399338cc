package infra

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNotifiedStore é o sentinela "já notificado" em Redis (SET NX).
//
// Diferente do store em memória, o dedup sobrevive a restart do processo,
// preservando o comportamento do marcador em disco do mod_evasive original.
type RedisNotifiedStore struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
}

type RedisNotifiedOption func(*RedisNotifiedStore)

func WithNotifiedPrefix(prefix string) RedisNotifiedOption {
	return func(s *RedisNotifiedStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

// WithNotifiedTTL define por quanto tempo o sentinela segura a chave
// (0 = para sempre).
func WithNotifiedTTL(d time.Duration) RedisNotifiedOption {
	return func(s *RedisNotifiedStore) { s.ttl = d }
}

func NewRedisNotifiedStore(rdb *redis.Client, opts ...RedisNotifiedOption) *RedisNotifiedStore {
	s := &RedisNotifiedStore{
		rdb:    rdb,
		prefix: "evasive:notified",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkNotified implementa domain.NotifiedStore. SET NX é o check-and-set
// atômico; em caso de erro de Redis, reporta false (melhor perder uma
// notificação do que duplicar em rajada enquanto o Redis oscila).
func (s *RedisNotifiedStore) MarkNotified(ctx context.Context, key string) (bool, error) {
	if s == nil || s.rdb == nil {
		return false, nil
	}

	first, err := s.rdb.SetNX(ctx, s.prefix+":"+key, "1", s.ttl).Result()
	if err != nil {
		log.Printf("evasive: notified sentinel error for %q: %v", key, err)
		return false, err
	}
	return first, nil
}
