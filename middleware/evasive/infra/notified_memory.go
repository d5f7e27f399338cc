package infra

import (
	"context"
	"sync"
	"time"
)

// MemoryNotifiedStore é o sentinela "já notificado" em memória.
//
// Útil para testes e para rodar sem Redis. O estado não sobrevive a restart:
// cada processo novo pode emitir uma notificação extra por cliente.
type MemoryNotifiedStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	// ttl zero = nunca expira (comportamento do arquivo marcador original,
	// que ficava no disco até alguém apagar).
	ttl time.Duration

	now func() time.Time
}

type MemoryNotifiedOption func(*MemoryNotifiedStore)

// WithMemoryNotifiedTTL faz o sentinela esquecer a chave depois de d.
func WithMemoryNotifiedTTL(d time.Duration) MemoryNotifiedOption {
	return func(s *MemoryNotifiedStore) { s.ttl = d }
}

func NewMemoryNotifiedStore(opts ...MemoryNotifiedOption) *MemoryNotifiedStore {
	s := &MemoryNotifiedStore{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkNotified implementa domain.NotifiedStore: true somente na primeira
// chamada para a chave (dentro do TTL).
func (s *MemoryNotifiedStore) MarkNotified(_ context.Context, key string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if at, ok := s.seen[key]; ok {
		if s.ttl <= 0 || now.Sub(at) < s.ttl {
			return false, nil
		}
	}
	s.seen[key] = now
	return true, nil
}
