package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do filtro de admissão.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings
// genéricas. Cuidado com cardinalidade ao habilitar rastreio por chave
// (um ataque distribuído pode gerar muitas séries).
type StatsEvent struct {
	Key     Key
	Allowed bool
	// Blocked marca o evento que iniciou um bloqueio (transição, não estado).
	Blocked bool

	Method string
	Path   string

	At time.Time
}

// Key identifica o cliente (IP, header de API, etc).
type Key string

// StatsStore é a estratégia de persistência para estatísticas do filtro.
//
// Implementações podem armazenar em Redis, memória, etc. O middleware deve
// tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
