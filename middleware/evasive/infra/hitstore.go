package infra

import (
	"time"

	"evasive-gateway/middleware/evasive/domain"
)

// primeSizes são as classes de tamanho da tabela. A capacidade é escolhida
// uma única vez na criação; a tabela nunca cresce, as correntes absorvem a
// carga extra.
var primeSizes = []uint64{
	53, 97, 193, 389, 769,
	1543, 3079, 6151, 12289, 24593,
	49157, 98317, 196613, 393241, 786433,
	1572869, 3145739, 6291469, 12582917, 25165843,
	50331653, 100663319, 201326611, 402653189, 805306457,
	1610612741, 3221225473, 4294967291,
}

type hitNode struct {
	rec  domain.HitRecord
	next *hitNode
}

// HitStore é uma tabela hash encadeada de domain.HitRecord.
//
// A capacidade é o menor primo da lista >= tamanho pedido (saturando no
// maior). Não é segura para uso concorrente sem serialização externa: o
// serviço de decisão segura um único mutex em volta de cada sequência
// ler-e-mutar (ver application.Service).
type HitStore struct {
	buckets []*hitNode
	items   int
	// maxItems limita o total de entradas vivas; 0 = sem limite.
	// Ao atingir o limite, Upsert de chave nova retorna nil e quem chama
	// degrada a decisão para allow.
	maxItems int
}

type HitStoreOption func(*HitStore)

// WithMaxEntries limita o número de registros vivos (0 = ilimitado).
func WithMaxEntries(n int) HitStoreOption {
	return func(s *HitStore) { s.maxItems = n }
}

// NewHitStore cria o store com capacidade = menor primo >= requested.
func NewHitStore(requested uint, opts ...HitStoreOption) *HitStore {
	i := 0
	for i < len(primeSizes)-1 && primeSizes[i] < uint64(requested) {
		i++
	}
	s := &HitStore{buckets: make([]*hitNode, primeSizes[i])}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hashcode é o hash polinomial clássico (val = 5*val + byte) módulo capacidade.
func (s *HitStore) hashcode(key string) uint64 {
	var val uint64
	for i := 0; i < len(key); i++ {
		val = 5*val + uint64(key[i])
	}
	return val % uint64(len(s.buckets))
}

// Size é a capacidade escolhida (número de buckets).
func (s *HitStore) Size() int { return len(s.buckets) }

// Len é o total de registros vivos.
func (s *HitStore) Len() int { return s.items }

// Find retorna o registro da chave ou nil. Sem efeitos colaterais.
func (s *HitStore) Find(key string) *domain.HitRecord {
	for node := s.buckets[s.hashcode(key)]; node != nil; node = node.next {
		if node.rec.Key == key {
			return &node.rec
		}
	}
	return nil
}

// Upsert toca e zera: se a chave existe, Count volta a 0 e LastSeen recebe
// ts; se não existe, insere no fim da corrente com Count = 0. Retorna nil
// apenas quando o limite de entradas foi atingido.
func (s *HitStore) Upsert(key string, ts time.Time) *domain.HitRecord {
	h := s.hashcode(key)

	var parent *hitNode
	for node := s.buckets[h]; node != nil; node = node.next {
		if node.rec.Key == key {
			node.rec.LastSeen = ts
			node.rec.Count = 0
			return &node.rec
		}
		parent = node
	}

	if s.maxItems > 0 && s.items >= s.maxItems {
		return nil
	}

	node := &hitNode{rec: domain.HitRecord{Key: key, LastSeen: ts}}
	if parent != nil {
		parent.next = node
	} else {
		s.buckets[h] = node
	}
	s.items++
	return &node.rec
}

// Delete remove o registro, se existir.
func (s *HitStore) Delete(key string) bool {
	h := s.hashcode(key)

	var parent *hitNode
	for node := s.buckets[h]; node != nil; node = node.next {
		if node.rec.Key == key {
			if parent != nil {
				parent.next = node.next
			} else {
				s.buckets[h] = node.next
			}
			s.items--
			return true
		}
		parent = node
	}
	return false
}

// Each percorre todos os registros vivos (ordem: bucket, depois corrente).
// Retornar false interrompe. Mutar o store durante o percurso é indefinido.
func (s *HitStore) Each(fn func(*domain.HitRecord) bool) {
	for _, head := range s.buckets {
		for node := head; node != nil; node = node.next {
			if !fn(&node.rec) {
				return
			}
		}
	}
}

// Reset descarta todos os registros (teardown do escopo de configuração).
// Só deve rodar depois que todos os acessos concorrentes cessaram.
func (s *HitStore) Reset() {
	for i := range s.buckets {
		s.buckets[i] = nil
	}
	s.items = 0
}
