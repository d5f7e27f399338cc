package domain

// Camada de domínio do filtro de admissão.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// HitRecord é uma entrada rastreada: a chave identifica o sujeito
// (IP, IP_URI, IP_SITE ou WHITELIST_<padrão>), LastSeen é o último toque
// e Count é um contador cuja semântica pertence a quem consulta o store.
type HitRecord struct {
	Key      string
	LastSeen time.Time
	Count    uint
}

// HitStore é o armazenamento de contadores com carimbo de tempo.
//
// O store não conhece nada de rate limit: Find/Upsert/Delete/Each operam
// sobre registros opacos. Upsert tem semântica de "tocar e zerar": se a
// chave existe, zera Count e atualiza LastSeen; se não existe, cria com
// Count = 0. Upsert pode retornar nil quando o store está esgotado
// (limite de entradas); quem chama deve degradar para allow.
//
// Implementações não precisam ser seguras para uso concorrente; quem
// consome serializa o acesso (ver application.Service).
type HitStore interface {
	Find(key string) *HitRecord
	Upsert(key string, ts time.Time) *HitRecord
	Delete(key string) bool
	Each(fn func(*HitRecord) bool)
	Len() int
}

// Decision é o resultado de uma avaliação.
type Decision struct {
	Allowed bool
	// NewlyBlocked indica a primeira negação para este cliente desde que o
	// sentinela de notificação o conhece. É este campo (e não Allowed=false)
	// que deve disparar efeitos colaterais de notificação, uma única vez.
	NewlyBlocked bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// Settings são os parâmetros do filtro, somente leitura durante a operação.
type Settings struct {
	Enabled        bool
	HashTableSize  uint
	PageCount      uint
	PageInterval   time.Duration
	SiteCount      uint
	SiteInterval   time.Duration
	BlockingPeriod time.Duration
	HTTPReply      int
}

// Defaults espelham os valores clássicos do mod_evasive.
const (
	DefaultHashTableSize  = 3097
	DefaultPageCount      = 2
	DefaultSiteCount      = 50
	DefaultPageInterval   = 1 * time.Second
	DefaultSiteInterval   = 1 * time.Second
	DefaultBlockingPeriod = 10 * time.Second
	DefaultHTTPReply      = 403
)

// DefaultSettings retorna os parâmetros padrão (filtro desabilitado).
func DefaultSettings() Settings {
	return Settings{
		HashTableSize:  DefaultHashTableSize,
		PageCount:      DefaultPageCount,
		PageInterval:   DefaultPageInterval,
		SiteCount:      DefaultSiteCount,
		SiteInterval:   DefaultSiteInterval,
		BlockingPeriod: DefaultBlockingPeriod,
		HTTPReply:      DefaultHTTPReply,
	}
}

// Normalize substitui valores inválidos (zero/negativos) pelos padrões.
// Configuração ruim nunca é fatal: cai no padrão documentado.
func (s Settings) Normalize() Settings {
	if s.HashTableSize == 0 {
		s.HashTableSize = DefaultHashTableSize
	}
	if s.PageCount == 0 {
		s.PageCount = DefaultPageCount
	}
	if s.SiteCount == 0 {
		s.SiteCount = DefaultSiteCount
	}
	if s.PageInterval <= 0 {
		s.PageInterval = DefaultPageInterval
	}
	if s.SiteInterval <= 0 {
		s.SiteInterval = DefaultSiteInterval
	}
	if s.BlockingPeriod <= 0 {
		s.BlockingPeriod = DefaultBlockingPeriod
	}
	if s.HTTPReply <= 0 {
		s.HTTPReply = DefaultHTTPReply
	}
	return s
}
