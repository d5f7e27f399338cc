package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"evasive-gateway/middleware/evasive/domain"
)

// whitelistPrefix é o formato da chave de whitelist dentro do store.
const whitelistPrefix = "WHITELIST_"

// siteSuffix é o sufixo da chave do contador por site.
const siteSuffix = "_SITE"

// Service é o decisor de taxa. Para cada requisição ele consulta e muta até
// três entradas do HitStore:
//
//   - <ip>: o "hold" — enquanto a última negação estiver a menos de
//     BlockingPeriod, tudo é negado e a janela desliza pra frente
//   - <ip>_<uri>: rajada por recurso (PageCount por PageInterval)
//   - <ip>_SITE: rajada por site (SiteCount por SiteInterval)
//
// Um único mutex cobre cada sequência ler-e-mutar; sem isso duas requisições
// concorrentes poderiam ver o contador abaixo do limite e passar as duas.
// O matcher de URI (regex, externo) e o sentinela de notificação (Redis)
// rodam fora do lock.
type Service struct {
	mu       sync.Mutex
	store    domain.HitStore
	settings domain.Settings

	uriWhitelist domain.URIMatcher
	notified     domain.NotifiedStore

	now func() time.Time
}

type ServiceOption func(*Service)

// WithURIWhitelist injeta o matcher de caminhos isentos.
func WithURIWhitelist(m domain.URIMatcher) ServiceOption {
	return func(s *Service) { s.uriWhitelist = m }
}

// WithNotifiedStore injeta o sentinela que torna NewlyBlocked edge-triggered.
// Sem ele, NewlyBlocked é sempre false (sem estado de dedup não dá para
// detectar a transição com segurança).
func WithNotifiedStore(n domain.NotifiedStore) ServiceOption {
	return func(s *Service) { s.notified = n }
}

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store domain.HitStore, settings domain.Settings, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		settings: settings.Normalize(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings retorna os parâmetros normalizados em uso.
func (s *Service) Settings() domain.Settings { return s.settings }

// AddWhitelist registra um ip ou curinga IPv4 (a.b.c.*, a.b.*.*, a.*.*.*)
// isento de todas as verificações. Fase de configuração.
func (s *Service) AddWhitelist(pattern string) {
	s.mu.Lock()
	s.store.Upsert(whitelistPrefix+pattern, s.now())
	s.mu.Unlock()
}

// Evaluate decide a admissão da requisição e muta os contadores.
func (s *Service) Evaluate(ctx context.Context, ip, uri string) domain.Decision {
	if s == nil || s.store == nil || !s.settings.Enabled {
		return domain.Decision{Allowed: true}
	}

	// matcher externo fora do lock: o contrato dele limita o custo, não o nosso
	if s.uriWhitelist != nil && s.uriWhitelist.Match(uri) {
		return domain.Decision{Allowed: true}
	}

	now := s.now()
	denied := false

	s.mu.Lock()
	if s.whitelistedLocked(ip) {
		s.mu.Unlock()
		return domain.Decision{Allowed: true}
	}

	if n := s.store.Find(ip); n != nil && now.Sub(n.LastSeen) < s.settings.BlockingPeriod {
		// em hold: cada nova tentativa empurra a janela de bloqueio
		n.LastSeen = now
		denied = true
	} else {
		if s.windowLocked(ip+"_"+uri, ip, now, s.settings.PageInterval, s.settings.PageCount) {
			denied = true
		}
		// o contador de site roda mesmo quando o de página já negou
		if s.windowLocked(ip+siteSuffix, ip, now, s.settings.SiteInterval, s.settings.SiteCount) {
			denied = true
		}
	}
	s.mu.Unlock()

	if !denied {
		return domain.Decision{Allowed: true}
	}
	return domain.Decision{
		Allowed:      false,
		NewlyBlocked: s.markNotified(ctx, ip),
		RetryAfter:   s.settings.BlockingPeriod,
	}
}

// windowLocked aplica a checagem de rajada de uma janela (reset-on-elapse).
// Retorna true quando a requisição atual estoura o limite; nesse caso também
// arma o hold do ip. A própria requisição conta como hit em todos os casos.
func (s *Service) windowLocked(key, ip string, now time.Time, interval time.Duration, limit uint) bool {
	n := s.store.Find(key)
	if n == nil {
		// Upsert devolve nil com o store esgotado: degrada para allow
		if n = s.store.Upsert(key, now); n != nil {
			n.Count++
		}
		return false
	}

	denied := false
	if now.Sub(n.LastSeen) < interval && n.Count >= limit {
		denied = true
		// arma (ou rearma) o hold; a próxima requisição cai na checagem de hold
		s.store.Upsert(ip, now)
	} else if now.Sub(n.LastSeen) >= interval {
		// janela venceu: recomeça a contagem
		n.Count = 0
	}
	n.LastSeen = now
	n.Count++
	return denied
}

// whitelistedLocked procura o ip exato e os curingas IPv4, do mais
// específico para o mais genérico.
func (s *Service) whitelistedLocked(ip string) bool {
	if s.store.Find(whitelistPrefix+ip) != nil {
		return true
	}

	oct := strings.Split(ip, ".")
	if len(oct) != 4 {
		return false
	}
	for _, o := range oct {
		if o == "" || len(o) > 3 {
			return false
		}
	}

	if s.store.Find(whitelistPrefix+oct[0]+"."+oct[1]+"."+oct[2]+".*") != nil {
		return true
	}
	if s.store.Find(whitelistPrefix+oct[0]+"."+oct[1]+".*.*") != nil {
		return true
	}
	if s.store.Find(whitelistPrefix+oct[0]+".*.*.*") != nil {
		return true
	}
	return false
}

// markNotified consulta o sentinela fora do lock. Erro vira "não é a
// primeira": notificação é best-effort e nunca muda a decisão.
func (s *Service) markNotified(ctx context.Context, ip string) bool {
	if s.notified == nil {
		return false
	}
	first, err := s.notified.MarkNotified(ctx, ip)
	if err != nil {
		return false
	}
	return first
}
