package domain

import "context"

// URIMatcher decide se um caminho de recurso está isento de rate limit.
//
// A capacidade de compilar/avaliar padrões (regex) é externa ao núcleo;
// o serviço apenas consulta. A implementação deve ser segura para uso
// concorrente após a fase de configuração.
type URIMatcher interface {
	Match(uri string) bool
}

// NotifiedStore é o sentinela "já notifiquei sobre esta chave?".
//
// MarkNotified faz check-and-set atômico: retorna true somente na primeira
// chamada para a chave (dentro do TTL da implementação). Implementações
// podem persistir em Redis (dedup sobrevive a restart) ou em memória.
// Erros são best-effort: quem chama trata falha como "não é a primeira".
type NotifiedStore interface {
	MarkNotified(ctx context.Context, key string) (first bool, err error)
}

// Notifier dispara os efeitos colaterais de bloqueio (arquivo marcador,
// e-mail, comando externo). Fire-and-forget: nada aqui influencia a
// decisão e falhas não podem vazar para o caminho da requisição.
type Notifier interface {
	Notify(ctx context.Context, ip string)
}
