// Package evasive fornece o adapter HTTP (net/http) do filtro de admissão
// por taxa de requisições, no espírito do mod_evasive do Apache.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: o decisor (hold + rajada por página + rajada por site)
//   - infra: implementações concretas (hit store, whitelist de URI,
//     notificador, sentinela de notificação, estatísticas)
//   - evasive (este pacote): middleware HTTP + extração de chave + tradução
//     para status/headers + disparo único de notificações
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (IP/header/XFF)
//  2. Chama a camada application para obter a decisão
//  3. Se negado, responde com o status configurado (padrão 403)
//  4. Se NewlyBlocked, dispara o notificador em background (uma vez por ip)
//  5. Se permitido, chama o próximo handler (ex: reverse proxy)
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como DOS_PAGE_COUNT, DOS_PAGE_INTERVAL e DOS_BLOCKING_PERIOD.
package evasive
