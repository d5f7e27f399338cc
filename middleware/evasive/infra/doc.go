// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - HitStore: tabela hash encadeada de contadores com carimbo de tempo
//   - URIWhitelist: matcher de regex para caminhos isentos
//   - BlockNotifier: marcador/e-mail/comando ao bloquear, com throttle
//   - NotifiedStore (memória/Redis): sentinela de "já notificado"
package infra
