// Package application contém o caso de uso do filtro de admissão: dada uma
// requisição (ip + caminho), decidir allow/deny e mutar os contadores que
// tornam a decisão stateful.
//
// Ele depende apenas do pacote domain e não conhece net/http.
package application
