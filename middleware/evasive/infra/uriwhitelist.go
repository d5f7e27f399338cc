package infra

import (
	"regexp"
)

// URIWhitelist é a lista de padrões de caminho isentos de rate limit.
//
// Add compila o padrão na fase de configuração; depois disso Match pode ser
// chamado concorrentemente (regexp compilada é imutável). Um padrão que não
// compila é descartado sem derrubar os demais.
type URIWhitelist struct {
	patterns []*regexp.Regexp
}

func NewURIWhitelist() *URIWhitelist {
	return &URIWhitelist{}
}

// Add compila e registra um padrão. Retorna o erro de compilação para quem
// configura logar e seguir em frente (não fatal).
func (w *URIWhitelist) Add(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	w.patterns = append(w.patterns, re)
	return nil
}

// Len é o número de padrões registrados.
func (w *URIWhitelist) Len() int { return len(w.patterns) }

// Match implementa domain.URIMatcher (busca não ancorada, como o pcre2_match
// original: basta o padrão casar em qualquer trecho do caminho).
func (w *URIWhitelist) Match(uri string) bool {
	if w == nil {
		return false
	}
	for _, re := range w.patterns {
		if re.MatchString(uri) {
			return true
		}
	}
	return false
}
