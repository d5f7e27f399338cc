// utilitário pequeno para formatação rápida/consistente de valores numéricos
// em headers, sem puxar fmt (mais “pesado” e genérico) para algo tão simples.

package evasive

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }
