package notification

import (
	"sort"
	"time"
	"unicode/utf8"
)

// tamanhoResumo limita o trecho da resposta exibido na notificação.
const tamanhoResumo = 40

// Resumo monta o texto curto da notificação a partir da resposta da
// equipe, truncando respostas longas.
func Resumo(texto string) string {
	if utf8.RuneCountInString(texto) <= tamanhoResumo {
		return "Nova resposta: " + texto
	}
	runes := []rune(texto)
	return "Nova resposta: " + string(runes[:tamanhoResumo]) + "..."
}

// Filtrar devolve apenas os eventos estritamente posteriores à marca
// d'água, mais recentes primeiro. Marca d'água nula significa que o
// usuário nunca abriu o painel: tudo conta como não visto.
func Filtrar(eventos []Evento, marca *time.Time) []Evento {
	out := make([]Evento, 0, len(eventos))
	for _, ev := range eventos {
		if marca != nil && !ev.CriadoEm.After(*marca) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CriadoEm.After(out[j].CriadoEm)
	})
	return out
}
