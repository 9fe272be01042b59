package assunto

import (
	"strings"
	"time"
)

// Motivos reportados por ValidarDados.
const (
	MotivoObrigatorio     = "required"
	MotivoOpcaoInvalida   = "invalid_option"
	MotivoFormatoInvalido = "invalid_format"
)

// Violacao aponta um campo rejeitado e o motivo.
type Violacao struct {
	Campo  string `json:"campo"`
	Motivo string `json:"motivo"`
}

// ValidarDados confere os dados complementares contra o esquema do
// assunto. Campos não declarados no esquema são ignorados (o esquema pode
// evoluir sem quebrar submissões antigas). Todas as violações são
// acumuladas para que o cliente exiba tudo de uma vez.
func ValidarDados(campos []CampoConfig, dados map[string]string) []Violacao {
	var violacoes []Violacao

	for _, campo := range campos {
		valor := strings.TrimSpace(dados[campo.Slug])

		if valor == "" {
			if campo.Obrigatorio {
				violacoes = append(violacoes, Violacao{Campo: campo.Slug, Motivo: MotivoObrigatorio})
			}
			continue
		}

		switch campo.Tipo {
		case CampoTexto:
			// qualquer texto não vazio é aceito
		case CampoData:
			if _, err := time.Parse("2006-01-02", valor); err != nil {
				violacoes = append(violacoes, Violacao{Campo: campo.Slug, Motivo: MotivoFormatoInvalido})
			}
		case CampoHora:
			if !horaValida(valor) {
				violacoes = append(violacoes, Violacao{Campo: campo.Slug, Motivo: MotivoFormatoInvalido})
			}
		case CampoSelecao:
			if !contem(campo.Opcoes, valor) {
				violacoes = append(violacoes, Violacao{Campo: campo.Slug, Motivo: MotivoOpcaoInvalida})
			}
		}
	}

	return violacoes
}

func horaValida(valor string) bool {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, valor); err == nil {
			return true
		}
	}
	return false
}

func contem(opcoes []string, valor string) bool {
	for _, op := range opcoes {
		if op == valor {
			return true
		}
	}
	return false
}
