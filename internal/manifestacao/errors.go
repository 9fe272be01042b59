package manifestacao

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound cobre tanto protocolo inexistente quanto consultas que
	// não podem confirmar a existência do registro (ver política de
	// visibilidade para manifestações anônimas).
	ErrNotFound = errors.New("manifestação não encontrada")
	// ErrForbidden indica violação de papel/propriedade em registro cuja
	// existência já é conhecida do chamador.
	ErrForbidden = errors.New("acesso negado")
)

// Violacao aponta um campo rejeitado e o motivo, no mesmo formato do
// validador de campos dinâmicos.
type Violacao struct {
	Campo  string `json:"campo"`
	Motivo string `json:"motivo"`
}

// Motivos de violação usados na criação de manifestações.
const (
	MotivoMuitoCurto            = "too_short"
	MotivoObrigatorio           = "required"
	MotivoClassificacaoInvalida = "invalid_classification"
	MotivoAnonimatoNaoPermitido = "anonymous_not_allowed"
	MotivoAssuntoInvalido       = "unknown_subject"
)

// ValidationError agrega todas as violações de uma submissão para que o
// cliente exiba tudo de uma vez.
type ValidationError struct {
	Violacoes []Violacao
}

func (e *ValidationError) Error() string {
	if len(e.Violacoes) == 0 {
		return "submissão inválida"
	}
	parts := make([]string, 0, len(e.Violacoes))
	for _, v := range e.Violacoes {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Campo, v.Motivo))
	}
	return "submissão inválida: " + strings.Join(parts, "; ")
}

// TransitionError descreve uma mudança de status fora do grafo permitido.
// A transição nunca é silenciosamente corrigida.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transição de status ilegal: %s -> %s", e.From, e.To)
}
