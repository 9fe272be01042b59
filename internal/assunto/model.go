package assunto

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ouvidoriadigital/portal/internal/util"
)

var (
	ErrNotFound      = errors.New("assunto não encontrado")
	ErrSlugDuplicado = errors.New("campo com slug duplicado")
	ErrRotuloVazio   = errors.New("rótulo do campo obrigatório")
	ErrTipoInvalido  = errors.New("tipo de campo inválido")
	ErrSemOpcoes     = errors.New("campo de seleção exige opções")
)

// TipoCampo enumera os tipos de campo dinâmico aceitos.
type TipoCampo string

const (
	CampoTexto   TipoCampo = "text"
	CampoData    TipoCampo = "date"
	CampoHora    TipoCampo = "time"
	CampoSelecao TipoCampo = "select"
)

// Valid indica se o tipo faz parte do conjunto fechado.
func (t TipoCampo) Valid() bool {
	switch t {
	case CampoTexto, CampoData, CampoHora, CampoSelecao:
		return true
	}
	return false
}

// CampoConfig descreve um campo dinâmico do formulário de manifestação.
// A ordem dos campos no slice é a ordem de exibição.
type CampoConfig struct {
	Slug        string    `json:"slug"`
	Tipo        TipoCampo `json:"tipo"`
	Rotulo      string    `json:"rotulo"`
	Obrigatorio bool      `json:"obrigatorio"`
	Opcoes      []string  `json:"opcoes,omitempty"`
}

// Assunto é uma categoria de manifestação com esquema de campos próprio.
type Assunto struct {
	ID        uuid.UUID     `json:"id"`
	Nome      string        `json:"nome"`
	Descricao string        `json:"descricao"`
	Ativo     bool          `json:"ativo"`
	Campos    []CampoConfig `json:"campos_adicionais"`
	CriadoEm  time.Time     `json:"criado_em"`
}

// NovoCampo monta um CampoConfig derivando o slug do rótulo. O slug é
// estável: minúsculas, sem acentos, não alfanuméricos viram '_'.
func NovoCampo(rotulo string, tipo TipoCampo, obrigatorio bool, opcoes []string) (CampoConfig, error) {
	rotulo = strings.TrimSpace(rotulo)
	if rotulo == "" {
		return CampoConfig{}, ErrRotuloVazio
	}
	if !tipo.Valid() {
		return CampoConfig{}, ErrTipoInvalido
	}

	slug := util.Slugify(rotulo)
	if slug == "" {
		return CampoConfig{}, ErrRotuloVazio
	}

	campo := CampoConfig{Slug: slug, Tipo: tipo, Rotulo: rotulo, Obrigatorio: obrigatorio}

	if tipo == CampoSelecao {
		for _, op := range opcoes {
			if op = strings.TrimSpace(op); op != "" {
				campo.Opcoes = append(campo.Opcoes, op)
			}
		}
		if len(campo.Opcoes) == 0 {
			return CampoConfig{}, ErrSemOpcoes
		}
	}

	return campo, nil
}

// AdicionarCampo acrescenta um campo ao esquema, rejeitando slug já usado.
func (a *Assunto) AdicionarCampo(campo CampoConfig) error {
	for _, existente := range a.Campos {
		if existente.Slug == campo.Slug {
			return ErrSlugDuplicado
		}
	}
	a.Campos = append(a.Campos, campo)
	return nil
}
