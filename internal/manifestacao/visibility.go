package manifestacao

import (
	"time"

	"github.com/google/uuid"
)

// Viewer identifica quem está consultando o registro. Toda projeção de
// leitura passa por aqui; nenhuma outra camada decide visibilidade.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

// View é a projeção de uma manifestação para um viewer específico.
// Campos de identidade do autor só aparecem para administradores e
// somente quando a manifestação não é anônima: o anonimato é
// incondicional, não um padrão de privacidade.
type View struct {
	ID            uuid.UUID         `json:"id"`
	Protocolo     string            `json:"protocolo"`
	Classificacao Classificacao     `json:"classificacao"`
	AssuntoID     uuid.UUID         `json:"assunto_id"`
	AssuntoNome   string            `json:"assunto_nome,omitempty"`
	Relato        string            `json:"relato"`
	Anonima       bool              `json:"anonimo"`
	Status        Status            `json:"status"`
	StatusStep    int               `json:"status_step"`
	Dados         map[string]string `json:"dados_complementares,omitempty"`
	Anexos        []Anexo           `json:"anexos,omitempty"`
	UsuarioID     *uuid.UUID        `json:"usuario_id,omitempty"`
	UsuarioNome   *string           `json:"usuario_nome,omitempty"`
	CriadoEm      time.Time         `json:"criado_em"`
	DataConclusao *time.Time        `json:"data_conclusao,omitempty"`
}

// MovimentacaoView é a projeção de uma entrada do histórico.
type MovimentacaoView struct {
	ID         uuid.UUID  `json:"id"`
	Texto      string     `json:"texto"`
	Interna    bool       `json:"interna"`
	NovoStatus *Status    `json:"novo_status,omitempty"`
	AutorNome  *string    `json:"autor_nome,omitempty"`
	Sistema    bool       `json:"sistema"`
	CriadoEm   time.Time  `json:"criado_em"`
}

// Project monta a projeção da manifestação para o viewer.
func Project(v Viewer, m Manifestacao) View {
	view := View{
		ID:            m.ID,
		Protocolo:     m.Protocolo,
		Classificacao: m.Classificacao,
		AssuntoID:     m.AssuntoID,
		AssuntoNome:   m.AssuntoNome,
		Relato:        m.Relato,
		Anonima:       m.Anonima,
		Status:        m.Status,
		StatusStep:    m.Status.Step(),
		Dados:         m.Dados,
		Anexos:        m.Anexos,
		CriadoEm:      m.CriadoEm,
		DataConclusao: m.DataConclusao,
	}

	if v.Admin && !m.Anonima {
		view.UsuarioID = m.UsuarioID
		view.UsuarioNome = m.UsuarioNome
	}

	return view
}

// ProjectMovimentacoes filtra o histórico para o viewer: notas internas
// nunca chegam ao cidadão, ainda que a mudança de status causada por elas
// continue visível via status da manifestação.
func ProjectMovimentacoes(v Viewer, movs []Movimentacao) []MovimentacaoView {
	views := make([]MovimentacaoView, 0, len(movs))
	for _, mov := range movs {
		if mov.Interna && !v.Admin {
			continue
		}
		views = append(views, MovimentacaoView{
			ID:         mov.ID,
			Texto:      mov.Texto,
			Interna:    mov.Interna,
			NovoStatus: mov.NovoStatus,
			AutorNome:  mov.AutorNome,
			Sistema:    mov.AutorID == nil,
			CriadoEm:   mov.CriadoEm,
		})
	}
	return views
}

// CanRead decide se o viewer pode ler a manifestação. Consulta de
// cidadão sobre manifestação anônima é indistinguível de registro
// inexistente (o chamador deve devolver ErrNotFound, não ErrForbidden,
// para não confirmar existência).
func CanRead(v Viewer, m Manifestacao) bool {
	if v.Admin {
		return true
	}
	if m.Anonima {
		return false
	}
	return m.UsuarioID != nil && *m.UsuarioID == v.UserID
}
