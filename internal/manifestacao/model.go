package manifestacao

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status enumera as etapas do fluxo de atendimento. Internamente o status
// é sempre um valor tipado; a string minúscula é a única representação de
// transporte.
type Status string

const (
	StatusPendente        Status = "pendente"
	StatusRecebida        Status = "recebida"
	StatusEmProcessamento Status = "em_processamento"
	StatusConcluida       Status = "concluida"
	StatusRejeitada       Status = "rejeitada"
)

// ParseStatus converte a representação de transporte em Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPendente, StatusRecebida, StatusEmProcessamento, StatusConcluida, StatusRejeitada:
		return s, nil
	}
	return "", fmt.Errorf("status desconhecido: %q", raw)
}

// Terminal indica se o status encerra o atendimento.
func (s Status) Terminal() bool {
	return s == StatusConcluida || s == StatusRejeitada
}

// StepRejeitada é a posição sentinela da barra de progresso para casos
// rejeitados; nunca deve ser interpolada na escala 0..3.
const StepRejeitada = -1

// Step devolve a posição discreta para a barra de progresso:
// pendente=0, recebida=1, em_processamento=2, concluida=3 e
// rejeitada=StepRejeitada.
func (s Status) Step() int {
	switch s {
	case StatusPendente:
		return 0
	case StatusRecebida:
		return 1
	case StatusEmProcessamento:
		return 2
	case StatusConcluida:
		return 3
	case StatusRejeitada:
		return StepRejeitada
	}
	return StepRejeitada
}

// Classificacao enumera os tipos de manifestação.
type Classificacao string

const (
	ClassificacaoReclamacao  Classificacao = "reclamacao"
	ClassificacaoDenuncia    Classificacao = "denuncia"
	ClassificacaoElogio      Classificacao = "elogio"
	ClassificacaoSugestao    Classificacao = "sugestao"
	ClassificacaoInformacao  Classificacao = "informacao"
	ClassificacaoSolicitacao Classificacao = "solicitacao"
)

// ParseClassificacao converte a representação de transporte em Classificacao.
func ParseClassificacao(raw string) (Classificacao, error) {
	c := Classificacao(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case ClassificacaoReclamacao, ClassificacaoDenuncia, ClassificacaoElogio,
		ClassificacaoSugestao, ClassificacaoInformacao, ClassificacaoSolicitacao:
		return c, nil
	}
	return "", fmt.Errorf("classificação desconhecida: %q", raw)
}

// PermitidaAnonima indica se o tipo pode ser registrado sem identificação.
// Apenas reclamações e denúncias aceitam anonimato.
func (c Classificacao) PermitidaAnonima() bool {
	return c == ClassificacaoReclamacao || c == ClassificacaoDenuncia
}

// Manifestacao é o registro central do portal.
type Manifestacao struct {
	ID            uuid.UUID
	Protocolo     string
	Classificacao Classificacao
	AssuntoID     uuid.UUID
	Relato        string
	Anonima       bool
	Status        Status
	// Dados complementares validados contra o esquema do assunto.
	Dados map[string]string
	// UsuarioID fica armazenado para auditoria mesmo em manifestações
	// anônimas, mas nunca sai em nenhuma projeção quando Anonima=true.
	UsuarioID      *uuid.UUID
	CriadoEm       time.Time
	AtualizadoEm   *time.Time
	DataConclusao  *time.Time
	// Campos denormalizados para listagens (join com assuntos/usuarios).
	AssuntoNome string
	UsuarioNome *string
	Anexos      []Anexo
}

// Movimentacao é uma entrada do histórico, imutável após criada.
// AutorID nulo identifica movimentações automáticas do sistema.
type Movimentacao struct {
	ID             uuid.UUID
	ManifestacaoID uuid.UUID
	AutorID        *uuid.UUID
	AutorNome      *string
	Texto          string
	Interna        bool
	NovoStatus     *Status
	CriadoEm       time.Time
}

// Anexo referencia um arquivo enviado junto da manifestação.
type Anexo struct {
	ID             uuid.UUID `json:"id"`
	ManifestacaoID uuid.UUID `json:"manifestacao_id"`
	URL            string    `json:"arquivo_url"`
	TipoArquivo    string    `json:"tipo_arquivo"`
	Tamanho        int64     `json:"tamanho"`
	CriadoEm       time.Time `json:"criado_em"`
}

// Protocolo é o registro de auditoria da numeração.
type Protocolo struct {
	Numero          string
	ManifestacaoID  uuid.UUID
	SequenciaDiaria int
	GeradoEm        time.Time
	ExpiraEm        time.Time
}

// PrazoResposta é o prazo legal de resposta contado da abertura.
const PrazoResposta = 30 * 24 * time.Hour

// NovoProtocolo gera o número OUVIDORIA-YYYYMMDD-XXXXXX, com sufixo
// aleatório em caixa alta.
func NovoProtocolo(manifestacaoID uuid.UUID, sequencia int, em time.Time) Protocolo {
	sufixo := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	numero := fmt.Sprintf("OUVIDORIA-%s-%s", em.Format("20060102"), sufixo)
	return Protocolo{
		Numero:          numero,
		ManifestacaoID:  manifestacaoID,
		SequenciaDiaria: sequencia,
		GeradoEm:        em,
		ExpiraEm:        em.Add(PrazoResposta),
	}
}
