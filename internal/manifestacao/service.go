package manifestacao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ouvidoriadigital/portal/internal/alert"
	"github.com/ouvidoriadigital/portal/internal/assunto"
	"github.com/ouvidoriadigital/portal/internal/util"
)

// TextoAutoRecebimento é a mensagem pública emitida pelo sistema quando
// um atendente abre pela primeira vez uma manifestação pendente.
const TextoAutoRecebimento = "Recebemos sua manifestação. Ela está na fila de análise da equipe da Ouvidoria."

// TamanhoMinimoRelato em caracteres, após trim.
const TamanhoMinimoRelato = 10

// ErrConflito sinaliza que o status mudou entre a leitura e a gravação;
// o chamador deve reconsultar e decidir de novo.
var ErrConflito = errors.New("status alterado concorrentemente")

// Transicao descreve a mudança de status condicionada ao status de
// origem. O repositório só aplica a gravação se o status atual ainda for
// De. É esse compare-and-set que serializa aberturas concorrentes.
type Transicao struct {
	De   Status
	Para Status
}

// Repository abstrai a persistência de manifestações e movimentações.
type Repository interface {
	// Create grava manifestação + protocolo (+ anexos) numa transação,
	// atribuindo a sequência diária do protocolo.
	Create(ctx context.Context, m *Manifestacao, p *Protocolo) error
	GetByID(ctx context.Context, id uuid.UUID) (*Manifestacao, error)
	GetByProtocolo(ctx context.Context, protocolo string) (*Manifestacao, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Manifestacao, int, error)
	ListAll(ctx context.Context, f Filter) ([]Manifestacao, int, error)
	ListMovimentacoes(ctx context.Context, manifestacaoID uuid.UUID) ([]Movimentacao, error)
	// AppendMovimentacao insere a movimentação e aplica a transição (se
	// houver) como uma unidade atômica; devolve ErrConflito quando o
	// status de origem já não confere.
	AppendMovimentacao(ctx context.Context, mov *Movimentacao, t *Transicao) error
	AddAnexo(ctx context.Context, a *Anexo) error
}

// SubjectDirectory é o que o serviço precisa saber sobre assuntos.
type SubjectDirectory interface {
	GetAtivo(ctx context.Context, id uuid.UUID) (*assunto.Assunto, error)
}

// Service reúne as regras de negócio do ciclo de vida das manifestações.
type Service struct {
	repo     Repository
	assuntos SubjectDirectory
	alerter  alert.Notifier
}

// NewService cria o serviço; alerter pode ser nil.
func NewService(repo Repository, assuntos SubjectDirectory, alerter alert.Notifier) *Service {
	return &Service{repo: repo, assuntos: assuntos, alerter: alerter}
}

// CriarInput é a submissão de uma nova manifestação.
type CriarInput struct {
	Classificacao string
	AssuntoID     uuid.UUID
	Relato        string
	Anonima       bool
	Dados         map[string]string
	// UsuarioID de quem submeteu; fica registrado para auditoria mesmo
	// em manifestações anônimas, sem nunca ser projetado.
	UsuarioID uuid.UUID
}

// Filter restringe a listagem administrativa.
type Filter struct {
	Status        *Status
	Classificacao *Classificacao
	Anonima       *bool
	Busca         string
	Limit         int
	Offset        int
}

// Criar valida a submissão e grava manifestação + protocolo.
func (s *Service) Criar(ctx context.Context, input CriarInput) (*Manifestacao, error) {
	var violacoes []Violacao

	relato := strings.TrimSpace(input.Relato)
	if utf8.RuneCountInString(relato) < TamanhoMinimoRelato {
		violacoes = append(violacoes, Violacao{Campo: "relato", Motivo: MotivoMuitoCurto})
	}

	classificacao, err := ParseClassificacao(input.Classificacao)
	if err != nil {
		violacoes = append(violacoes, Violacao{Campo: "classificacao", Motivo: MotivoClassificacaoInvalida})
	} else if input.Anonima && !classificacao.PermitidaAnonima() {
		violacoes = append(violacoes, Violacao{Campo: "classificacao", Motivo: MotivoAnonimatoNaoPermitido})
	}

	var subj *assunto.Assunto
	if input.AssuntoID == uuid.Nil {
		violacoes = append(violacoes, Violacao{Campo: "assunto_id", Motivo: MotivoObrigatorio})
	} else {
		subj, err = s.assuntos.GetAtivo(ctx, input.AssuntoID)
		if err != nil {
			if errors.Is(err, assunto.ErrNotFound) {
				violacoes = append(violacoes, Violacao{Campo: "assunto_id", Motivo: MotivoAssuntoInvalido})
			} else {
				return nil, err
			}
		}
	}

	if subj != nil {
		for _, v := range assunto.ValidarDados(subj.Campos, input.Dados) {
			violacoes = append(violacoes, Violacao{Campo: v.Campo, Motivo: v.Motivo})
		}
	}

	if len(violacoes) > 0 {
		return nil, &ValidationError{Violacoes: violacoes}
	}

	agora := util.Now()
	usuarioID := input.UsuarioID
	m := &Manifestacao{
		ID:            uuid.New(),
		Classificacao: classificacao,
		AssuntoID:     input.AssuntoID,
		Relato:        relato,
		Anonima:       input.Anonima,
		Status:        StatusPendente,
		Dados:         input.Dados,
		UsuarioID:     &usuarioID,
		CriadoEm:      agora,
	}
	if subj != nil {
		m.AssuntoNome = subj.Nome
	}

	protocolo := NovoProtocolo(m.ID, 0, agora)
	m.Protocolo = protocolo.Numero

	if err := s.repo.Create(ctx, m, &protocolo); err != nil {
		return nil, err
	}

	s.alertarNova(ctx, m)
	return m, nil
}

// ConsultarPorProtocolo aplica a política de visibilidade na consulta.
// Para cidadãos, manifestação anônima ou de outro usuário devolve
// ErrNotFound, indistinguível de protocolo inexistente.
func (s *Service) ConsultarPorProtocolo(ctx context.Context, viewer Viewer, protocolo string) (*View, error) {
	m, err := s.repo.GetByProtocolo(ctx, strings.TrimSpace(protocolo))
	if err != nil {
		return nil, err
	}

	if !CanRead(viewer, *m) {
		return nil, ErrNotFound
	}

	view := Project(viewer, *m)
	return &view, nil
}

// Historico devolve as movimentações visíveis para o viewer.
func (s *Service) Historico(ctx context.Context, viewer Viewer, manifestacaoID uuid.UUID) ([]MovimentacaoView, error) {
	m, err := s.repo.GetByID(ctx, manifestacaoID)
	if err != nil {
		return nil, err
	}
	if !CanRead(viewer, *m) {
		return nil, ErrNotFound
	}

	movs, err := s.repo.ListMovimentacoes(ctx, manifestacaoID)
	if err != nil {
		return nil, err
	}
	return ProjectMovimentacoes(viewer, movs), nil
}

// ListarMinhas lista as manifestações identificadas do usuário. Anônimas
// nunca aparecem aqui: após a submissão elas não são rastreáveis pelo
// autor.
func (s *Service) ListarMinhas(ctx context.Context, userID uuid.UUID, limit, offset int) ([]View, int, error) {
	itens, total, err := s.repo.ListByOwner(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	viewer := Viewer{UserID: userID}
	views := make([]View, 0, len(itens))
	for _, m := range itens {
		views = append(views, Project(viewer, m))
	}
	return views, total, nil
}

// ListarTodas lista manifestações para o painel administrativo.
func (s *Service) ListarTodas(ctx context.Context, adminID uuid.UUID, f Filter) ([]View, int, error) {
	itens, total, err := s.repo.ListAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	viewer := Viewer{UserID: adminID, Admin: true}
	views := make([]View, 0, len(itens))
	for _, m := range itens {
		views = append(views, Project(viewer, m))
	}
	return views, total, nil
}

// Abrir carrega a manifestação para um atendente e dispara o
// auto-recebimento quando o caso ainda está pendente. A gravação é um
// compare-and-set sobre o status: aberturas concorrentes produzem uma
// única movimentação de recebimento.
func (s *Service) Abrir(ctx context.Context, adminID uuid.UUID, manifestacaoID uuid.UUID) (*View, []MovimentacaoView, error) {
	m, err := s.repo.GetByID(ctx, manifestacaoID)
	if err != nil {
		return nil, nil, err
	}

	if m.Status == StatusPendente {
		recebida := StatusRecebida
		mov := &Movimentacao{
			ID:             uuid.New(),
			ManifestacaoID: m.ID,
			AutorID:        nil, // movimentação de sistema
			Texto:          TextoAutoRecebimento,
			Interna:        false,
			NovoStatus:     &recebida,
			CriadoEm:       util.Now(),
		}
		err := s.repo.AppendMovimentacao(ctx, mov, &Transicao{De: StatusPendente, Para: StatusRecebida})
		if err != nil && !errors.Is(err, ErrConflito) {
			return nil, nil, err
		}
		// Em caso de ErrConflito outro atendente recebeu primeiro;
		// recarrega para refletir o status atual.
		if m, err = s.repo.GetByID(ctx, manifestacaoID); err != nil {
			return nil, nil, err
		}
	}

	movs, err := s.repo.ListMovimentacoes(ctx, manifestacaoID)
	if err != nil {
		return nil, nil, err
	}

	viewer := Viewer{UserID: adminID, Admin: true}
	view := Project(viewer, *m)
	return &view, ProjectMovimentacoes(viewer, movs), nil
}

// Responder registra uma movimentação de atendente, opcionalmente com
// mudança de status. Transição ilegal falha com TransitionError e não
// grava nada; novo status igual ao atual anexa a movimentação sem
// registrar transição.
func (s *Service) Responder(ctx context.Context, adminID uuid.UUID, manifestacaoID uuid.UUID, texto string, interna bool, novoStatus *string) (*Movimentacao, error) {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return nil, &ValidationError{Violacoes: []Violacao{{Campo: "texto", Motivo: MotivoObrigatorio}}}
	}

	m, err := s.repo.GetByID(ctx, manifestacaoID)
	if err != nil {
		return nil, err
	}

	var transicao *Transicao
	if novoStatus != nil && strings.TrimSpace(*novoStatus) != "" {
		destino, err := ParseStatus(*novoStatus)
		if err != nil {
			return nil, &ValidationError{Violacoes: []Violacao{{Campo: "novo_status", Motivo: MotivoClassificacaoInvalida}}}
		}
		if destino != m.Status {
			if !PodeTransicionar(m.Status, destino) {
				return nil, &TransitionError{From: m.Status, To: destino}
			}
			transicao = &Transicao{De: m.Status, Para: destino}
		}
	}

	mov := &Movimentacao{
		ID:             uuid.New(),
		ManifestacaoID: m.ID,
		AutorID:        &adminID,
		Texto:          texto,
		Interna:        interna,
		CriadoEm:       util.Now(),
	}
	if transicao != nil {
		mov.NovoStatus = &transicao.Para
	}

	if err := s.repo.AppendMovimentacao(ctx, mov, transicao); err != nil {
		return nil, err
	}
	return mov, nil
}

// Transicoes devolve o status atual e as opções legais de próximo
// status, exatamente como exibidas ao atendente.
func (s *Service) Transicoes(ctx context.Context, manifestacaoID uuid.UUID) (Status, []Status, error) {
	m, err := s.repo.GetByID(ctx, manifestacaoID)
	if err != nil {
		return "", nil, err
	}
	return m.Status, ProximosStatus(m.Status), nil
}

// AnexarArquivo registra os metadados de um anexo já armazenado. Apenas
// o dono (ou um atendente) pode anexar.
//
// A checagem compara só a propriedade, sem passar por CanRead: CanRead
// nega manifestações anônimas até para o dono, mas anexar logo após a
// criação (pelo id recém-devolvido) precisa continuar possível, senão
// manifestações anônimas jamais teriam anexos. Consultas continuam
// bloqueadas; não-donos recebem o mesmo não-encontrado das consultas.
func (s *Service) AnexarArquivo(ctx context.Context, viewer Viewer, manifestacaoID uuid.UUID, url, tipoArquivo string, tamanho int64) (*Anexo, error) {
	m, err := s.repo.GetByID(ctx, manifestacaoID)
	if err != nil {
		return nil, err
	}
	if !viewer.Admin {
		if m.UsuarioID == nil || *m.UsuarioID != viewer.UserID {
			return nil, ErrNotFound
		}
	}

	a := &Anexo{
		ID:             uuid.New(),
		ManifestacaoID: m.ID,
		URL:            url,
		TipoArquivo:    tipoArquivo,
		Tamanho:        tamanho,
		CriadoEm:       util.Now(),
	}
	if err := s.repo.AddAnexo(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) alertarNova(ctx context.Context, m *Manifestacao) {
	if s.alerter == nil {
		return
	}

	severity := alert.SeverityInfo
	if m.Classificacao == ClassificacaoDenuncia {
		severity = alert.SeverityWarning
	}

	msg := alert.Message{
		Title:    "Nova manifestação",
		Text:     fmt.Sprintf("%s (%s), assunto: %s", m.Protocolo, m.Classificacao, m.AssuntoNome),
		Severity: severity,
	}
	if err := s.alerter.Notify(ctx, msg); err != nil {
		log.Warn().Err(err).Str("protocolo", m.Protocolo).Msg("falha ao avisar equipe sobre nova manifestação")
	}
}
