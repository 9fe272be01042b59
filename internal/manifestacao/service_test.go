package manifestacao

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ouvidoriadigital/portal/internal/alert"
	"github.com/ouvidoriadigital/portal/internal/assunto"
)

// repoStub mantém tudo em memória e serializa gravações com mutex, de
// modo que o compare-and-set se comporte como no banco.
type repoStub struct {
	mu    sync.Mutex
	itens map[uuid.UUID]*Manifestacao
	movs  map[uuid.UUID][]Movimentacao
}

func newRepoStub() *repoStub {
	return &repoStub{
		itens: make(map[uuid.UUID]*Manifestacao),
		movs:  make(map[uuid.UUID][]Movimentacao),
	}
}

func (r *repoStub) Create(_ context.Context, m *Manifestacao, _ *Protocolo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copia := *m
	r.itens[m.ID] = &copia
	return nil
}

func (r *repoStub) GetByID(_ context.Context, id uuid.UUID) (*Manifestacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.itens[id]
	if !ok {
		return nil, ErrNotFound
	}
	copia := *m
	return &copia, nil
}

func (r *repoStub) GetByProtocolo(_ context.Context, protocolo string) (*Manifestacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.itens {
		if m.Protocolo == protocolo {
			copia := *m
			return &copia, nil
		}
	}
	return nil, ErrNotFound
}

func (r *repoStub) ListByOwner(_ context.Context, ownerID uuid.UUID, _, _ int) ([]Manifestacao, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Manifestacao
	for _, m := range r.itens {
		if !m.Anonima && m.UsuarioID != nil && *m.UsuarioID == ownerID {
			out = append(out, *m)
		}
	}
	return out, len(out), nil
}

func (r *repoStub) ListAll(_ context.Context, _ Filter) ([]Manifestacao, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Manifestacao
	for _, m := range r.itens {
		out = append(out, *m)
	}
	return out, len(out), nil
}

func (r *repoStub) ListMovimentacoes(_ context.Context, id uuid.UUID) ([]Movimentacao, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Movimentacao(nil), r.movs[id]...), nil
}

func (r *repoStub) AppendMovimentacao(_ context.Context, mov *Movimentacao, t *Transicao) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.itens[mov.ManifestacaoID]
	if !ok {
		return ErrNotFound
	}
	if t != nil {
		if m.Status != t.De {
			return ErrConflito
		}
		m.Status = t.Para
	}
	r.movs[mov.ManifestacaoID] = append(r.movs[mov.ManifestacaoID], *mov)
	return nil
}

func (r *repoStub) AddAnexo(_ context.Context, a *Anexo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.itens[a.ManifestacaoID]
	if !ok {
		return ErrNotFound
	}
	m.Anexos = append(m.Anexos, *a)
	return nil
}

type assuntosStub struct {
	ativos map[uuid.UUID]*assunto.Assunto
}

func (s *assuntosStub) GetAtivo(_ context.Context, id uuid.UUID) (*assunto.Assunto, error) {
	a, ok := s.ativos[id]
	if !ok {
		return nil, assunto.ErrNotFound
	}
	return a, nil
}

type notifierStub struct {
	mu   sync.Mutex
	msgs []alert.Message
}

func (n *notifierStub) Notify(_ context.Context, msg alert.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func setupService(t *testing.T) (*Service, *repoStub, *notifierStub, uuid.UUID) {
	t.Helper()
	subj := &assunto.Assunto{
		ID:    uuid.New(),
		Nome:  "Iluminação Pública",
		Ativo: true,
	}
	if err := subj.AdicionarCampo(assunto.CampoConfig{
		Slug: "endereco", Tipo: assunto.CampoTexto, Rotulo: "Endereço", Obrigatorio: true,
	}); err != nil {
		t.Fatal(err)
	}

	repo := newRepoStub()
	notifier := &notifierStub{}
	svc := NewService(repo, &assuntosStub{ativos: map[uuid.UUID]*assunto.Assunto{subj.ID: subj}}, notifier)
	return svc, repo, notifier, subj.ID
}

func criarTeste(t *testing.T, svc *Service, assuntoID uuid.UUID, anonima bool) *Manifestacao {
	t.Helper()
	m, err := svc.Criar(context.Background(), CriarInput{
		Classificacao: "reclamacao",
		AssuntoID:     assuntoID,
		Relato:        "Poste apagado há duas semanas na rua principal.",
		Anonima:       anonima,
		Dados:         map[string]string{"endereco": "Rua Principal, 100"},
		UsuarioID:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("Criar: %v", err)
	}
	return m
}

func TestCriarManifestacao(t *testing.T) {
	svc, _, notifier, assuntoID := setupService(t)

	m := criarTeste(t, svc, assuntoID, false)

	if m.Status != StatusPendente {
		t.Errorf("status inicial esperado pendente, veio %s", m.Status)
	}
	if len(m.Protocolo) != len("OUVIDORIA-20260829-AB12CD") || m.Protocolo[:10] != "OUVIDORIA-" {
		t.Errorf("protocolo fora do formato: %q", m.Protocolo)
	}
	if len(notifier.msgs) != 1 {
		t.Fatalf("esperado 1 aviso, veio %d", len(notifier.msgs))
	}
	if notifier.msgs[0].Severity != alert.SeverityInfo {
		t.Errorf("reclamação deveria avisar com severidade info, veio %s", notifier.msgs[0].Severity)
	}
}

func TestCriarAgregaViolacoes(t *testing.T) {
	svc, _, _, assuntoID := setupService(t)

	_, err := svc.Criar(context.Background(), CriarInput{
		Classificacao: "elogio",
		AssuntoID:     assuntoID,
		Relato:        "curto",
		Anonima:       true,
		Dados:         map[string]string{},
		UsuarioID:     uuid.New(),
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("esperado ValidationError, veio %v", err)
	}

	motivos := map[string]string{}
	for _, v := range ve.Violacoes {
		motivos[v.Campo] = v.Motivo
	}
	if motivos["relato"] != MotivoMuitoCurto {
		t.Errorf("relato curto não apontado: %v", ve.Violacoes)
	}
	if motivos["classificacao"] != MotivoAnonimatoNaoPermitido {
		t.Errorf("elogio anônimo deveria ser rejeitado: %v", ve.Violacoes)
	}
	if motivos["endereco"] != assunto.MotivoObrigatorio {
		t.Errorf("campo dinâmico obrigatório não apontado: %v", ve.Violacoes)
	}
}

func TestCriarAssuntoDesconhecido(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.Criar(context.Background(), CriarInput{
		Classificacao: "reclamacao",
		AssuntoID:     uuid.New(),
		Relato:        "Relato suficientemente longo para passar.",
		UsuarioID:     uuid.New(),
	})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("esperado ValidationError, veio %v", err)
	}
	if len(ve.Violacoes) != 1 || ve.Violacoes[0].Motivo != MotivoAssuntoInvalido {
		t.Errorf("esperado unknown_subject, veio %v", ve.Violacoes)
	}
}

func TestAbrirDisparaAutoRecebimentoUmaVez(t *testing.T) {
	svc, repo, _, assuntoID := setupService(t)
	m := criarTeste(t, svc, assuntoID, false)
	admin := uuid.New()

	// Dez aberturas concorrentes do mesmo caso pendente.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.Abrir(context.Background(), admin, m.ID); err != nil {
				t.Errorf("Abrir: %v", err)
			}
		}()
	}
	wg.Wait()

	atual, err := repo.GetByID(context.Background(), m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if atual.Status != StatusRecebida {
		t.Errorf("status esperado recebida, veio %s", atual.Status)
	}

	movs, _ := repo.ListMovimentacoes(context.Background(), m.ID)
	if len(movs) != 1 {
		t.Fatalf("auto-recebimento deveria gerar exatamente 1 movimentação, veio %d", len(movs))
	}
	if movs[0].AutorID != nil {
		t.Error("movimentação de recebimento deveria ser do sistema")
	}
	if movs[0].Texto != TextoAutoRecebimento {
		t.Errorf("texto inesperado: %q", movs[0].Texto)
	}
}

func TestAbrirNaoRecebeDeNovo(t *testing.T) {
	svc, repo, _, assuntoID := setupService(t)
	m := criarTeste(t, svc, assuntoID, false)
	admin := uuid.New()

	if _, _, err := svc.Abrir(context.Background(), admin, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Abrir(context.Background(), admin, m.ID); err != nil {
		t.Fatal(err)
	}

	movs, _ := repo.ListMovimentacoes(context.Background(), m.ID)
	if len(movs) != 1 {
		t.Errorf("reabertura não deveria duplicar o recebimento, veio %d movimentações", len(movs))
	}
}

func TestResponderTransicaoIlegal(t *testing.T) {
	svc, repo, _, assuntoID := setupService(t)
	m := criarTeste(t, svc, assuntoID, false)
	admin := uuid.New()

	// pendente -> em_processamento pula o recebimento.
	destino := string(StatusEmProcessamento)
	_, err := svc.Responder(context.Background(), admin, m.ID, "acelerando", false, &destino)

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("esperado TransitionError, veio %v", err)
	}
	if te.From != StatusPendente || te.To != StatusEmProcessamento {
		t.Errorf("transição reportada errada: %s -> %s", te.From, te.To)
	}

	movs, _ := repo.ListMovimentacoes(context.Background(), m.ID)
	if len(movs) != 0 {
		t.Error("transição ilegal não pode gravar movimentação")
	}
	atual, _ := repo.GetByID(context.Background(), m.ID)
	if atual.Status != StatusPendente {
		t.Error("transição ilegal não pode alterar status")
	}
}

func TestResponderMesmoStatusNaoTransiciona(t *testing.T) {
	svc, repo, _, assuntoID := setupService(t)
	m := criarTeste(t, svc, assuntoID, false)
	admin := uuid.New()

	mesmo := string(StatusPendente)
	mov, err := svc.Responder(context.Background(), admin, m.ID, "nota sem mudança", true, &mesmo)
	if err != nil {
		t.Fatalf("Responder: %v", err)
	}
	if mov.NovoStatus != nil {
		t.Error("movimentação sem transição não deveria carregar novo_status")
	}

	atual, _ := repo.GetByID(context.Background(), m.ID)
	if atual.Status != StatusPendente {
		t.Error("status não podia mudar")
	}
}

func TestFluxoCompleto(t *testing.T) {
	svc, repo, _, assuntoID := setupService(t)
	m := criarTeste(t, svc, assuntoID, false)
	admin := uuid.New()

	if _, _, err := svc.Abrir(context.Background(), admin, m.ID); err != nil {
		t.Fatal(err)
	}

	avancar := func(para Status, texto string) {
		t.Helper()
		destino := string(para)
		if _, err := svc.Responder(context.Background(), admin, m.ID, texto, false, &destino); err != nil {
			t.Fatalf("Responder(%s): %v", para, err)
		}
	}
	avancar(StatusEmProcessamento, "Equipe de campo acionada.")
	avancar(StatusConcluida, "Poste substituído, caso encerrado.")

	atual, _ := repo.GetByID(context.Background(), m.ID)
	if atual.Status != StatusConcluida {
		t.Fatalf("esperado concluida, veio %s", atual.Status)
	}

	// Caso encerrado não admite mais transições.
	destino := string(StatusRejeitada)
	if _, err := svc.Responder(context.Background(), admin, m.ID, "tentando rejeitar", false, &destino); err == nil {
		t.Error("transição a partir de concluida deveria falhar")
	}

	status, prox, err := svc.Transicoes(context.Background(), m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusConcluida || len(prox) != 0 {
		t.Errorf("Transicoes em terminal: status=%s prox=%v", status, prox)
	}
}

func TestConsultarPorProtocolo(t *testing.T) {
	svc, _, _, assuntoID := setupService(t)

	identificada := criarTeste(t, svc, assuntoID, false)
	dono := *identificada.UsuarioID

	view, err := svc.ConsultarPorProtocolo(context.Background(), Viewer{UserID: dono}, identificada.Protocolo)
	if err != nil {
		t.Fatalf("dono deveria consultar: %v", err)
	}
	if view.UsuarioID != nil {
		t.Error("projeção de cidadão não carrega identidade")
	}

	if _, err := svc.ConsultarPorProtocolo(context.Background(), Viewer{UserID: uuid.New()}, identificada.Protocolo); !errors.Is(err, ErrNotFound) {
		t.Errorf("consulta de terceiro deveria devolver ErrNotFound, veio %v", err)
	}

	anonima := criarTeste(t, svc, assuntoID, true)
	donoAnonima := *anonima.UsuarioID
	if _, err := svc.ConsultarPorProtocolo(context.Background(), Viewer{UserID: donoAnonima}, anonima.Protocolo); !errors.Is(err, ErrNotFound) {
		t.Errorf("anônima não é rastreável nem pelo autor, veio %v", err)
	}

	admin := Viewer{UserID: uuid.New(), Admin: true}
	view, err = svc.ConsultarPorProtocolo(context.Background(), admin, anonima.Protocolo)
	if err != nil {
		t.Fatalf("admin deveria consultar anônima: %v", err)
	}
	if view.UsuarioID != nil || view.UsuarioNome != nil {
		t.Error("identidade de anônima não sai nem para admin")
	}
}

func TestListarMinhasExcluiAnonimas(t *testing.T) {
	svc, repo, _, assuntoID := setupService(t)

	dono := uuid.New()
	_, err := svc.Criar(context.Background(), CriarInput{
		Classificacao: "reclamacao",
		AssuntoID:     assuntoID,
		Relato:        "Primeira manifestação identificada do usuário.",
		Dados:         map[string]string{"endereco": "Rua A"},
		UsuarioID:     dono,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Criar(context.Background(), CriarInput{
		Classificacao: "denuncia",
		AssuntoID:     assuntoID,
		Relato:        "Denúncia anônima do mesmo usuário.",
		Anonima:       true,
		Dados:         map[string]string{"endereco": "Rua B"},
		UsuarioID:     dono,
	})
	if err != nil {
		t.Fatal(err)
	}

	views, total, err := svc.ListarMinhas(context.Background(), dono, 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(views) != 1 {
		t.Fatalf("esperada só a identificada, veio %d", len(views))
	}
	if views[0].Anonima {
		t.Error("listagem pessoal não pode conter anônimas")
	}

	// A anônima continua existindo para admins.
	if _, total, _ := repo.ListAll(context.Background(), Filter{}); total != 2 {
		t.Errorf("repositório deveria guardar as duas, veio %d", total)
	}
}

func TestAnexarArquivoManifestacaoAnonima(t *testing.T) {
	svc, _, _, assuntoID := setupService(t)
	m := criarTeste(t, svc, assuntoID, true)
	dono := *m.UsuarioID

	// O dono anexa pelo id recém-devolvido, mesmo sendo anônima.
	anexo, err := svc.AnexarArquivo(context.Background(), Viewer{UserID: dono}, m.ID, "https://cdn/anexos/a.jpg", "image/jpeg", 1024)
	if err != nil {
		t.Fatalf("dono deveria anexar na própria anônima: %v", err)
	}
	if anexo.ManifestacaoID != m.ID {
		t.Errorf("anexo vinculado a %s", anexo.ManifestacaoID)
	}

	// Terceiros recebem o mesmo não-encontrado das consultas.
	if _, err := svc.AnexarArquivo(context.Background(), Viewer{UserID: uuid.New()}, m.ID, "https://cdn/anexos/b.jpg", "image/jpeg", 1024); !errors.Is(err, ErrNotFound) {
		t.Fatalf("terceiro deveria receber ErrNotFound, veio %v", err)
	}

	// A consulta do dono segue bloqueada pela política de anonimato.
	if _, err := svc.ConsultarPorProtocolo(context.Background(), Viewer{UserID: dono}, m.Protocolo); !errors.Is(err, ErrNotFound) {
		t.Fatalf("consulta do dono em anônima deveria falhar com ErrNotFound, veio %v", err)
	}
}
