package manifestacao

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func manifestacaoTeste(anonima bool, dono uuid.UUID) Manifestacao {
	nome := "Maria da Silva"
	return Manifestacao{
		ID:            uuid.New(),
		Protocolo:     "OUVIDORIA-20260829-AB12CD",
		Classificacao: ClassificacaoReclamacao,
		AssuntoID:     uuid.New(),
		AssuntoNome:   "Iluminação Pública",
		Relato:        "Poste apagado há duas semanas na rua principal.",
		Anonima:       anonima,
		Status:        StatusRecebida,
		UsuarioID:     &dono,
		UsuarioNome:   &nome,
		CriadoEm:      time.Now().UTC(),
	}
}

func TestCanRead(t *testing.T) {
	dono := uuid.New()
	outro := uuid.New()
	admin := Viewer{UserID: uuid.New(), Admin: true}

	identificada := manifestacaoTeste(false, dono)
	anonima := manifestacaoTeste(true, dono)

	if !CanRead(Viewer{UserID: dono}, identificada) {
		t.Error("dono deveria ler a própria manifestação identificada")
	}
	if CanRead(Viewer{UserID: outro}, identificada) {
		t.Error("terceiro não pode ler manifestação alheia")
	}
	if !CanRead(admin, identificada) {
		t.Error("admin lê qualquer manifestação")
	}
	if !CanRead(admin, anonima) {
		t.Error("admin lê manifestação anônima (sem identidade do autor)")
	}
	// O anonimato é incondicional: nem o próprio autor recupera o caso.
	if CanRead(Viewer{UserID: dono}, anonima) {
		t.Error("manifestação anônima não é rastreável nem pelo autor")
	}
}

func TestProjectOcultaIdentidade(t *testing.T) {
	dono := uuid.New()
	admin := Viewer{UserID: uuid.New(), Admin: true}

	identificada := manifestacaoTeste(false, dono)
	view := Project(admin, identificada)
	if view.UsuarioID == nil || view.UsuarioNome == nil {
		t.Error("admin deveria ver a identidade em manifestação identificada")
	}

	view = Project(Viewer{UserID: dono}, identificada)
	if view.UsuarioID != nil || view.UsuarioNome != nil {
		t.Error("cidadão nunca recebe campos de identidade na projeção")
	}

	anonima := manifestacaoTeste(true, dono)
	view = Project(admin, anonima)
	if view.UsuarioID != nil || view.UsuarioNome != nil {
		t.Error("identidade de manifestação anônima não sai nem para admin")
	}
	if view.StatusStep != 1 {
		t.Errorf("status_step esperado 1, veio %d", view.StatusStep)
	}
}

func TestProjectMovimentacoesFiltraInternas(t *testing.T) {
	autor := uuid.New()
	recebida := StatusRecebida
	movs := []Movimentacao{
		{ID: uuid.New(), Texto: TextoAutoRecebimento, NovoStatus: &recebida},
		{ID: uuid.New(), AutorID: &autor, Texto: "verificar com a equipe de campo", Interna: true},
		{ID: uuid.New(), AutorID: &autor, Texto: "Equipe acionada, prazo de 5 dias."},
	}

	cidadao := ProjectMovimentacoes(Viewer{UserID: uuid.New()}, movs)
	if len(cidadao) != 2 {
		t.Fatalf("cidadão deveria ver 2 movimentações, veio %d", len(cidadao))
	}
	for _, v := range cidadao {
		if v.Interna {
			t.Error("nota interna vazou para o cidadão")
		}
	}
	if !cidadao[0].Sistema {
		t.Error("movimentação sem autor deveria ser marcada como sistema")
	}
	if cidadao[1].Sistema {
		t.Error("movimentação de atendente não é de sistema")
	}

	tudo := ProjectMovimentacoes(Viewer{UserID: uuid.New(), Admin: true}, movs)
	if len(tudo) != 3 {
		t.Fatalf("admin deveria ver 3 movimentações, veio %d", len(tudo))
	}
}
