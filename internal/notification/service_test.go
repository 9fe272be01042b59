package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ouvidoriadigital/portal/internal/repo"
)

type eventSourceStub struct {
	cidadao []Evento
	admin   []Evento
}

func (s *eventSourceStub) EventosCidadao(_ context.Context, _ uuid.UUID, desde *time.Time) ([]Evento, error) {
	return Filtrar(s.cidadao, desde), nil
}

func (s *eventSourceStub) EventosAdmin(_ context.Context, desde *time.Time) ([]Evento, error) {
	return Filtrar(s.admin, desde), nil
}

type userStoreStub struct {
	usuarios map[uuid.UUID]*repo.Usuario
}

func (s *userStoreStub) GetUsuarioByID(_ context.Context, id uuid.UUID) (repo.Usuario, error) {
	return *s.usuarios[id], nil
}

// Avanço monotônico, como o GREATEST da query real.
func (s *userStoreStub) AdvanceNotificationWatermark(_ context.Context, id uuid.UUID, at time.Time) error {
	u := s.usuarios[id]
	if u.UltimoVistoNotificacoes == nil || at.After(*u.UltimoVistoNotificacoes) {
		u.UltimoVistoNotificacoes = &at
	}
	return nil
}

func TestNovasEMarcarLidas(t *testing.T) {
	userID := uuid.New()
	agora := time.Now().UTC()

	fonte := &eventSourceStub{
		cidadao: []Evento{
			{ManifestacaoID: uuid.New(), Protocolo: "OUVIDORIA-20260829-AAAAAA", Resumo: "Nova resposta: ok", CriadoEm: agora.Add(-2 * time.Hour)},
			{ManifestacaoID: uuid.New(), Protocolo: "OUVIDORIA-20260829-BBBBBB", Resumo: "Nova resposta: ok", CriadoEm: agora.Add(-time.Hour)},
		},
	}
	store := &userStoreStub{usuarios: map[uuid.UUID]*repo.Usuario{
		userID: {ID: userID, Nome: "Maria"},
	}}
	svc := NewService(fonte, store)

	res, err := svc.Novas(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("usuário sem marca deveria ver 2 eventos, veio %d", res.Total)
	}

	marca, err := svc.MarcarLidas(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}

	res, err = svc.Novas(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 {
		t.Fatalf("após marcar lidas nada deveria restar, veio %d", res.Total)
	}

	// Evento posterior à marca volta a contar.
	fonte.cidadao = append(fonte.cidadao, Evento{
		ManifestacaoID: uuid.New(),
		Protocolo:      "OUVIDORIA-20260829-CCCCCC",
		Resumo:         "Nova resposta: atualização",
		CriadoEm:       marca.Add(time.Second),
	})
	res, err = svc.Novas(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Fatalf("só o evento novo deveria aparecer, veio %d", res.Total)
	}
}

func TestMarcarLidasNaoRecua(t *testing.T) {
	userID := uuid.New()
	futuro := time.Now().UTC().Add(time.Hour)
	store := &userStoreStub{usuarios: map[uuid.UUID]*repo.Usuario{
		userID: {ID: userID, UltimoVistoNotificacoes: &futuro},
	}}
	svc := NewService(&eventSourceStub{}, store)

	if _, err := svc.MarcarLidas(context.Background(), userID); err != nil {
		t.Fatal(err)
	}
	if !store.usuarios[userID].UltimoVistoNotificacoes.Equal(futuro) {
		t.Error("marca d'água não pode recuar")
	}
}

func TestNovasAdminVeFila(t *testing.T) {
	adminID := uuid.New()
	fonte := &eventSourceStub{
		admin: []Evento{
			{ManifestacaoID: uuid.New(), Protocolo: "OUVIDORIA-20260829-DDDDDD", Resumo: "Nova manifestação (denuncia): OUVIDORIA-20260829-DDDDDD", CriadoEm: time.Now().UTC()},
		},
	}
	store := &userStoreStub{usuarios: map[uuid.UUID]*repo.Usuario{
		adminID: {ID: adminID, Admin: true},
	}}
	svc := NewService(fonte, store)

	res, err := svc.Novas(context.Background(), adminID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Fatalf("admin deveria ver a fila, veio %d", res.Total)
	}
}
