package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ouvidoriadigital/portal/internal/repo"
	"github.com/ouvidoriadigital/portal/internal/util"
)

// EventSource fornece os eventos brutos de cada perfil.
type EventSource interface {
	EventosCidadao(ctx context.Context, userID uuid.UUID, desde *time.Time) ([]Evento, error)
	EventosAdmin(ctx context.Context, desde *time.Time) ([]Evento, error)
}

// UserStore expõe a marca d'água de notificações do usuário.
type UserStore interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	AdvanceNotificationWatermark(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service monta o painel de notificações por cima do histórico; nenhum
// registro de notificação é persistido, só a marca d'água de leitura.
type Service struct {
	eventos  EventSource
	usuarios UserStore
}

func NewService(eventos EventSource, usuarios UserStore) *Service {
	return &Service{eventos: eventos, usuarios: usuarios}
}

// Novas devolve os eventos ainda não vistos pelo usuário, mais recentes
// primeiro. Administradores veem também novas manifestações na fila.
func (s *Service) Novas(ctx context.Context, userID uuid.UUID) (*Resultado, error) {
	u, err := s.usuarios.GetUsuarioByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	marca := u.UltimoVistoNotificacoes

	var eventos []Evento
	if u.Admin {
		eventos, err = s.eventos.EventosAdmin(ctx, marca)
	} else {
		eventos, err = s.eventos.EventosCidadao(ctx, userID, marca)
	}
	if err != nil {
		return nil, err
	}

	vistos := Filtrar(eventos, marca)
	return &Resultado{Eventos: vistos, Total: len(vistos)}, nil
}

// MarcarLidas avança a marca d'água para o instante da chamada. Eventos
// criados depois desse instante continuam não vistos, mesmo que a
// resposta chegue ao cliente alguns milissegundos mais tarde. O avanço
// é monotônico: chamadas fora de ordem nunca recuam a marca.
func (s *Service) MarcarLidas(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	agora := util.Now()
	if err := s.usuarios.AdvanceNotificationWatermark(ctx, userID, agora); err != nil {
		return time.Time{}, err
	}
	return agora, nil
}
