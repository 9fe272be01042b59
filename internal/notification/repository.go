package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository deriva eventos notificáveis diretamente do histórico.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// EventosCidadao lista respostas públicas da equipe nas manifestações
// identificadas do usuário, posteriores à marca d'água. Movimentações
// internas e manifestações anônimas ficam de fora por construção.
func (r *PgRepository) EventosCidadao(ctx context.Context, userID uuid.UUID, desde *time.Time) ([]Evento, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.protocolo, mv.texto, mv.novo_status, mv.criado_em
		  FROM movimentacoes mv
		  JOIN manifestacoes m ON m.id = mv.manifestacao_id
		 WHERE m.usuario_id = $1
		   AND NOT m.anonimo
		   AND NOT mv.interna
		   AND mv.criado_em > COALESCE($2, 'epoch'::timestamptz)
		 ORDER BY mv.criado_em DESC
		 LIMIT 100`, userID, desde)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var eventos []Evento
	for rows.Next() {
		var ev Evento
		var texto string
		if err := rows.Scan(&ev.ManifestacaoID, &ev.Protocolo, &texto, &ev.NovoStatus, &ev.CriadoEm); err != nil {
			return nil, err
		}
		ev.Resumo = Resumo(texto)
		eventos = append(eventos, ev)
	}
	return eventos, rows.Err()
}

// EventosAdmin lista manifestações que entraram na fila depois da marca
// d'água do administrador.
func (r *PgRepository) EventosAdmin(ctx context.Context, desde *time.Time) ([]Evento, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.protocolo, m.classificacao, m.criado_em
		  FROM manifestacoes m
		 WHERE m.criado_em > COALESCE($1, 'epoch'::timestamptz)
		 ORDER BY m.criado_em DESC
		 LIMIT 100`, desde)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var eventos []Evento
	for rows.Next() {
		var ev Evento
		var classificacao string
		if err := rows.Scan(&ev.ManifestacaoID, &ev.Protocolo, &classificacao, &ev.CriadoEm); err != nil {
			return nil, err
		}
		ev.Resumo = "Nova manifestação (" + classificacao + "): " + ev.Protocolo
		eventos = append(eventos, ev)
	}
	return eventos, rows.Err()
}
