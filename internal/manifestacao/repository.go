package manifestacao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ouvidoriadigital/portal/internal/db"
)

// PgRepository persiste manifestações no Postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const colunasManifestacao = `
	m.id, m.protocolo, m.classificacao, m.assunto_id, m.relato, m.anonimo,
	m.status, m.dados_complementares, m.usuario_id, m.criado_em,
	m.atualizado_em, m.data_conclusao, a.nome, u.nome`

const fromManifestacao = `
	FROM manifestacoes m
	JOIN assuntos a ON a.id = m.assunto_id
	LEFT JOIN usuarios u ON u.id = m.usuario_id`

// Create grava manifestação e protocolo numa transação única. A
// sequência diária é derivada dentro da transação para manter a
// numeração do dia consistente sob inserções concorrentes.
func (r *PgRepository) Create(ctx context.Context, m *Manifestacao, p *Protocolo) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		dados, err := json.Marshal(m.Dados)
		if err != nil {
			return fmt.Errorf("serializar dados complementares: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO manifestacoes
				(id, protocolo, classificacao, assunto_id, relato, anonimo,
				 status, dados_complementares, usuario_id, criado_em)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			m.ID, m.Protocolo, m.Classificacao, m.AssuntoID, m.Relato,
			m.Anonima, m.Status, dados, m.UsuarioID, m.CriadoEm,
		)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(sequencia_diaria), 0) + 1
			  FROM protocolos
			 WHERE gerado_em::date = $1::date`,
			p.GeradoEm,
		).Scan(&p.SequenciaDiaria)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO protocolos
				(numero, manifestacao_id, sequencia_diaria, gerado_em, expira_em)
			VALUES ($1,$2,$3,$4,$5)`,
			p.Numero, p.ManifestacaoID, p.SequenciaDiaria, p.GeradoEm, p.ExpiraEm,
		)
		return err
	})
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Manifestacao, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT"+colunasManifestacao+fromManifestacao+" WHERE m.id = $1", id)
	return r.carregar(ctx, row)
}

func (r *PgRepository) GetByProtocolo(ctx context.Context, protocolo string) (*Manifestacao, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT"+colunasManifestacao+fromManifestacao+" WHERE m.protocolo = $1", protocolo)
	return r.carregar(ctx, row)
}

// ListByOwner lista as manifestações identificadas do usuário. O filtro
// NOT anonimo é deliberado: manifestações anônimas não são rastreáveis
// nem pelo próprio autor.
func (r *PgRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]Manifestacao, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM manifestacoes
		 WHERE usuario_id = $1 AND NOT anonimo`, ownerID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		"SELECT"+colunasManifestacao+fromManifestacao+`
		 WHERE m.usuario_id = $1 AND NOT m.anonimo
		 ORDER BY m.criado_em DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	itens, err := scanLista(rows)
	if err != nil {
		return nil, 0, err
	}
	return itens, total, nil
}

func (r *PgRepository) ListAll(ctx context.Context, f Filter) ([]Manifestacao, int, error) {
	where := []string{"1=1"}
	args := []any{}
	n := 0

	add := func(cond string, v any) {
		n++
		where = append(where, fmt.Sprintf(cond, n))
		args = append(args, v)
	}

	if f.Status != nil {
		add("m.status = $%d", *f.Status)
	}
	if f.Classificacao != nil {
		add("m.classificacao = $%d", *f.Classificacao)
	}
	if f.Anonima != nil {
		add("m.anonimo = $%d", *f.Anonima)
	}
	if busca := strings.TrimSpace(f.Busca); busca != "" {
		add("(m.protocolo ILIKE $%d OR m.relato ILIKE $%[1]d)", "%"+busca+"%")
	}
	clausula := strings.Join(where, " AND ")

	var total int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM manifestacoes m WHERE "+clausula, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx,
		"SELECT"+colunasManifestacao+fromManifestacao+
			" WHERE "+clausula+
			fmt.Sprintf(" ORDER BY m.criado_em DESC LIMIT $%d OFFSET $%d", n+1, n+2),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	itens, err := scanLista(rows)
	if err != nil {
		return nil, 0, err
	}
	return itens, total, nil
}

func (r *PgRepository) ListMovimentacoes(ctx context.Context, manifestacaoID uuid.UUID) ([]Movimentacao, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mv.id, mv.manifestacao_id, mv.autor_id, u.nome, mv.texto,
		       mv.interna, mv.novo_status, mv.criado_em
		  FROM movimentacoes mv
		  LEFT JOIN usuarios u ON u.id = mv.autor_id
		 WHERE mv.manifestacao_id = $1
		 ORDER BY mv.criado_em ASC`, manifestacaoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movs []Movimentacao
	for rows.Next() {
		var mov Movimentacao
		var novoStatus *string
		err := rows.Scan(&mov.ID, &mov.ManifestacaoID, &mov.AutorID, &mov.AutorNome,
			&mov.Texto, &mov.Interna, &novoStatus, &mov.CriadoEm)
		if err != nil {
			return nil, err
		}
		if novoStatus != nil {
			s := Status(*novoStatus)
			mov.NovoStatus = &s
		}
		movs = append(movs, mov)
	}
	return movs, rows.Err()
}

// AppendMovimentacao insere a movimentação e, quando há transição,
// aplica o compare-and-set de status no mesmo commit. ErrConflito indica
// que o status de origem já não confere e nada foi gravado.
func (r *PgRepository) AppendMovimentacao(ctx context.Context, mov *Movimentacao, t *Transicao) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if t != nil {
			tag, err := tx.Exec(ctx, `
				UPDATE manifestacoes
				   SET status = $1,
				       atualizado_em = $2,
				       data_conclusao = CASE WHEN $1 IN ('concluida', 'rejeitada') THEN $2 ELSE data_conclusao END
				 WHERE id = $3 AND status = $4`,
				t.Para, mov.CriadoEm, mov.ManifestacaoID, t.De,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrConflito
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO movimentacoes
				(id, manifestacao_id, autor_id, texto, interna, novo_status, criado_em)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			mov.ID, mov.ManifestacaoID, mov.AutorID, mov.Texto,
			mov.Interna, mov.NovoStatus, mov.CriadoEm,
		)
		return err
	})
}

func (r *PgRepository) AddAnexo(ctx context.Context, a *Anexo) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO anexos (id, manifestacao_id, arquivo_url, tipo_arquivo, tamanho, criado_em)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.ManifestacaoID, a.URL, a.TipoArquivo, a.Tamanho, a.CriadoEm,
	)
	return err
}

func (r *PgRepository) carregar(ctx context.Context, row pgx.Row) (*Manifestacao, error) {
	m, err := scanManifestacao(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, manifestacao_id, arquivo_url, tipo_arquivo, tamanho, criado_em
		  FROM anexos
		 WHERE manifestacao_id = $1
		 ORDER BY criado_em ASC`, m.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a Anexo
		if err := rows.Scan(&a.ID, &a.ManifestacaoID, &a.URL, &a.TipoArquivo, &a.Tamanho, &a.CriadoEm); err != nil {
			return nil, err
		}
		m.Anexos = append(m.Anexos, a)
	}
	return m, rows.Err()
}

func scanManifestacao(row pgx.Row) (*Manifestacao, error) {
	var m Manifestacao
	var dados []byte
	err := row.Scan(
		&m.ID, &m.Protocolo, &m.Classificacao, &m.AssuntoID, &m.Relato,
		&m.Anonima, &m.Status, &dados, &m.UsuarioID, &m.CriadoEm,
		&m.AtualizadoEm, &m.DataConclusao, &m.AssuntoNome, &m.UsuarioNome,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(dados) > 0 {
		if err := json.Unmarshal(dados, &m.Dados); err != nil {
			return nil, fmt.Errorf("decodificar dados complementares: %w", err)
		}
	}
	return &m, nil
}

func scanLista(rows pgx.Rows) ([]Manifestacao, error) {
	var itens []Manifestacao
	for rows.Next() {
		m, err := scanManifestacao(rows)
		if err != nil {
			return nil, err
		}
		itens = append(itens, *m)
	}
	return itens, rows.Err()
}
