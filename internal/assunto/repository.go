package assunto

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de assuntos.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create insere um novo assunto com o esquema de campos serializado.
func (r *Repository) Create(ctx context.Context, a Assunto) (*Assunto, error) {
	campos, err := json.Marshal(a.Campos)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
        INSERT INTO assuntos (nome, descricao, ativo, campos_adicionais)
        VALUES ($1, $2, $3, $4)
        RETURNING id, nome, descricao, ativo, campos_adicionais, criado_em
    `, strings.TrimSpace(a.Nome), strings.TrimSpace(a.Descricao), a.Ativo, campos)

	return scanAssunto(row)
}

// Update substitui nome, descrição, esquema e flag de ativo.
func (r *Repository) Update(ctx context.Context, a Assunto) (*Assunto, error) {
	campos, err := json.Marshal(a.Campos)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
        UPDATE assuntos
        SET nome = $2, descricao = $3, ativo = $4, campos_adicionais = $5
        WHERE id = $1
        RETURNING id, nome, descricao, ativo, campos_adicionais, criado_em
    `, a.ID, strings.TrimSpace(a.Nome), strings.TrimSpace(a.Descricao), a.Ativo, campos)

	return scanAssunto(row)
}

// GetByID busca um assunto pelo id, ativo ou não.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Assunto, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, nome, descricao, ativo, campos_adicionais, criado_em
        FROM assuntos
        WHERE id = $1
    `, id)
	return scanAssunto(row)
}

// ListAtivos lista assuntos disponíveis para novas manifestações.
func (r *Repository) ListAtivos(ctx context.Context) ([]Assunto, error) {
	return r.list(ctx, `
        SELECT id, nome, descricao, ativo, campos_adicionais, criado_em
        FROM assuntos
        WHERE ativo
        ORDER BY nome ASC
    `)
}

// ListTodos lista todos os assuntos, inclusive desativados (backoffice).
func (r *Repository) ListTodos(ctx context.Context) ([]Assunto, error) {
	return r.list(ctx, `
        SELECT id, nome, descricao, ativo, campos_adicionais, criado_em
        FROM assuntos
        ORDER BY nome ASC
    `)
}

func (r *Repository) list(ctx context.Context, query string) ([]Assunto, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assuntos []Assunto
	for rows.Next() {
		a, err := scanAssunto(rows)
		if err != nil {
			return nil, err
		}
		assuntos = append(assuntos, *a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return assuntos, nil
}

func scanAssunto(row pgx.Row) (*Assunto, error) {
	var (
		a      Assunto
		campos []byte
	)
	if err := row.Scan(&a.ID, &a.Nome, &a.Descricao, &a.Ativo, &campos, &a.CriadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(campos) > 0 {
		if err := json.Unmarshal(campos, &a.Campos); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
