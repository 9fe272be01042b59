package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usuarioColumns = `id, nome, email, cpf, telefone, senha_hash, admin, ativo, ultimo_visto_notificacoes, ultimo_acesso, criado_em`

// Queries provê acesso às tabelas de usuários e refresh tokens.
type Queries struct {
	pool *pgxpool.Pool
}

// New cria o repositório compartilhado.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// CreateUsuario insere um novo usuário. E-mail duplicado vira ErrDuplicateEmail.
func (q *Queries) CreateUsuario(ctx context.Context, arg CreateUsuarioParams) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `
        INSERT INTO usuarios (nome, email, cpf, telefone, senha_hash, admin)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+usuarioColumns,
		strings.TrimSpace(arg.Nome),
		strings.ToLower(strings.TrimSpace(arg.Email)),
		arg.CPF,
		arg.Telefone,
		arg.SenhaHash,
		arg.Admin,
	)

	user, err := scanUsuario(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Usuario{}, ErrDuplicateEmail
		}
		return Usuario{}, err
	}
	return user, nil
}

// GetUsuarioByEmail busca usuário pelo e-mail normalizado.
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `
        SELECT `+usuarioColumns+`
        FROM usuarios
        WHERE email = $1
    `, strings.ToLower(strings.TrimSpace(email)))
	return scanUsuario(row)
}

// GetUsuarioByID busca usuário pelo id.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	row := q.pool.QueryRow(ctx, `
        SELECT `+usuarioColumns+`
        FROM usuarios
        WHERE id = $1
    `, id)
	return scanUsuario(row)
}

// UpdateUsuario altera nome e telefone do usuário.
func (q *Queries) UpdateUsuario(ctx context.Context, id uuid.UUID, nome string, telefone *string) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE usuarios SET nome = $2, telefone = $3 WHERE id = $1
    `, id, strings.TrimSpace(nome), telefone)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchUltimoAcesso registra o acesso mais recente do usuário.
func (q *Queries) TouchUltimoAcesso(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := q.pool.Exec(ctx, `
        UPDATE usuarios SET ultimo_acesso = $2 WHERE id = $1
    `, id, at)
	return err
}

// AdvanceNotificationWatermark avança o watermark de notificações lidas.
// GREATEST garante monotonicidade mesmo com chamadas concorrentes.
func (q *Queries) AdvanceNotificationWatermark(ctx context.Context, id uuid.UUID, at time.Time) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE usuarios
        SET ultimo_visto_notificacoes = GREATEST(COALESCE(ultimo_visto_notificacoes, 'epoch'::timestamptz), $2)
        WHERE id = $1
    `, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertRefreshToken persiste refresh token com hash.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	row := q.pool.QueryRow(ctx, `
        INSERT INTO tokens_refresh (id, subject, audience, token_hash, expiracao, criado_em)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, subject, audience, token_hash, expiracao, criado_em, revogado
    `, arg.ID, arg.Subject, arg.Audience, arg.TokenHash, arg.Expiracao, arg.CriadoEm)

	var t TokenRefresh
	if err := row.Scan(&t.ID, &t.Subject, &t.Audience, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado); err != nil {
		return TokenRefresh{}, err
	}
	return t, nil
}

// GetRefreshTokenByHash localiza refresh token pelo hash.
func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (TokenRefresh, error) {
	row := q.pool.QueryRow(ctx, `
        SELECT id, subject, audience, token_hash, expiracao, criado_em, revogado
        FROM tokens_refresh
        WHERE token_hash = $1
    `, tokenHash)

	var t TokenRefresh
	if err := row.Scan(&t.ID, &t.Subject, &t.Audience, &t.TokenHash, &t.Expiracao, &t.CriadoEm, &t.Revogado); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenRefresh{}, ErrNotFound
		}
		return TokenRefresh{}, err
	}
	return t, nil
}

// InvalidateOtherRefreshTokens revoga todos os refresh do sujeito exceto o atual.
func (q *Queries) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, audience, keepHash string) error {
	_, err := q.pool.Exec(ctx, `
        UPDATE tokens_refresh
        SET revogado = TRUE
        WHERE subject = $1 AND audience = $2 AND token_hash <> $3 AND NOT revogado
    `, subject, audience, keepHash)
	return err
}

// RevokeRefreshToken revoga um refresh token específico.
func (q *Queries) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE tokens_refresh SET revogado = TRUE WHERE token_hash = $1
    `, tokenHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUsuario(row pgx.Row) (Usuario, error) {
	var u Usuario
	err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.CPF, &u.Telefone, &u.SenhaHash, &u.Admin, &u.Ativo, &u.UltimoVistoNotificacoes, &u.UltimoAcesso, &u.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Usuario{}, ErrNotFound
		}
		return Usuario{}, err
	}
	return u, nil
}
