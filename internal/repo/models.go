package repo

import (
	"time"

	"github.com/google/uuid"
)

// Usuario representa quem acessa o portal: cidadãos e a equipe da
// ouvidoria (Admin=true). Contas nunca são apagadas, apenas desativadas.
type Usuario struct {
	ID        uuid.UUID
	Nome      string
	Email     string
	CPF       *string
	Telefone  *string
	SenhaHash string
	Admin     bool
	Ativo     bool
	// UltimoVistoNotificacoes é o watermark de leitura de notificações.
	// Avança monotonicamente; nunca retrocede.
	UltimoVistoNotificacoes *time.Time
	UltimoAcesso            *time.Time
	CriadoEm                time.Time
}

// TokenRefresh modela a tabela de refresh tokens.
type TokenRefresh struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	Audience  string
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
	Revogado  bool
}

// InsertRefreshTokenParams agrupa os campos de criação de refresh token.
type InsertRefreshTokenParams struct {
	ID        uuid.UUID
	Subject   uuid.UUID
	Audience  string
	TokenHash string
	Expiracao time.Time
	CriadoEm  time.Time
}

// CreateUsuarioParams agrupa os campos de cadastro.
type CreateUsuarioParams struct {
	Nome      string
	Email     string
	CPF       *string
	Telefone  *string
	SenhaHash string
	Admin     bool
}
