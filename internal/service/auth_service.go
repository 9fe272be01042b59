package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ouvidoriadigital/portal/internal/auth"
	"github.com/ouvidoriadigital/portal/internal/repo"
	"github.com/ouvidoriadigital/portal/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
	// ErrNotAdmin indica tentativa de acesso ao backoffice sem perfil de
	// administrador.
	ErrNotAdmin = errors.New("usuário sem perfil de administrador")
	// ErrEmailInUse indica cadastro com e-mail já existente.
	ErrEmailInUse = errors.New("e-mail já cadastrado")
)

// Papéis emitidos nos tokens.
const (
	RoleAdmin   = "ADMIN"
	RoleCidadao = "CIDADAO"
)

type authRepository interface {
	CreateUsuario(ctx context.Context, arg repo.CreateUsuarioParams) (repo.Usuario, error)
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	UpdateUsuario(ctx context.Context, id uuid.UUID, nome string, telefone *string) error
	TouchUltimoAcesso(ctx context.Context, id uuid.UUID, at time.Time) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error)
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, audience, keepHash string) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
	pool       *pgxpool.Pool
}

// NewAuthService cria novo serviço.
func NewAuthService(r *repo.Queries, pool *pgxpool.Pool, redisClient *redis.Client, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, pool: pool, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	Audience      string
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Roles         []string
	Profile       *Profile
	RefreshHash   string
	RefreshExpiry time.Time
}

// Profile descreve o usuário autenticado.
type Profile struct {
	ID       string  `json:"id"`
	Nome     string  `json:"nome"`
	Email    string  `json:"email"`
	CPF      *string `json:"cpf,omitempty"`
	Telefone *string `json:"telefone,omitempty"`
	Admin    bool    `json:"admin"`
}

type PasskeyCredential struct {
	ID           uuid.UUID
	UsuarioID    uuid.UUID
	CredentialID []byte
	PublicKey    []byte
	SignCount    uint32
	Transports   []string
	AAGUID       []byte
	Nickname     *string
	Cloned       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// RegisterInput é o cadastro de um novo cidadão.
type RegisterInput struct {
	Nome     string
	Email    string
	Senha    string
	CPF      *string
	Telefone *string
}

// Register cadastra um cidadão. Contas de administrador nunca nascem
// aqui; são promovidas pela semente ou por outro administrador.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Profile, error) {
	nome := strings.TrimSpace(input.Nome)
	if err := util.RequireString(nome, "nome"); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := util.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := util.ValidatePassword(input.Senha); err != nil {
		return nil, err
	}
	if input.CPF != nil {
		if err := util.ValidateCPF(*input.CPF); err != nil {
			return nil, err
		}
	}

	hash, err := auth.Hash(input.Senha)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUsuario(ctx, repo.CreateUsuarioParams{
		Nome:      nome,
		Email:     email,
		CPF:       input.CPF,
		Telefone:  input.Telefone,
		SenhaHash: hash,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	return profileFromUser(user), nil
}

// LoginBackoffice autentica administradores no painel da ouvidoria.
func (s *AuthService) LoginBackoffice(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.authenticate(ctx, email, password, "backoffice")
	if err != nil {
		return nil, err
	}
	return s.loginBackofficeFromUser(ctx, user)
}

// LoginBackofficeWithUser emite tokens para um usuário já autenticado
// por passkey.
func (s *AuthService) LoginBackofficeWithUser(ctx context.Context, user repo.Usuario) (*LoginResult, error) {
	if !user.Ativo {
		return nil, ErrAccountDisabled
	}
	return s.loginBackofficeFromUser(ctx, user)
}

func (s *AuthService) loginBackofficeFromUser(ctx context.Context, user repo.Usuario) (*LoginResult, error) {
	if !user.Admin {
		return nil, ErrNotAdmin
	}
	return s.issueTokens(ctx, user, auth.AudienceBackoffice, []string{RoleAdmin})
}

// LoginCidadao autentica o portal do cidadão. Administradores também
// podem entrar como cidadãos para registrar manifestações próprias.
func (s *AuthService) LoginCidadao(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.authenticate(ctx, email, password, "cidadão")
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user, auth.AudienceCidadao, []string{RoleCidadao})
}

func (s *AuthService) authenticate(ctx context.Context, email, password, painel string) (repo.Usuario, error) {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Str("painel", painel).Msg("login: usuário não encontrado")
			return repo.Usuario{}, ErrInvalidCredentials
		}
		return repo.Usuario{}, err
	}

	ok, err := auth.Verify(password, user.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Str("painel", painel).Msg("login: verificação de senha falhou")
		return repo.Usuario{}, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Str("painel", painel).Msg("login: senha inválida")
		return repo.Usuario{}, ErrInvalidCredentials
	}
	if !user.Ativo {
		return repo.Usuario{}, ErrAccountDisabled
	}

	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user repo.Usuario, audience string, roles []string) (*LoginResult, error) {
	token, _, err := s.jwt.GenerateAccessToken(user.ID.String(), audience, roles)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, audience, refreshHash, expires); err != nil {
		return nil, err
	}

	if err := s.repo.TouchUltimoAcesso(ctx, user.ID, util.Now()); err != nil {
		log.Warn().Err(err).Str("usuario", user.ID.String()).Msg("falha ao registrar último acesso")
	}

	return &LoginResult{
		Audience:      audience,
		AccessToken:   token,
		RefreshToken:  rawRefresh,
		Subject:       user.ID,
		Roles:         roles,
		Profile:       profileFromUser(user),
		RefreshHash:   refreshHash,
		RefreshExpiry: expires,
	}, nil
}

func (s *AuthService) GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	return s.repo.GetUsuarioByID(ctx, id)
}

func (s *AuthService) GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error) {
	return s.repo.GetUsuarioByEmail(ctx, strings.ToLower(email))
}

func (s *AuthService) ListPasskeys(ctx context.Context, usuarioID uuid.UUID) ([]PasskeyCredential, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, usuario_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned, created_at, updated_at
        FROM webauthn_credentials
        WHERE usuario_id = $1
        ORDER BY created_at DESC
    `, usuarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []PasskeyCredential
	for rows.Next() {
		var (
			cred PasskeyCredential
			sign int64
		)
		if err := rows.Scan(&cred.ID, &cred.UsuarioID, &cred.CredentialID, &cred.PublicKey, &sign, &cred.Transports, &cred.AAGUID, &cred.Nickname, &cred.Cloned, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
			return nil, err
		}
		if sign < 0 {
			sign = 0
		}
		cred.SignCount = uint32(sign)
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return creds, nil
}

func (s *AuthService) GetPasskeyByCredentialID(ctx context.Context, credentialID []byte) (*PasskeyCredential, error) {
	var (
		cred PasskeyCredential
		sign int64
	)
	err := s.pool.QueryRow(ctx, `
        SELECT id, usuario_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned, created_at, updated_at
        FROM webauthn_credentials
        WHERE credential_id = $1
    `, credentialID).Scan(&cred.ID, &cred.UsuarioID, &cred.CredentialID, &cred.PublicKey, &sign, &cred.Transports, &cred.AAGUID, &cred.Nickname, &cred.Cloned, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	if sign < 0 {
		sign = 0
	}
	cred.SignCount = uint32(sign)
	return &cred, nil
}

func (s *AuthService) CreatePasskey(ctx context.Context, usuarioID uuid.UUID, credentialID, publicKey []byte, signCount uint32, transports []string, aaguid []byte, nickname *string, cloned bool) (*PasskeyCredential, error) {
	var (
		cred      PasskeyCredential
		updatedAt *time.Time
		signVal   int64
	)
	err := s.pool.QueryRow(ctx, `
        INSERT INTO webauthn_credentials (usuario_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, usuario_id, credential_id, public_key, sign_count, transports, aaguid, nickname, cloned, created_at, updated_at
    `, usuarioID, credentialID, publicKey, int64(signCount), transports, aaguid, nickname, cloned).Scan(
		&cred.ID,
		&cred.UsuarioID,
		&cred.CredentialID,
		&cred.PublicKey,
		&signVal,
		&cred.Transports,
		&cred.AAGUID,
		&cred.Nickname,
		&cred.Cloned,
		&cred.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if signVal < 0 {
		signVal = 0
	}
	cred.SignCount = uint32(signVal)
	cred.UpdatedAt = updatedAt
	return &cred, nil
}

func (s *AuthService) UpdatePasskeyCounter(ctx context.Context, credentialID uuid.UUID, signCount uint32, cloned bool) error {
	cmd, err := s.pool.Exec(ctx, `
        UPDATE webauthn_credentials
        SET sign_count = $2, cloned = $3, updated_at = now()
        WHERE id = $1
    `, credentialID, int64(signCount), cloned)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// Refresh troca refresh token por novos tokens, rotacionando o hash.
func (s *AuthService) Refresh(ctx context.Context, audience, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if record.Revogado || time.Now().UTC().After(record.Expiracao) || record.Audience != audience {
		return nil, ErrRefreshInvalid
	}

	redisKey := auth.RefreshRedisKey(audience, hash)
	status, err := s.redis.Get(ctx, redisKey).Result()
	if err == redis.Nil {
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUsuarioByID(ctx, record.Subject)
	if err != nil {
		return nil, err
	}
	if !user.Ativo {
		return nil, ErrAccountDisabled
	}

	var result *LoginResult
	switch audience {
	case auth.AudienceBackoffice:
		result, err = s.loginBackofficeFromUser(ctx, user)
	case auth.AudienceCidadao:
		result, err = s.issueTokens(ctx, user, auth.AudienceCidadao, []string{RoleCidadao})
	default:
		return nil, ErrRefreshInvalid
	}
	if err != nil {
		return nil, err
	}

	// Revoga token anterior (DB + Redis)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return nil, err
	}

	return result, nil
}

// Logout revoga refresh token atual.
func (s *AuthService) Logout(ctx context.Context, audience, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefreshToken(rawToken)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	redisKey := auth.RefreshRedisKey(audience, hash)
	if err := s.redis.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// GetMe retorna perfil e papéis para subject/audience.
func (s *AuthService) GetMe(ctx context.Context, audience string, subject uuid.UUID) (*Profile, []string, error) {
	user, err := s.repo.GetUsuarioByID(ctx, subject)
	if err != nil {
		return nil, nil, err
	}

	switch audience {
	case auth.AudienceBackoffice:
		if !user.Admin {
			return nil, nil, ErrNotAdmin
		}
		return profileFromUser(user), []string{RoleAdmin}, nil
	case auth.AudienceCidadao:
		return profileFromUser(user), []string{RoleCidadao}, nil
	default:
		return nil, nil, errors.New("audience desconhecida")
	}
}

// UpdateProfile atualiza nome e telefone do usuário autenticado.
func (s *AuthService) UpdateProfile(ctx context.Context, subject uuid.UUID, nome string, telefone *string) (*Profile, error) {
	nome = strings.TrimSpace(nome)
	if err := util.RequireString(nome, "nome"); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateUsuario(ctx, subject, nome, telefone); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUsuarioByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	return profileFromUser(user), nil
}

func (s *AuthService) persistRefresh(ctx context.Context, subject uuid.UUID, audience, hash string, expires time.Time) error {
	_, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		Subject:   subject,
		Audience:  audience,
		TokenHash: hash,
		Expiracao: expires,
		CriadoEm:  util.Now(),
	})
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, subject, audience, hash); err != nil {
		return err
	}

	return s.redis.Set(ctx, auth.RefreshRedisKey(audience, hash), "active", time.Until(expires)).Err()
}

func profileFromUser(u repo.Usuario) *Profile {
	return &Profile{
		ID:       u.ID.String(),
		Nome:     u.Nome,
		Email:    u.Email,
		CPF:      u.CPF,
		Telefone: u.Telefone,
		Admin:    u.Admin,
	}
}
