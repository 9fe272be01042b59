package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ouvidoriadigital/portal/internal/auth"
	"github.com/ouvidoriadigital/portal/internal/repo"
)

type stubAuthRepo struct {
	users        map[string]repo.Usuario
	tokens       map[string]repo.TokenRefresh
	refreshCalls int
}

func newStubAuthRepo(users ...repo.Usuario) *stubAuthRepo {
	s := &stubAuthRepo{
		users:  make(map[string]repo.Usuario),
		tokens: make(map[string]repo.TokenRefresh),
	}
	for _, u := range users {
		s.users[strings.ToLower(u.Email)] = u
	}
	return s
}

func (s *stubAuthRepo) CreateUsuario(ctx context.Context, arg repo.CreateUsuarioParams) (repo.Usuario, error) {
	key := strings.ToLower(arg.Email)
	if _, ok := s.users[key]; ok {
		return repo.Usuario{}, repo.ErrDuplicateEmail
	}
	u := repo.Usuario{
		ID:        uuid.New(),
		Nome:      arg.Nome,
		Email:     key,
		CPF:       arg.CPF,
		Telefone:  arg.Telefone,
		SenhaHash: arg.SenhaHash,
		Admin:     arg.Admin,
		Ativo:     true,
		CriadoEm:  time.Now().UTC(),
	}
	s.users[key] = u
	return u, nil
}

func (s *stubAuthRepo) GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error) {
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return repo.Usuario{}, repo.ErrNotFound
	}
	return u, nil
}

func (s *stubAuthRepo) GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubAuthRepo) UpdateUsuario(ctx context.Context, id uuid.UUID, nome string, telefone *string) error {
	for email, u := range s.users {
		if u.ID == id {
			u.Nome = nome
			u.Telefone = telefone
			s.users[email] = u
			return nil
		}
	}
	return repo.ErrNotFound
}

func (s *stubAuthRepo) TouchUltimoAcesso(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (s *stubAuthRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error) {
	t, ok := s.tokens[tokenHash]
	if !ok {
		return repo.TokenRefresh{}, repo.ErrNotFound
	}
	return t, nil
}

func (s *stubAuthRepo) InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error) {
	s.refreshCalls++
	t := repo.TokenRefresh{
		ID:        arg.ID,
		Subject:   arg.Subject,
		Audience:  arg.Audience,
		TokenHash: arg.TokenHash,
		Expiracao: arg.Expiracao,
		CriadoEm:  arg.CriadoEm,
	}
	s.tokens[arg.TokenHash] = t
	return t, nil
}

func (s *stubAuthRepo) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, audience, keepHash string) error {
	for hash, t := range s.tokens {
		if t.Subject == subject && t.Audience == audience && hash != keepHash {
			t.Revogado = true
			s.tokens[hash] = t
		}
	}
	return nil
}

func (s *stubAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	t, ok := s.tokens[tokenHash]
	if !ok {
		return repo.ErrNotFound
	}
	t.Revogado = true
	s.tokens[tokenHash] = t
	return nil
}

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = fmt.Sprint(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func usuarioComSenha(t *testing.T, email, senha string, admin bool) repo.Usuario {
	t.Helper()
	hash, err := auth.Hash(senha)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return repo.Usuario{
		ID:        uuid.New(),
		Nome:      "Usuário Teste",
		Email:     email,
		SenhaHash: hash,
		Admin:     admin,
		Ativo:     true,
	}
}

func newTestAuthService(repoStub *stubAuthRepo) *AuthService {
	return &AuthService{
		repo:       repoStub,
		redis:      &stubRedis{},
		jwt:        auth.NewJWTManager(strings.Repeat("a", 32), time.Minute),
		refreshTTL: time.Hour,
	}
}

func TestLoginBackofficeExigeAdmin(t *testing.T) {
	senha := "SenhaForte123!"
	admin := usuarioComSenha(t, "ouvidora@example.com", senha, true)
	cidadao := usuarioComSenha(t, "cidadao@example.com", senha, false)
	svc := newTestAuthService(newStubAuthRepo(admin, cidadao))

	result, err := svc.LoginBackoffice(context.Background(), "ouvidora@example.com", senha)
	if err != nil {
		t.Fatalf("login admin falhou: %v", err)
	}
	if len(result.Roles) != 1 || result.Roles[0] != RoleAdmin {
		t.Fatalf("roles esperadas [ADMIN], veio %v", result.Roles)
	}
	if result.Audience != auth.AudienceBackoffice {
		t.Errorf("audience esperada backoffice, veio %s", result.Audience)
	}

	if _, err := svc.LoginBackoffice(context.Background(), "cidadao@example.com", senha); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("cidadão no backoffice deveria falhar com ErrNotAdmin, veio %v", err)
	}
}

func TestLoginCidadao(t *testing.T) {
	senha := "SenhaForte123!"
	user := usuarioComSenha(t, "cidadao@example.com", senha, false)
	svc := newTestAuthService(newStubAuthRepo(user))

	result, err := svc.LoginCidadao(context.Background(), "Cidadao@Example.com", senha)
	if err != nil {
		t.Fatalf("login cidadão falhou: %v", err)
	}
	if result.Audience != auth.AudienceCidadao {
		t.Errorf("audience esperada cidadao, veio %s", result.Audience)
	}
	if result.Profile == nil || result.Profile.Admin {
		t.Error("perfil de cidadão inesperado")
	}

	if _, err := svc.LoginCidadao(context.Background(), "cidadao@example.com", "senha-errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("senha errada deveria falhar com ErrInvalidCredentials, veio %v", err)
	}
}

func TestLoginContaDesativada(t *testing.T) {
	senha := "SenhaForte123!"
	user := usuarioComSenha(t, "inativo@example.com", senha, false)
	user.Ativo = false
	svc := newTestAuthService(newStubAuthRepo(user))

	if _, err := svc.LoginCidadao(context.Background(), "inativo@example.com", senha); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("conta desativada deveria falhar, veio %v", err)
	}
}

func TestRefreshRotacionaToken(t *testing.T) {
	senha := "SenhaForte123!"
	user := usuarioComSenha(t, "cidadao@example.com", senha, false)
	repoStub := newStubAuthRepo(user)
	svc := newTestAuthService(repoStub)

	login, err := svc.LoginCidadao(context.Background(), "cidadao@example.com", senha)
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := svc.Refresh(context.Background(), auth.AudienceCidadao, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh falhou: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("refresh deveria rotacionar o token")
	}

	// O token antigo não serve mais.
	if _, err := svc.Refresh(context.Background(), auth.AudienceCidadao, login.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("token antigo deveria estar revogado, veio %v", err)
	}

	// Audience trocada também é rejeitada.
	if _, err := svc.Refresh(context.Background(), auth.AudienceBackoffice, refreshed.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("audience errada deveria falhar, veio %v", err)
	}
}

func TestRegister(t *testing.T) {
	svc := newTestAuthService(newStubAuthRepo())

	profile, err := svc.Register(context.Background(), RegisterInput{
		Nome:  "Maria da Silva",
		Email: "Maria@Example.com",
		Senha: "SenhaForte123!",
	})
	if err != nil {
		t.Fatalf("register falhou: %v", err)
	}
	if profile.Admin {
		t.Error("cadastro público nunca cria administrador")
	}
	if profile.Email != "maria@example.com" {
		t.Errorf("email deveria ser normalizado, veio %q", profile.Email)
	}

	if _, err := svc.Register(context.Background(), RegisterInput{
		Nome:  "Maria 2",
		Email: "maria@example.com",
		Senha: "OutraSenha123!",
	}); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("email duplicado deveria falhar, veio %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterInput{
		Nome:  "João",
		Email: "joao@example.com",
		Senha: "curta",
	}); err == nil {
		t.Fatal("senha curta deveria falhar")
	}

	if _, err := svc.Register(context.Background(), RegisterInput{
		Nome:  "   ",
		Email: "semnome@example.com",
		Senha: "SenhaForte123!",
	}); err == nil {
		t.Fatal("nome em branco deveria falhar")
	}
}
