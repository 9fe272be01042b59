package assunto

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ouvidoriadigital/portal/internal/util"
)

const cacheKeyAtivos = "assuntos:ativos"

// SubjectRepository abstrai a persistência dos assuntos.
type SubjectRepository interface {
	Create(ctx context.Context, a Assunto) (*Assunto, error)
	Update(ctx context.Context, a Assunto) (*Assunto, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Assunto, error)
	ListAtivos(ctx context.Context) ([]Assunto, error)
	ListTodos(ctx context.Context) ([]Assunto, error)
}

// Service reúne as regras dos assuntos e seus campos dinâmicos.
type Service struct {
	repo  SubjectRepository
	cache *redis.Client
}

// NewService cria o serviço; cache pode ser nil em testes.
func NewService(repo SubjectRepository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

// CampoInput descreve um campo dinâmico na criação/edição de assunto.
type CampoInput struct {
	Rotulo      string    `json:"rotulo"`
	Tipo        TipoCampo `json:"tipo"`
	Obrigatorio bool      `json:"obrigatorio"`
	Opcoes      []string  `json:"opcoes"`
}

// Criar valida e persiste um novo assunto.
func (s *Service) Criar(ctx context.Context, nome, descricao string, campos []CampoInput) (*Assunto, error) {
	nome = strings.TrimSpace(nome)
	if err := util.RequireString(nome, "nome do assunto"); err != nil {
		return nil, err
	}

	novo := Assunto{Nome: nome, Descricao: strings.TrimSpace(descricao), Ativo: true}
	if err := preencherCampos(&novo, campos); err != nil {
		return nil, err
	}

	criado, err := s.repo.Create(ctx, novo)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return criado, nil
}

// Atualizar substitui nome, descrição, esquema e flag de ativo do assunto.
// Assuntos referenciados por manifestações nunca são removidos; a
// desativação apenas os tira do formulário de novas manifestações.
func (s *Service) Atualizar(ctx context.Context, id uuid.UUID, nome, descricao string, ativo bool, campos []CampoInput) (*Assunto, error) {
	atual, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if nome = strings.TrimSpace(nome); nome != "" {
		atual.Nome = nome
	}
	atual.Descricao = strings.TrimSpace(descricao)
	atual.Ativo = ativo

	if campos != nil {
		atual.Campos = nil
		if err := preencherCampos(atual, campos); err != nil {
			return nil, err
		}
	}

	atualizado, err := s.repo.Update(ctx, *atual)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)
	return atualizado, nil
}

// GetAtivo retorna o assunto apenas se estiver disponível para uso.
func (s *Service) GetAtivo(ctx context.Context, id uuid.UUID) (*Assunto, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Ativo {
		return nil, ErrNotFound
	}
	return a, nil
}

// Get retorna o assunto pelo id, ativo ou não (backoffice).
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assunto, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAtivos lista os assuntos do formulário público, com cache curto.
func (s *Service) ListAtivos(ctx context.Context) ([]Assunto, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyAtivos).Bytes(); err == nil {
			var assuntos []Assunto
			if json.Unmarshal(data, &assuntos) == nil {
				return assuntos, nil
			}
		}
	}

	assuntos, err := s.repo.ListAtivos(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(assuntos); err == nil {
			_ = s.cache.Set(ctx, cacheKeyAtivos, payload, 60*time.Second).Err()
		}
	}

	return assuntos, nil
}

// ListTodos lista todos os assuntos para o backoffice.
func (s *Service) ListTodos(ctx context.Context) ([]Assunto, error) {
	return s.repo.ListTodos(ctx)
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cacheKeyAtivos).Err()
	}
}

func preencherCampos(a *Assunto, campos []CampoInput) error {
	for _, input := range campos {
		campo, err := NovoCampo(input.Rotulo, input.Tipo, input.Obrigatorio, input.Opcoes)
		if err != nil {
			return err
		}
		if err := a.AdicionarCampo(campo); err != nil {
			return err
		}
	}
	return nil
}
