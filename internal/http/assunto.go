package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ouvidoriadigital/portal/internal/assunto"
)

// ListAssuntos devolve os assuntos ativos com seus campos dinâmicos;
// é o que alimenta o formulário de nova manifestação.
func (h *Handler) ListAssuntos(w http.ResponseWriter, r *http.Request) {
	assuntos, err := h.assuntos.ListAtivos(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar assuntos", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"assuntos": assuntos})
}

// ListTodosAssuntos inclui os inativos, para o painel administrativo.
func (h *Handler) ListTodosAssuntos(w http.ResponseWriter, r *http.Request) {
	assuntos, err := h.assuntos.ListTodos(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar assuntos", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"assuntos": assuntos})
}

type assuntoPayload struct {
	Nome      string               `json:"nome"`
	Descricao string               `json:"descricao"`
	Ativo     *bool                `json:"ativo"`
	Campos    []assunto.CampoInput `json:"campos_adicionais"`
}

// CriarAssunto cadastra um novo assunto com esquema de campos.
func (h *Handler) CriarAssunto(w http.ResponseWriter, r *http.Request) {
	var payload assuntoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Nome) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "nome do assunto obrigatório", nil)
		return
	}

	criado, err := h.assuntos.Criar(r.Context(), payload.Nome, payload.Descricao, payload.Campos)
	if err != nil {
		h.handleAssuntoError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, criado)
}

// AtualizarAssunto edita nome, descrição, esquema e flag de ativo.
func (h *Handler) AtualizarAssunto(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload assuntoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	ativo := true
	if payload.Ativo != nil {
		ativo = *payload.Ativo
	}

	atualizado, err := h.assuntos.Atualizar(r.Context(), id, payload.Nome, payload.Descricao, ativo, payload.Campos)
	if err != nil {
		h.handleAssuntoError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, atualizado)
}

func (h *Handler) handleAssuntoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assunto.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "assunto não encontrado", nil)
	case errors.Is(err, assunto.ErrSlugDuplicado),
		errors.Is(err, assunto.ErrRotuloVazio),
		errors.Is(err, assunto.ErrTipoInvalido),
		errors.Is(err, assunto.ErrSemOpcoes):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
