package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ouvidoriadigital/portal/internal/manifestacao"
	"github.com/ouvidoriadigital/portal/internal/storage"
)

// CriarManifestacao registra uma nova manifestação do cidadão.
func (h *Handler) CriarManifestacao(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Classificacao string            `json:"classificacao"`
		AssuntoID     uuid.UUID         `json:"assunto_id"`
		Relato        string            `json:"relato"`
		Anonima       bool              `json:"anonimo"`
		Dados         map[string]string `json:"dados_complementares"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	m, err := h.manifestacoes.Criar(r.Context(), manifestacao.CriarInput{
		Classificacao: payload.Classificacao,
		AssuntoID:     payload.AssuntoID,
		Relato:        payload.Relato,
		Anonima:       payload.Anonima,
		Dados:         payload.Dados,
		UsuarioID:     viewer.UserID,
	})
	if err != nil {
		h.handleManifestacaoError(w, err)
		return
	}

	view := manifestacao.Project(viewer, *m)
	WriteJSON(w, http.StatusCreated, view)
}

// MinhasManifestacoes lista as manifestações identificadas do cidadão.
func (h *Handler) MinhasManifestacoes(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	limit, offset := pagination(r)
	views, total, err := h.manifestacoes.ListarMinhas(r.Context(), viewer.UserID, limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar manifestações", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"manifestacoes": views,
		"total":         total,
	})
}

// ConsultarProtocolo devolve a manifestação pelo número de protocolo,
// já filtrada pela política de visibilidade.
func (h *Handler) ConsultarProtocolo(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	numero := chi.URLParam(r, "numero")
	view, err := h.manifestacoes.ConsultarPorProtocolo(r.Context(), viewer, numero)
	if err != nil {
		h.handleManifestacaoError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, view)
}

// Historico lista as movimentações visíveis para quem consulta.
func (h *Handler) Historico(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	movs, err := h.manifestacoes.Historico(r.Context(), viewer, id)
	if err != nil {
		h.handleManifestacaoError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"movimentacoes": movs})
}

// UploadAnexo recebe um arquivo multipart, envia ao storage e registra
// os metadados na manifestação.
func (h *Handler) UploadAnexo(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := r.ParseMultipartForm(storage.MaxAnexoBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "arquivo inválido ou grande demais", nil)
		return
	}

	file, header, err := r.FormFile("arquivo")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo arquivo obrigatório", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, storage.MaxAnexoBytes+1))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "falha ao ler arquivo", nil)
		return
	}

	arquivo := storage.Anexo{
		ManifestacaoID: id,
		NomeOriginal:   header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Body:           body,
	}

	uploaded, err := h.storage.GuardarAnexo(r.Context(), arquivo)
	if err != nil {
		if errors.Is(err, storage.ErrAnexoGrande) || errors.Is(err, storage.ErrAnexoVazio) {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível armazenar o arquivo", nil)
		return
	}

	anexo, err := h.manifestacoes.AnexarArquivo(r.Context(), viewer, id, uploaded.URL, arquivo.ContentTypeEfetivo(), int64(len(body)))
	if err != nil {
		h.handleManifestacaoError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, anexo)
}

// ListarManifestacoes lista todas as manifestações para o painel.
func (h *Handler) ListarManifestacoes(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	f := manifestacao.Filter{Busca: r.URL.Query().Get("busca")}
	f.Limit, f.Offset = pagination(r)

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := manifestacao.ParseStatus(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status desconhecido", nil)
			return
		}
		f.Status = &status
	}
	if raw := r.URL.Query().Get("classificacao"); raw != "" {
		classificacao, err := manifestacao.ParseClassificacao(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "classificação desconhecida", nil)
			return
		}
		f.Classificacao = &classificacao
	}
	if raw := r.URL.Query().Get("anonimo"); raw != "" {
		anonima := raw == "true" || raw == "1"
		f.Anonima = &anonima
	}

	views, total, err := h.manifestacoes.ListarTodas(r.Context(), viewer.UserID, f)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar manifestações", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"manifestacoes": views,
		"total":         total,
	})
}

// AbrirManifestacao carrega o caso para o atendente; se ainda estiver
// pendente, o recebimento automático acontece aqui.
func (h *Handler) AbrirManifestacao(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	view, movs, err := h.manifestacoes.Abrir(r.Context(), viewer.UserID, id)
	if err != nil {
		h.handleManifestacaoError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"manifestacao":  view,
		"movimentacoes": movs,
	})
}

// Responder registra uma movimentação do atendente, com ou sem mudança
// de status.
func (h *Handler) Responder(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.viewer(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Texto      string  `json:"texto"`
		Interna    bool    `json:"interna"`
		NovoStatus *string `json:"novo_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	mov, err := h.manifestacoes.Responder(r.Context(), viewer.UserID, id, payload.Texto, payload.Interna, payload.NovoStatus)
	if err != nil {
		h.handleManifestacaoError(w, err)
		return
	}

	views := manifestacao.ProjectMovimentacoes(viewer, []manifestacao.Movimentacao{*mov})
	WriteJSON(w, http.StatusCreated, views[0])
}

// Transicoes devolve o status atual e os próximos status legais.
func (h *Handler) Transicoes(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	status, proximos, err := h.manifestacoes.Transicoes(r.Context(), id)
	if err != nil {
		h.handleManifestacaoError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   status,
		"proximos": proximos,
	})
}

func (h *Handler) handleManifestacaoError(w http.ResponseWriter, err error) {
	var ve *manifestacao.ValidationError
	var te *manifestacao.TransitionError

	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "VALIDATION", "dados inválidos", ve.Violacoes)
	case errors.As(err, &te):
		WriteError(w, http.StatusUnprocessableEntity, "TRANSITION", te.Error(), map[string]string{
			"de":   string(te.From),
			"para": string(te.To),
		})
	case errors.Is(err, manifestacao.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "manifestação não encontrada", nil)
	case errors.Is(err, manifestacao.ErrForbidden):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "acesso negado", nil)
	case errors.Is(err, manifestacao.ErrConflito):
		WriteError(w, http.StatusConflict, "VALIDATION", "o status mudou, recarregue a manifestação", nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
