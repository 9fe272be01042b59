package http

import (
	"net/http"
)

// ListNotificacoes devolve os eventos ainda não vistos pelo usuário.
func (h *Handler) ListNotificacoes(w http.ResponseWriter, r *http.Request) {
	userID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	resultado, err := h.notificacoes.Novas(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar notificações", nil)
		return
	}

	WriteJSON(w, http.StatusOK, resultado)
}

// MarcarNotificacoesLidas avança a marca d'água de leitura do usuário.
func (h *Handler) MarcarNotificacoesLidas(w http.ResponseWriter, r *http.Request) {
	userID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	vistoEm, err := h.notificacoes.MarcarLidas(r.Context(), userID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível marcar como lidas", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"visto_em": vistoEm})
}
