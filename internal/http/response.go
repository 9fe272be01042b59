package http

import (
	"encoding/json"
	"net/http"
)

// envelope padroniza todas as respostas: data preenchido em sucesso,
// error preenchido em falha, nunca os dois.
type envelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON envia resposta de sucesso no envelope padrão.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

// WriteError envia resposta de erro no envelope padrão.
func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}
