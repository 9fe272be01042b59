package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ouvidoriadigital/portal/internal/auth"
)

func novoJWT(t *testing.T) *auth.JWTManager {
	t.Helper()
	return auth.NewJWTManager("segredo-de-teste-com-32-caracteres!", 15*time.Minute)
}

func requisicao(t *testing.T, handler http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/recurso", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler(t *testing.T, marcado *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*marcado = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejeitaSemToken(t *testing.T) {
	var chamado bool
	handler := Auth(novoJWT(t))(okHandler(t, &chamado))

	rec := requisicao(t, handler, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperado 401", rec.Code)
	}
	if chamado {
		t.Fatal("handler interno não deveria ter sido chamado")
	}

	var corpo struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &corpo); err != nil {
		t.Fatalf("corpo inválido: %v", err)
	}
	if corpo.Error.Code != "AUTH" {
		t.Fatalf("code = %q, esperado AUTH", corpo.Error.Code)
	}
}

func TestAuthRejeitaTokenInvalido(t *testing.T) {
	var chamado bool
	handler := Auth(novoJWT(t))(okHandler(t, &chamado))

	rec := requisicao(t, handler, "abc.def.ghi")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperado 401", rec.Code)
	}
	if chamado {
		t.Fatal("handler interno não deveria ter sido chamado")
	}
}

func TestAuthInjetaContexto(t *testing.T) {
	jwtManager := novoJWT(t)
	token, _, err := jwtManager.GenerateAccessToken("user-123", auth.AudienceBackoffice, []string{"ADMIN"})
	if err != nil {
		t.Fatal(err)
	}

	var chamado bool
	handler := Auth(jwtManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chamado = true
		if got := GetSubject(r.Context()); got != "user-123" {
			t.Errorf("subject = %q", got)
		}
		if got := GetAudience(r.Context()); got != auth.AudienceBackoffice {
			t.Errorf("audience = %q", got)
		}
		if !HasRole(r.Context(), "ADMIN") {
			t.Error("papel ADMIN ausente no contexto")
		}
		if HasRole(r.Context(), "CIDADAO") {
			t.Error("papel CIDADAO não deveria estar presente")
		}
	}))

	rec := requisicao(t, handler, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, esperado 200", rec.Code)
	}
	if !chamado {
		t.Fatal("handler interno não foi chamado")
	}
}

func TestRequireAdmin(t *testing.T) {
	jwtManager := novoJWT(t)

	casos := []struct {
		nome     string
		audience string
		roles    []string
		esperado int
	}{
		{"admin do backoffice passa", auth.AudienceBackoffice, []string{"ADMIN"}, http.StatusOK},
		{"cidadão com papel admin não passa", auth.AudienceCidadao, []string{"ADMIN"}, http.StatusForbidden},
		{"backoffice sem papel admin não passa", auth.AudienceBackoffice, []string{"CIDADAO"}, http.StatusForbidden},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			token, _, err := jwtManager.GenerateAccessToken("user-1", caso.audience, caso.roles)
			if err != nil {
				t.Fatal(err)
			}

			var chamado bool
			handler := Auth(jwtManager)(RequireAdmin(okHandler(t, &chamado)))
			rec := requisicao(t, handler, token)

			if rec.Code != caso.esperado {
				t.Fatalf("status = %d, esperado %d", rec.Code, caso.esperado)
			}
			if caso.esperado == http.StatusOK && !chamado {
				t.Fatal("handler interno não foi chamado")
			}
		})
	}
}

func TestRequireCidadao(t *testing.T) {
	jwtManager := novoJWT(t)

	tokenCidadao, _, err := jwtManager.GenerateAccessToken("user-2", auth.AudienceCidadao, []string{"CIDADAO"})
	if err != nil {
		t.Fatal(err)
	}
	tokenBackoffice, _, err := jwtManager.GenerateAccessToken("user-3", auth.AudienceBackoffice, []string{"ADMIN"})
	if err != nil {
		t.Fatal(err)
	}

	var chamado bool
	handler := Auth(jwtManager)(RequireCidadao(okHandler(t, &chamado)))

	if rec := requisicao(t, handler, tokenCidadao); rec.Code != http.StatusOK {
		t.Fatalf("cidadão: status = %d, esperado 200", rec.Code)
	}
	if rec := requisicao(t, handler, tokenBackoffice); rec.Code != http.StatusForbidden {
		t.Fatalf("backoffice: status = %d, esperado 403", rec.Code)
	}
}
