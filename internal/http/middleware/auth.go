package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ouvidoriadigital/portal/internal/auth"
)

type contextKey string

const (
	subjectKey  contextKey = "subject"
	audienceKey contextKey = "audience"
	rolesKey    contextKey = "roles"
)

// Auth valida o bearer token e injeta subject/audience/roles no contexto.
func Auth(jwt *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := jwt.ParseAndValidate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "AUTH", "token inválido ou expirado")
				return
			}

			audience := ""
			if len(claims.Audience) > 0 {
				audience = claims.Audience[0]
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			ctx = context.WithValue(ctx, audienceKey, audience)
			ctx = context.WithValue(ctx, rolesKey, claims.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin restringe a rota a tokens do backoffice com papel ADMIN.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAudience(r.Context()) != auth.AudienceBackoffice || !HasRole(r.Context(), "ADMIN") {
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito à equipe da ouvidoria")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCidadao restringe a rota a tokens do portal do cidadão.
func RequireCidadao(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAudience(r.Context()) != auth.AudienceCidadao {
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito ao portal do cidadão")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSubject devolve o subject autenticado ou string vazia.
func GetSubject(ctx context.Context) string {
	if v, ok := ctx.Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

// GetAudience devolve a audience do token ou string vazia.
func GetAudience(ctx context.Context) string {
	if v, ok := ctx.Value(audienceKey).(string); ok {
		return v
	}
	return ""
}

// GetRoles devolve os papéis do token.
func GetRoles(ctx context.Context) []string {
	if v, ok := ctx.Value(rolesKey).([]string); ok {
		return v
	}
	return nil
}

// HasRole indica se o token carrega o papel.
func HasRole(ctx context.Context, role string) bool {
	for _, r := range GetRoles(ctx) {
		if r == role {
			return true
		}
	}
	return false
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
