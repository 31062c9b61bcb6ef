// Package middleware содержит HTTP middleware административного API.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// AuthMiddleware выполняет проверку bearer-токена администратора.
type AuthMiddleware struct {
	digest []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным токеном.
// При пустом токене используется случайный, и API фактически закрыт.
func NewAuthMiddleware(token string) *AuthMiddleware {
	if token == "" {
		random := make([]byte, 32)
		if _, err := rand.Read(random); err == nil {
			token = string(random)
		} else {
			token = "default-api-token"
		}
	}

	return &AuthMiddleware{
		digest: sum(token),
	}
}

// Middleware пропускает запрос дальше только с верным заголовком Authorization.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !a.valid(strings.TrimPrefix(header, bearerPrefix)) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *AuthMiddleware) valid(token string) bool {
	return hmac.Equal(sum(strings.TrimSpace(token)), a.digest)
}

func sum(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
