package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shelf-works/shelf/internal/api"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TokenResolver maps a bearer token to the user it belongs to.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

func BearerAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			userID, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
