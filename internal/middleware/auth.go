package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/toko-backend/internal/auth"
	"github.com/josh-kwaku/toko-backend/internal/handler"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

const bearerRealm = `Bearer realm="toko"`

// Auth validates the bearer token, puts the caller's Actor on the request
// context and tags the request logger with it. Rejections carry a
// WWW-Authenticate challenge.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				w.Header().Set("WWW-Authenticate", bearerRealm)
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				reject(w, r, "malformed authorization header")
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				reject(w, r, err.Error())
				return
			}

			actor := claims.Actor()
			ctx := auth.ContextWithActor(r.Context(), actor)
			ctx, _ = logging.With(ctx, "actor_id", actor.ID.String(), "role", string(actor.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, reason string) {
	logging.FromContext(r.Context()).Debug("token rejected", "reason", reason, "path", r.URL.Path)
	w.Header().Set("WWW-Authenticate", bearerRealm+`, error="invalid_token"`)
	handler.RespondAppError(w, handler.ErrInvalidToken, nil)
}
