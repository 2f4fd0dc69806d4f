// Package middleware carries the authentication layer: bearer JWTs are
// verified once here and downstream handlers read the actor from the
// request context.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/daesung-dev/anshim/internal/http/api"
)

type contextKey string

const (
	actorKey contextKey = "actor"
	roleKey  contextKey = "role"
)

const RoleAdmin = "admin"

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies the Authorization bearer token and stores the
// actor id and role in the request context. Requests without a valid token
// are rejected before any handler runs.
func Authenticator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				api.WriteJSON(w, http.StatusUnauthorized, map[string]string{"code": "unauthenticated", "message": "missing bearer token"})
				return
			}

			var c claims

			token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}

				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				api.WriteJSON(w, http.StatusUnauthorized, map[string]string{"code": "unauthenticated", "message": "invalid token"})
				return
			}

			actorID, err := uuid.Parse(c.Subject)
			if err != nil {
				api.WriteJSON(w, http.StatusUnauthorized, map[string]string{"code": "unauthenticated", "message": "invalid subject"})
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actorID)
			ctx = context.WithValue(ctx, roleKey, c.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates the administrative routes.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Role(r.Context()) != RoleAdmin {
			api.WriteJSON(w, http.StatusForbidden, map[string]string{"code": "forbidden", "message": "administrator access required"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Actor returns the authenticated actor's id.
func Actor(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(actorKey).(uuid.UUID)
	return id
}

// Role returns the authenticated actor's role.
func Role(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}
