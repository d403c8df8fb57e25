package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"lending-service/internal/models"
	"lending-service/pkg/utils"
)

type contextKey string

const (
	principalIDKey contextKey = "principal_id"
	roleKey        contextKey = "role"
)

// AuthMiddleware checks if the request has a valid JWT token and stores the
// principal ID and role in the request context
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "no authorization header provided")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				utils.RespondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			principalID, _ := claims[models.ClaimPrincipalID].(string)
			role, _ := claims[models.ClaimRole].(string)
			if principalID == "" || role == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "invalid token: missing principal claims")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principalID, models.Role(role))))
		})
	}
}

// RequireRole rejects principals whose role is not listed
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFrom(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// PrincipalID returns the authenticated principal's ID
func PrincipalID(ctx context.Context) string {
	id, _ := ctx.Value(principalIDKey).(string)
	return id
}

// RoleFrom returns the authenticated principal's role
func RoleFrom(ctx context.Context) models.Role {
	role, _ := ctx.Value(roleKey).(models.Role)
	return role
}

// WithPrincipal stores the authenticated principal in ctx
func WithPrincipal(ctx context.Context, id string, role models.Role) context.Context {
	ctx = context.WithValue(ctx, principalIDKey, id)
	return context.WithValue(ctx, roleKey, role)
}
