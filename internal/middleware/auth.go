package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mrsawy/task-management/internal/domain"
)

type contextKey string

const (
	// ContextKeyUser is the key for storing the authenticated user in request context.
	ContextKeyUser contextKey = "user"
)

// UserProvider resolves bearer tokens to users.
type UserProvider interface {
	GetByToken(ctx context.Context, token string) (*domain.User, error)
}

// AuthMiddleware handles Bearer token authentication.
type AuthMiddleware struct {
	users UserProvider
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(users UserProvider) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// Authenticate validates the Bearer token and adds the user to the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		user, err := m.users.GetByToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter for EventSource clients, which cannot
// set headers.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header format")
	}
	if parts[1] == "" {
		return "", errors.New("missing token")
	}
	return parts[1], nil
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(ctx context.Context) (*domain.User, error) {
	user, ok := ctx.Value(ContextKeyUser).(*domain.User)
	if !ok || user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
