package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

// PrincipalResolver loads the account a verified token refers to.
type PrincipalResolver interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Authenticate gates protected routes: it extracts the bearer token, verifies
// it as an access token, resolves the account, and attaches it to the request
// context. Every failure ends the request with 401; a missing token and a
// failed verification are logged distinctly so audit logs can tell them
// apart.
func Authenticate(codec *auth.Codec, users PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("request missing bearer token", "path", r.URL.Path)
				unauthorized(w)
				return
			}

			userID, err := codec.Verify(auth.KindAccess, token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					logger.Warn("access token expired", "path", r.URL.Path)
				} else {
					logger.Warn("access token rejected", "path", r.URL.Path, "error", err)
				}
				unauthorized(w)
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				logger.Warn("token principal no longer exists", "userId", userID)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}

	return strings.TrimSpace(parts[1]), true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
