package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/agrifleet/agrifleet/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// authenticate validates the Authorization header and stores the token
// claims in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, r, errors.New("missing authorization header"), http.StatusUnauthorized)
			return
		}

		claims, err := s.auth.ValidateToken(header)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the authenticated user's claims, or nil when the
// request skipped authentication.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}
