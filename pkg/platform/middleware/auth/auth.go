// Package auth authenticates callers from bearer JWTs and attaches the
// resulting Caller (identity plus role claims) to the request context.
// Role enforcement stays in the handlers so each operation states its own
// capability requirement explicitly.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

// Claims are the JWT claims the service understands. Subject is the caller
// identity; Roles carries the granted capabilities.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens with an HMAC signing key.
type Verifier struct {
	signingKey []byte
	logger     *slog.Logger
}

// NewVerifier builds a token verifier.
func NewVerifier(signingKey string, logger *slog.Logger) *Verifier {
	return &Verifier{signingKey: []byte(signingKey), logger: logger}
}

// ParseCaller validates the token string and extracts the caller.
func (v *Verifier) ParseCaller(tokenString string) (domain.Caller, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return domain.Caller{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return domain.Caller{}, fmt.Errorf("token missing subject")
	}
	caller := domain.Caller{ID: claims.Subject}
	for _, r := range claims.Roles {
		caller.Roles = append(caller.Roles, domain.Role(r))
	}
	return caller, nil
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller into the context otherwise.
func RequireAuth(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			caller, err := verifier.ParseCaller(token)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "rejected invalid token",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

// RequireRole writes a forbidden response unless the context caller holds the
// role. Returns the caller and whether the handler should proceed.
func RequireRole(w http.ResponseWriter, r *http.Request, role domain.Role) (domain.Caller, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.Caller{}, false
	}
	if !caller.Has(role) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "caller lacks role "+string(role)))
		return domain.Caller{}, false
	}
	return caller, true
}
