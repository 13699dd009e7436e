package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-users-api/internal/model"
	"go-users-api/pkg/apierror"
)

type tokenVerifier interface {
	VerifyAccess(tokenString string) (*model.AuthClaims, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

// AuthMiddleware resolves access tokens into claims and enforces role and
// ownership rules. It never consults a store.
type AuthMiddleware struct {
	verifier    tokenVerifier
	bypassRoles []model.Role
}

// NewAuthMiddleware builds the guards. bypassRoles may edit resources they do not own.
func NewAuthMiddleware(verifier tokenVerifier, bypassRoles ...model.Role) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, bypassRoles: bypassRoles}
}

// Authenticate verifies an access token and returns ctx carrying its claims.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (context.Context, error) {
	if strings.TrimSpace(token) == "" {
		return ctx, unauthenticated("missing or invalid authorization header")
	}

	claims, err := m.verifier.VerifyAccess(token)
	if err != nil {
		return ctx, unauthenticated("invalid or expired token")
	}

	annotateUser(ctx, claims.UserID)
	return WithClaims(ctx, claims), nil
}

func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeGuardError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...model.Role) func(http.Handler) http.Handler {
	roleSet := map[model.Role]struct{}{}
	for _, role := range allowedRoles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeGuardError(w, unauthenticated("authentication required"))
				return
			}

			if _, exists := roleSet[claims.Role]; !exists {
				writeGuardError(w, forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwner rejects requests whose URL parameter param does not name the
// authenticated user. Mount it after RequireAuth.
func (m *AuthMiddleware) RequireOwner(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if err := AuthorizeOwner(claims, chi.URLParam(r, param), m.bypassRoles...); err != nil {
				writeGuardError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthorizeOwner allows claims to act on resourceID when they own it or hold one of bypassRoles.
func AuthorizeOwner(claims *model.AuthClaims, resourceID string, bypassRoles ...model.Role) error {
	if claims == nil || claims.UserID == "" {
		return unauthenticated("authentication required")
	}

	if resourceID != "" && claims.UserID == resourceID {
		return nil
	}

	for _, role := range bypassRoles {
		if claims.Role == role {
			return nil
		}
	}

	return forbidden("you can only modify your own account")
}

func WithClaims(ctx context.Context, claims *model.AuthClaims) context.Context {
	return context.WithValue(ctx, authClaimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*model.AuthClaims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(*model.AuthClaims)
	return claims, ok && claims != nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func unauthenticated(message string) error {
	return apierror.Wrap(model.ErrUnauthenticated, "UNAUTHENTICATED", message, "", http.StatusUnauthorized)
}

func forbidden(message string) error {
	return apierror.Wrap(model.ErrForbidden, "FORBIDDEN", message, "", http.StatusForbidden)
}

func writeGuardError(w http.ResponseWriter, err error) {
	var apiErr *apierror.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierror.New("INTERNAL_ERROR", "Unexpected server error", "", http.StatusInternalServerError)
	}

	if apiErr.HTTPStatus == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	writeJSONError(w, apiErr.HTTPStatus, apiErr.Code, apiErr.Message)
}
