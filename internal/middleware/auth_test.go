package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-users-api/internal/model"
)

type stubVerifier struct {
	claims map[string]*model.AuthClaims
}

func (s stubVerifier) VerifyAccess(token string) (*model.AuthClaims, error) {
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func newTestAuth(bypass ...model.Role) *AuthMiddleware {
	return NewAuthMiddleware(stubVerifier{claims: map[string]*model.AuthClaims{
		"user-42": {UserID: "42", Nickname: "alice", Role: model.RoleUser},
		"mod-7":   {UserID: "7", Nickname: "mod", Role: model.RoleModerator},
		"admin-1": {UserID: "1", Nickname: "root", Role: model.RoleAdmin},
	}}, bypass...)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(claims.UserID))
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.APIError {
	t.Helper()
	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.False(t, body.Success)
	return *body.Error
}

func TestRequireAuth(t *testing.T) {
	auth := newTestAuth()
	handler := auth.RequireAuth(okHandler())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid bearer", header: "Bearer user-42", wantStatus: http.StatusOK, wantBody: "42"},
		{name: "case-insensitive scheme", header: "bearer admin-1", wantStatus: http.StatusOK, wantBody: "1"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic dXNlcjpwdw==", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			assert.Equal(t, "UNAUTHENTICATED", decodeError(t, rec).Code)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	auth := newTestAuth()

	ctx, err := auth.Authenticate(context.Background(), "mod-7")
	require.NoError(t, err)
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, model.RoleModerator, claims.Role)

	_, err = auth.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, ok = ClaimsFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequireRoles(t *testing.T) {
	auth := newTestAuth()
	handler := auth.RequireAuth(auth.RequireRoles(model.RoleAdmin)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer user-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer admin-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Without RequireAuth in front there is no identity at all.
	rec = httptest.NewRecorder()
	auth.RequireRoles(model.RoleAdmin)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizeOwner(t *testing.T) {
	user42 := &model.AuthClaims{UserID: "42", Role: model.RoleUser}
	moderator := &model.AuthClaims{UserID: "7", Role: model.RoleModerator}
	admin := &model.AuthClaims{UserID: "1", Role: model.RoleAdmin}

	assert.NoError(t, AuthorizeOwner(user42, "42"))
	assert.ErrorIs(t, AuthorizeOwner(user42, "7"), model.ErrForbidden)
	assert.ErrorIs(t, AuthorizeOwner(user42, ""), model.ErrForbidden)
	assert.ErrorIs(t, AuthorizeOwner(nil, "42"), model.ErrUnauthenticated)

	assert.NoError(t, AuthorizeOwner(admin, "42", model.RoleAdmin))
	assert.ErrorIs(t, AuthorizeOwner(admin, "42"), model.ErrForbidden)
	assert.ErrorIs(t, AuthorizeOwner(moderator, "42", model.RoleAdmin), model.ErrForbidden)
	assert.NoError(t, AuthorizeOwner(moderator, "42", model.RoleAdmin, model.RoleModerator))
}

func TestRequireOwner(t *testing.T) {
	auth := newTestAuth(model.RoleAdmin)

	r := chi.NewRouter()
	r.With(auth.RequireAuth, auth.RequireOwner("id")).Patch("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		token      string
		target     string
		wantStatus int
	}{
		{name: "owner edits self", token: "user-42", target: "42", wantStatus: http.StatusNoContent},
		{name: "user edits someone else", token: "user-42", target: "7", wantStatus: http.StatusForbidden},
		{name: "moderator is not a bypass role here", token: "mod-7", target: "42", wantStatus: http.StatusForbidden},
		{name: "admin bypasses", token: "admin-1", target: "42", wantStatus: http.StatusNoContent},
		{name: "anonymous", token: "", target: "42", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/users/"+tt.target, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
