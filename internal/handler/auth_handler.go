package handler

import (
	"net/http"
	"strings"
	"time"

	"go-users-api/internal/middleware"
	"go-users-api/internal/model"
	"go-users-api/internal/service"
	"go-users-api/pkg/apierror"
)

// RefreshCookie describes the httpOnly cookie carrying the refresh token.
type RefreshCookie struct {
	Name   string
	Path   string
	Secure bool
}

type AuthHandler struct {
	service *service.AuthService
	users   *service.UserService
	audit   *service.AuditService
	cookie  RefreshCookie
}

func NewAuthHandler(authService *service.AuthService, users *service.UserService, audit *service.AuditService, cookie RefreshCookie) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{service: authService, users: users, audit: audit, cookie: cookie}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload model.SignupRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Signup(r.Context(), service.SignupInput{
		Nickname:  payload.Nickname,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	h.audit.Record(r.Context(), model.AuditActionSignup, actorFromUser(r, user), strings.TrimSpace(payload.Nickname), err)
	if err != nil {
		writeError(w, err)
		return
	}

	setLastModified(w, user.UpdatedAt)
	writeSuccess(w, http.StatusCreated, model.SignupResponse{User: user.Public()}, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.service.Login(r.Context(), payload.Nickname, payload.Password)
	actor := actorFromUser(r, session.User)
	if actor.Nickname == "" {
		actor.Nickname = strings.TrimSpace(payload.Nickname)
	}
	h.audit.Record(r.Context(), model.AuditActionLogin, actor, session.User.ID, err)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, session.Tokens)
	setLastModified(w, session.User.UpdatedAt)
	writeSuccess(w, http.StatusOK, model.LoginResponse{
		User:        session.User.Public(),
		AccessToken: session.Tokens.AccessToken,
		TokenType:   session.Tokens.TokenType,
		ExpiresIn:   session.Tokens.ExpiresIn,
	}, nil)
}

// Refresh accepts the refresh token from the cookie, falling back to a JSON
// body for clients that cannot hold cookies.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := h.refreshToken(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if token == "" {
		writeError(w, apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "refresh token is required", "refresh_token", http.StatusBadRequest))
		return
	}

	session, err := h.service.Refresh(r.Context(), token)
	h.audit.Record(r.Context(), model.AuditActionRefresh, actorFromUser(r, session.User), session.User.ID, err)
	if err != nil {
		h.clearRefreshCookie(w)
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, session.Tokens)
	writeSuccess(w, http.StatusOK, session.Tokens, nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := h.refreshToken(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	err = h.service.Logout(r.Context(), token)
	h.audit.Record(r.Context(), model.AuditActionLogout, actorFromRequest(r), "", err)
	if err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Wrap(model.ErrUnauthenticated, "UNAUTHENTICATED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	user, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	setLastModified(w, user.UpdatedAt)
	writeSuccess(w, http.StatusOK, user.Public(), nil)
}

func (h *AuthHandler) refreshToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(h.cookie.Name); err == nil && strings.TrimSpace(cookie.Value) != "" {
		_ = r.Body.Close()
		return strings.TrimSpace(cookie.Value), nil
	}

	var payload model.RefreshRequest
	if err := decodeJSON(w, r, &payload, true); err != nil {
		return "", err
	}

	return strings.TrimSpace(payload.RefreshToken), nil
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, tokens model.TokenPair) {
	maxAge := int(time.Until(tokens.RefreshExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    tokens.RefreshToken,
		Path:     h.cookie.Path,
		Expires:  tokens.RefreshExpiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
