package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-users-api/internal/model"
	"go-users-api/internal/service"
	"go-users-api/pkg/apierror"
)

type UserHandler struct {
	service *service.UserService
	audit   *service.AuditService
}

func NewUserHandler(service *service.UserService, audit *service.AuditService) *UserHandler {
	return &UserHandler{service: service, audit: audit}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	users, meta, err := h.service.List(r.Context(), parseIntOrDefault(query.Get("page"), 1), parseIntOrDefault(query.Get("limit"), 0))
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]model.PublicUser, 0, len(users))
	for _, user := range users {
		items = append(items, user.Public())
	}

	writeSuccess(w, http.StatusOK, model.UserList{Users: items}, &meta)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	setLastModified(w, user.UpdatedAt)
	writeSuccess(w, http.StatusOK, user.Public(), nil)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var payload model.UpdateUserRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Update(r.Context(), userID, service.ProfileUpdate{
		Nickname:  payload.Nickname,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Password:  payload.Password,
	})

	action := model.AuditActionUserUpdate
	if payload.Password != nil {
		action = model.AuditActionPasswordChange
	}
	h.audit.Record(r.Context(), action, actorFromRequest(r), userID, err)
	if err != nil {
		writeError(w, err)
		return
	}

	setLastModified(w, user.UpdatedAt)
	writeSuccess(w, http.StatusOK, user.Public(), nil)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	err := h.service.Delete(r.Context(), userID)
	h.audit.Record(r.Context(), model.AuditActionUserDelete, actorFromRequest(r), userID, err)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var payload model.UpdateRoleRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.SetRole(r.Context(), userID, payload.Role)
	h.audit.Record(r.Context(), model.AuditActionRoleChange, actorFromRequest(r), userID, err)
	if err != nil {
		writeError(w, err)
		return
	}

	setLastModified(w, user.UpdatedAt)
	writeSuccess(w, http.StatusOK, user.Public(), nil)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		writeError(w, apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "user id is required", "id", http.StatusBadRequest))
		return "", false
	}
	return userID, true
}
