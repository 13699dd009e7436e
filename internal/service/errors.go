package service

import (
	"errors"
	"fmt"
	"net/http"

	"go-users-api/internal/model"
	"go-users-api/pkg/apierror"
)

// Unknown nickname and wrong password share this text so callers cannot probe for accounts.
const invalidLoginMessage = "Login or password is not correct"

func validationError(message string, field string) error {
	return apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", message, field, http.StatusBadRequest)
}

func conflictError(nickname string) error {
	return apierror.Wrap(model.ErrConflict, "ALREADY_EXISTS", "Such a nickname already in use.", nickname, http.StatusConflict)
}

func notFoundError(id string) error {
	return apierror.Wrap(model.ErrNotFound, "NOT_FOUND", "user not found", id, http.StatusNotFound)
}

func loginError(kind error) error {
	return apierror.Wrap(kind, "INVALID_CREDENTIALS", invalidLoginMessage, "", http.StatusUnauthorized)
}

func invalidTokenError(reason string) error {
	return apierror.Wrap(model.ErrInvalidToken, "INVALID_TOKEN", "invalid or expired token", reason, http.StatusUnauthorized)
}

// storeError keeps the cause for logs while surfacing a generic message to callers.
func storeError(op string, err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	return apierror.Wrap(fmt.Errorf("%w: %s: %w", model.ErrStore, op, err),
		"STORE_ERROR", "Unexpected storage error", "", http.StatusInternalServerError)
}
