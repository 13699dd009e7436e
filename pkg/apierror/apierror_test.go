package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errKind = errors.New("kind")

func TestAPIErrorFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BAD_REQUEST: invalid body", New("BAD_REQUEST", "invalid body", "", http.StatusBadRequest).Error())
	assert.Equal(t, "BAD_REQUEST: invalid body (name)", New("BAD_REQUEST", "invalid body", "name", http.StatusBadRequest).Error())
	assert.Equal(t, "CONFLICT: taken: kind", Wrap(errKind, "CONFLICT", "taken", "", http.StatusConflict).Error())

	var nilErr *APIError
	assert.Empty(t, nilErr.Error())
	assert.NoError(t, nilErr.Unwrap())
}

func TestWrapUnwrapsToKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("signup: %w", Wrap(errKind, "CONFLICT", "taken", "", http.StatusConflict))

	require.ErrorIs(t, err, errKind)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.HTTPStatus)
}
