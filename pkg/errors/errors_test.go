package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractionErrorUnwraps(t *testing.T) {
	cause := stderrors.New("net::ERR_NAME_NOT_RESOLVED")
	err := fmt.Errorf("refresh hero: %w", NewExtractionError("https://example.com", CauseNavigation, cause))

	assert.True(t, IsExtraction(err))
	assert.False(t, IsEmptyResult(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Contains(t, err.Error(), "extraction failed (navigation)")
}

func TestEmptyResultStatus(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewEmptyResultError("no heroes found for role Tank", "roster-by-role", "Tank"))

	assert.True(t, IsEmptyResult(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestStatusCodeDefaults(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(stderrors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(NewCacheError("set failed", "set", "k", nil)))
	assert.Equal(t, http.StatusBadRequest, StatusCode(NewValidationError("bad role", "role", "")))
}

func TestAsAppErrorFindsEmbeddedError(t *testing.T) {
	err := fmt.Errorf("refresh: %w", NewExtractionError("https://example.com", CauseTimeout, nil))

	app, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeExtraction, app.Code)
	assert.Equal(t, "extraction failed (timeout)", app.Message)

	_, ok = AsAppError(stderrors.New("plain"))
	assert.False(t, ok)
}
