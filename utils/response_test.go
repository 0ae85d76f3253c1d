package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstreamError struct {
	status int
}

func (e upstreamError) Error() string   { return "Bad credentials" }
func (e upstreamError) StatusCode() int { return e.status }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleErrorUsesDescription(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/versions/home", nil)

	HandleError(ErrNotFound, nil, rec, req, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "Not found", decodeError(t, rec).Error)
}

func TestHandleErrorPrefersMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/save-page", nil)
	msg := "pageData is required"

	HandleError(ErrInvalid, errors.New("boom"), rec, req, &msg)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msg, decodeError(t, rec).Error)
}

func TestHandleUpstreamErrorKeepsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/save-page", nil)

	HandleUpstreamError(upstreamError{status: http.StatusConflict}, rec, req)

	body := decodeError(t, rec)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusConflict, body.Status)
	assert.Equal(t, "Bad credentials", body.Error)
}

func TestHandleUpstreamErrorTransportFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/repo/list", nil)

	HandleUpstreamError(errors.New("dial tcp: connection refused"), rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
