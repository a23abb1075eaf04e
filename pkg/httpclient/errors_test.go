package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func asAppError(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	return appErr
}

func TestParseResponseError_StructuredEnvelope(t *testing.T) {
	resp := makeResponse(http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"variant not found"}}`)
	err := ParseResponseError(resp, "remove_from_cart")

	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, appErr.Message, "variant not found")
}

func TestParseResponseError_NonFieldErrors(t *testing.T) {
	resp := makeResponse(http.StatusUnauthorized,
		`{"errors":{"non_field_errors":["Email or Password is not Valid"]}}`)
	err := ParseResponseError(resp, "login")

	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.Equal(t, "Email or Password is not Valid", appErr.Message)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestParseResponseError_FieldErrors(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"errors":{"email":["user with this email already exists."]}}`)
	err := ParseResponseError(resp, "register")

	appErr := asAppError(t, err)
	assert.Equal(t, "email: user with this email already exists.", appErr.Message)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseResponseError_FlatMessage(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"message":"Passwords do not match"}`)
	err := ParseResponseError(resp, "register")

	appErr := asAppError(t, err)
	assert.Equal(t, "Passwords do not match", appErr.Message)
}

func TestParseResponseError_Detail(t *testing.T) {
	resp := makeResponse(http.StatusForbidden, `{"detail":"Authentication credentials were not provided."}`)
	err := ParseResponseError(resp, "has_user_cart")

	appErr := asAppError(t, err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestParseResponseError_UnprocessableIsInvalidInput(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusUnprocessableEntity, `{"message":"quantity"}`), "add_to_cart")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseResponseError_ServerErrorIsUpstream(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusInternalServerError, `<html>oops</html>`), "cart_details")
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "oops")
}

func TestParseResponseError_ServiceUnavailable(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusServiceUnavailable, ``), "cart_details")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Contains(t, err.Error(), "Service Unavailable")
}

func TestParseResponseError_OtherStatusKeepsCode(t *testing.T) {
	err := ParseResponseError(makeResponse(http.StatusTooManyRequests,
		`{"error":{"code":"RATE_LIMITED","message":"slow down"}}`), "add_to_cart")

	appErr := asAppError(t, err)
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{399, false},
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{499, true},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsClientError(tt.status), "status %d", tt.status)
	}
}
