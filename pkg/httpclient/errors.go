package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// ErrorBody covers the error shapes the storefront API is known to return:
// the structured {"error":{code,message}} envelope, a flat {"message"} or
// {"detail"} string, and the form-error map {"errors":{"non_field_errors":[...]}}.
type ErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string              `json:"message"`
	Detail  string              `json:"detail"`
	Errors  map[string][]string `json:"errors"`
}

// Text returns the most specific human readable message in the body.
func (b ErrorBody) Text() string {
	switch {
	case b.Error != nil && b.Error.Message != "":
		return b.Error.Message
	case len(b.Errors["non_field_errors"]) > 0:
		return b.Errors["non_field_errors"][0]
	case b.Message != "":
		return b.Message
	case b.Detail != "":
		return b.Detail
	}
	for field, msgs := range b.Errors {
		if len(msgs) > 0 {
			return field + ": " + msgs[0]
		}
	}
	return ""
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, operation string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", operation, resp.StatusCode, err)
	}

	var body ErrorBody
	var code string
	message := strings.TrimSpace(string(bodyBytes))
	if json.Unmarshal(bodyBytes, &body) == nil {
		if body.Error != nil {
			code = body.Error.Code
		}
		if text := body.Text(); text != "" {
			message = text
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapStatus(resp.StatusCode, code, message, operation)
}

func mapStatus(status int, code, message, operation string) error {
	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(operation, message)
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(fmt.Sprintf("%s: %s", operation, message))
	case status >= 500:
		return apperrors.Upstream(operation, fmt.Errorf("status %d: %s", status, message))
	default:
		if code == "" {
			code = "UPSTREAM_ERROR"
		}
		return &apperrors.AppError{
			Code:    code,
			Message: message,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
