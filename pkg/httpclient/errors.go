package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/agrovenca/storefront/pkg/errors"
)

// APIErrorResponse mirrors the error body returned by the Agrovenca API:
// a flat object with a single error string.
type APIErrorResponse struct {
	Error string `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the response body matches the
// `{"error": "..."}` format, the message is preserved. Otherwise the fixed
// generic message is used so unstructured bodies never reach the UI.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, endpoint string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", endpoint, resp.StatusCode, err)
	}

	// Try to parse the structured error response.
	var apiErr APIErrorResponse
	if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
		return mapAPIError(resp.StatusCode, apiErr.Error, endpoint)
	}

	// No structured error body: collapse to the fixed generic message.
	return mapAPIError(resp.StatusCode, apperrors.GenericMessage, endpoint)
}

// mapAPIError translates the API's HTTP status code and error message into an
// AppError that preserves the error semantics.
func mapAPIError(status int, message, endpoint string) error {
	switch {
	case status == http.StatusNotFound:
		// The server's reason ("coupon not found", "Product not found")
		// is already shopper-facing, keep it verbatim.
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: message,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(message)
	case status == http.StatusConflict:
		return apperrors.Conflict(message)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case status == http.StatusUnprocessableEntity:
		return apperrors.CouponRejected(message)
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    "SERVICE_UNAVAILABLE",
			Message: message,
			Status:  http.StatusServiceUnavailable,
			Err:     apperrors.ErrServiceUnavail,
		}
	case status >= 500:
		return fmt.Errorf("%s server error (%d): %s", endpoint, status, message)
	default:
		return &apperrors.AppError{
			Code:    "API_ERROR",
			Message: message,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors should not be retried: the request itself was invalid.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
