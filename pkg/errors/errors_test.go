package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := NotFound("product", "prod-1")
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "prod-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		code   string
	}{
		{"not found", NotFound("coupon", "SAVE10"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", InvalidInput("code is required"), http.StatusBadRequest, "INVALID_INPUT"},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", Forbidden("admin only"), http.StatusForbidden, "FORBIDDEN"},
		{"conflict", Conflict("display order changed"), http.StatusConflict, "CONFLICT"},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"coupon rejected", CouponRejected("coupon expired"), http.StatusUnprocessableEntity, "COUPON_REJECTED"},
		{"stock exceeded", StockExceeded("prod-1", 2), http.StatusConflict, "STOCK_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrStockExceeded))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(ErrCouponRejected))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("anything")))
}

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("apply coupon: %w", ErrCouponRejected)
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(wrapped))
}

func TestWrap(t *testing.T) {
	base := ErrNotFound
	wrapped := Wrap(base, "load cart")
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Contains(t, wrapped.Error(), "load cart")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "coupon expired", UserMessage(CouponRejected("coupon expired")))
	assert.Equal(t, GenericMessage, UserMessage(errors.New("dial tcp: connection refused")))

	wrapped := fmt.Errorf("apply: %w", CouponRejected("usage limit reached"))
	assert.Equal(t, "usage limit reached", UserMessage(wrapped))
}
