package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/agrovenca/storefront/pkg/errors"
	"github.com/agrovenca/storefront/pkg/httpclient"

	"github.com/agrovenca/storefront/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the checkout-related endpoints of the storefront API.
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a checkout API client.
func NewClient(httpClient HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// ValidateCart submits the cart references for server-side validation and
// returns one verdict per item, ordered one-to-one with the request.
func (c *Client) ValidateCart(ctx context.Context, refs []domain.CartRef) ([]domain.ValidatedCartItem, error) {
	type validateRequest struct {
		Items []domain.CartRef `json:"items"`
	}
	type validateResponse struct {
		Items []domain.ValidatedCartItem `json:"items"`
	}

	body, err := json.Marshal(validateRequest{Items: refs})
	if err != nil {
		return nil, fmt.Errorf("marshal validate cart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/products/validate-cart", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create validate cart request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call validate cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "validate-cart")
	}

	var validateResp validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&validateResp); err != nil {
		return nil, fmt.Errorf("decode validate cart response: %w", err)
	}

	c.logger.InfoContext(ctx, "cart validated",
		slog.Int("items_count", len(validateResp.Items)),
	)

	return validateResp.Items, nil
}

// ApplyCoupon submits a coupon code with the current cart context. On success
// the server returns the computed discount; a rejection carries the server's
// reason.
func (c *Client) ApplyCoupon(ctx context.Context, code string, items []domain.CartItem) (*domain.AppliedCoupon, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	type applyRequest struct {
		Code     string           `json:"code"`
		Items    []domain.CartRef `json:"items"`
		Subtotal int64            `json:"subtotal"`
	}

	req := applyRequest{Code: code, Items: make([]domain.CartRef, len(items))}
	for i := range items {
		req.Items[i] = domain.CartRef{ProductID: items[i].ProductID, Quantity: items[i].Quantity}
		req.Subtotal += items[i].LineTotal()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal apply coupon request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/coupons/apply/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create apply coupon request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call apply coupon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "apply-coupon")
	}

	var applied domain.AppliedCoupon
	if err := json.NewDecoder(resp.Body).Decode(&applied); err != nil {
		return nil, fmt.Errorf("decode apply coupon response: %w", err)
	}

	c.logger.InfoContext(ctx, "coupon applied",
		slog.String("code", applied.Code),
		slog.Int64("discount", applied.DiscountAmount),
	)

	return &applied, nil
}
