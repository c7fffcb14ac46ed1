package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/agrovenca/storefront/pkg/httpclient"
	"github.com/agrovenca/storefront/pkg/pagination"
	"github.com/agrovenca/storefront/pkg/validator"

	"github.com/agrovenca/storefront/internal/auth"
	"github.com/agrovenca/storefront/internal/domain"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// ListFilters narrows the product listing. The zero value lists everything
// with default paging.
type ListFilters struct {
	pagination.Params
	Search      string
	CategoryIDs []string
	UnityIDs    []string
	MinPrice    int64
	MaxPrice    int64
}

// Values encodes the filters as query parameters.
func (f ListFilters) Values() url.Values {
	params := f.Params
	if params.Page == 0 {
		params = pagination.DefaultParams()
	}
	v := params.Values()
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if len(f.CategoryIDs) > 0 {
		v.Set("categoriesIds", strings.Join(f.CategoryIDs, ","))
	}
	if len(f.UnityIDs) > 0 {
		v.Set("unitiesIds", strings.Join(f.UnityIDs, ","))
	}
	if f.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatInt(f.MinPrice, 10))
	}
	if f.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatInt(f.MaxPrice, 10))
	}
	return v
}

// Key is the cache key for these filters.
func (f ListFilters) Key() string {
	return f.Values().Encode()
}

// CreateProductInput holds the fields for creating a product.
type CreateProductInput struct {
	Name         string `json:"name" validate:"required,min=3"`
	Description  string `json:"description,omitempty"`
	Price        int64  `json:"price" validate:"required,gt=0"`
	SecondPrice  int64  `json:"secondPrice" validate:"gte=0"`
	Stock        int    `json:"stock" validate:"gte=0"`
	FreeShipping bool   `json:"freeShipping"`
	CategoryID   string `json:"categoryId" validate:"required"`
	UnityID      string `json:"unityId" validate:"required"`
}

// UpdateProductInput holds the changed fields for a product update. Nil
// pointers mean "leave unchanged".
type UpdateProductInput struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=3"`
	Description  *string `json:"description,omitempty"`
	Price        *int64  `json:"price,omitempty" validate:"omitempty,gt=0"`
	SecondPrice  *int64  `json:"secondPrice,omitempty" validate:"omitempty,gte=0"`
	Stock        *int    `json:"stock,omitempty" validate:"omitempty,gte=0"`
	FreeShipping *bool   `json:"freeShipping,omitempty"`
	CategoryID   *string `json:"categoryId,omitempty"`
	UnityID      *string `json:"unityId,omitempty"`
}

// Client calls the product endpoints of the storefront API. Mutating calls
// carry the session's bearer token.
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	session    *auth.Session
	logger     *slog.Logger
}

// NewClient creates a catalog API client.
func NewClient(httpClient HTTPDoer, baseURL string, session *auth.Session, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		session:    session,
		logger:     logger,
	}
}

// List fetches one page of products matching the filters.
func (c *Client) List(ctx context.Context, filters ListFilters) (ProductPage, error) {
	u := c.baseURL + "/products?" + filters.Values().Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return ProductPage{}, fmt.Errorf("create list products request: %w", err)
	}
	c.session.Authorize(httpReq)

	resp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		return ProductPage{}, fmt.Errorf("call list products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProductPage{}, httpclient.ParseResponseError(resp, "products")
	}

	var page ProductPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return ProductPage{}, fmt.Errorf("decode products response: %w", err)
	}
	return page, nil
}

// Create creates a product and returns the canonical server entity.
func (c *Client) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, http.MethodPost, "/products", input)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "products")
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode create product response: %w", err)
	}

	c.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)
	return &product, nil
}

// Update patches a product and returns the canonical server entity.
func (c *Client) Update(ctx context.Context, productID string, input UpdateProductInput) (*domain.Product, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, http.MethodPatch, "/products/"+productID, input)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "products")
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode update product response: %w", err)
	}
	return &product, nil
}

// Delete removes a product.
func (c *Client) Delete(ctx context.Context, productID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/products/"+productID, http.NoBody)
	if err != nil {
		return fmt.Errorf("create delete product request: %w", err)
	}
	c.session.Authorize(httpReq)

	resp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		return fmt.Errorf("call delete product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return httpclient.ParseResponseError(resp, "products")
	}
	return nil
}

// Reorder submits the new display order for a set of products.
func (c *Client) Reorder(ctx context.Context, orders []domain.ProductOrder) error {
	type reorderRequest struct {
		Products []domain.ProductOrder `json:"products"`
	}

	resp, err := c.send(ctx, http.MethodPatch, "/products/order", reorderRequest{Products: orders})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return httpclient.ParseResponseError(resp, "products")
	}
	return nil
}

// send marshals body and performs a JSON request with the session's credentials.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s %s request: %w", method, path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create %s %s request: %w", method, path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.session.Authorize(httpReq)

	resp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s %s: %w", method, path, err)
	}
	return resp, nil
}
