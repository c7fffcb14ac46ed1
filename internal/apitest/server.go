// Package apitest provides an in-memory fake of the storefront REST API for
// tests and local development. It speaks the same wire contracts as the real
// backend: the pagination envelope, the flat {"error": "..."} bodies, and the
// validate-cart / coupon / product endpoints.
package apitest

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agrovenca/storefront/pkg/pagination"
	"github.com/agrovenca/storefront/pkg/slug"

	"github.com/agrovenca/storefront/internal/domain"
)

// Server is the fake API. Seed it with products and coupons, then mount
// Handler() in an httptest.Server.
type Server struct {
	mu       sync.Mutex
	products []domain.Product
	coupons  map[string]domain.Coupon

	// nextFailure, when set, makes the next request fail with this status and
	// message, then clears itself.
	nextFailure *failure
}

type failure struct {
	status  int
	message string
}

// NewServer returns an empty fake API.
func NewServer() *Server {
	return &Server{coupons: make(map[string]domain.Coupon)}
}

// SeedProduct adds a product to the fake catalog.
func (s *Server) SeedProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.DisplayOrder == 0 {
		p.DisplayOrder = len(s.products) + 1
	}
	s.products = append(s.products, p)
}

// SeedCoupon registers a coupon the apply endpoint will accept.
func (s *Server) SeedCoupon(c domain.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[c.Code] = c
}

// SetStock changes a product's stock, the way another shopper's purchase would.
func (s *Server) SetStock(productID string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == productID {
			s.products[i].Stock = stock
			return
		}
	}
}

// FailNext makes the next request fail with the given status and error message.
func (s *Server) FailNext(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFailure = &failure{status: status, message: message}
}

// Products returns a copy of the current catalog ordered by display order.
func (s *Server) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

// Handler returns the fake API's HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.failureInjector)

	r.Get("/products", s.listProducts)
	r.Post("/products", s.createProduct)
	r.Post("/products/validate-cart", s.validateCart)
	r.Patch("/products/order", s.reorderProducts)
	r.Patch("/products/{id}", s.updateProduct)
	r.Delete("/products/{id}", s.deleteProduct)
	r.Post("/coupons/apply/", s.applyCoupon)

	return r
}

func (s *Server) failureInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f := s.nextFailure
		s.nextFailure = nil
		s.mu.Unlock()

		if f != nil {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) validateCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []domain.CartRef `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items are required")
		return
	}

	s.mu.Lock()
	byID := make(map[string]domain.Product, len(s.products))
	for _, p := range s.products {
		byID[p.ID] = p
	}
	s.mu.Unlock()

	items := make([]domain.ValidatedCartItem, len(req.Items))
	for i, ref := range req.Items {
		item := domain.ValidatedCartItem{ProductID: ref.ProductID, Quantity: ref.Quantity}
		product, ok := byID[ref.ProductID]
		switch {
		case !ok || product.Stock == 0:
			item.Valid = false
			item.AvailableStock = 0
		case ref.Quantity > product.Stock:
			item.Valid = false
			item.AvailableStock = product.Stock
		default:
			item.Valid = true
			item.AvailableStock = product.Stock
		}
		items[i] = item
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string           `json:"code"`
		Items    []domain.CartRef `json:"items"`
		Subtotal int64            `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	s.mu.Lock()
	coupon, ok := s.coupons[req.Code]
	s.mu.Unlock()

	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "coupon not found")
		return
	case !coupon.Active:
		writeError(w, http.StatusUnprocessableEntity, "coupon is not active")
		return
	case coupon.ExpiresAt != nil && coupon.ExpiresAt.Before(time.Now()):
		writeError(w, http.StatusUnprocessableEntity, "coupon has expired")
		return
	case coupon.UsageLimit > 0 && coupon.TimesUsed >= coupon.UsageLimit:
		writeError(w, http.StatusUnprocessableEntity, "coupon usage limit reached")
		return
	case req.Subtotal < coupon.MinPurchase:
		writeError(w, http.StatusUnprocessableEntity, "minimum purchase not met")
		return
	}

	var discount int64
	if coupon.Type == domain.CouponTypePercentage {
		discount = int64(math.Round(float64(req.Subtotal) * float64(coupon.Discount) / 100))
	} else {
		discount = coupon.Discount
	}

	writeJSON(w, http.StatusOK, domain.AppliedCoupon{
		Code:           coupon.Code,
		Description:    coupon.Description,
		DiscountAmount: discount,
	})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.DefaultParams()
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		params.Page = page
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		params.Limit = limit
	}
	search := strings.ToLower(r.URL.Query().Get("search"))

	all := s.Products()
	var filtered []domain.Product
	for _, p := range all {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		filtered = append(filtered, p)
	}

	start := (params.Page - 1) * params.Limit
	end := start + params.Limit
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	writeJSON(w, http.StatusOK, pagination.NewPage(filtered[start:end], len(filtered), params))
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		Price        int64  `json:"price"`
		SecondPrice  int64  `json:"secondPrice"`
		Stock        int    `json:"stock"`
		FreeShipping bool   `json:"freeShipping"`
		CategoryID   string `json:"categoryId"`
		UnityID      string `json:"unityId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Slug:         slug.Generate(input.Name),
		Description:  input.Description,
		Price:        input.Price,
		SecondPrice:  input.SecondPrice,
		Stock:        input.Stock,
		FreeShipping: input.FreeShipping,
		CategoryID:   input.CategoryID,
		UnityID:      input.UnityID,
		Images:       []domain.ProductImage{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	for _, p := range s.products {
		if p.Slug == product.Slug {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "a product with this slug already exists")
			return
		}
	}
	product.DisplayOrder = len(s.products) + 1
	s.products = append(s.products, product)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Price       *int64  `json:"price"`
		SecondPrice *int64  `json:"secondPrice"`
		Stock       *int    `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID != id {
			continue
		}
		p := &s.products[i]
		if input.Name != nil {
			p.Name = *input.Name
			p.Slug = slug.Generate(*input.Name)
		}
		if input.Description != nil {
			p.Description = *input.Description
		}
		if input.Price != nil {
			p.Price = *input.Price
		}
		if input.SecondPrice != nil {
			p.SecondPrice = *input.SecondPrice
		}
		if input.Stock != nil {
			p.Stock = *input.Stock
		}
		p.UpdatedAt = time.Now().UTC()
		writeJSON(w, http.StatusOK, *p)
		return
	}
	writeError(w, http.StatusNotFound, "product not found")
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "product not found")
}

func (s *Server) reorderProducts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Products []domain.ProductOrder `json:"products"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]int, len(req.Products))
	for _, o := range req.Products {
		byID[o.ID] = o.DisplayOrder
	}
	for i := range s.products {
		if order, ok := byID[s.products[i].ID]; ok {
			s.products[i].DisplayOrder = order
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
