package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agrovenca/storefront/pkg/errors"
	"github.com/agrovenca/storefront/pkg/httpclient"
	"github.com/agrovenca/storefront/pkg/pagination"
	"github.com/agrovenca/storefront/pkg/validator"

	"github.com/agrovenca/storefront/internal/auth"
	"github.com/agrovenca/storefront/internal/domain"
)

func testSession(t *testing.T) *auth.Session {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin-001",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	session, err := auth.NewSession(signed)
	require.NoError(t, err)
	return session
}

func newAPITestClient(t *testing.T, session *auth.Session, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return NewClient(httpclient.New(cfg), server.URL, session, newTestLogger())
}

func TestClient_List_EncodesFilters(t *testing.T) {
	var gotQuery map[string][]string
	client := newAPITestClient(t, auth.Anonymous(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		gotQuery = r.URL.Query()
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pagination.NewPage(
			[]domain.Product{{ID: "p1", Name: "Maíz", Slug: "maiz", Price: 1500}},
			1, pagination.Params{Page: 2, Limit: 10},
		))
	}))

	filters := ListFilters{
		Params:      pagination.Params{Page: 2, Limit: 10},
		Search:      "maiz",
		CategoryIDs: []string{"cat-1", "cat-2"},
		MinPrice:    100,
	}
	page, err := client.List(context.Background(), filters)

	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"10"}, gotQuery["limit"])
	assert.Equal(t, []string{"maiz"}, gotQuery["search"])
	assert.Equal(t, []string{"cat-1,cat-2"}, gotQuery["categoriesIds"])
	assert.Equal(t, []string{"100"}, gotQuery["minPrice"])
	require.Len(t, page.Objects, 1)
	assert.Equal(t, 2, page.Pagination.Page)
}

func TestClient_Create_SendsBearerToken(t *testing.T) {
	session := testSession(t)
	client := newAPITestClient(t, session, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")

		var input CreateProductInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Product{
			ID:   "p-new",
			Name: input.Name,
			Slug: "maiz-amarillo",
		})
	}))

	created, err := client.Create(context.Background(), CreateProductInput{
		Name:       "Maíz Amarillo",
		Price:      1500,
		Stock:      40,
		CategoryID: "cat-1",
		UnityID:    "unit-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "p-new", created.ID)
}

func TestClient_Create_ValidatesLocally(t *testing.T) {
	called := false
	client := newAPITestClient(t, auth.Anonymous(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := client.Create(context.Background(), CreateProductInput{Name: "ab"})

	require.Error(t, err)
	var verr *validator.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.False(t, called, "invalid input never reaches the network")
}

func TestClient_Update_NotFound(t *testing.T) {
	client := newAPITestClient(t, auth.Anonymous(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "product not found"})
	}))

	name := "Nuevo"
	_, err := client.Update(context.Background(), "p-missing", UpdateProductInput{Name: &name})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClient_Reorder(t *testing.T) {
	var got struct {
		Products []domain.ProductOrder `json:"products"`
	}
	client := newAPITestClient(t, auth.Anonymous(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/products/order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))

	orders := []domain.ProductOrder{{ID: "p2", DisplayOrder: 1}, {ID: "p1", DisplayOrder: 2}}
	require.NoError(t, client.Reorder(context.Background(), orders))
	assert.Equal(t, orders, got.Products)
}

func TestClient_Delete(t *testing.T) {
	client := newAPITestClient(t, auth.Anonymous(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/products/p1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, client.Delete(context.Background(), "p1"))
}
