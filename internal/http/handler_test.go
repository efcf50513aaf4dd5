package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

const sessionID = "9b2f4a4e-6f0e-4c55-9a59-1c1f7f8f2b11"

// fakeShop stands in for the storefront service on both the handler and the cart side.
type fakeShop struct {
	mu       sync.Mutex
	user     *shop.AuthUser
	products []shop.Product
	saves    []int
	orders   []shop.OrderRequest
	signIn   func(email, password string) (*shop.AuthUser, error)
	saveErr  error
	orderErr error
}

func (f *fakeShop) SignIn(_ context.Context, email, password string) (*shop.AuthUser, error) {
	if f.signIn != nil {
		return f.signIn(email, password)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = &shop.AuthUser{ID: "u1", Email: email}
	return f.user, nil
}

func (f *fakeShop) SignUp(_ context.Context, data shop.SignUpData) (*shop.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = &shop.AuthUser{ID: "u2", Email: data.Email}
	return f.user, nil
}

func (f *fakeShop) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	return nil
}

func (f *fakeShop) GetCurrentUser(context.Context) *shop.AuthUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeShop) FetchProducts(context.Context) []shop.Product { return f.products }

// ProductByID serves from products, or from a catalog holding only mug when products is empty.
func (f *fakeShop) ProductByID(_ context.Context, id string) (shop.Product, error) {
	if id == "" {
		return shop.Product{}, shop.NewValidationError("productId", errors.New("is required"))
	}
	catalog := f.products
	if len(catalog) == 0 {
		catalog = []shop.Product{mug}
	}
	for _, p := range catalog {
		if p.ID == id {
			return p, nil
		}
	}
	return shop.Product{}, shop.ErrNotFound
}

func (f *fakeShop) FetchCategories(context.Context) []string { return []string{"Kitchen", "Garden"} }

func (f *fakeShop) SearchProducts(_ context.Context, q string) []shop.Product {
	var out []shop.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeShop) FetchOrders(_ context.Context, userID string) []shop.Order {
	return []shop.Order{{ID: "o-1", UserID: userID, Status: shop.StatusPending}}
}

func (f *fakeShop) FetchCartItems(context.Context, string) []shop.CartLine { return nil }

func (f *fakeShop) SaveCartItem(_ context.Context, _, _ string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, qty)
	return f.saveErr
}

func (f *fakeShop) RemoveCartItem(context.Context, string, string) error { return nil }

func (f *fakeShop) ClearCart(context.Context, string) error { return nil }

func (f *fakeShop) CreateOrder(_ context.Context, req shop.OrderRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.orderErr != nil {
		return "", f.orderErr
	}
	return "o-42", nil
}

type healthStub struct{ ok bool }

func (h healthStub) Check(context.Context) clients.HealthResult {
	return clients.HealthResult{Name: "primary", OK: h.ok}
}

func newTestRouter(t *testing.T, f *fakeShop) (http.Handler, *cart.Registry) {
	t.Helper()
	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	carts := cart.NewRegistry(f, cart.WithLogger(logger))
	h := NewHandler(f, carts, healthStub{ok: false}, logger)
	return NewRouter(h, RouterConfig{Logger: logger, Gatherer: reg}), carts
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sessionID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var mug = shop.Product{ID: "1", Name: "Mug", Price: decimal.NewFromInt(10), Category: "Kitchen", Rating: 4}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &fakeShop{})
	rec := do(t, router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[healthResponse](t, rec)
	require.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Primary)
	require.False(t, resp.Primary.OK)
	require.NotEmpty(t, rec.Header().Get(middleware.HeaderCorrelationID))
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeShop{})
	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListProducts(t *testing.T) {
	f := &fakeShop{products: []shop.Product{
		mug,
		{ID: "2", Name: "Shovel", Price: decimal.NewFromInt(30), Category: "Garden", Rating: 3},
		{ID: "3", Name: "Big Mug", Price: decimal.NewFromInt(15), Category: "Kitchen", Rating: 5},
	}}
	router, _ := newTestRouter(t, f)

	rec := do(t, router, http.MethodGet, "/api/products?category=Kitchen&sort=price_high_to_low", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]shop.Product](t, rec)
	require.Len(t, got, 2)
	require.Equal(t, "3", got[0].ID)

	rec = do(t, router, http.MethodGet, "/api/products?q=mug&maxPrice=12", nil)
	got = decode[[]shop.Product](t, rec)
	require.Len(t, got, 1)
	require.Equal(t, "1", got[0].ID)

	for _, q := range []string{"sort=random", "minPrice=abc", "minRating=high"} {
		rec = do(t, router, http.MethodGet, "/api/products?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestCategories(t *testing.T) {
	router, _ := newTestRouter(t, &fakeShop{})
	rec := do(t, router, http.MethodGet, "/api/categories", nil)
	require.Equal(t, []string{"Kitchen", "Garden"}, decode[[]string](t, rec))
}

func TestSignInBindsCartAndCheckout(t *testing.T) {
	f := &fakeShop{}
	router, carts := newTestRouter(t, f)

	rec := do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: mug.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, f.saves, "guest add stays local")

	rec = do(t, router, http.MethodPost, "/api/checkout", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/auth/signin", credentials{Email: "a@b.c", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", carts.Get(sessionID).UserID())

	rec = do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: mug.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: mug.ID})
	c := decode[cartResponse](t, rec)
	require.Equal(t, 2, c.Count)
	require.True(t, decimal.NewFromInt(20).Equal(c.Total))
	require.Equal(t, []int{1, 2}, f.saves)

	rec = do(t, router, http.MethodPost, "/api/checkout", cart.CheckoutRequest{ShippingAddress: "1 Main St"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "o-42", decode[checkoutResponse](t, rec).OrderID)

	rec = do(t, router, http.MethodGet, "/api/cart", nil)
	require.Equal(t, 0, decode[cartResponse](t, rec).Count)

	rec = do(t, router, http.MethodPost, "/api/checkout", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartErrors(t *testing.T) {
	f := &fakeShop{user: &shop.AuthUser{ID: "u1"}}
	router, _ := newTestRouter(t, f)

	rec := do(t, router, http.MethodPut, "/api/cart/items/404", updateItemRequest{Quantity: 2})
	require.Equal(t, http.StatusNotFound, rec.Code)

	f.saveErr = &shop.PersistenceError{Op: "save cart item", Err: errors.New("down")}
	rec = do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: mug.ID})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[middleware.ErrorResponse](t, rec)
	require.Equal(t, http.StatusText(http.StatusBadGateway), resp.Error)
	require.NotEmpty(t, resp.CorrelationID)

	rec = do(t, router, http.MethodGet, "/api/cart", nil)
	require.Equal(t, 0, decode[cartResponse](t, rec).Count, "failed add reverted")

	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader("{"))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sessionID})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddItem_PricesFromCatalog(t *testing.T) {
	f := &fakeShop{user: &shop.AuthUser{ID: "u1"}}
	router, _ := newTestRouter(t, f)

	tampered := `{"productId":"1","product":{"id":"1","name":"Mug","price":"0.01"},"price":"0.01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(tampered))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sessionID})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	c := decode[cartResponse](t, w)
	require.True(t, mug.Price.Equal(c.Total), "total %s", c.Total)

	rec := do(t, router, http.MethodPost, "/api/checkout", cart.CheckoutRequest{ShippingAddress: "1 Main St"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.orders, 1)
	require.Len(t, f.orders[0].Items, 1)
	require.True(t, mug.Price.Equal(f.orders[0].Items[0].Price), "order price %s", f.orders[0].Items[0].Price)
	require.True(t, f.orders[0].TotalAmount.GreaterThanOrEqual(mug.Price))
}

func TestAddItem_UnknownProduct(t *testing.T) {
	f := &fakeShop{user: &shop.AuthUser{ID: "u1"}}
	router, _ := newTestRouter(t, f)

	rec := do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: "999"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, f.saves)

	rec = do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndRemove(t *testing.T) {
	f := &fakeShop{user: &shop.AuthUser{ID: "u1"}}
	router, _ := newTestRouter(t, f)
	do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: mug.ID})

	rec := do(t, router, http.MethodPut, "/api/cart/items/1", updateItemRequest{Quantity: 4})
	require.Equal(t, 4, decode[cartResponse](t, rec).Count)

	rec = do(t, router, http.MethodPut, "/api/cart/items/1", updateItemRequest{Quantity: 0})
	require.Equal(t, 0, decode[cartResponse](t, rec).Count)

	do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: mug.ID})
	rec = do(t, router, http.MethodDelete, "/api/cart/items/1", nil)
	require.Equal(t, 0, decode[cartResponse](t, rec).Count)

	do(t, router, http.MethodPost, "/api/cart/items", addItemRequest{ProductID: mug.ID})
	rec = do(t, router, http.MethodDelete, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, decode[cartResponse](t, rec).Count)
}

func TestAuthEndpoints(t *testing.T) {
	f := &fakeShop{signIn: func(string, string) (*shop.AuthUser, error) {
		return nil, shop.NewAuthError(shop.ErrInvalidCredentials)
	}}
	router, carts := newTestRouter(t, f)

	rec := do(t, router, http.MethodPost, "/api/auth/signin", credentials{Email: "a@b.c", Password: "bad"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, decode[userResponse](t, rec).User)

	rec = do(t, router, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/auth/signup", shop.SignUpData{Email: "n@b.c", Password: "pw"})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "u2", carts.Get(sessionID).UserID())

	rec = do(t, router, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]shop.Order](t, rec), 1)

	rec = do(t, router, http.MethodPost, "/api/auth/signout", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, carts.Get(sessionID).UserID())
}

func TestSessionCookieIssued(t *testing.T) {
	router, _ := newTestRouter(t, &fakeShop{})
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var found bool
	for _, c := range rec.Result().Cookies() {
		found = found || c.Name == middleware.SessionCookie
	}
	require.True(t, found)
}
