package storefront

import (
	"context"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

// BackendMock records calls by name. Nil funcs succeed with zero values.
type BackendMock struct {
	mu    sync.Mutex
	calls []string

	SignInFunc         func(ctx context.Context, email, password string) (*shop.AuthUser, error)
	SignUpFunc         func(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error)
	SignOutFunc        func(ctx context.Context) error
	CurrentUserFunc    func(ctx context.Context) (*shop.AuthUser, error)
	ProductsFunc       func(ctx context.Context) ([]shop.Product, error)
	ProductFunc        func(ctx context.Context, id string) (*shop.Product, error)
	CategoriesFunc     func(ctx context.Context) ([]string, error)
	SearchFunc         func(ctx context.Context, q string) ([]shop.Product, error)
	CartItemsFunc      func(ctx context.Context, userID string) ([]shop.CartLine, error)
	SaveCartItemFunc   func(ctx context.Context, userID, productID string, qty int) error
	RemoveCartItemFunc func(ctx context.Context, userID, productID string) error
	ClearCartFunc      func(ctx context.Context, userID string) error
	CreateOrderFunc    func(ctx context.Context, req shop.OrderRequest) (string, error)
	OrdersFunc         func(ctx context.Context, userID string) ([]shop.Order, error)
}

func (m *BackendMock) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

func (m *BackendMock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *BackendMock) SignIn(ctx context.Context, email, password string) (*shop.AuthUser, error) {
	m.record("SignIn")
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return &shop.AuthUser{ID: "u1", Email: email}, nil
}

func (m *BackendMock) SignUp(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error) {
	m.record("SignUp")
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, data)
	}
	return &shop.AuthUser{ID: "u1", Email: data.Email}, nil
}

func (m *BackendMock) SignOut(ctx context.Context) error {
	m.record("SignOut")
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return nil
}

func (m *BackendMock) CurrentUser(ctx context.Context) (*shop.AuthUser, error) {
	m.record("CurrentUser")
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx)
	}
	return nil, nil
}

func (m *BackendMock) Products(ctx context.Context) ([]shop.Product, error) {
	m.record("Products")
	if m.ProductsFunc != nil {
		return m.ProductsFunc(ctx)
	}
	return nil, nil
}

func (m *BackendMock) Product(ctx context.Context, id string) (*shop.Product, error) {
	m.record("Product")
	if m.ProductFunc != nil {
		return m.ProductFunc(ctx, id)
	}
	return &shop.Product{ID: id}, nil
}

func (m *BackendMock) Categories(ctx context.Context) ([]string, error) {
	m.record("Categories")
	if m.CategoriesFunc != nil {
		return m.CategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *BackendMock) SearchProducts(ctx context.Context, q string) ([]shop.Product, error) {
	m.record("SearchProducts")
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, q)
	}
	return nil, nil
}

func (m *BackendMock) CartItems(ctx context.Context, userID string) ([]shop.CartLine, error) {
	m.record("CartItems")
	if m.CartItemsFunc != nil {
		return m.CartItemsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *BackendMock) SaveCartItem(ctx context.Context, userID, productID string, qty int) error {
	m.record("SaveCartItem")
	if m.SaveCartItemFunc != nil {
		return m.SaveCartItemFunc(ctx, userID, productID, qty)
	}
	return nil
}

func (m *BackendMock) RemoveCartItem(ctx context.Context, userID, productID string) error {
	m.record("RemoveCartItem")
	if m.RemoveCartItemFunc != nil {
		return m.RemoveCartItemFunc(ctx, userID, productID)
	}
	return nil
}

func (m *BackendMock) ClearCart(ctx context.Context, userID string) error {
	m.record("ClearCart")
	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx, userID)
	}
	return nil
}

func (m *BackendMock) CreateOrder(ctx context.Context, req shop.OrderRequest) (string, error) {
	m.record("CreateOrder")
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return "order-1", nil
}

func (m *BackendMock) Orders(ctx context.Context, userID string) ([]shop.Order, error) {
	m.record("Orders")
	if m.OrdersFunc != nil {
		return m.OrdersFunc(ctx, userID)
	}
	return nil, nil
}

type probeStub struct {
	mu    sync.Mutex
	up    bool
	calls int
}

func (p *probeStub) Available(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.up
}
