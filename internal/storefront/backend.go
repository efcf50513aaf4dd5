package storefront

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

// Backend is one persistence provider. The REST client and the hosted store both implement it.
type Backend interface {
	SignIn(ctx context.Context, email, password string) (*shop.AuthUser, error)
	SignUp(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*shop.AuthUser, error)

	Products(ctx context.Context) ([]shop.Product, error)
	Product(ctx context.Context, id string) (*shop.Product, error)
	Categories(ctx context.Context) ([]string, error)
	SearchProducts(ctx context.Context, query string) ([]shop.Product, error)

	CartItems(ctx context.Context, userID string) ([]shop.CartLine, error)
	SaveCartItem(ctx context.Context, userID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error

	CreateOrder(ctx context.Context, req shop.OrderRequest) (string, error)
	Orders(ctx context.Context, userID string) ([]shop.Order, error)
}

type Prober interface {
	Available(ctx context.Context) bool
}
