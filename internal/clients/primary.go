package clients

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

// Primary is the REST backend as seen by the storefront facade.
type Primary struct {
	Auth    *AuthClient
	Catalog *CatalogClient
	Cart    *CartClient
	Order   *OrderClient
}

func NewPrimary(c *Client) *Primary {
	return &Primary{
		Auth:    NewAuthClient(c),
		Catalog: NewCatalogClient(c),
		Cart:    NewCartClient(c),
		Order:   NewOrderClient(c),
	}
}

func (p *Primary) SignIn(ctx context.Context, email, password string) (*shop.AuthUser, error) {
	return p.Auth.Login(ctx, email, password)
}

func (p *Primary) SignUp(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error) {
	return p.Auth.Register(ctx, data)
}

func (p *Primary) SignOut(ctx context.Context) error { return p.Auth.Logout(ctx) }

func (p *Primary) CurrentUser(ctx context.Context) (*shop.AuthUser, error) { return p.Auth.Me(ctx) }

func (p *Primary) Products(ctx context.Context) ([]shop.Product, error) {
	return p.Catalog.ListProducts(ctx)
}

func (p *Primary) Product(ctx context.Context, id string) (*shop.Product, error) {
	return p.Catalog.Get(ctx, id)
}

func (p *Primary) Categories(ctx context.Context) ([]string, error) {
	return p.Catalog.ListCategories(ctx)
}

func (p *Primary) SearchProducts(ctx context.Context, query string) ([]shop.Product, error) {
	return p.Catalog.Search(ctx, query)
}

func (p *Primary) CartItems(ctx context.Context, userID string) ([]shop.CartLine, error) {
	return p.Cart.GetCart(ctx, userID)
}

func (p *Primary) SaveCartItem(ctx context.Context, userID, productID string, quantity int) error {
	return p.Cart.SetItem(ctx, userID, productID, quantity)
}

func (p *Primary) RemoveCartItem(ctx context.Context, userID, productID string) error {
	return p.Cart.RemoveItem(ctx, userID, productID)
}

func (p *Primary) ClearCart(ctx context.Context, userID string) error {
	return p.Cart.Clear(ctx, userID)
}

func (p *Primary) CreateOrder(ctx context.Context, req shop.OrderRequest) (string, error) {
	return p.Order.Create(ctx, req)
}

func (p *Primary) Orders(ctx context.Context, userID string) ([]shop.Order, error) {
	return p.Order.ListByUser(ctx, userID)
}
