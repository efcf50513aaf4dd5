package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

type CartClient struct{ c *Client }

func NewCartClient(c *Client) *CartClient { return &CartClient{c: c} }

type cartResponse struct {
	Items []shop.CartLine `json:"items"`
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (cc *CartClient) GetCart(ctx context.Context, userID string) ([]shop.CartLine, error) {
	var resp cartResponse
	if err := cc.c.doJSON(ctx, http.MethodGet, "/cart/"+url.PathEscape(userID), callOpts{authenticated: true}, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []shop.CartLine{}, nil
	}
	return resp.Items, nil
}

// SetItem stores the absolute quantity for a product.
func (cc *CartClient) SetItem(ctx context.Context, userID, productID string, quantity int) error {
	return cc.c.doJSON(ctx, http.MethodPost, "/cart/"+url.PathEscape(userID)+"/items", callOpts{authenticated: true},
		cartItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (cc *CartClient) RemoveItem(ctx context.Context, userID, productID string) error {
	return cc.c.doJSON(ctx, http.MethodDelete, "/cart/"+url.PathEscape(userID)+"/items/"+url.PathEscape(productID),
		callOpts{authenticated: true}, nil, nil)
}

func (cc *CartClient) Clear(ctx context.Context, userID string) error {
	return cc.c.doJSON(ctx, http.MethodDelete, "/cart/"+url.PathEscape(userID), callOpts{authenticated: true}, nil, nil)
}
