package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

func (oc *OrderClient) Create(ctx context.Context, req shop.OrderRequest) (string, error) {
	var resp createOrderResponse
	if err := oc.c.doJSON(ctx, http.MethodPost, "/orders", callOpts{authenticated: true}, req, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", errors.New("create order response missing orderId")
	}
	return resp.OrderID, nil
}

func (oc *OrderClient) ListByUser(ctx context.Context, userID string) ([]shop.Order, error) {
	var out []shop.Order
	if err := oc.c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(userID), callOpts{authenticated: true}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
