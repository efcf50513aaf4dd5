package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

type CatalogClient struct{ c *Client }

func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{c: c} }

func (cc *CatalogClient) ListProducts(ctx context.Context) ([]shop.Product, error) {
	var out []shop.Product
	if err := cc.c.doJSON(ctx, http.MethodGet, "/products", callOpts{}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one product. A 404 is reported as shop.ErrNotFound.
func (cc *CatalogClient) Get(ctx context.Context, id string) (*shop.Product, error) {
	var p shop.Product
	err := cc.c.doJSON(ctx, http.MethodGet, "/products/"+url.PathEscape(id), callOpts{}, nil, &p)
	var serr *StatusError
	if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("product %s: %w", id, shop.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("product %s: malformed response", id)
	}
	return &p, nil
}

func (cc *CatalogClient) Search(ctx context.Context, query string) ([]shop.Product, error) {
	var out []shop.Product
	q := url.Values{"q": {query}}.Encode()
	if err := cc.c.doJSON(ctx, http.MethodGet, "/products/search", callOpts{query: q}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (cc *CatalogClient) ListCategories(ctx context.Context) ([]string, error) {
	var cats []shop.Category
	if err := cc.c.doJSON(ctx, http.MethodGet, "/categories", callOpts{}, nil, &cats); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names, nil
}
