package hosted

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

const productColumns = `id, name, price, image, category, rating, description`

func (b *Backend) Products(ctx context.Context) ([]shop.Product, error) {
	rows, err := b.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return collectProducts(rows)
}

// Product returns shop.ErrNotFound when no product has the id.
func (b *Backend) Product(ctx context.Context, id string) (*shop.Product, error) {
	var p shop.Product
	err := b.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Category, &p.Rating, &p.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, shop.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

// SearchProducts matches the query against name and description, case-insensitively.
func (b *Backend) SearchProducts(ctx context.Context, query string) ([]shop.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return b.Products(ctx)
	}
	rows, err := b.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE name ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\'
		ORDER BY id`, likePattern(query))
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return collectProducts(rows)
}

func (b *Backend) Categories(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	return names, nil
}

func collectProducts(rows pgx.Rows) ([]shop.Product, error) {
	defer rows.Close()

	out := []shop.Product{}
	for rows.Next() {
		var p shop.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Category, &p.Rating, &p.Description); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
