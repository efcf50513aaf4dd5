package hosted

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

func (b *Backend) CartItems(ctx context.Context, userID string) ([]shop.CartLine, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT p.id, p.name, p.price, p.image, p.category, p.rating, p.description, c.quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	lines := []shop.CartLine{}
	for rows.Next() {
		var l shop.CartLine
		p := &l.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Category, &p.Rating, &p.Description, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

// SaveCartItem stores the absolute quantity, keyed by (user_id, product_id).
func (b *Backend) SaveCartItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return shop.NewValidationError("quantity", errors.New("must be at least 1"))
	}
	_, err := b.pool.Exec(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
	`, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upsert cart_item: %w", err)
	}
	return nil
}

func (b *Backend) RemoveCartItem(ctx context.Context, userID, productID string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID); err != nil {
		return fmt.Errorf("delete cart_item: %w", err)
	}
	return nil
}

func (b *Backend) ClearCart(ctx context.Context, userID string) error {
	if _, err := b.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart_items: %w", err)
	}
	return nil
}
