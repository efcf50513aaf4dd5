package hosted

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

func newUUID() string { return uuid.NewString() }

// CreateOrder writes the order and its items and clears the user's cart in one transaction.
func (b *Backend) CreateOrder(ctx context.Context, req shop.OrderRequest) (string, error) {
	req = req.WithDefaults()
	orderID := b.newID()

	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, shipping_address, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		orderID, req.UserID, req.TotalAmount, string(shop.StatusPending), req.ShippingAddress, req.PaymentMethod, b.now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for _, it := range req.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)`,
			b.newID(), orderID, it.ProductID, it.Quantity, it.Price,
		)
		if err != nil {
			return "", fmt.Errorf("insert order_item: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, req.UserID); err != nil {
		return "", fmt.Errorf("clear cart_items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return orderID, nil
}

func (b *Backend) Orders(ctx context.Context, userID string) ([]shop.Order, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, user_id, total_amount, status, shipping_address, payment_method, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids = append(ids, o.ID)
		index[o.ID] = i
	}
	itemRows, err := b.pool.Query(ctx, `
		SELECT order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, product_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID string
		var it shop.OrderItem
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return orders, nil
}

func scanOrders(rows pgx.Rows) ([]shop.Order, error) {
	defer rows.Close()

	orders := []shop.Order{}
	for rows.Next() {
		var o shop.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &o.ShippingAddress, &o.PaymentMethod, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = shop.Status(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return orders, nil
}
