package cart

import (
	"context"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

type saveCall struct {
	UserID    string
	ProductID string
	Quantity  int
}

type fakeFacade struct {
	mu sync.Mutex

	items   []shop.CartLine
	saves   []saveCall
	removes []string
	clears  int
	orders  []shop.OrderRequest

	saveFn   func(ctx context.Context, c saveCall) error
	removeFn func(ctx context.Context, productID string) error
	clearFn  func(ctx context.Context) error
	orderFn  func(ctx context.Context, req shop.OrderRequest) (string, error)
}

func (f *fakeFacade) FetchCartItems(context.Context, string) []shop.CartLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]shop.CartLine{}, f.items...)
}

func (f *fakeFacade) SaveCartItem(ctx context.Context, userID, productID string, quantity int) error {
	c := saveCall{UserID: userID, ProductID: productID, Quantity: quantity}
	f.mu.Lock()
	f.saves = append(f.saves, c)
	fn := f.saveFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, c)
	}
	return nil
}

func (f *fakeFacade) RemoveCartItem(ctx context.Context, _, productID string) error {
	f.mu.Lock()
	f.removes = append(f.removes, productID)
	fn := f.removeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, productID)
	}
	return nil
}

func (f *fakeFacade) ClearCart(ctx context.Context, _ string) error {
	f.mu.Lock()
	f.clears++
	fn := f.clearFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (f *fakeFacade) CreateOrder(ctx context.Context, req shop.OrderRequest) (string, error) {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	fn := f.orderFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return "order-1", nil
}

func (f *fakeFacade) savedQuantities() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, 0, len(f.saves))
	for _, s := range f.saves {
		out = append(out, s.Quantity)
	}
	return out
}

func (f *fakeFacade) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves) + len(f.removes) + f.clears + len(f.orders)
}

type notifierFunc func(ctx context.Context, orderID string, req shop.OrderRequest) error

func (fn notifierFunc) NotifyOrderPlaced(ctx context.Context, orderID string, req shop.OrderRequest) error {
	return fn(ctx, orderID, req)
}
