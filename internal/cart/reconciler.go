package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

// Facade is the subset of the data-access facade the cart writes through.
type Facade interface {
	FetchCartItems(ctx context.Context, userID string) []shop.CartLine
	SaveCartItem(ctx context.Context, userID, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
	ClearCart(ctx context.Context, userID string) error
	CreateOrder(ctx context.Context, req shop.OrderRequest) (string, error)
}

// CheckoutNotifier is told about every placed order. Its errors never fail a checkout.
type CheckoutNotifier interface {
	NotifyOrderPlaced(ctx context.Context, orderID string, req shop.OrderRequest) error
}

type CheckoutRequest struct {
	ShippingAddress string              `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	Shipping        shop.ShippingMethod `json:"shipping"`
}

type Option func(*Reconciler)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

func WithNotifier(n CheckoutNotifier) Option {
	return func(r *Reconciler) { r.notifier = n }
}

// Reconciler owns one session's in-memory cart. Mutations are applied locally first, written through
// the facade, and reverted if the write fails. Mutations of the same product run one at a time.
// Whole-cart operations (hydrate, clear, checkout) wait for in-flight line mutations and hold
// new ones off until they finish.
type Reconciler struct {
	facade   Facade
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier CheckoutNotifier

	lanes *lanes
	// gate is held shared by line mutations and exclusively by whole-cart operations.
	gate sync.RWMutex

	mu     sync.Mutex
	userID string
	lines  []shop.CartLine
}

// New returns an empty cart. An empty userID makes a guest cart whose mutations stay local.
func New(facade Facade, userID string, opts ...Option) *Reconciler {
	r := &Reconciler{
		facade: facade,
		logger: slog.Default(),
		lanes:  newLanes(),
		userID: userID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) UserID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

// Hydrate replaces the local lines with the persisted cart. Guest carts are left as they are.
func (r *Reconciler) Hydrate(ctx context.Context) {
	r.gate.Lock()
	defer r.gate.Unlock()
	r.hydrate(ctx)
}

func (r *Reconciler) hydrate(ctx context.Context) {
	userID := r.UserID()
	if userID == "" {
		return
	}
	lines := normalize(r.facade.FetchCartItems(ctx, userID))

	r.mu.Lock()
	r.lines = lines
	r.mu.Unlock()
}

// bind switches the cart to userID and loads that user's persisted lines.
func (r *Reconciler) bind(ctx context.Context, userID string) {
	r.gate.Lock()
	defer r.gate.Unlock()

	r.mu.Lock()
	r.userID = userID
	if userID == "" {
		r.lines = nil
	}
	r.mu.Unlock()
	r.hydrate(ctx)
}

// AddToCart adds one unit of p and persists the resulting total quantity.
func (r *Reconciler) AddToCart(ctx context.Context, p shop.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return shop.NewValidationError("product", errors.New("id is required"))
	}
	r.gate.RLock()
	defer r.gate.RUnlock()
	unlock := r.lanes.lock(p.ID)
	defer unlock()

	prior, userID := r.apply(p.ID, func(cur *shop.CartLine) *shop.CartLine {
		if cur == nil {
			return &shop.CartLine{Product: p, Quantity: 1}
		}
		next := *cur
		next.Quantity++
		return &next
	})
	if userID == "" {
		return nil
	}

	qty := 1
	if prior.present {
		qty = prior.line.Quantity + 1
	}
	if err := r.facade.SaveCartItem(ctx, userID, p.ID, qty); err != nil {
		r.revert(ctx, "add", prior, err)
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of an existing line. Quantities of zero or less remove the line.
func (r *Reconciler) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveFromCart(ctx, productID)
	}
	r.gate.RLock()
	defer r.gate.RUnlock()
	unlock := r.lanes.lock(productID)
	defer unlock()

	var missing bool
	prior, userID := r.apply(productID, func(cur *shop.CartLine) *shop.CartLine {
		if cur == nil {
			missing = true
			return nil
		}
		next := *cur
		next.Quantity = quantity
		return &next
	})
	if missing {
		return shop.NewValidationError("productId", shop.ErrNotFound)
	}
	if userID == "" {
		return nil
	}

	if err := r.facade.SaveCartItem(ctx, userID, productID, quantity); err != nil {
		r.revert(ctx, "update", prior, err)
		return fmt.Errorf("update quantity: %w", err)
	}
	return nil
}

// RemoveFromCart drops the line for productID. Removing an absent line is a no-op.
func (r *Reconciler) RemoveFromCart(ctx context.Context, productID string) error {
	r.gate.RLock()
	defer r.gate.RUnlock()
	unlock := r.lanes.lock(productID)
	defer unlock()

	prior, userID := r.apply(productID, func(*shop.CartLine) *shop.CartLine { return nil })
	if !prior.present || userID == "" {
		return nil
	}

	if err := r.facade.RemoveCartItem(ctx, userID, productID); err != nil {
		r.revert(ctx, "remove", prior, err)
		return fmt.Errorf("remove from cart: %w", err)
	}
	return nil
}

// Clear empties the cart. A failed write restores the lines it removed.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.gate.Lock()
	defer r.gate.Unlock()

	r.mu.Lock()
	snapshot := r.lines
	r.lines = nil
	userID := r.userID
	r.mu.Unlock()

	if len(snapshot) == 0 || userID == "" {
		return nil
	}

	if err := r.facade.ClearCart(ctx, userID); err != nil {
		r.mu.Lock()
		r.lines = snapshot
		r.mu.Unlock()
		r.metrics.Revert("clear")
		r.logger.WarnContext(ctx, "cart clear reverted", "user_id", userID, "error", err)
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Checkout places an order for the current lines and empties the cart once the order exists.
// A failed order leaves the cart untouched. Line mutations issued meanwhile apply after it.
func (r *Reconciler) Checkout(ctx context.Context, req CheckoutRequest) (string, error) {
	r.gate.Lock()
	defer r.gate.Unlock()

	lines, userID := r.snapshot()
	if len(lines) == 0 {
		return "", shop.NewValidationError("cart", shop.ErrEmptyCart)
	}
	if userID == "" {
		return "", shop.NewAuthError(shop.ErrNotAuthenticated)
	}
	shipping, err := shop.ShippingCost(req.Shipping)
	if err != nil {
		return "", err
	}

	order := shop.OrderRequest{
		UserID:          userID,
		Items:           shop.OrderItemsFromLines(lines),
		TotalAmount:     shop.LinesTotal(lines).Add(shipping),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}.WithDefaults()

	orderID, err := r.facade.CreateOrder(ctx, order)
	if err != nil {
		return "", fmt.Errorf("checkout: %w", err)
	}

	r.mu.Lock()
	r.lines = nil
	r.mu.Unlock()

	if err := r.facade.ClearCart(ctx, userID); err != nil {
		r.logger.WarnContext(ctx, "persisted cart not cleared after checkout", "order_id", orderID, "error", err)
	}
	if r.notifier != nil {
		if err := r.notifier.NotifyOrderPlaced(ctx, orderID, order); err != nil {
			r.logger.ErrorContext(ctx, "order placed notification failed", "order_id", orderID, "error", err)
		}
	}
	r.logger.InfoContext(ctx, "order placed", "order_id", orderID, "user_id", userID, "total", order.TotalAmount.String())
	return orderID, nil
}

// Lines returns a copy of the current lines in display order.
func (r *Reconciler) Lines() []shop.CartLine {
	lines, _ := r.snapshot()
	return lines
}

func (r *Reconciler) Total() decimal.Decimal {
	return shop.LinesTotal(r.Lines())
}

func (r *Reconciler) Count() int {
	return shop.LinesCount(r.Lines())
}

func (r *Reconciler) snapshot() ([]shop.CartLine, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shop.CartLine{}, r.lines...), r.userID
}

// priorLine is what a single-product mutation replaced.
type priorLine struct {
	productID string
	line      shop.CartLine
	index     int
	present   bool
}

// apply swaps the line for productID with next(current) under the state lock. A nil result removes
// the line. It returns the replaced line and the user the cart belongs to at that moment.
func (r *Reconciler) apply(productID string, next func(cur *shop.CartLine) *shop.CartLine) (priorLine, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := priorLine{productID: productID, index: indexOf(r.lines, productID)}
	var cur *shop.CartLine
	if prior.index >= 0 {
		prior.present = true
		prior.line = r.lines[prior.index]
		c := prior.line
		cur = &c
	}

	n := next(cur)
	switch {
	case n == nil && prior.present:
		r.lines = append(r.lines[:prior.index:prior.index], r.lines[prior.index+1:]...)
	case n != nil && prior.present:
		r.lines[prior.index] = *n
	case n != nil:
		r.lines = append(r.lines, *n)
	}
	return prior, r.userID
}

// revert puts the line for prior.productID back to what it was before the failed mutation.
func (r *Reconciler) revert(ctx context.Context, op string, prior priorLine, cause error) {
	r.mu.Lock()
	i := indexOf(r.lines, prior.productID)
	switch {
	case prior.present && i >= 0:
		r.lines[i] = prior.line
	case prior.present:
		r.lines = insertAt(r.lines, prior.index, prior.line)
	case i >= 0:
		r.lines = append(r.lines[:i:i], r.lines[i+1:]...)
	}
	r.mu.Unlock()

	r.metrics.Revert(op)
	r.logger.WarnContext(ctx, "cart mutation reverted", "op", op, "product_id", prior.productID, "error", cause)
}

func indexOf(lines []shop.CartLine, productID string) int {
	for i, l := range lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

func insertAt(lines []shop.CartLine, i int, l shop.CartLine) []shop.CartLine {
	if i > len(lines) {
		i = len(lines)
	}
	out := make([]shop.CartLine, 0, len(lines)+1)
	out = append(out, lines[:i]...)
	out = append(out, l)
	return append(out, lines[i:]...)
}

// normalize merges duplicate products and drops lines without a positive quantity.
func normalize(lines []shop.CartLine) []shop.CartLine {
	out := make([]shop.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 || l.Product.ID == "" {
			continue
		}
		if i := indexOf(out, l.Product.ID); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out
}
