package shop

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultPaymentMethod = "credit_card"

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Rating      float64         `json:"rating"`
	Description string          `json:"description"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartLine pairs a product with a quantity. Quantity is always >= 1 once stored in a cart.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderItem is the price-at-time-of-order snapshot of a cart line.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderRequest struct {
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
}

// WithDefaults fills the payment method when the caller left it empty.
func (r OrderRequest) WithDefaults() OrderRequest {
	if r.PaymentMethod == "" {
		r.PaymentMethod = DefaultPaymentMethod
	}
	return r
}

type Order struct {
	ID              string          `json:"orderId"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type AuthUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type SignUpData struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func OrderItemsFromLines(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
		})
	}
	return items
}

func LinesTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func LinesCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
