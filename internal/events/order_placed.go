package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

const orderPlacedEventType = "OrderPlaced"

type OrderPlaced struct {
	EventType       string          `json:"eventType"`
	OrderID         string          `json:"orderId"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress,omitempty"`
	PaymentMethod   string          `json:"paymentMethod"`
	CorrelationID   string          `json:"correlationId,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func newOrderPlaced(orderID string, req shop.OrderRequest, correlationID string, now time.Time) OrderPlaced {
	ev := OrderPlaced{
		EventType:       orderPlacedEventType,
		OrderID:         orderID,
		UserID:          req.UserID,
		Items:           make([]OrderItem, 0, len(req.Items)),
		TotalAmount:     req.TotalAmount,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		CorrelationID:   correlationID,
		Timestamp:       now.UTC(),
	}
	for _, it := range req.Items {
		ev.Items = append(ev.Items, OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return ev
}
