package domain

import (
	"crypto/rand"
	"strconv"
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderPaid, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return OrderStatus(s), true
	default:
		return "", false
	}
}

const (
	PaymentSucceeded = "succeeded"

	FreeShippingThreshold = 100.0
	FlatShippingCost      = 10.0
	TaxRate               = 0.08
)

func ShippingFor(subtotal float64) float64 {
	if subtotal > FreeShippingThreshold {
		return 0
	}
	return FlatShippingCost
}

func TaxFor(subtotal float64) float64 {
	return subtotal * TaxRate
}

// OrderItem is a snapshot of a product at purchase time, decoupled from the
// live catalog so later edits cannot alter a placed order.
type OrderItem struct {
	ProductID       int64   `json:"productId"`
	Title           string  `json:"title"`
	Image           string  `json:"image"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"priceAtPurchase"`
}

type Order struct {
	ID              int64       `json:"id"`
	OrderNumber     string      `json:"orderNumber"`
	UserID          int64       `json:"userId"`
	Items           []OrderItem `json:"items"`
	Subtotal        float64     `json:"subtotal"`
	ShippingCost    float64     `json:"shippingCost"`
	Tax             float64     `json:"tax"`
	Total           float64     `json:"total"`
	ShippingAddress Address     `json:"shippingAddress"`
	Notes           string      `json:"notes,omitempty"`
	Status          OrderStatus `json:"status"`
	PaymentIntentID *string     `json:"paymentIntentId,omitempty"`
	PaymentStatus   *string     `json:"paymentStatus,omitempty"`
	TrackingNumber  *string     `json:"trackingNumber,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func (o *Order) IsOwner(userID int64) bool {
	return o.UserID == userID
}

type CreateOrderItem struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Address           `json:"shippingAddress"`
	Notes           string            `json:"notes"`
}

type OrderPage struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	OrderID      int64  `json:"orderId"`
}

// Uppercase alphanumerics with ambiguous glyphs removed.
const orderNumberCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderNumber generates a human-facing order reference like ORD-7KQ2M4XH.
func NewOrderNumber() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "ORD-" + strconv.FormatInt(time.Now().Unix(), 10)
	}
	for i := range b {
		b[i] = orderNumberCharset[int(b[i])%len(orderNumberCharset)]
	}
	return "ORD-" + string(b)
}
