package domain

import (
	"time"

	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// Order statuses
const (
	OrderPending    lifecycle.Status = "pending"
	OrderProcessing lifecycle.Status = "processing"
	OrderShipped    lifecycle.Status = "shipped"
	OrderDelivered  lifecycle.Status = "delivered"
	OrderCancelled  lifecycle.Status = "cancelled"
)

// OrderLifecycle governs product orders. Shipped orders are not terminal but
// can no longer be cancelled by the customer.
var OrderLifecycle = lifecycle.New(lifecycle.Config{
	Name:     "order",
	States:   []lifecycle.Status{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	Initial:  OrderPending,
	Terminal: []lifecycle.Status{OrderDelivered, OrderCancelled},
	Transitions: map[lifecycle.Status][]lifecycle.Status{
		OrderPending:    {OrderProcessing, OrderCancelled},
		OrderProcessing: {OrderShipped, OrderCancelled},
		OrderShipped:    {OrderDelivered},
	},
	Cancellable: []lifecycle.Status{OrderPending, OrderProcessing},
	CancelTo:    OrderCancelled,
	CancelRefusals: map[lifecycle.Status]string{
		OrderShipped: "cannot cancel an order that has already been shipped, please contact support",
	},
	Editable: []lifecycle.Status{OrderPending, OrderProcessing},
})

// PaymentMethod selects which payment fields apply
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentCashOnDelivery PaymentMethod = "cod"
)

// OrderItem is one line of an order. Name, price and image are a snapshot
// of the catalogue entry at checkout time.
type OrderItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Image     string
}

// Subtotal returns price x quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is where an order is delivered
type ShippingAddress struct {
	FullName string
	Email    string
	Address  string
	City     string
	State    string
	ZipCode  string
}

// Payment is the persisted, masked payment descriptor. Card numbers are
// reduced to their last four digits and the CVV is never stored.
type Payment struct {
	Method     PaymentMethod
	Last4      string
	ExpiryDate string
}

// Order represents a product checkout
type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	Payment         Payment
	TotalAmount     decimal.Decimal
	Status          lifecycle.Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderTotal sums the line items
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
