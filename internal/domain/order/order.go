package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is the order header: everything about an order except its lines.
// TotalAmount is always TotalPrice + DeliveryCharge, computed at creation
// time and never supplied by the caller.
type Order struct {
	ID              string
	UserID          string
	ShippingDate    time.Time
	DeliveryDate    time.Time
	Status          Status
	TotalPrice      decimal.Decimal
	DeliveryCharge  decimal.Decimal
	TotalAmount     decimal.Decimal
	PaymentMethod   string
	ShippingAddress string
	CreatedAt       time.Time
}

// Line is a single product entry belonging to an order. UnitPrice is the
// catalog price captured when the order was created, independent of later
// catalog changes.
type Line struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	// CreateWithLines persists the order header and all of its lines as a
	// single atomic unit. Either everything is committed or nothing is.
	CreateWithLines(ctx context.Context, o *Order, lines []Line) error

	// List returns all orders, newest first by creation timestamp.
	List(ctx context.Context) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListByDate returns orders whose creation date (calendar date in the
	// storage timezone, ignoring time of day) equals day.
	ListByDate(ctx context.Context, day time.Time) ([]Order, error)
}
