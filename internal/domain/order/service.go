package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/orders-service/internal/domain/product"
)

// Sentinel errors for order validation and queries.
var (
	ErrEmptyProducts          = errors.New("products required")
	ErrUserRequired           = errors.New("user_id required")
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrNegativeDeliveryCharge = errors.New("delivery charge must not be negative")
	ErrInvalidDate            = errors.New("invalid date format, use YYYY-MM-DD")
	ErrNoOrders               = errors.New("no orders found")
)

// ProductNotFoundError indicates a referenced product does not exist in the
// catalog. No part of the order is persisted when this is returned.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a requested line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductRequest is one requested line in a create-order request.
type ProductRequest struct {
	ProductID string
	Quantity  int
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	UserID          string
	Products        []ProductRequest
	ShippingDate    time.Time
	DeliveryDate    time.Time
	Status          Status
	DeliveryCharge  decimal.Decimal
	PaymentMethod   string
	ShippingAddress string
}

// CreateOrderResult holds the persisted order and its lines.
type CreateOrderResult struct {
	Order *Order
	Lines []Line
}

// Service encapsulates the order-creation workflow and the order queries.
type Service struct {
	products product.Repository
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		orders:   orders,
	}
}

// Create resolves every requested product to its current catalog price,
// computes the order totals, and persists the header together with all lines
// in one atomic unit.
//
// Products are resolved sequentially in input order: the first unknown id
// aborts the whole workflow before anything is written. Line prices are
// snapshots of the catalog price at this moment; later catalog updates must
// not affect the stored lines.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if req.UserID == "" {
		return nil, ErrUserRequired
	}
	if len(req.Products) == 0 {
		return nil, ErrEmptyProducts
	}
	if !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if req.DeliveryCharge.IsNegative() {
		return nil, ErrNegativeDeliveryCharge
	}

	orderID := uuid.New().String()

	// Resolve products and accumulate the total, capturing unit prices now.
	lines := make([]Line, 0, len(req.Products))
	totalPrice := decimal.Zero
	for _, pr := range req.Products {
		if pr.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: pr.ProductID}
		}

		p, err := s.products.GetByID(ctx, pr.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: pr.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", pr.ProductID)
		}

		qty := decimal.NewFromInt(int64(pr.Quantity))
		totalPrice = totalPrice.Add(p.Price.Mul(qty))

		lines = append(lines, Line{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: pr.ProductID,
			Quantity:  pr.Quantity,
			UnitPrice: p.Price,
		})
	}

	totalPrice = totalPrice.Round(2)
	totalAmount := totalPrice.Add(req.DeliveryCharge).Round(2)

	o := &Order{
		ID:              orderID,
		UserID:          req.UserID,
		ShippingDate:    req.ShippingDate,
		DeliveryDate:    req.DeliveryDate,
		Status:          req.Status,
		TotalPrice:      totalPrice,
		DeliveryCharge:  req.DeliveryCharge,
		TotalAmount:     totalAmount,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       time.Now(),
	}

	if err := s.orders.CreateWithLines(ctx, o, lines); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &CreateOrderResult{
		Order: o,
		Lines: lines,
	}, nil
}

// List returns all orders, newest first. An empty result is not an error.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// ListByStatus returns orders with the given status, or ErrNoOrders when
// none match.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	orders, err := s.orders.ListByStatus(ctx, status)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders by status %s", status)
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

// ListByUser returns orders placed by the given user, or ErrNoOrders when
// none match.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders by user %s", userID)
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

// ListByDate returns orders created on the given calendar date. The date must
// be a zero-padded YYYY-MM-DD string; anything else is ErrInvalidDate.
func (s *Service) ListByDate(ctx context.Context, date string) ([]Order, error) {
	day, err := ParseDay(date)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.ListByDate(ctx, day)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders by date %s", date)
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

// ParseDay parses a strict zero-padded YYYY-MM-DD calendar date. The length
// check rejects unpadded inputs like "2024-3-1" up front and keeps the error
// uniform.
func ParseDay(date string) (time.Time, error) {
	if len(date) != len("2006-01-02") {
		return time.Time{}, ErrInvalidDate
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}
