package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/orders-service/internal/domain/order"
)

// orderProductJSON is one requested line in a create-order request.
type orderProductJSON struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// createOrderJSON is the create-order request body.
type createOrderJSON struct {
	UserID          string             `json:"user_id"`
	Products        []orderProductJSON `json:"products"`
	ShippingDate    time.Time          `json:"shipping_date"`
	DeliveryDate    time.Time          `json:"delivery_date"`
	Status          string             `json:"status"`
	DeliveryCharge  decimal.Decimal    `json:"delivery_charge"`
	PaymentMethod   string             `json:"payment_method"`
	ShippingAddress string             `json:"shipping_address"`
}

// orderJSON is the order header as returned to clients. Money fields are
// rendered as JSON numbers.
type orderJSON struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ShippingDate    time.Time `json:"shipping_date"`
	DeliveryDate    time.Time `json:"delivery_date"`
	Status          string    `json:"status"`
	TotalPrice      float64   `json:"total_price"`
	DeliveryCharge  float64   `json:"delivery_charge"`
	TotalAmount     float64   `json:"total_amount"`
	PaymentMethod   string    `json:"payment_method"`
	ShippingAddress string    `json:"shipping_address"`
	CreatedAt       time.Time `json:"created_at"`
}

// orderLineJSON is one persisted line item as returned to clients.
type orderLineJSON struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// createOrderResponse is the 201 body for a successfully created order.
type createOrderResponse struct {
	Message    string          `json:"message"`
	Order      orderJSON       `json:"order"`
	OrderItems []orderLineJSON `json:"orderItems"`
}

// CreateOrder handles POST /orders: it validates the request, resolves
// product prices, and persists the order header together with all lines.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	products := make([]order.ProductRequest, len(req.Products))
	for i, p := range req.Products {
		products[i] = order.ProductRequest{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
		}
	}

	result, err := h.orders.Create(r.Context(), order.CreateOrderRequest{
		UserID:          req.UserID,
		Products:        products,
		ShippingDate:    req.ShippingDate,
		DeliveryDate:    req.DeliveryDate,
		Status:          order.Status(req.Status),
		DeliveryCharge:  req.DeliveryCharge,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeCreateOrderError(w, r, err)
		return
	}

	lines := make([]orderLineJSON, len(result.Lines))
	for i, line := range result.Lines {
		lines[i] = orderLineJSON{
			ID:        line.ID,
			OrderID:   line.OrderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice.InexactFloat64(),
		}
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Message:    "Order created successfully",
		Order:      toOrderJSON(*result.Order),
		OrderItems: lines,
	})
}

// writeCreateOrderError maps order-creation domain errors to HTTP statuses:
// validation failures are 400, an unknown product is 422, everything else
// is an internal error.
func writeCreateOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrUserRequired),
		errors.Is(err, order.ErrEmptyProducts),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrNegativeDeliveryCharge):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: iqErr.Error()})
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: pnfErr.Error()})
		return
	}

	internalError(w, r, err)
}

// ListOrders handles GET /orders: all orders, newest first. An empty store
// yields an empty array, not an error.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListJSON(orders))
}

// ListOrdersByStatus handles GET /orders/status/{status}.
func (h *Handler) ListOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status := order.Status(chi.URLParam(r, "status"))

	orders, err := h.orders.ListByStatus(r.Context(), status)
	if err != nil {
		if errors.Is(err, order.ErrNoOrders) {
			writeMessage(w, http.StatusNotFound, "no orders found")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListJSON(orders))
}

// ListOrdersByUser handles GET /orders/user/{userID}.
func (h *Handler) ListOrdersByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, order.ErrNoOrders) {
			writeMessage(w, http.StatusNotFound, "no orders placed")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListJSON(orders))
}

// ListOrdersByDate handles GET /orders/date/{date}. The date path parameter
// must be a zero-padded YYYY-MM-DD calendar date.
func (h *Handler) ListOrdersByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	orders, err := h.orders.ListByDate(r.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrInvalidDate):
			writeMessage(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		case errors.Is(err, order.ErrNoOrders):
			writeMessage(w, http.StatusNotFound, "no orders found for the specified date")
		default:
			internalError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toOrderListJSON(orders))
}

func toOrderJSON(o order.Order) orderJSON {
	return orderJSON{
		ID:              o.ID,
		UserID:          o.UserID,
		ShippingDate:    o.ShippingDate,
		DeliveryDate:    o.DeliveryDate,
		Status:          string(o.Status),
		TotalPrice:      o.TotalPrice.InexactFloat64(),
		DeliveryCharge:  o.DeliveryCharge.InexactFloat64(),
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

func toOrderListJSON(orders []order.Order) []orderJSON {
	out := make([]orderJSON, len(orders))
	for i, o := range orders {
		out[i] = toOrderJSON(o)
	}
	return out
}
