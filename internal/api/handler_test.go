package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orders-service/internal/domain/order"
	"github.com/xenking/orders-service/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID    map[string]*product.Product
	listErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type mockOrderRepo struct {
	lastOrder *order.Order
	lastLines []order.Line
	createErr error
	orders    []order.Order
	listErr   error
}

func (m *mockOrderRepo) CreateWithLines(_ context.Context, o *order.Order, lines []order.Line) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastOrder = o
	m.lastLines = lines
	return nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]order.Order, error) {
	return m.orders, m.listErr
}

func (m *mockOrderRepo) ListByStatus(_ context.Context, status order.Status) ([]order.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []order.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListByDate(_ context.Context, day time.Time) ([]order.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []order.Order
	for _, o := range m.orders {
		if o.CreatedAt.UTC().Truncate(24 * time.Hour).Equal(day) {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- Helpers ---

func newTestHandler(products *mockProductRepo, orders *mockOrderRepo) http.Handler {
	svc := order.NewService(products, orders)
	return NewHandler(svc, products).Router()
}

func catalog(prices map[string]string) *mockProductRepo {
	byID := make(map[string]*product.Product, len(prices))
	for id, price := range prices {
		byID[id] = &product.Product{
			ID:       id,
			Name:     "Product " + id,
			Category: "test",
			Price:    decimal.RequireFromString(price),
		}
	}
	return &mockProductRepo{byID: byID}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func testOrder(id, userID string, status order.Status, createdAt time.Time) order.Order {
	return order.Order{
		ID:             id,
		UserID:         userID,
		Status:         status,
		TotalPrice:     decimal.RequireFromString("25"),
		DeliveryCharge: decimal.RequireFromString("3"),
		TotalAmount:    decimal.RequireFromString("28"),
		CreatedAt:      createdAt,
	}
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	orders := &mockOrderRepo{}
	h := newTestHandler(catalog(map[string]string{"p1": "10.00", "p2": "5.00"}), orders)

	rec := doRequest(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": "u1",
		"products": []map[string]any{
			{"product_id": "p1", "quantity": 2},
			{"product_id": "p2", "quantity": 1},
		},
		"status":           "pending",
		"delivery_charge":  3,
		"payment_method":   "card",
		"shipping_address": "1 Main St",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[createOrderResponse](t, rec)

	assert.Equal(t, "Order created successfully", resp.Message)
	assert.Equal(t, 25.0, resp.Order.TotalPrice)
	assert.Equal(t, 28.0, resp.Order.TotalAmount)
	assert.Equal(t, "u1", resp.Order.UserID)

	require.Len(t, resp.OrderItems, 2)
	for _, item := range resp.OrderItems {
		assert.Equal(t, resp.Order.ID, item.OrderID)
	}
	assert.Equal(t, "p1", resp.OrderItems[0].ProductID)
	assert.Equal(t, 2, resp.OrderItems[0].Quantity)
	assert.Equal(t, 10.0, resp.OrderItems[0].Price)

	require.NotNil(t, orders.lastOrder)
	assert.Len(t, orders.lastLines, 2)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	orders := &mockOrderRepo{}
	h := newTestHandler(catalog(map[string]string{"p1": "10.00"}), orders)

	rec := doRequest(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": "u1",
		"products": []map[string]any{
			{"product_id": "p1", "quantity": 1},
			{"product_id": "ghost", "quantity": 1},
		},
		"status":          "pending",
		"delivery_charge": 0,
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Error, "ghost")

	// Nothing persisted.
	assert.Nil(t, orders.lastOrder)
	assert.Empty(t, orders.lastLines)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	h := newTestHandler(catalog(nil), &mockOrderRepo{})

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{
			name: "missing user",
			body: map[string]any{
				"products": []map[string]any{{"product_id": "p1", "quantity": 1}},
				"status":   "pending",
			},
		},
		{
			name: "no products",
			body: map[string]any{
				"user_id": "u1",
				"status":  "pending",
			},
		},
		{
			name: "unknown status",
			body: map[string]any{
				"user_id":  "u1",
				"products": []map[string]any{{"product_id": "p1", "quantity": 1}},
				"status":   "exploded",
			},
		},
		{
			name: "zero quantity",
			body: map[string]any{
				"user_id":  "u1",
				"products": []map[string]any{{"product_id": "p1", "quantity": 0}},
				"status":   "pending",
			},
		},
		{
			name: "negative delivery charge",
			body: map[string]any{
				"user_id":         "u1",
				"products":        []map[string]any{{"product_id": "p1", "quantity": 1}},
				"status":          "pending",
				"delivery_charge": -2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(catalog(map[string]string{"p1": "10.00"}), &mockOrderRepo{})
			rec := doRequest(t, h, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListOrders(t *testing.T) {
	now := time.Now()
	orders := &mockOrderRepo{orders: []order.Order{
		testOrder("o2", "u1", order.StatusPending, now),
		testOrder("o1", "u1", order.StatusShipped, now.Add(-time.Hour)),
	}}
	h := newTestHandler(catalog(nil), orders)

	rec := doRequest(t, h, http.MethodGet, "/orders", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[[]orderJSON](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "o2", resp[0].ID)
	assert.Equal(t, "o1", resp[1].ID)
}

func TestListOrders_Empty(t *testing.T) {
	h := newTestHandler(catalog(nil), &mockOrderRepo{})

	rec := doRequest(t, h, http.MethodGet, "/orders", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[[]orderJSON](t, rec)
	assert.Empty(t, resp)
}

func TestListOrdersByStatus(t *testing.T) {
	orders := &mockOrderRepo{orders: []order.Order{
		testOrder("o1", "u1", order.StatusShipped, time.Now()),
	}}
	h := newTestHandler(catalog(nil), orders)

	rec := doRequest(t, h, http.MethodGet, "/orders/status/shipped", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]orderJSON](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "shipped", resp[0].Status)
}

func TestListOrdersByStatus_NoMatch(t *testing.T) {
	h := newTestHandler(catalog(nil), &mockOrderRepo{})

	rec := doRequest(t, h, http.MethodGet, "/orders/status/cancelled", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[messageResponse](t, rec)
	assert.Equal(t, "no orders found", resp.Message)
}

func TestListOrdersByUser(t *testing.T) {
	orders := &mockOrderRepo{orders: []order.Order{
		testOrder("o1", "alice", order.StatusPending, time.Now()),
	}}
	h := newTestHandler(catalog(nil), orders)

	rec := doRequest(t, h, http.MethodGet, "/orders/user/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]orderJSON](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "alice", resp[0].UserID)
}

func TestListOrdersByUser_NoMatch(t *testing.T) {
	h := newTestHandler(catalog(nil), &mockOrderRepo{})

	rec := doRequest(t, h, http.MethodGet, "/orders/user/nobody", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[messageResponse](t, rec)
	assert.Equal(t, "no orders placed", resp.Message)
}

func TestListOrdersByDate(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	orders := &mockOrderRepo{orders: []order.Order{
		testOrder("o1", "u1", order.StatusPending, created),
	}}
	h := newTestHandler(catalog(nil), orders)

	rec := doRequest(t, h, http.MethodGet, "/orders/date/2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]orderJSON](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, "o1", resp[0].ID)
}

func TestListOrdersByDate_Malformed(t *testing.T) {
	h := newTestHandler(catalog(nil), &mockOrderRepo{})

	for _, date := range []string{"2024-3-1", "03-01-2024", "notadate"} {
		rec := doRequest(t, h, http.MethodGet, "/orders/date/"+date, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "date %q", date)
	}
}

func TestListOrdersByDate_NoMatch(t *testing.T) {
	h := newTestHandler(catalog(nil), &mockOrderRepo{})

	rec := doRequest(t, h, http.MethodGet, "/orders/date/2024-03-01", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[messageResponse](t, rec)
	assert.Equal(t, "no orders found for the specified date", resp.Message)
}

func TestGetProduct(t *testing.T) {
	h := newTestHandler(catalog(map[string]string{"p1": "10.00"}), &mockOrderRepo{})

	rec := doRequest(t, h, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[productJSON](t, rec)
	assert.Equal(t, "p1", resp.ID)
	assert.Equal(t, 10.0, resp.Price)
}

func TestGetProduct_NotFound(t *testing.T) {
	h := newTestHandler(catalog(nil), &mockOrderRepo{})

	rec := doRequest(t, h, http.MethodGet, "/products/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
