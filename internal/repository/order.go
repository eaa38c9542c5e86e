package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orders-service/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, shipping_date, delivery_date, status, total_price,
		 delivery_charge, total_amount, payment_method, shipping_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	createOrderLineSQL = `INSERT INTO order_lines
		(id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	selectOrdersSQL = `SELECT id, user_id, shipping_date, delivery_date, status,
		total_price, delivery_charge, total_amount, payment_method,
		shipping_address, created_at
		FROM orders`

	listOrdersSQL         = selectOrdersSQL + ` ORDER BY created_at DESC`
	listOrdersByStatusSQL = selectOrdersSQL + ` WHERE status = $1 ORDER BY created_at DESC`
	listOrdersByUserSQL   = selectOrdersSQL + ` WHERE user_id = $1 ORDER BY created_at DESC`
	listOrdersByDateSQL   = selectOrdersSQL + ` WHERE created_at::date = $1 ORDER BY created_at DESC`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithLines persists the order header and all of its lines inside one
// transaction. The line inserts carry no ordering dependency on each other,
// so they are pipelined as a single batch; the batch must fully succeed
// before the transaction commits. On any failure the transaction rolls back
// and nothing becomes visible.
func (r *OrderRepository) CreateWithLines(ctx context.Context, o *order.Order, lines []order.Line) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, o.ShippingDate, o.DeliveryDate, o.Status,
		o.TotalPrice, o.DeliveryCharge, o.TotalAmount,
		o.PaymentMethod, o.ShippingAddress, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(createOrderLineSQL,
			line.ID, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating lines for order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}

	return nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.query(ctx, listOrdersSQL)
}

// ListByStatus returns orders with the given status, newest first.
func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.query(ctx, listOrdersByStatusSQL, status)
}

// ListByUser returns orders placed by the given user, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.query(ctx, listOrdersByUserSQL, userID)
}

// ListByDate returns orders whose creation timestamp falls on the given
// calendar date. The cast compares the date portion in the column's storage
// timezone.
func (r *OrderRepository) ListByDate(ctx context.Context, day time.Time) ([]order.Order, error) {
	return r.query(ctx, listOrdersByDateSQL, day.Format("2006-01-02"))
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.ShippingDate, &o.DeliveryDate, &o.Status,
		&o.TotalPrice, &o.DeliveryCharge, &o.TotalAmount,
		&o.PaymentMethod, &o.ShippingAddress, &o.CreatedAt,
	)
	return o, err
}
