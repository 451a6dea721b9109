package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maplecart/storefront/internal/domain"
)

type OrderRepository interface {
	// Create reserves stock and persists the order atomically: every line's
	// decrement and the order insert run in one transaction, so a failing
	// line rolls back the whole cart.
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, int64, error)
	List(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error)
	SetPaymentIntent(ctx context.Context, orderID int64, intentID string) error
	MarkPaid(ctx context.Context, orderID int64, paymentStatus string) error
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus, trackingNumber *string) (*domain.Order, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

const orderCols = `id, order_number, user_id, subtotal, shipping_cost, tax, total,
shipping_address, notes, status, payment_intent_id, payment_status, tracking_number,
created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var address []byte
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Subtotal, &o.ShippingCost, &o.Tax, &o.Total,
		&address, &o.Notes, &o.Status, &o.PaymentIntentID, &o.PaymentStatus, &o.TrackingNumber,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(address) > 0 {
		if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Guarded decrement: the stock >= quantity predicate re-checks under the
	// transaction, so two concurrent carts cannot both drain the same units.
	const reserveQ = `UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND active AND stock >= $2`

	for _, item := range order.Items {
		result, err := tx.Exec(ctx, reserveQ, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		if result.RowsAffected() == 0 {
			return nil, r.reserveFailure(ctx, tx, item)
		}
	}

	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return nil, err
	}

	const insertQ = `INSERT INTO orders (
		order_number, user_id, subtotal, shipping_cost, tax, total,
		shipping_address, notes, status
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	RETURNING ` + orderCols

	created, err := scanOrder(tx.QueryRow(ctx, insertQ,
		order.OrderNumber, order.UserID, order.Subtotal, order.ShippingCost, order.Tax, order.Total,
		address, order.Notes, order.Status,
	))
	if err != nil {
		return nil, err
	}

	const itemQ = `INSERT INTO order_items (order_id, product_id, title, image, quantity, price_at_purchase)
		VALUES ($1,$2,$3,$4,$5,$6)`
	for _, item := range order.Items {
		if _, err := tx.Exec(ctx, itemQ, created.ID, item.ProductID, item.Title, item.Image, item.Quantity, item.PriceAtPurchase); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	created.Items = order.Items
	return created, nil
}

// reserveFailure distinguishes a vanished/inactive product from a stock
// shortfall after a guarded decrement matched no row.
func (r *orderRepository) reserveFailure(ctx context.Context, tx pgx.Tx, item domain.OrderItem) error {
	var title string
	var stock int
	var active bool
	err := tx.QueryRow(ctx, `SELECT title, stock, active FROM products WHERE id = $1`, item.ProductID).
		Scan(&title, &stock, &active)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("product %d: %w", item.ProductID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("product %d: %w", item.ProductID, domain.ErrNotFound)
	}
	return &domain.InsufficientStockError{ProductTitle: title, Requested: item.Quantity, Available: stock}
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	order, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil || order == nil {
		return order, err
	}
	items, err := r.itemsFor(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, int64, error) {
	const q = `SELECT ` + orderCols + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	const countQ = `SELECT count(*) FROM orders WHERE user_id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	if err := r.pool.QueryRow(ctx, countQ, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	orders, err := r.queryOrders(ctx, q, userID, limit, offset)
	return orders, total, err
}

func (r *orderRepository) List(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	if status != nil {
		if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE status = $1`, *status).Scan(&total); err != nil {
			return nil, 0, err
		}
		const q = `SELECT ` + orderCols + ` FROM orders
			WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		orders, err := r.queryOrders(ctx, q, *status, limit, offset)
		return orders, total, err
	}

	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + orderCols + ` FROM orders
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	orders, err := r.queryOrders(ctx, q, limit, offset)
	return orders, total, err
}

func (r *orderRepository) queryOrders(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return nil
}

func (r *orderRepository) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	const q = `SELECT order_id, product_id, title, image, quantity, price_at_purchase
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	rows, err := r.pool.Query(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]domain.OrderItem)
	for rows.Next() {
		var orderID int64
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Title, &item.Image, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], item)
	}
	return items, rows.Err()
}

func (r *orderRepository) SetPaymentIntent(ctx context.Context, orderID int64, intentID string) error {
	const q = `UPDATE orders SET payment_intent_id = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, orderID, intentID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, orderID int64, paymentStatus string) error {
	const q = `UPDATE orders
		SET status = 'paid', payment_status = $2, updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, orderID, paymentStatus)
	return err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus, trackingNumber *string) (*domain.Order, error) {
	const q = `UPDATE orders
		SET status = $2, tracking_number = COALESCE($3, tracking_number), updated_at = now()
		WHERE id = $1
		RETURNING ` + orderCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	order, err := scanOrder(r.pool.QueryRow(ctx, q, orderID, status, trackingNumber))
	if err != nil || order == nil {
		return order, err
	}
	items, err := r.itemsFor(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}
