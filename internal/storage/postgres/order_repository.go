package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

const orderColumns = `id, status, total_amount::text, total_items, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

var _ domain.TransactionalOrderRepository = (*orderRepository)(nil)

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Возвращаемое значение также реализует domain.TransactionalOrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create вставляет заказ и позиции в одной транзакции.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	return r.CreateWithEvent(ctx, order, nil)
}

// CreateWithEvent вставляет заказ, позиции и сообщение outbox (если event != nil) в одной транзакции.
func (r *orderRepository) CreateWithEvent(ctx context.Context, order domain.Order, event domain.EventFactory) (err error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, status, total_amount, total_items, created_at, updated_at
		) VALUES ($1,$2,$3::numeric,$4,$5,$6)
	`,
		order.ID, string(order.Status), order.TotalAmount.String(), order.TotalItems,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for idx, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, quantity, price, position
			) VALUES ($1,$2,$3,$4,$5::numeric,$6)
		`,
			item.ID, order.ID, item.ProductID, item.Quantity, item.Price.String(), idx,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = enqueueInTx(ctx, tx, order, event); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

// UpdateStatus обновляет статус одной командой; конкурентные изменения сериализуются блокировкой строки.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	return updateStatus(ctx, r.db, id, status)
}

// UpdateStatusWithEvent меняет статус и ставит событие в outbox в одной транзакции.
func (r *orderRepository) UpdateStatusWithEvent(ctx context.Context, id string, status domain.OrderStatus, event domain.EventFactory) (order domain.Order, err error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	order, err = updateStatus(ctx, tx, id, status)
	if err != nil {
		return domain.Order{}, err
	}
	if err = enqueueInTx(ctx, tx, order, event); err != nil {
		return domain.Order{}, err
	}
	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit update order status: %w", err)
	}

	return order, nil
}

// rowQuerier покрывает *sql.DB и *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func updateStatus(ctx context.Context, db rowQuerier, id string, status domain.OrderStatus) (domain.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns,
		id, string(status),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidTextRepresentation(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}

func enqueueInTx(ctx context.Context, tx *sql.Tx, order domain.Order, event domain.EventFactory) error {
	if event == nil {
		return nil
	}
	msg, err := event(order)
	if err != nil {
		return fmt.Errorf("build outbox message: %w", err)
	}
	if _, err := insertOutboxMessage(ctx, tx, msg); err != nil {
		return err
	}
	return nil
}

func (r *orderRepository) Count(ctx context.Context, status domain.OrderStatus) (int, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE ($1 = '' OR status = $1)
	`, string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}

	return count, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var (
		query strings.Builder
		args  = []any{string(filter.Status)}
	)
	query.WriteString(`
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC, id ASC
	`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&query, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&query, " OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, price::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item  domain.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse order item price %q: %w", price, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
		amount string
	)
	if err := row.Scan(&order.ID, &status, &amount, &order.TotalItems, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	total, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse order total %q: %w", amount, err)
	}
	order.Status = domain.OrderStatus(status)
	order.TotalAmount = total
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return order, nil
}

func isUniqueViolation(err error) bool {
	return hasPgCode(err, "23505")
}

// isInvalidTextRepresentation распознаёт некорректный UUID в условии поиска.
func isInvalidTextRepresentation(err error) bool {
	return hasPgCode(err, "22P02")
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
