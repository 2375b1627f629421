package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create пишет шапку заказа и все позиции в одной транзакции:
// либо всё становится видимым, либо ничего.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
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
			id, order_no, customer_name, order_date, grand_total, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		order.ID, order.OrderNo, order.CustomerName, order.OrderDate,
		order.GrandTotal, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrOrderExists
			return err
		}
		return fmt.Errorf("insert order header: %w", err)
	}

	if err = insertItemsTx(ctx, tx, order.ID, order.Products); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var order domain.Order

	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_no, customer_name, order_date, grand_total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.OrderNo, &order.CustomerName, &order.OrderDate,
		&order.GrandTotal, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Products = items

	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.Search(ctx, domain.SearchFilter{})
}

func (r *orderRepository) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, order_no, customer_name, order_date, grand_total, created_at, updated_at
		FROM orders
	`
	var (
		conds []string
		args  []any
	)

	if filter.OrderNoPrefix != "" {
		args = append(args, escapeLikePrefix(filter.OrderNoPrefix)+"%")
		conds = append(conds, fmt.Sprintf(`order_no LIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.DateRange.Bounded() {
		from, to := filter.DateRange.Bounds()
		args = append(args, from)
		conds = append(conds, fmt.Sprintf("order_date >= $%d", len(args)))
		args = append(args, to)
		conds = append(conds, fmt.Sprintf("order_date < $%d", len(args)))
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY order_date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.OrderNo, &order.CustomerName, &order.OrderDate,
			&order.GrandTotal, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Products = items
	}

	return orders, nil
}

// Update заменяет поля шапки и полностью переписывает набор позиций.
// Отсутствие шапки — ошибка, а не тихий no-op.
func (r *orderRepository) Update(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
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

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET customer_name = $1,
		    order_date = $2,
		    grand_total = $3,
		    updated_at = $4
		WHERE id = $5
	`,
		order.CustomerName, order.OrderDate, order.GrandTotal, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order header: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("delete previous order items: %w", err)
	}

	if err = insertItemsTx(ctx, tx, order.ID, order.Products); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update order: %w", err)
	}

	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
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

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order header: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrOrderNotFound
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete order: %w", err)
	}

	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_name, qty, price, subtotal, position
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderLineItem, 0)
	for rows.Next() {
		var item domain.OrderLineItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductName,
			&item.Qty, &item.Price, &item.Subtotal, &item.Position,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func insertItemsTx(ctx context.Context, tx *sql.Tx, orderID string, items []domain.OrderLineItem) error {
	for i, item := range items {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_name, qty, price, subtotal, position
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
		`,
			id, orderID, item.ProductName, item.Qty, item.Price, item.Subtotal, int32(i),
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// likeEscaper экранирует метасимволы LIKE, чтобы пользовательский префикс
// сравнивался буквально.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePrefix(prefix string) string {
	return likeEscaper.Replace(prefix)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure и deadlock_detected безопасно повторять.
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
