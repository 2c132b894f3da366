package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/caselens/caselens/internal/models"
	"github.com/pkg/errors"
)

const orderColumns = `id, user_id, item, quantity, unit_price, total_amount, status, payment_method, shipping_address, tracking_number, ordered_at`

// OrderFilter narrows ListOrders. Nil/empty fields are not applied.
type OrderFilter struct {
	UserID        *int64
	Status        string
	PaymentMethod string
}

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Item, &o.Quantity, &o.UnitPrice, &o.TotalAmount, &o.Status, &o.PaymentMethod, &o.ShippingAddress, &o.TrackingNumber, &o.OrderedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Storage) collectOrders(rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()
	out := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListOrders(ctx context.Context, f OrderFilter) ([]*models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}
	if f.UserID != nil {
		q += ` AND user_id = ?`
		args = append(args, *f.UserID)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.PaymentMethod != "" {
		q += ` AND payment_method = ?`
		args = append(args, f.PaymentMethod)
	}
	q += ` ORDER BY ordered_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	return s.collectOrders(rows)
}

func (s *Storage) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "order %d", orderID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}
	return o, nil
}

func (s *Storage) GetOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE tracking_number = ?`, trackingNumber))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "order with tracking %q", trackingNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order by tracking")
	}
	return o, nil
}

// OrdersByDateRange returns orders placed between start and end inclusive,
// ascending by ordered_at.
func (s *Storage) OrdersByDateRange(ctx context.Context, start, end string) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE ordered_at >= ? AND ordered_at <= ?
ORDER BY ordered_at`, start, end)
	if err != nil {
		return nil, errors.Wrap(err, "select orders by range")
	}
	return s.collectOrders(rows)
}
