package sqlitestore

import (
	"context"

	"github.com/caselens/caselens/internal/models"
	"github.com/pkg/errors"
)

// PaymentLogFilter narrows PaymentLogs. Start/End are inclusive ISO-8601
// bounds on logged_at; empty bounds are open.
type PaymentLogFilter struct {
	OrderID *int64
	Start   string
	End     string
}

// LogisticsLogFilter narrows LogisticsLogs.
type LogisticsLogFilter struct {
	OrderID        *int64
	TrackingNumber string
	Start          string
	End            string
}

func (s *Storage) PaymentLogs(ctx context.Context, f PaymentLogFilter) ([]*models.PaymentLogEvent, error) {
	q := `SELECT id, order_id, transaction_id, event_type, amount, currency, gateway, status, error_message, logged_at
FROM payment_logs WHERE 1=1`
	args := []any{}
	if f.OrderID != nil {
		q += ` AND order_id = ?`
		args = append(args, *f.OrderID)
	}
	if f.Start != "" {
		q += ` AND logged_at >= ?`
		args = append(args, f.Start)
	}
	if f.End != "" {
		q += ` AND logged_at <= ?`
		args = append(args, f.End)
	}
	q += ` ORDER BY logged_at`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select payment logs")
	}
	defer rows.Close()

	out := []*models.PaymentLogEvent{}
	for rows.Next() {
		var e models.PaymentLogEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.TransactionID, &e.EventType, &e.Amount, &e.Currency, &e.Gateway, &e.Status, &e.ErrorMessage, &e.LoggedAt); err != nil {
			return nil, errors.Wrap(err, "scan payment log")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) LogisticsLogs(ctx context.Context, f LogisticsLogFilter) ([]*models.LogisticsLogEvent, error) {
	q := `SELECT id, order_id, tracking_number, carrier, event_type, location, notes, logged_at
FROM logistics_logs WHERE 1=1`
	args := []any{}
	if f.OrderID != nil {
		q += ` AND order_id = ?`
		args = append(args, *f.OrderID)
	}
	if f.TrackingNumber != "" {
		q += ` AND tracking_number = ?`
		args = append(args, f.TrackingNumber)
	}
	if f.Start != "" {
		q += ` AND logged_at >= ?`
		args = append(args, f.Start)
	}
	if f.End != "" {
		q += ` AND logged_at <= ?`
		args = append(args, f.End)
	}
	q += ` ORDER BY logged_at`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select logistics logs")
	}
	defer rows.Close()

	out := []*models.LogisticsLogEvent{}
	for rows.Next() {
		var e models.LogisticsLogEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.TrackingNumber, &e.Carrier, &e.EventType, &e.Location, &e.Notes, &e.LoggedAt); err != nil {
			return nil, errors.Wrap(err, "scan logistics log")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
