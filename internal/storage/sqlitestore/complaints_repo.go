package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/caselens/caselens/internal/models"
	"github.com/pkg/errors"
)

const complaintColumns = `id, user_id, order_id, category, priority, status, subject, details, resolution, assigned_to, created_at, resolved_at`

// ComplaintFilter narrows ListComplaints. Nil/empty fields are not applied.
type ComplaintFilter struct {
	UserID     *int64
	Status     string
	Category   string
	Priority   string
	AssignedTo string
}

func scanComplaint(row interface{ Scan(...any) error }) (*models.Complaint, error) {
	var c models.Complaint
	err := row.Scan(&c.ID, &c.UserID, &c.OrderID, &c.Category, &c.Priority, &c.Status, &c.Subject, &c.Details, &c.Resolution, &c.AssignedTo, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Storage) collectComplaints(rows *sql.Rows) ([]*models.Complaint, error) {
	defer rows.Close()
	out := []*models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan complaint")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListComplaints(ctx context.Context, f ComplaintFilter) ([]*models.Complaint, error) {
	q := `SELECT ` + complaintColumns + ` FROM complaints WHERE 1=1`
	args := []any{}
	if f.UserID != nil {
		q += ` AND user_id = ?`
		args = append(args, *f.UserID)
	}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Priority != "" {
		q += ` AND priority = ?`
		args = append(args, f.Priority)
	}
	if f.AssignedTo != "" {
		q += ` AND assigned_to = ?`
		args = append(args, f.AssignedTo)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select complaints")
	}
	return s.collectComplaints(rows)
}

func (s *Storage) GetComplaintByID(ctx context.Context, complaintID int64) (*models.Complaint, error) {
	c, err := scanComplaint(s.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = ?`, complaintID))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "complaint %d", complaintID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select complaint")
	}
	return c, nil
}

func (s *Storage) ComplaintsForOrder(ctx context.Context, orderID int64) ([]*models.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+complaintColumns+`
FROM complaints
WHERE order_id = ?
ORDER BY created_at`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select complaints for order")
	}
	return s.collectComplaints(rows)
}

// SearchComplaints matches subject or details, case-insensitive, unanchored.
func (s *Storage) SearchComplaints(ctx context.Context, keyword string) ([]*models.Complaint, error) {
	like := "%" + keyword + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT `+complaintColumns+`
FROM complaints
WHERE subject LIKE ? OR details LIKE ?
ORDER BY created_at DESC`, like, like)
	if err != nil {
		return nil, errors.Wrap(err, "search complaints")
	}
	return s.collectComplaints(rows)
}

// HighPriorityOpenComplaints is the urgent queue: open or investigating
// complaints with high or critical priority.
func (s *Storage) HighPriorityOpenComplaints(ctx context.Context) ([]*models.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+complaintColumns+`
FROM complaints
WHERE priority IN ('high','critical') AND status IN ('open','investigating')
ORDER BY priority DESC, created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "select urgent complaints")
	}
	return s.collectComplaints(rows)
}
