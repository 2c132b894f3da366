package sqlitestore

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/caselens/caselens/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  address_line TEXT,
  city TEXT,
  state TEXT,
  zip_code TEXT,
  country TEXT NOT NULL DEFAULT 'India',
  created_at TEXT NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  item TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  unit_price REAL NOT NULL,
  total_amount REAL NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending'
    CHECK(status IN ('pending','processing','shipped','delivered','cancelled','returned')),
  payment_method TEXT
    CHECK(payment_method IN ('credit_card','debit_card','upi','net_banking','wallet','cod','emi')),
  shipping_address TEXT,
  tracking_number TEXT,
  ordered_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id)
)`,
		`
CREATE TABLE IF NOT EXISTS complaints (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  order_id INTEGER,
  category TEXT NOT NULL
    CHECK(category IN ('delivery','billing','product','service','account','other')),
  priority TEXT NOT NULL DEFAULT 'medium'
    CHECK(priority IN ('low','medium','high','critical')),
  status TEXT NOT NULL DEFAULT 'open'
    CHECK(status IN ('open','investigating','waiting_customer','resolved','closed')),
  subject TEXT NOT NULL,
  details TEXT NOT NULL,
  resolution TEXT,
  assigned_to TEXT,
  created_at TEXT NOT NULL,
  resolved_at TEXT,
  FOREIGN KEY(user_id) REFERENCES users(id),
  FOREIGN KEY(order_id) REFERENCES orders(id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_user ON complaints(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_order ON complaints(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(status)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_prio ON complaints(priority)`,
		`
CREATE TABLE IF NOT EXISTS payment_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  transaction_id TEXT NOT NULL,
  event_type TEXT NOT NULL
    CHECK(event_type IN ('authorized','captured','failed','refunded','voided','chargeback','dispute_opened','dispute_resolved')),
  amount REAL NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  gateway TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'success'
    CHECK(status IN ('success','failed','pending')),
  error_message TEXT,
  logged_at TEXT NOT NULL,
  FOREIGN KEY(order_id) REFERENCES orders(id)
)`,
		`
CREATE TABLE IF NOT EXISTS logistics_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  tracking_number TEXT,
  carrier TEXT NOT NULL,
  event_type TEXT NOT NULL
    CHECK(event_type IN ('label_created','picked','packed','dispatched','in_transit','out_for_delivery','delivered','delivery_failed','returned_to_sender','held_at_facility')),
  location TEXT,
  notes TEXT,
  logged_at TEXT NOT NULL,
  FOREIGN KEY(order_id) REFERENCES orders(id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_order ON payment_logs(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_time ON payment_logs(logged_at)`,
		`CREATE INDEX IF NOT EXISTS idx_logistics_order ON logistics_logs(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logistics_time ON logistics_logs(logged_at)`,
		`CREATE INDEX IF NOT EXISTS idx_logistics_track ON logistics_logs(tracking_number)`,
	}

	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

// SeedData mirrors the layout of the seed JSON file.
type SeedData struct {
	Users         []models.User              `json:"users"`
	Orders        []models.Order             `json:"orders"`
	Complaints    []models.Complaint         `json:"complaints"`
	PaymentLogs   []models.PaymentLogEvent   `json:"payment_logs"`
	LogisticsLogs []models.LogisticsLogEvent `json:"logistics_logs"`
}

// SeedFromFile populates empty tables from a JSON file. A missing file is
// not an error: the store then serves whatever the database already holds.
func (s *Storage) SeedFromFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "unmarshal seed file")
	}
	return s.Seed(ctx, seed)
}

// Seed inserts the given records if the users table is empty. Explicit ids
// are honored so fixtures can reference each other; zero ids autoincrement.
func (s *Storage) Seed(ctx context.Context, seed SeedData) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return errors.Wrap(err, "count users")
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range seed.Users {
		_, err := tx.ExecContext(ctx, `
INSERT INTO users (id, name, email, phone, address_line, city, state, zip_code, country, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
			nullableID(u.ID), u.Name, u.Email, u.Phone, u.AddressLine, u.City, u.State, u.ZipCode, u.Country, u.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "seed user")
		}
	}
	for _, o := range seed.Orders {
		_, err := tx.ExecContext(ctx, `
INSERT INTO orders (id, user_id, item, quantity, unit_price, total_amount, status, payment_method, shipping_address, tracking_number, ordered_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			nullableID(o.ID), o.UserID, o.Item, o.Quantity, o.UnitPrice, o.TotalAmount, o.Status, o.PaymentMethod, o.ShippingAddress, o.TrackingNumber, o.OrderedAt)
		if err != nil {
			return errors.Wrap(err, "seed order")
		}
	}
	for _, c := range seed.Complaints {
		_, err := tx.ExecContext(ctx, `
INSERT INTO complaints (id, user_id, order_id, category, priority, status, subject, details, resolution, assigned_to, created_at, resolved_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			nullableID(c.ID), c.UserID, c.OrderID, c.Category, c.Priority, c.Status, c.Subject, c.Details, c.Resolution, c.AssignedTo, c.CreatedAt, c.ResolvedAt)
		if err != nil {
			return errors.Wrap(err, "seed complaint")
		}
	}
	for _, p := range seed.PaymentLogs {
		_, err := tx.ExecContext(ctx, `
INSERT INTO payment_logs (id, order_id, transaction_id, event_type, amount, currency, gateway, status, error_message, logged_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
			nullableID(p.ID), p.OrderID, p.TransactionID, p.EventType, p.Amount, p.Currency, p.Gateway, p.Status, p.ErrorMessage, p.LoggedAt)
		if err != nil {
			return errors.Wrap(err, "seed payment log")
		}
	}
	for _, l := range seed.LogisticsLogs {
		_, err := tx.ExecContext(ctx, `
INSERT INTO logistics_logs (id, order_id, tracking_number, carrier, event_type, location, notes, logged_at)
VALUES (?,?,?,?,?,?,?,?)`,
			nullableID(l.ID), l.OrderID, l.TrackingNumber, l.Carrier, l.EventType, l.Location, l.Notes, l.LoggedAt)
		if err != nil {
			return errors.Wrap(err, "seed logistics log")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}

	slog.Info("database seeded",
		"users", len(seed.Users),
		"orders", len(seed.Orders),
		"complaints", len(seed.Complaints),
		"payment_logs", len(seed.PaymentLogs),
		"logistics_logs", len(seed.LogisticsLogs))
	return nil
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
