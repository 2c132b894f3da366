package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/caselens/caselens/internal/models"
	"github.com/pkg/errors"
)

const userColumns = `id, name, email, phone, address_line, city, state, zip_code, country, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.AddressLine, &u.City, &u.State, &u.ZipCode, &u.Country, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	defer rows.Close()

	out := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "user %d", userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}
	return u, nil
}

// SearchUsers matches name or email, case-insensitive, unanchored.
func (s *Storage) SearchUsers(ctx context.Context, keyword string) ([]*models.User, error) {
	like := "%" + keyword + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE name LIKE ? OR email LIKE ?
ORDER BY id`, like, like)
	if err != nil {
		return nil, errors.Wrap(err, "search users")
	}
	defer rows.Close()

	out := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
