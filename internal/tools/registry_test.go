package tools

import (
	"context"
	"testing"
	"time"

	"github.com/caselens/caselens/internal/models"
	"github.com/caselens/caselens/internal/services/correlation"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	users   []*models.User
	calls   int
	lastErr error
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.calls++
	return s.users, s.lastErr
}
func (s *stubRepo) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	s.calls++
	for _, u := range s.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "user %d", userID)
}
func (s *stubRepo) SearchUsers(ctx context.Context, keyword string) ([]*models.User, error) {
	s.calls++
	return s.users, nil
}
func (s *stubRepo) ListOrders(ctx context.Context, f sqlitestore.OrderFilter) ([]*models.Order, error) {
	s.calls++
	return []*models.Order{}, nil
}
func (s *stubRepo) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	s.calls++
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "order %d", orderID)
}
func (s *stubRepo) GetOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error) {
	s.calls++
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "order with tracking %q", trackingNumber)
}
func (s *stubRepo) OrdersByDateRange(ctx context.Context, start, end string) ([]*models.Order, error) {
	s.calls++
	return []*models.Order{}, nil
}
func (s *stubRepo) ListComplaints(ctx context.Context, f sqlitestore.ComplaintFilter) ([]*models.Complaint, error) {
	s.calls++
	return []*models.Complaint{}, nil
}
func (s *stubRepo) GetComplaintByID(ctx context.Context, complaintID int64) (*models.Complaint, error) {
	s.calls++
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "complaint %d", complaintID)
}
func (s *stubRepo) ComplaintsForOrder(ctx context.Context, orderID int64) ([]*models.Complaint, error) {
	s.calls++
	return []*models.Complaint{}, nil
}
func (s *stubRepo) SearchComplaints(ctx context.Context, keyword string) ([]*models.Complaint, error) {
	s.calls++
	return []*models.Complaint{}, nil
}
func (s *stubRepo) HighPriorityOpenComplaints(ctx context.Context) ([]*models.Complaint, error) {
	s.calls++
	return []*models.Complaint{}, nil
}
func (s *stubRepo) PaymentLogs(ctx context.Context, f sqlitestore.PaymentLogFilter) ([]*models.PaymentLogEvent, error) {
	s.calls++
	return []*models.PaymentLogEvent{}, nil
}
func (s *stubRepo) LogisticsLogs(ctx context.Context, f sqlitestore.LogisticsLogFilter) ([]*models.LogisticsLogEvent, error) {
	s.calls++
	return []*models.LogisticsLogEvent{}, nil
}

func catalogRegistry(t *testing.T, repo *stubRepo) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, RegisterCatalog(r, repo, correlation.New(repo)))
	return r
}

func TestRegistry_CatalogComplete(t *testing.T) {
	r := catalogRegistry(t, &stubRepo{})
	require.Len(t, r.Tools(), 30)
	require.Len(t, r.Resources(), 13)

	// Catalog listings come back sorted so transports stay deterministic.
	names := r.Tools()
	for i := 1; i < len(names); i++ {
		require.Less(t, names[i-1].Name, names[i].Name)
	}
}

func TestRegistry_Dispatch_unknownTool(t *testing.T) {
	r := catalogRegistry(t, &stubRepo{})
	_, err := r.Dispatch(context.Background(), "drop_all_tables", nil)
	require.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_Dispatch_schemaRejectsBeforeHandler(t *testing.T) {
	repo := &stubRepo{}
	r := catalogRegistry(t, repo)

	// Missing required argument.
	_, err := r.Dispatch(context.Background(), "get_user_by_id", map[string]any{})
	require.ErrorIs(t, err, ErrInvalidArgs)

	// Wrong type.
	_, err = r.Dispatch(context.Background(), "get_user_by_id", map[string]any{"user_id": "five"})
	require.ErrorIs(t, err, ErrInvalidArgs)

	// Below minimum.
	_, err = r.Dispatch(context.Background(), "get_user_by_id", map[string]any{"user_id": 0})
	require.ErrorIs(t, err, ErrInvalidArgs)

	// Unknown property.
	_, err = r.Dispatch(context.Background(), "list_users", map[string]any{"verbose": true})
	require.ErrorIs(t, err, ErrInvalidArgs)

	require.Zero(t, repo.calls)
}

func TestRegistry_Dispatch_marshalsIndentedJSON(t *testing.T) {
	repo := &stubRepo{users: []*models.User{{ID: 1, Name: "Ada", Email: "ada@example.com", Country: "UK"}}}
	r := catalogRegistry(t, repo)

	out, err := r.Dispatch(context.Background(), "get_user_by_id", map[string]any{"user_id": 1})
	require.NoError(t, err)
	require.Contains(t, out, "\n  \"name\": \"Ada\"")
}

func TestRegistry_Dispatch_storeErrorPropagates(t *testing.T) {
	r := catalogRegistry(t, &stubRepo{})
	_, err := r.Dispatch(context.Background(), "get_user_by_id", map[string]any{"user_id": 404})
	require.ErrorIs(t, err, sqlitestore.ErrNotFound)
}

type mapCache struct {
	m    map[string][]byte
	sets int
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}
func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	c.sets++
	return nil
}

func TestRegistry_ReadResource(t *testing.T) {
	repo := &stubRepo{users: []*models.User{{ID: 1, Name: "Ada", Email: "ada@example.com", Country: "UK"}}}
	r := catalogRegistry(t, repo)

	_, err := r.ReadResource(context.Background(), "context://data/nothing", nil)
	require.ErrorIs(t, err, ErrResourceNotFound)

	body, err := r.ReadResource(context.Background(), "context://data/users", nil)
	require.NoError(t, err)
	require.Contains(t, body, "ada@example.com")
}

func TestRegistry_ReadResource_cacheReadThrough(t *testing.T) {
	repo := &stubRepo{users: []*models.User{{ID: 1, Name: "Ada", Email: "ada@example.com", Country: "UK"}}}
	r := catalogRegistry(t, repo)
	c := &mapCache{m: map[string][]byte{}}
	snaps := NewSnapshots(c, time.Minute, nil)

	first, err := r.ReadResource(context.Background(), "context://data/users", snaps)
	require.NoError(t, err)
	require.Equal(t, 1, c.sets)
	storeCalls := repo.calls

	second, err := r.ReadResource(context.Background(), "context://data/users", snaps)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, storeCalls, repo.calls) // served from cache
}
