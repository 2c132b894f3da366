package correlation

import (
	"context"
	"testing"

	"github.com/caselens/caselens/internal/models"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users      []*models.User
	orders     []*models.Order
	complaints []*models.Complaint
	payments   []*models.PaymentLogEvent
	logistics  []*models.LogisticsLogEvent
}

func (f *fakeRepo) ListUsers(ctx context.Context) ([]*models.User, error) {
	return f.users, nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "user %d", userID)
}

func (f *fakeRepo) SearchUsers(ctx context.Context, keyword string) ([]*models.User, error) {
	return f.users, nil
}

func (f *fakeRepo) ListOrders(ctx context.Context, filter sqlitestore.OrderFilter) ([]*models.Order, error) {
	out := []*models.Order{}
	for _, o := range f.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeRepo) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "order %d", orderID)
}

func (f *fakeRepo) GetOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.TrackingNumber != nil && *o.TrackingNumber == trackingNumber {
			return o, nil
		}
	}
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "order with tracking %q", trackingNumber)
}

func (f *fakeRepo) OrdersByDateRange(ctx context.Context, start, end string) ([]*models.Order, error) {
	return f.orders, nil
}

func (f *fakeRepo) ListComplaints(ctx context.Context, filter sqlitestore.ComplaintFilter) ([]*models.Complaint, error) {
	out := []*models.Complaint{}
	for _, c := range f.complaints {
		if filter.UserID != nil && c.UserID != *filter.UserID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) GetComplaintByID(ctx context.Context, complaintID int64) (*models.Complaint, error) {
	for _, c := range f.complaints {
		if c.ID == complaintID {
			return c, nil
		}
	}
	return nil, errors.Wrapf(sqlitestore.ErrNotFound, "complaint %d", complaintID)
}

func (f *fakeRepo) ComplaintsForOrder(ctx context.Context, orderID int64) ([]*models.Complaint, error) {
	out := []*models.Complaint{}
	for _, c := range f.complaints {
		if c.OrderID != nil && *c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) SearchComplaints(ctx context.Context, keyword string) ([]*models.Complaint, error) {
	return f.complaints, nil
}

func (f *fakeRepo) HighPriorityOpenComplaints(ctx context.Context) ([]*models.Complaint, error) {
	return f.complaints, nil
}

func (f *fakeRepo) PaymentLogs(ctx context.Context, filter sqlitestore.PaymentLogFilter) ([]*models.PaymentLogEvent, error) {
	out := []*models.PaymentLogEvent{}
	for _, e := range f.payments {
		if filter.OrderID != nil && e.OrderID != *filter.OrderID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRepo) LogisticsLogs(ctx context.Context, filter sqlitestore.LogisticsLogFilter) ([]*models.LogisticsLogEvent, error) {
	out := []*models.LogisticsLogEvent{}
	for _, e := range f.logistics {
		if filter.OrderID != nil && e.OrderID != *filter.OrderID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

// A shipment that sat in transit: dispatched at 10:00 on the 5th, delivered
// at 10:00 on the 9th.
func deliveredFixture() *fakeRepo {
	return &fakeRepo{
		users: []*models.User{
			{ID: 5, Name: "Rajesh Kumar", Email: "rajesh@example.com", City: strPtr("Pune"), CreatedAt: "2023-03-10T08:00:00"},
		},
		orders: []*models.Order{
			{ID: 15, UserID: 5, Item: "Espresso Machine", Quantity: 1, UnitPrice: 450, TotalAmount: 450, Status: "delivered", PaymentMethod: strPtr("upi"), TrackingNumber: strPtr("TRK100015"), OrderedAt: "2024-01-04T09:00:00"},
		},
		complaints: []*models.Complaint{
			{ID: 7, UserID: 5, OrderID: i64Ptr(15), Category: "delivery", Priority: "high", Status: "open", Subject: "Package arrived late", Details: "Four days in transit", CreatedAt: "2024-01-10T09:00:00"},
		},
		payments: []*models.PaymentLogEvent{
			{ID: 1, OrderID: 15, TransactionID: "TXN-15-1", EventType: "charge", Amount: 450, Currency: "USD", Gateway: "razorpay", Status: "success", LoggedAt: "2024-01-04T09:01:00"},
		},
		logistics: []*models.LogisticsLogEvent{
			{ID: 1, OrderID: 15, TrackingNumber: strPtr("TRK100015"), Carrier: "BlueDart", EventType: "dispatched", LoggedAt: "2024-01-05T10:00:00"},
			{ID: 2, OrderID: 15, TrackingNumber: strPtr("TRK100015"), Carrier: "BlueDart", EventType: "in_transit", LoggedAt: "2024-01-07T10:00:00"},
			{ID: 3, OrderID: 15, TrackingNumber: strPtr("TRK100015"), Carrier: "BlueDart", EventType: "delivered", LoggedAt: "2024-01-09T10:00:00"},
		},
	}
}

func TestService_ComplaintContext_fullBundle(t *testing.T) {
	s := New(deliveredFixture())

	got, err := s.ComplaintContext(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Equal(t, int64(7), got.Complaint.ID)
	require.Equal(t, int64(5), got.User.ID)
	require.NotNil(t, got.Order)
	require.Equal(t, int64(15), got.Order.ID)
	require.Len(t, got.PaymentLogs, 1)
	require.Len(t, got.LogisticsLogs, 3)
	require.Equal(t, DefaultWindowHours, got.WindowHours)
}

func TestService_ComplaintContext_noOrder(t *testing.T) {
	repo := deliveredFixture()
	repo.complaints = append(repo.complaints, &models.Complaint{
		ID: 8, UserID: 5, Category: "account", Priority: "low", Status: "open",
		Subject: "Cannot log in", Details: "Password reset loops", CreatedAt: "2024-01-11T09:00:00",
	})
	s := New(repo)

	got, err := s.ComplaintContext(context.Background(), 8, 24)
	require.NoError(t, err)
	require.Nil(t, got.Order)
	require.Empty(t, got.PaymentLogs)
	require.Empty(t, got.LogisticsLogs)
	require.Equal(t, 24, got.WindowHours)
}

func TestService_ComplaintContext_notFound(t *testing.T) {
	s := New(deliveredFixture())
	_, err := s.ComplaintContext(context.Background(), 999, 0)
	require.ErrorIs(t, err, sqlitestore.ErrNotFound)
}

func TestService_OrderDeliveryTime_anchors(t *testing.T) {
	s := New(deliveredFixture())

	got, err := s.OrderDeliveryTime(context.Background(), 15)
	require.NoError(t, err)
	require.Equal(t, "2024-01-05T10:00:00", *got.ShippedAt)
	require.Equal(t, "2024-01-09T10:00:00", *got.DeliveredAt)
	require.Equal(t, 25.0, *got.ProcessingHours)
	require.Equal(t, 96.0, *got.ShippingHours)
	require.Equal(t, 121.0, *got.TotalHours)
}

func TestService_OrderDeliveryTime_missingAnchors(t *testing.T) {
	repo := deliveredFixture()
	// No dispatch event: only an in-transit ping and a delivery.
	repo.logistics = []*models.LogisticsLogEvent{
		{ID: 1, OrderID: 15, Carrier: "BlueDart", EventType: "in_transit", LoggedAt: "2024-01-07T10:00:00"},
		{ID: 2, OrderID: 15, Carrier: "BlueDart", EventType: "delivered", LoggedAt: "2024-01-09T10:00:00"},
	}
	s := New(repo)

	got, err := s.OrderDeliveryTime(context.Background(), 15)
	require.NoError(t, err)
	require.Nil(t, got.ShippedAt)
	require.Nil(t, got.ProcessingHours)
	require.Nil(t, got.ShippingHours)
	require.NotNil(t, got.TotalHours)

	// No events at all: everything derived is nil.
	repo.logistics = nil
	got, err = s.OrderDeliveryTime(context.Background(), 15)
	require.NoError(t, err)
	require.Nil(t, got.ShippedAt)
	require.Nil(t, got.DeliveredAt)
	require.Nil(t, got.ProcessingHours)
	require.Nil(t, got.ShippingHours)
	require.Nil(t, got.TotalHours)
}

func TestService_ActiveShipments_ordering(t *testing.T) {
	repo := &fakeRepo{
		users: []*models.User{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		orders: []*models.Order{
			{ID: 1, UserID: 1, Item: "x", Status: "shipped"},
			{ID: 2, UserID: 2, Item: "y", Status: "shipped"},
			{ID: 3, UserID: 1, Item: "z", Status: "shipped"},
			{ID: 4, UserID: 1, Item: "w", Status: "delivered"},
		},
		logistics: []*models.LogisticsLogEvent{
			{ID: 1, OrderID: 1, Carrier: "DHL", EventType: "dispatched", LoggedAt: "2024-02-01T08:00:00"},
			{ID: 2, OrderID: 2, Carrier: "DHL", EventType: "dispatched", LoggedAt: "2024-02-03T08:00:00"},
			{ID: 3, OrderID: 2, Carrier: "DHL", EventType: "in_transit", LoggedAt: "2024-02-04T08:00:00"},
		},
	}
	s := New(repo)

	got, err := s.ActiveShipments(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Most recently dispatched first, never-dispatched last.
	require.Equal(t, int64(2), got[0].OrderID)
	require.Equal(t, "in_transit", *got[0].LatestEvent)
	require.Equal(t, int64(1), got[1].OrderID)
	require.Equal(t, int64(3), got[2].OrderID)
	require.Nil(t, got[2].DispatchedAt)
	require.Nil(t, got[2].LatestEvent)
}

func TestService_CarrierPerformance_nilAverage(t *testing.T) {
	repo := &fakeRepo{
		logistics: []*models.LogisticsLogEvent{
			{ID: 1, OrderID: 1, Carrier: "DHL", EventType: "dispatched", LoggedAt: "2024-02-01T08:00:00"},
			{ID: 2, OrderID: 1, Carrier: "DHL", EventType: "delivered", LoggedAt: "2024-02-02T08:00:00"},
			{ID: 3, OrderID: 2, Carrier: "FedEx", EventType: "dispatched", LoggedAt: "2024-02-01T08:00:00"},
		},
	}
	s := New(repo)

	got, err := s.CarrierPerformance(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	byName := map[string]*CarrierStats{}
	for _, st := range got {
		byName[st.Carrier] = st
	}
	require.Equal(t, 24.0, *byName["DHL"].AvgDeliveryHours)
	require.Equal(t, 2, byName["DHL"].TotalEvents)
	// FedEx never delivered anything: average stays nil.
	require.Nil(t, byName["FedEx"].AvgDeliveryHours)
	require.Equal(t, 1, byName["FedEx"].OrdersHandled)
}

func TestService_UserSummary_rollup(t *testing.T) {
	repo := deliveredFixture()
	repo.orders = append(repo.orders,
		&models.Order{ID: 16, UserID: 5, Item: "Grinder", TotalAmount: 80, Status: "returned", OrderedAt: "2024-01-12T09:00:00"},
		&models.Order{ID: 17, UserID: 5, Item: "Filter", TotalAmount: 20.25, Status: "cancelled", OrderedAt: "2024-01-13T09:00:00"},
	)
	s := New(repo)

	got, err := s.UserSummary(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 3, got.TotalOrders)
	require.Equal(t, 550.25, got.TotalSpent)
	require.Equal(t, 1, got.DeliveredOrders)
	require.Equal(t, 1, got.ReturnedOrders)
	require.Equal(t, 1, got.CancelledOrders)
	require.Equal(t, 1, got.TotalComplaints)
	require.Equal(t, 1, got.OpenComplaints)
	require.Equal(t, 1, got.HighPriorityIssues)
}

func TestService_RevenueByCity_grouping(t *testing.T) {
	repo := &fakeRepo{
		users: []*models.User{
			{ID: 1, Name: "A", City: strPtr("Pune")},
			{ID: 2, Name: "B", City: strPtr("Delhi")},
			{ID: 3, Name: "C", City: strPtr("Pune")},
		},
		orders: []*models.Order{
			{ID: 1, UserID: 1, TotalAmount: 100},
			{ID: 2, UserID: 3, TotalAmount: 50},
			{ID: 3, UserID: 2, TotalAmount: 200},
		},
	}
	s := New(repo)

	got, err := s.RevenueByCity(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Delhi", got[0].City)
	require.Equal(t, 200.0, got[0].TotalRevenue)
	require.Equal(t, "Pune", got[1].City)
	require.Equal(t, 150.0, got[1].TotalRevenue)
	require.Equal(t, 75.0, got[1].AvgOrderValue)
}

func TestService_TopCustomers_limitAndOrder(t *testing.T) {
	repo := &fakeRepo{
		users: []*models.User{
			{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"},
		},
		orders: []*models.Order{
			{ID: 1, UserID: 1, TotalAmount: 10, OrderedAt: "2024-01-01T00:00:00"},
			{ID: 2, UserID: 2, TotalAmount: 300, OrderedAt: "2024-01-02T00:00:00"},
			{ID: 3, UserID: 2, TotalAmount: 50, OrderedAt: "2024-01-05T00:00:00"},
		},
	}
	s := New(repo)

	got, err := s.TopCustomers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].UserID)
	require.Equal(t, 350.0, got[0].TotalSpent)
	require.Equal(t, "2024-01-05T00:00:00", got[0].LastOrderAt)

	// User 3 has no orders and never appears.
	got, err = s.TopCustomers(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestService_PaymentFailureRate_zeroEvents(t *testing.T) {
	s := New(&fakeRepo{})

	got, err := s.PaymentFailureRate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, got.Overall.TotalEvents)
	require.Nil(t, got.Overall.FailurePct)
	require.Empty(t, got.ByGateway)
}

func TestService_PaymentFailureRate_perGateway(t *testing.T) {
	repo := &fakeRepo{
		payments: []*models.PaymentLogEvent{
			{ID: 1, OrderID: 1, Gateway: "stripe", Status: "success", LoggedAt: "2024-01-01T00:00:00"},
			{ID: 2, OrderID: 2, Gateway: "stripe", Status: "failed", LoggedAt: "2024-01-02T00:00:00"},
			{ID: 3, OrderID: 3, Gateway: "stripe", Status: "failed", LoggedAt: "2024-01-03T00:00:00"},
			{ID: 4, OrderID: 4, Gateway: "razorpay", Status: "success", LoggedAt: "2024-01-04T00:00:00"},
		},
	}
	s := New(repo)

	got, err := s.PaymentFailureRate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, got.Overall.TotalEvents)
	require.Equal(t, 50.0, *got.Overall.FailurePct)
	require.Len(t, got.ByGateway, 2)
	require.Equal(t, "stripe", got.ByGateway[0].Gateway)
	require.Equal(t, 66.67, *got.ByGateway[0].FailurePct)
	require.Equal(t, 0.0, *got.ByGateway[1].FailurePct)
}

func TestService_ResolutionTimeStats_empty(t *testing.T) {
	s := New(&fakeRepo{
		complaints: []*models.Complaint{
			{ID: 1, UserID: 1, Category: "billing", Priority: "low", Status: "open", CreatedAt: "2024-01-01T00:00:00"},
		},
	})

	got, err := s.ResolutionTimeStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, got.ResolvedCount)
	require.Nil(t, got.AvgHours)
	require.Nil(t, got.MinHours)
	require.Nil(t, got.MaxHours)
	require.Empty(t, got.Details)
}

func TestService_ResolutionTimeStats_rollup(t *testing.T) {
	s := New(&fakeRepo{
		complaints: []*models.Complaint{
			{ID: 1, UserID: 1, Category: "billing", Priority: "high", Status: "resolved", CreatedAt: "2024-01-01T00:00:00", ResolvedAt: strPtr("2024-01-01T12:00:00")},
			{ID: 2, UserID: 1, Category: "delivery", Priority: "low", Status: "resolved", CreatedAt: "2024-01-01T00:00:00", ResolvedAt: strPtr("2024-01-02T00:00:00")},
			{ID: 3, UserID: 1, Category: "product", Priority: "low", Status: "open", CreatedAt: "2024-01-03T00:00:00"},
		},
	})

	got, err := s.ResolutionTimeStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, got.ResolvedCount)
	require.Equal(t, 18.0, *got.AvgHours)
	require.Equal(t, 12.0, *got.MinHours)
	require.Equal(t, 24.0, *got.MaxHours)
	require.Len(t, got.Details, 2)
	require.Equal(t, int64(2), got.Details[0].ComplaintID) // slowest first
	require.Len(t, got.ByPriority, 2)
	require.Equal(t, "low", got.ByPriority[0].Priority)
}

func TestService_DashboardSummary_blocks(t *testing.T) {
	s := New(deliveredFixture())

	got, err := s.DashboardSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, got.Users.Total)
	require.Equal(t, 1, got.Orders.Total)
	require.Equal(t, 450.0, got.Orders.TotalRevenue)
	require.Equal(t, 450.0, *got.Orders.AvgOrderValue)
	require.Equal(t, 1, got.Orders.Delivered)
	require.Equal(t, 1, got.Complaints.Total)
	require.Equal(t, 1, got.Complaints.OpenCount)
	require.Equal(t, 1, got.Complaints.HighPriority)
}

func TestService_DashboardSummary_noOrders(t *testing.T) {
	s := New(&fakeRepo{})
	got, err := s.DashboardSummary(context.Background())
	require.NoError(t, err)
	require.Nil(t, got.Orders.AvgOrderValue)
}

func TestService_CorrelateUserIssues_leftJoin(t *testing.T) {
	repo := deliveredFixture()
	repo.complaints = append(repo.complaints, &models.Complaint{
		ID: 9, UserID: 5, Category: "service", Priority: "low", Status: "open",
		Subject: "Rude support call", Details: "…", CreatedAt: "2024-01-12T09:00:00",
	})
	s := New(repo)

	got, err := s.CorrelateUserIssues(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Order)
	require.Equal(t, int64(15), got[0].Order.ID)
	require.Nil(t, got[1].Order)

	_, err = s.CorrelateUserIssues(context.Background(), 404)
	require.ErrorIs(t, err, sqlitestore.ErrNotFound)
}

func TestService_OrderFulfillmentTimeline(t *testing.T) {
	s := New(deliveredFixture())

	got, err := s.OrderFulfillmentTimeline(context.Background(), 15)
	require.NoError(t, err)
	require.Equal(t, int64(15), got.Order.ID)
	require.Len(t, got.PaymentEvents, 1)
	require.Len(t, got.LogisticsEvents, 3)
	require.Len(t, got.Complaints, 1)
}
