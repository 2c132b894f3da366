package correlation

import (
	"context"
	"sort"

	"github.com/caselens/caselens/internal/models"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
)

// UserSummary merges a user's profile with order and complaint rollups.
type UserSummary struct {
	User               *models.User `json:"user"`
	TotalOrders        int          `json:"total_orders"`
	TotalSpent         float64      `json:"total_spent"`
	DeliveredOrders    int          `json:"delivered_orders"`
	ReturnedOrders     int          `json:"returned_orders"`
	CancelledOrders    int          `json:"cancelled_orders"`
	TotalComplaints    int          `json:"total_complaints"`
	OpenComplaints     int          `json:"open_complaints"`
	HighPriorityIssues int          `json:"high_priority_issues"`
}

func (s *Service) UserSummary(ctx context.Context, userID int64) (*UserSummary, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	complaints, err := s.repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}

	out := &UserSummary{User: user, TotalOrders: len(orders), TotalComplaints: len(complaints)}
	var spent float64
	for _, o := range orders {
		spent += o.TotalAmount
		switch o.Status {
		case models.OrderStatusDelivered:
			out.DeliveredOrders++
		case models.OrderStatusReturned:
			out.ReturnedOrders++
		case models.OrderStatusCancelled:
			out.CancelledOrders++
		}
	}
	out.TotalSpent = round2(spent)

	for _, c := range complaints {
		if c.Status == models.ComplaintStatusOpen || c.Status == models.ComplaintStatusInvestigating {
			out.OpenComplaints++
		}
		if c.Priority == models.ComplaintPriorityHigh || c.Priority == models.ComplaintPriorityCritical {
			out.HighPriorityIssues++
		}
	}
	return out, nil
}

// CityRevenue is one row of the revenue-by-city rollup. Orders whose user
// has no city are grouped under the empty string.
type CityRevenue struct {
	City          string  `json:"city"`
	OrderCount    int     `json:"order_count"`
	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

func (s *Service) RevenueByCity(ctx context.Context) ([]*CityRevenue, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{})
	if err != nil {
		return nil, err
	}

	cityByUser := make(map[int64]string, len(users))
	for _, u := range users {
		if u.City != nil {
			cityByUser[u.ID] = *u.City
		}
	}

	byCity := map[string]*CityRevenue{}
	for _, o := range orders {
		city := cityByUser[o.UserID]
		row := byCity[city]
		if row == nil {
			row = &CityRevenue{City: city}
			byCity[city] = row
		}
		row.OrderCount++
		row.TotalRevenue += o.TotalAmount
	}

	out := make([]*CityRevenue, 0, len(byCity))
	for _, row := range byCity {
		row.AvgOrderValue = round2(row.TotalRevenue / float64(row.OrderCount))
		row.TotalRevenue = round2(row.TotalRevenue)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		return out[i].City < out[j].City
	})
	return out, nil
}

// TopCustomer ranks users with at least one order by lifetime spend.
type TopCustomer struct {
	UserID        int64   `json:"user_id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	City          *string `json:"city"`
	OrderCount    int     `json:"order_count"`
	TotalSpent    float64 `json:"total_spent"`
	AvgOrderValue float64 `json:"avg_order_value"`
	LastOrderAt   string  `json:"last_order_at"`
}

func (s *Service) TopCustomers(ctx context.Context, limit int) ([]*TopCustomer, error) {
	if limit <= 0 {
		limit = 10
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{})
	if err != nil {
		return nil, err
	}

	byUser := map[int64]*TopCustomer{}
	for _, u := range users {
		byUser[u.ID] = &TopCustomer{UserID: u.ID, Name: u.Name, Email: u.Email, City: u.City}
	}
	for _, o := range orders {
		row := byUser[o.UserID]
		if row == nil {
			continue
		}
		row.OrderCount++
		row.TotalSpent += o.TotalAmount
		if o.OrderedAt > row.LastOrderAt {
			row.LastOrderAt = o.OrderedAt
		}
	}

	out := []*TopCustomer{}
	for _, row := range byUser {
		if row.OrderCount == 0 {
			continue
		}
		row.AvgOrderValue = round2(row.TotalSpent / float64(row.OrderCount))
		row.TotalSpent = round2(row.TotalSpent)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalSpent != out[j].TotalSpent {
			return out[i].TotalSpent > out[j].TotalSpent
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LifetimeValue is the single-customer spend profile.
type LifetimeValue struct {
	UserID          int64   `json:"user_id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	City            *string `json:"city"`
	State           *string `json:"state"`
	MemberSince     string  `json:"member_since"`
	TotalOrders     int     `json:"total_orders"`
	TotalSpent      float64 `json:"total_spent"`
	AvgOrderValue   float64 `json:"avg_order_value"`
	FirstOrderAt    *string `json:"first_order_at"`
	LastOrderAt     *string `json:"last_order_at"`
	TotalComplaints int     `json:"total_complaints"`
	OpenComplaints  int     `json:"open_complaints"`
}

func (s *Service) UserLifetimeValue(ctx context.Context, userID int64) (*LifetimeValue, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	complaints, err := s.repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}

	out := &LifetimeValue{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		City:        user.City,
		State:       user.State,
		MemberSince: user.CreatedAt,
		TotalOrders: len(orders),
	}
	var spent float64
	for _, o := range orders {
		spent += o.TotalAmount
		if out.FirstOrderAt == nil || o.OrderedAt < *out.FirstOrderAt {
			v := o.OrderedAt
			out.FirstOrderAt = &v
		}
		if out.LastOrderAt == nil || o.OrderedAt > *out.LastOrderAt {
			v := o.OrderedAt
			out.LastOrderAt = &v
		}
	}
	out.TotalSpent = round2(spent)
	if len(orders) > 0 {
		out.AvgOrderValue = round2(spent / float64(len(orders)))
	}
	out.TotalComplaints = len(complaints)
	for _, c := range complaints {
		if c.Status == models.ComplaintStatusOpen || c.Status == models.ComplaintStatusInvestigating {
			out.OpenComplaints++
		}
	}
	return out, nil
}

// GatewayFailureRate reports payment outcomes for one gateway.
type GatewayFailureRate struct {
	Gateway      string   `json:"gateway"`
	TotalEvents  int      `json:"total_events"`
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	FailurePct   *float64 `json:"failure_pct"`
}

// PaymentFailureReport is the failure-rate rollup across gateways. A zero
// event count yields a nil percentage, never a division by zero.
type PaymentFailureReport struct {
	Overall   *GatewayFailureRate   `json:"overall"`
	ByGateway []*GatewayFailureRate `json:"by_gateway"`
}

func (s *Service) PaymentFailureRate(ctx context.Context) (*PaymentFailureReport, error) {
	events, err := s.repo.PaymentLogs(ctx, sqlitestore.PaymentLogFilter{})
	if err != nil {
		return nil, err
	}

	overall := &GatewayFailureRate{Gateway: "all"}
	byGateway := map[string]*GatewayFailureRate{}
	tally := func(row *GatewayFailureRate, status string) {
		row.TotalEvents++
		switch status {
		case models.PaymentStatusSuccess:
			row.SuccessCount++
		case models.PaymentStatusFailed:
			row.FailureCount++
		}
	}
	for _, e := range events {
		row := byGateway[e.Gateway]
		if row == nil {
			row = &GatewayFailureRate{Gateway: e.Gateway}
			byGateway[e.Gateway] = row
		}
		tally(row, e.Status)
		tally(overall, e.Status)
	}

	finish := func(row *GatewayFailureRate) {
		if row.TotalEvents > 0 {
			pct := round2(float64(row.FailureCount) * 100 / float64(row.TotalEvents))
			row.FailurePct = &pct
		}
	}
	finish(overall)

	rows := make([]*GatewayFailureRate, 0, len(byGateway))
	for _, row := range byGateway {
		finish(row)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalEvents != rows[j].TotalEvents {
			return rows[i].TotalEvents > rows[j].TotalEvents
		}
		return rows[i].Gateway < rows[j].Gateway
	})
	return &PaymentFailureReport{Overall: overall, ByGateway: rows}, nil
}

// MethodSummary groups orders by payment method. Orders with no recorded
// method report a nil method.
type MethodSummary struct {
	PaymentMethod *string `json:"payment_method"`
	OrderCount    int     `json:"order_count"`
	TotalRevenue  float64 `json:"total_revenue"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

func (s *Service) PaymentSummaryByMethod(ctx context.Context) ([]*MethodSummary, error) {
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{})
	if err != nil {
		return nil, err
	}

	byMethod := map[string]*MethodSummary{}
	for _, o := range orders {
		key := ""
		if o.PaymentMethod != nil {
			key = *o.PaymentMethod
		}
		row := byMethod[key]
		if row == nil {
			row = &MethodSummary{PaymentMethod: o.PaymentMethod}
			byMethod[key] = row
		}
		row.OrderCount++
		row.TotalRevenue += o.TotalAmount
	}

	out := make([]*MethodSummary, 0, len(byMethod))
	for _, row := range byMethod {
		row.AvgOrderValue = round2(row.TotalRevenue / float64(row.OrderCount))
		row.TotalRevenue = round2(row.TotalRevenue)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		return methodKey(out[i].PaymentMethod) < methodKey(out[j].PaymentMethod)
	})
	return out, nil
}

func methodKey(m *string) string {
	if m == nil {
		return ""
	}
	return *m
}

// CountBucket is one group of a count rollup, largest first.
type CountBucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ComplaintStats breaks the complaint backlog down along each facet.
// Unassigned complaints are omitted from ByAgent.
type ComplaintStats struct {
	Total      int            `json:"total"`
	ByCategory []*CountBucket `json:"by_category"`
	ByPriority []*CountBucket `json:"by_priority"`
	ByStatus   []*CountBucket `json:"by_status"`
	ByAgent    []*CountBucket `json:"by_agent"`
}

func (s *Service) ComplaintStatistics(ctx context.Context) (*ComplaintStats, error) {
	complaints, err := s.repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{})
	if err != nil {
		return nil, err
	}

	byCategory := map[string]int{}
	byPriority := map[string]int{}
	byStatus := map[string]int{}
	byAgent := map[string]int{}
	for _, c := range complaints {
		byCategory[c.Category]++
		byPriority[c.Priority]++
		byStatus[c.Status]++
		if c.AssignedTo != nil {
			byAgent[*c.AssignedTo]++
		}
	}

	return &ComplaintStats{
		Total:      len(complaints),
		ByCategory: sortedBuckets(byCategory),
		ByPriority: sortedBuckets(byPriority),
		ByStatus:   sortedBuckets(byStatus),
		ByAgent:    sortedBuckets(byAgent),
	}, nil
}

func sortedBuckets(counts map[string]int) []*CountBucket {
	out := make([]*CountBucket, 0, len(counts))
	for k, v := range counts {
		out = append(out, &CountBucket{Key: k, Count: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// RevenueBucket is a count rollup that also carries revenue.
type RevenueBucket struct {
	Key          string  `json:"key"`
	Count        int     `json:"count"`
	TotalRevenue float64 `json:"total_revenue"`
}

type OrderStats struct {
	Total     int              `json:"total"`
	ByStatus  []*RevenueBucket `json:"by_status"`
	ByPayment []*RevenueBucket `json:"by_payment"`
}

func (s *Service) OrderStatistics(ctx context.Context) (*OrderStats, error) {
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{})
	if err != nil {
		return nil, err
	}

	byStatus := map[string]*RevenueBucket{}
	byPayment := map[string]*RevenueBucket{}
	add := func(m map[string]*RevenueBucket, key string, amount float64) {
		row := m[key]
		if row == nil {
			row = &RevenueBucket{Key: key}
			m[key] = row
		}
		row.Count++
		row.TotalRevenue += amount
	}
	for _, o := range orders {
		add(byStatus, o.Status, o.TotalAmount)
		add(byPayment, methodKey(o.PaymentMethod), o.TotalAmount)
	}

	return &OrderStats{
		Total:     len(orders),
		ByStatus:  sortedRevenueBuckets(byStatus),
		ByPayment: sortedRevenueBuckets(byPayment),
	}, nil
}

func sortedRevenueBuckets(m map[string]*RevenueBucket) []*RevenueBucket {
	out := make([]*RevenueBucket, 0, len(m))
	for _, row := range m {
		row.TotalRevenue = round2(row.TotalRevenue)
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ResolutionDetail is one resolved complaint's turnaround.
type ResolutionDetail struct {
	ComplaintID     int64   `json:"complaint_id"`
	Category        string  `json:"category"`
	Priority        string  `json:"priority"`
	ResolutionHours float64 `json:"resolution_hours"`
}

type PriorityResolution struct {
	Priority      string  `json:"priority"`
	ResolvedCount int     `json:"resolved_count"`
	AvgHours      float64 `json:"avg_hours"`
}

// ResolutionStats summarises resolution turnaround over complaints carrying
// a resolved_at timestamp. With no resolved complaints the aggregate hours
// are nil, not zero.
type ResolutionStats struct {
	ResolvedCount int                   `json:"resolved_count"`
	AvgHours      *float64              `json:"avg_hours"`
	MinHours      *float64              `json:"min_hours"`
	MaxHours      *float64              `json:"max_hours"`
	ByPriority    []*PriorityResolution `json:"by_priority"`
	Details       []*ResolutionDetail   `json:"details"`
}

func (s *Service) ResolutionTimeStats(ctx context.Context) (*ResolutionStats, error) {
	complaints, err := s.repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{})
	if err != nil {
		return nil, err
	}

	out := &ResolutionStats{ByPriority: []*PriorityResolution{}, Details: []*ResolutionDetail{}}
	type prioAgg struct {
		count int
		sum   float64
	}
	byPriority := map[string]*prioAgg{}
	var sum float64
	for _, c := range complaints {
		if c.ResolvedAt == nil {
			continue
		}
		h := hoursBetween(c.CreatedAt, *c.ResolvedAt)
		if h == nil {
			continue
		}
		out.ResolvedCount++
		sum += *h
		if out.MinHours == nil || *h < *out.MinHours {
			v := *h
			out.MinHours = &v
		}
		if out.MaxHours == nil || *h > *out.MaxHours {
			v := *h
			out.MaxHours = &v
		}
		pa := byPriority[c.Priority]
		if pa == nil {
			pa = &prioAgg{}
			byPriority[c.Priority] = pa
		}
		pa.count++
		pa.sum += *h
		out.Details = append(out.Details, &ResolutionDetail{
			ComplaintID:     c.ID,
			Category:        c.Category,
			Priority:        c.Priority,
			ResolutionHours: *h,
		})
	}

	if out.ResolvedCount > 0 {
		avg := round1(sum / float64(out.ResolvedCount))
		out.AvgHours = &avg
	}
	for priority, pa := range byPriority {
		out.ByPriority = append(out.ByPriority, &PriorityResolution{
			Priority:      priority,
			ResolvedCount: pa.count,
			AvgHours:      round1(pa.sum / float64(pa.count)),
		})
	}
	sort.SliceStable(out.ByPriority, func(i, j int) bool {
		if out.ByPriority[i].AvgHours != out.ByPriority[j].AvgHours {
			return out.ByPriority[i].AvgHours > out.ByPriority[j].AvgHours
		}
		return out.ByPriority[i].Priority < out.ByPriority[j].Priority
	})
	sort.SliceStable(out.Details, func(i, j int) bool {
		if out.Details[i].ResolutionHours != out.Details[j].ResolutionHours {
			return out.Details[i].ResolutionHours > out.Details[j].ResolutionHours
		}
		return out.Details[i].ComplaintID < out.Details[j].ComplaintID
	})
	return out, nil
}

// DashboardSummary is the one-call operational overview.
type DashboardSummary struct {
	Users struct {
		Total int `json:"total"`
	} `json:"users"`
	Orders struct {
		Total         int      `json:"total"`
		TotalRevenue  float64  `json:"total_revenue"`
		AvgOrderValue *float64 `json:"avg_order_value"`
		Delivered     int      `json:"delivered"`
		InTransit     int      `json:"in_transit"`
		Pending       int      `json:"pending"`
	} `json:"orders"`
	Complaints struct {
		Total        int `json:"total"`
		OpenCount    int `json:"open_count"`
		HighPriority int `json:"high_priority"`
	} `json:"complaints"`
}

func (s *Service) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{})
	if err != nil {
		return nil, err
	}
	complaints, err := s.repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{})
	if err != nil {
		return nil, err
	}

	out := &DashboardSummary{}
	out.Users.Total = len(users)

	out.Orders.Total = len(orders)
	var revenue float64
	for _, o := range orders {
		revenue += o.TotalAmount
		switch o.Status {
		case models.OrderStatusDelivered:
			out.Orders.Delivered++
		case models.OrderStatusShipped:
			out.Orders.InTransit++
		case models.OrderStatusPending:
			out.Orders.Pending++
		}
	}
	out.Orders.TotalRevenue = round2(revenue)
	if len(orders) > 0 {
		avg := round2(revenue / float64(len(orders)))
		out.Orders.AvgOrderValue = &avg
	}

	out.Complaints.Total = len(complaints)
	for _, c := range complaints {
		if c.Status == models.ComplaintStatusOpen || c.Status == models.ComplaintStatusInvestigating {
			out.Complaints.OpenCount++
		}
		if c.Priority == models.ComplaintPriorityHigh || c.Priority == models.ComplaintPriorityCritical {
			out.Complaints.HighPriority++
		}
	}
	return out, nil
}

// CorrelatedIssue pairs one complaint with its linked order, if any.
type CorrelatedIssue struct {
	Complaint *models.Complaint `json:"complaint"`
	Order     *models.Order     `json:"order"`
}

// CorrelateUserIssues left-joins a user's complaints with their orders,
// newest complaint first. Complaints without an order keep a nil order.
func (s *Service) CorrelateUserIssues(ctx context.Context, userID int64) ([]*CorrelatedIssue, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	complaints, err := s.repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	ordersByID := make(map[int64]*models.Order, len(orders))
	for _, o := range orders {
		ordersByID[o.ID] = o
	}

	out := make([]*CorrelatedIssue, 0, len(complaints))
	for _, c := range complaints {
		issue := &CorrelatedIssue{Complaint: c}
		if c.OrderID != nil {
			issue.Order = ordersByID[*c.OrderID]
		}
		out = append(out, issue)
	}
	return out, nil
}
