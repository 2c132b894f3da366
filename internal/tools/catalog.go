package tools

import (
	"context"

	"github.com/caselens/caselens/internal/services/correlation"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
)

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argInt64(args map[string]any, key string) int64 {
	v, _ := args[key].(float64)
	return int64(v)
}

func optInt64(args map[string]any, key string) *int64 {
	v, ok := args[key].(float64)
	if !ok {
		return nil
	}
	n := int64(v)
	return &n
}

func argIntDefault(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	return int(v)
}

const (
	schemaEmpty = `{"type":"object","properties":{},"additionalProperties":false}`

	schemaUserID = `{"type":"object","properties":{
		"user_id":{"type":"integer","minimum":1,"description":"User ID"}},
		"required":["user_id"],"additionalProperties":false}`

	schemaOrderID = `{"type":"object","properties":{
		"order_id":{"type":"integer","minimum":1,"description":"Order ID"}},
		"required":["order_id"],"additionalProperties":false}`

	schemaComplaintID = `{"type":"object","properties":{
		"complaint_id":{"type":"integer","minimum":1,"description":"Complaint ID"}},
		"required":["complaint_id"],"additionalProperties":false}`

	schemaKeyword = `{"type":"object","properties":{
		"keyword":{"type":"string","minLength":1,"description":"Substring to match"}},
		"required":["keyword"],"additionalProperties":false}`

	schemaListOrders = `{"type":"object","properties":{
		"user_id":{"type":"integer","minimum":1},
		"status":{"type":"string","enum":["pending","processing","shipped","delivered","cancelled","returned"]},
		"payment_method":{"type":"string","minLength":1}},
		"additionalProperties":false}`

	schemaDateRange = `{"type":"object","properties":{
		"start_date":{"type":"string","minLength":1,"description":"Inclusive ISO-8601 lower bound"},
		"end_date":{"type":"string","minLength":1,"description":"Inclusive ISO-8601 upper bound"}},
		"required":["start_date","end_date"],"additionalProperties":false}`

	schemaTracking = `{"type":"object","properties":{
		"tracking_number":{"type":"string","minLength":1}},
		"required":["tracking_number"],"additionalProperties":false}`

	schemaListComplaints = `{"type":"object","properties":{
		"user_id":{"type":"integer","minimum":1},
		"status":{"type":"string","enum":["open","investigating","waiting_customer","resolved","closed"]},
		"category":{"type":"string","enum":["delivery","billing","product","service","account","other"]},
		"priority":{"type":"string","enum":["low","medium","high","critical"]},
		"assigned_to":{"type":"string","minLength":1}},
		"additionalProperties":false}`

	schemaPaymentLogs = `{"type":"object","properties":{
		"order_id":{"type":"integer","minimum":1},
		"start_date":{"type":"string","minLength":1},
		"end_date":{"type":"string","minLength":1}},
		"additionalProperties":false}`

	schemaLogisticsLogs = `{"type":"object","properties":{
		"order_id":{"type":"integer","minimum":1},
		"tracking_number":{"type":"string","minLength":1},
		"start_date":{"type":"string","minLength":1},
		"end_date":{"type":"string","minLength":1}},
		"additionalProperties":false}`

	schemaComplaintContext = `{"type":"object","properties":{
		"complaint_id":{"type":"integer","minimum":1},
		"window_hours":{"type":"integer","minimum":1,"maximum":720,"default":48,
			"description":"Correlation window echoed in the bundle"}},
		"required":["complaint_id"],"additionalProperties":false}`

	schemaTopCustomers = `{"type":"object","properties":{
		"limit":{"type":"integer","minimum":1,"maximum":100,"default":10}},
		"additionalProperties":false}`
)

// RegisterCatalog wires every investigation tool and snapshot resource to
// the correlation service and its repository.
func RegisterCatalog(r *Registry, repo correlation.Repository, svc *correlation.Service) error {
	type entry struct {
		name, desc, schema string
		h                  Handler
	}
	entries := []entry{
		{"list_users", "List all registered users.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.ListUsers(ctx)
			}},
		{"get_user_by_id", "Fetch one user by ID.", schemaUserID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.GetUserByID(ctx, argInt64(args, "user_id"))
			}},
		{"search_users", "Search users by name or email substring.", schemaKeyword,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.SearchUsers(ctx, argString(args, "keyword"))
			}},
		{"get_user_summary", "User profile with order and complaint rollups.", schemaUserID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.UserSummary(ctx, argInt64(args, "user_id"))
			}},
		{"list_orders", "List orders, optionally filtered by user, status or payment method.", schemaListOrders,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.ListOrders(ctx, sqlitestore.OrderFilter{
					UserID:        optInt64(args, "user_id"),
					Status:        argString(args, "status"),
					PaymentMethod: argString(args, "payment_method"),
				})
			}},
		{"get_order_by_id", "Fetch one order by ID.", schemaOrderID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.GetOrderByID(ctx, argInt64(args, "order_id"))
			}},
		{"get_orders_by_date_range", "Orders placed between two timestamps, inclusive.", schemaDateRange,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.OrdersByDateRange(ctx, argString(args, "start_date"), argString(args, "end_date"))
			}},
		{"get_order_by_tracking", "Fetch one order by tracking number.", schemaTracking,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.GetOrderByTracking(ctx, argString(args, "tracking_number"))
			}},
		{"get_order_statistics", "Order counts and revenue grouped by status and payment method.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.OrderStatistics(ctx)
			}},
		{"list_complaints", "List complaints, optionally filtered.", schemaListComplaints,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{
					UserID:     optInt64(args, "user_id"),
					Status:     argString(args, "status"),
					Category:   argString(args, "category"),
					Priority:   argString(args, "priority"),
					AssignedTo: argString(args, "assigned_to"),
				})
			}},
		{"get_complaint_by_id", "Fetch one complaint by ID.", schemaComplaintID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.GetComplaintByID(ctx, argInt64(args, "complaint_id"))
			}},
		{"search_complaints", "Search complaints by subject or details substring.", schemaKeyword,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.SearchComplaints(ctx, argString(args, "keyword"))
			}},
		{"get_high_priority_open_complaints", "Open or investigating complaints with high or critical priority.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.HighPriorityOpenComplaints(ctx)
			}},
		{"get_complaint_statistics", "Complaint counts grouped by category, priority, status and agent.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.ComplaintStatistics(ctx)
			}},
		{"get_complaints_for_order", "All complaints linked to one order, oldest first.", schemaOrderID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.ComplaintsForOrder(ctx, argInt64(args, "order_id"))
			}},
		{"correlate_user_issues", "A user's complaints joined with their linked orders.", schemaUserID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.CorrelateUserIssues(ctx, argInt64(args, "user_id"))
			}},
		{"get_payment_logs", "Payment events, optionally filtered by order and time range.", schemaPaymentLogs,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.PaymentLogs(ctx, sqlitestore.PaymentLogFilter{
					OrderID: optInt64(args, "order_id"),
					Start:   argString(args, "start_date"),
					End:     argString(args, "end_date"),
				})
			}},
		{"get_logistics_logs", "Logistics events, optionally filtered by order, tracking number and time range.", schemaLogisticsLogs,
			func(ctx context.Context, args map[string]any) (any, error) {
				return repo.LogisticsLogs(ctx, sqlitestore.LogisticsLogFilter{
					OrderID:        optInt64(args, "order_id"),
					TrackingNumber: argString(args, "tracking_number"),
					Start:          argString(args, "start_date"),
					End:            argString(args, "end_date"),
				})
			}},
		{"get_complaint_context_logs", "Complaint plus its user, linked order and the order's full payment and logistics history.", schemaComplaintContext,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.ComplaintContext(ctx, argInt64(args, "complaint_id"), argIntDefault(args, "window_hours", correlation.DefaultWindowHours))
			}},
		{"get_revenue_by_city", "Revenue rollup grouped by customer city.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.RevenueByCity(ctx)
			}},
		{"get_top_customers", "Customers ranked by lifetime spend.", schemaTopCustomers,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.TopCustomers(ctx, argIntDefault(args, "limit", 10))
			}},
		{"get_user_lifetime_value", "Single-customer spend profile with first/last order anchors.", schemaUserID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.UserLifetimeValue(ctx, argInt64(args, "user_id"))
			}},
		{"get_dashboard_summary", "One-call operational overview of users, orders and complaints.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.DashboardSummary(ctx)
			}},
		{"get_order_fulfillment_timeline", "Order with its payment events, logistics events and complaints.", schemaOrderID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.OrderFulfillmentTimeline(ctx, argInt64(args, "order_id"))
			}},
		{"get_active_shipments", "Every shipped order with latest event and dispatch anchor.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.ActiveShipments(ctx)
			}},
		{"get_order_delivery_time", "Processing, shipping and total hours derived from logistics anchors.", schemaOrderID,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.OrderDeliveryTime(ctx, argInt64(args, "order_id"))
			}},
		{"get_complaint_resolution_time_stats", "Resolution turnaround aggregates over resolved complaints.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.ResolutionTimeStats(ctx)
			}},
		{"get_payment_failure_rate", "Payment failure percentages per gateway and overall.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.PaymentFailureRate(ctx)
			}},
		{"get_payment_summary_by_method", "Order counts and revenue grouped by payment method.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.PaymentSummaryByMethod(ctx)
			}},
		{"get_carrier_performance", "Per-carrier event volume and average delivery hours.", schemaEmpty,
			func(ctx context.Context, args map[string]any) (any, error) {
				return svc.CarrierPerformance(ctx)
			}},
	}

	for _, e := range entries {
		if err := r.Register(e.name, e.desc, e.schema, e.h); err != nil {
			return err
		}
	}

	registerResources(r, repo, svc)
	return nil
}

func registerResources(r *Registry, repo correlation.Repository, svc *correlation.Service) {
	r.RegisterResource("context://data/users", "All Users", "Full users table.",
		func(ctx context.Context) (any, error) { return repo.ListUsers(ctx) })
	r.RegisterResource("context://data/orders", "All Orders", "Full orders table, newest first.",
		func(ctx context.Context) (any, error) { return repo.ListOrders(ctx, sqlitestore.OrderFilter{}) })
	r.RegisterResource("context://data/complaints", "All Complaints", "Full complaints table, newest first.",
		func(ctx context.Context) (any, error) { return repo.ListComplaints(ctx, sqlitestore.ComplaintFilter{}) })
	r.RegisterResource("context://stats/orders", "Order Statistics", "Counts and revenue by status and payment method.",
		func(ctx context.Context) (any, error) { return svc.OrderStatistics(ctx) })
	r.RegisterResource("context://stats/complaints", "Complaint Statistics", "Counts by category, priority, status and agent.",
		func(ctx context.Context) (any, error) { return svc.ComplaintStatistics(ctx) })
	r.RegisterResource("context://stats/revenue-by-city", "Revenue By City", "Revenue rollup grouped by customer city.",
		func(ctx context.Context) (any, error) { return svc.RevenueByCity(ctx) })
	r.RegisterResource("context://stats/top-customers", "Top Customers", "Top ten customers by lifetime spend.",
		func(ctx context.Context) (any, error) { return svc.TopCustomers(ctx, 10) })
	r.RegisterResource("context://stats/payment-failure", "Payment Failure Rates", "Failure percentages per gateway and overall.",
		func(ctx context.Context) (any, error) { return svc.PaymentFailureRate(ctx) })
	r.RegisterResource("context://stats/carrier-performance", "Carrier Performance", "Per-carrier event volume and delivery hours.",
		func(ctx context.Context) (any, error) { return svc.CarrierPerformance(ctx) })
	r.RegisterResource("context://alerts/high-priority", "Urgent Complaints", "Open high/critical complaints needing attention.",
		func(ctx context.Context) (any, error) { return repo.HighPriorityOpenComplaints(ctx) })
	r.RegisterResource("context://logs/payments", "Payment Logs", "Full payment event stream, oldest first.",
		func(ctx context.Context) (any, error) { return repo.PaymentLogs(ctx, sqlitestore.PaymentLogFilter{}) })
	r.RegisterResource("context://logs/logistics", "Logistics Logs", "Full logistics event stream, oldest first.",
		func(ctx context.Context) (any, error) { return repo.LogisticsLogs(ctx, sqlitestore.LogisticsLogFilter{}) })
	r.RegisterResource("context://dashboard/summary", "Dashboard Summary", "Operational overview of users, orders and complaints.",
		func(ctx context.Context) (any, error) { return svc.DashboardSummary(ctx) })
}
