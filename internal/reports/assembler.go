// Package reports renders the guided investigation briefs: named templates
// that pull live data through the correlation service and emit a fully
// evidence-backed instruction text. Rendering is deterministic for a given
// store state.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/caselens/caselens/internal/models"
	"github.com/caselens/caselens/internal/services/correlation"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/pkg/errors"
)

var ErrPromptNotFound = errors.New("prompt not found")

type Argument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type Prompt struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Arguments   []Argument `json:"arguments"`
}

// Rendered is one assembled brief.
type Rendered struct {
	Description string `json:"description"`
	Text        string `json:"text"`
}

type Assembler struct {
	repo correlation.Repository
	svc  *correlation.Service
}

func New(repo correlation.Repository, svc *correlation.Service) *Assembler {
	return &Assembler{repo: repo, svc: svc}
}

var catalog = []Prompt{
	{
		Name: "user_360_view",
		Description: "Build a comprehensive 360-degree view of a user: profile, order history, " +
			"complaints, spending patterns and risk signals. Use this before answering " +
			"any question about a specific customer.",
		Arguments: []Argument{
			{Name: "user_id", Description: "The numeric user id to analyse.", Required: true},
		},
	},
	{
		Name: "root_cause_analysis",
		Description: "Perform root-cause analysis on a complaint. Correlate the complaint with " +
			"its linked order, user history and similar complaints to determine the " +
			"underlying issue and suggest next steps.",
		Arguments: []Argument{
			{Name: "complaint_id", Description: "Complaint id to investigate.", Required: true},
		},
	},
	{
		Name: "escalation_review",
		Description: "Review all open high-priority and critical complaints, identify patterns, " +
			"and recommend escalation or resolution actions.",
		Arguments: []Argument{},
	},
	{
		Name: "order_investigation",
		Description: "Investigate an order end-to-end: payment events, logistics tracking, " +
			"delivery timeline and linked complaints.",
		Arguments: []Argument{
			{Name: "order_id", Description: "Order id to investigate.", Required: true},
		},
	},
	{
		Name: "system_health_overview",
		Description: "Produce a system-health dashboard: order pipeline status, complaint " +
			"volume by category/priority, agent workload and any emerging trends.",
		Arguments: []Argument{},
	},
	{
		Name: "deep_root_cause_analysis",
		Description: "Perform deep root-cause analysis on a complaint by enriching it with " +
			"payment and logistics logs around the complaint timeline. " +
			"Automatically determines which data domains are most relevant based on " +
			"the complaint category, then correlates timestamps across all sources " +
			"to identify the root cause. Use this for thorough investigations.",
		Arguments: []Argument{
			{Name: "complaint_id", Description: "Complaint id to investigate.", Required: true},
			{Name: "window_hours", Description: "Hours around the complaint time to search logs (default 48).", Required: false},
		},
	},
	{
		Name: "customer_churn_risk",
		Description: "Assess churn risk for a customer based on their lifetime value, complaint " +
			"history, open issues and recent activity. Provides a risk score, contributing " +
			"factors, and retention recommendations.",
		Arguments: []Argument{
			{Name: "user_id", Description: "User id to assess churn risk for.", Required: true},
		},
	},
	{
		Name: "regional_performance_review",
		Description: "Analyse business performance across cities: revenue distribution, " +
			"order volumes, carrier reliability, and complaint hotspots. Provides " +
			"actionable insights for regional strategy.",
		Arguments: []Argument{},
	},
	{
		Name: "payment_health_audit",
		Description: "Audit payment system health: gateway success/failure rates, payment method " +
			"distribution, revenue by payment type, and anomaly detection. Identifies " +
			"unreliable gateways and opportunities for payment UX improvement.",
		Arguments: []Argument{},
	},
}

// Prompts returns the template catalog in its fixed order.
func (a *Assembler) Prompts() []Prompt {
	return catalog
}

// Render assembles the named brief. Arguments arrive as strings the way
// transports deliver them; numeric ones are parsed here.
func (a *Assembler) Render(ctx context.Context, name string, args map[string]string) (*Rendered, error) {
	switch name {
	case "user_360_view":
		return a.user360View(ctx, args)
	case "root_cause_analysis":
		return a.rootCauseAnalysis(ctx, args)
	case "escalation_review":
		return a.escalationReview(ctx)
	case "order_investigation":
		return a.orderInvestigation(ctx, args)
	case "system_health_overview":
		return a.systemHealthOverview(ctx)
	case "deep_root_cause_analysis":
		return a.deepRootCauseAnalysis(ctx, args)
	case "customer_churn_risk":
		return a.customerChurnRisk(ctx, args)
	case "regional_performance_review":
		return a.regionalPerformanceReview(ctx)
	case "payment_health_audit":
		return a.paymentHealthAudit(ctx)
	}
	return nil, errors.Wrap(ErrPromptNotFound, name)
}

func requireID(args map[string]string, key string) (int64, error) {
	raw, ok := args[key]
	if !ok || raw == "" {
		return 0, errors.Errorf("missing required argument %q", key)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.Errorf("argument %q must be a positive integer", key)
	}
	return id, nil
}

// jsonBlock renders one labelled evidence section.
func jsonBlock(label string, v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		b = []byte("null")
	}
	return "### " + label + "\n```json\n" + string(b) + "\n```"
}

func joinBlocks(intro string, blocks ...string) string {
	return intro + "\n\n" + strings.Join(blocks, "\n\n")
}

func (a *Assembler) user360View(ctx context.Context, args map[string]string) (*Rendered, error) {
	uid, err := requireID(args, "user_id")
	if err != nil {
		return nil, err
	}
	summary, err := a.svc.UserSummary(ctx, uid)
	if err != nil {
		return nil, err
	}
	orders, err := a.repo.ListOrders(ctx, sqlitestore.OrderFilter{UserID: &uid})
	if err != nil {
		return nil, err
	}
	issues, err := a.svc.CorrelateUserIssues(ctx, uid)
	if err != nil {
		return nil, err
	}

	intro := "You are a customer-intelligence analyst. Using the data below, produce a " +
		"comprehensive 360-degree view of this customer. Include:\n" +
		"1. Profile overview (location, account age)\n" +
		"2. Order history summary (count, total spend, statuses)\n" +
		"3. Complaint analysis (categories, severities, open items)\n" +
		"4. Risk signals (repeated issues, high-priority open complaints, returns)\n" +
		"5. Recommended next actions"
	return &Rendered{
		Description: fmt.Sprintf("360-degree view for user %d", uid),
		Text: joinBlocks(intro,
			jsonBlock("User Summary", summary),
			jsonBlock("Orders", orders),
			jsonBlock("Correlated Issues (Orders <-> Complaints)", issues),
		),
	}, nil
}

func (a *Assembler) rootCauseAnalysis(ctx context.Context, args map[string]string) (*Rendered, error) {
	cid, err := requireID(args, "complaint_id")
	if err != nil {
		return nil, err
	}
	complaint, err := a.repo.GetComplaintByID(ctx, cid)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	if complaint.OrderID != nil {
		order, err = a.repo.GetOrderByID(ctx, *complaint.OrderID)
		if err != nil && !errors.Is(err, sqlitestore.ErrNotFound) {
			return nil, err
		}
	}
	issues, err := a.svc.CorrelateUserIssues(ctx, complaint.UserID)
	if err != nil {
		return nil, err
	}
	var similar []*models.Complaint
	if fields := strings.Fields(complaint.Subject); len(fields) > 0 {
		similar, err = a.repo.SearchComplaints(ctx, fields[0])
		if err != nil {
			return nil, err
		}
	}
	if len(similar) > 5 {
		similar = similar[:5]
	}

	intro := "You are a root-cause analysis specialist. Given the complaint and its " +
		"related context, determine:\n" +
		"1. What went wrong (root cause)\n" +
		"2. Contributing factors\n" +
		"3. Impact scope (is this affecting other users/orders?)\n" +
		"4. Recommended resolution\n" +
		"5. Preventive measures"
	return &Rendered{
		Description: fmt.Sprintf("RCA for complaint %d", cid),
		Text: joinBlocks(intro,
			jsonBlock("Complaint", complaint),
			jsonBlock("Linked Order", order),
			jsonBlock("User's Full Issue History", issues),
			jsonBlock("Potentially Similar Complaints", similar),
		),
	}, nil
}

func (a *Assembler) escalationReview(ctx context.Context) (*Rendered, error) {
	urgent, err := a.repo.HighPriorityOpenComplaints(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := a.svc.ComplaintStatistics(ctx)
	if err != nil {
		return nil, err
	}

	intro := "You are an escalation manager. Review the high-priority open complaints " +
		"and complaint statistics below. For each complaint:\n" +
		"1. Assess urgency and business impact\n" +
		"2. Identify patterns across complaints\n" +
		"3. Recommend escalation path or immediate resolution\n" +
		"4. Suggest process improvements"
	return &Rendered{
		Description: "Escalation review",
		Text: joinBlocks(intro,
			jsonBlock(fmt.Sprintf("Urgent Queue (%d items)", len(urgent)), urgent),
			jsonBlock("System-Wide Complaint Statistics", stats),
		),
	}, nil
}

func (a *Assembler) orderInvestigation(ctx context.Context, args map[string]string) (*Rendered, error) {
	oid, err := requireID(args, "order_id")
	if err != nil {
		return nil, err
	}
	timeline, err := a.svc.OrderFulfillmentTimeline(ctx, oid)
	if err != nil {
		return nil, err
	}
	user, err := a.repo.GetUserByID(ctx, timeline.Order.UserID)
	if err != nil && !errors.Is(err, sqlitestore.ErrNotFound) {
		return nil, err
	}
	deliveryTime, err := a.svc.OrderDeliveryTime(ctx, oid)
	if err != nil {
		return nil, err
	}

	intro := "You are an order-fulfilment investigator. Analyse this order end-to-end:\n" +
		"1. Payment verification (check all payment events for anomalies)\n" +
		"2. Logistics timeline analysis (carrier, tracking events, delays)\n" +
		"3. Delivery timeline assessment (processing, shipping, total hours)\n" +
		"4. Any linked complaints and their severity\n" +
		"5. Customer context and risk level\n" +
		"6. Recommended actions"
	return &Rendered{
		Description: fmt.Sprintf("Investigation for order %d", oid),
		Text: joinBlocks(intro,
			jsonBlock("Order", timeline.Order),
			jsonBlock("Payment Events", timeline.PaymentEvents),
			jsonBlock("Logistics Events", timeline.LogisticsEvents),
			jsonBlock("Complaints on this Order", timeline.Complaints),
			jsonBlock("Delivery Time Metrics", deliveryTime),
			jsonBlock("Customer Profile", user),
		),
	}, nil
}

func (a *Assembler) systemHealthOverview(ctx context.Context) (*Rendered, error) {
	dashboard, err := a.svc.DashboardSummary(ctx)
	if err != nil {
		return nil, err
	}
	orderStats, err := a.svc.OrderStatistics(ctx)
	if err != nil {
		return nil, err
	}
	complaintStats, err := a.svc.ComplaintStatistics(ctx)
	if err != nil {
		return nil, err
	}
	urgent, err := a.repo.HighPriorityOpenComplaints(ctx)
	if err != nil {
		return nil, err
	}
	carrier, err := a.svc.CarrierPerformance(ctx)
	if err != nil {
		return nil, err
	}

	intro := "You are a business-intelligence analyst. Using the data below, produce a " +
		"system-health dashboard covering:\n" +
		"1. Dashboard summary (users, orders, complaints at a glance)\n" +
		"2. Order pipeline (pending -> processing -> shipped -> delivered / cancelled / returned)\n" +
		"3. Revenue breakdown by payment method\n" +
		"4. Complaint volume by category and priority\n" +
		"5. Agent workload distribution\n" +
		"6. Carrier performance and delivery reliability\n" +
		"7. Emerging trends and risk areas\n" +
		"8. Actionable recommendations"
	return &Rendered{
		Description: "System health overview",
		Text: joinBlocks(intro,
			jsonBlock("Dashboard Summary", dashboard),
			jsonBlock("Order Statistics", orderStats),
			jsonBlock("Complaint Statistics", complaintStats),
			jsonBlock("Carrier Performance", carrier),
			jsonBlock(fmt.Sprintf("High-Priority Open Complaints (%d)", len(urgent)), urgent),
		),
	}, nil
}

// Per-category guidance for the deep investigation brief.
var domainHints = map[string]string{
	"delivery": "LOGISTICS LOGS are the primary source - look for delays, held_at_facility events, damage notes, stuck tracking.",
	"billing":  "PAYMENT LOGS are the primary source - look for duplicate captures, failed refunds, ghost charges, amount mismatches. Cross-check order totals.",
	"product":  "LOGISTICS LOGS may reveal transit damage. PAYMENT LOGS show refund status. Correlate with complaint timeline.",
	"service":  "Check payment and logistics logs for systemic delays or patterns. Focus on timeline gaps.",
	"account":  "Payment and logistics logs may reveal unauthorized activity. Check user profile carefully.",
	"other":    "Examine all log sources equally. Look for anomalies in any domain.",
}

func (a *Assembler) deepRootCauseAnalysis(ctx context.Context, args map[string]string) (*Rendered, error) {
	cid, err := requireID(args, "complaint_id")
	if err != nil {
		return nil, err
	}
	wh := correlation.DefaultWindowHours
	if raw := args["window_hours"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return nil, errors.New(`argument "window_hours" must be a positive integer`)
		}
		wh = parsed
	}

	bundle, err := a.svc.ComplaintContext(ctx, cid, wh)
	if err != nil {
		return nil, err
	}
	category := bundle.Complaint.Category
	hint, ok := domainHints[category]
	if !ok {
		hint = domainHints["other"]
	}

	intro := "You are a senior root-cause analysis specialist with access to cross-domain " +
		"operational logs. Perform a DEEP investigation of this complaint.\n\n" +
		fmt.Sprintf("**Complaint Category: `%s`**\n", category) +
		fmt.Sprintf("**Domain Guidance:** %s\n\n", hint) +
		"## Investigation Steps\n" +
		"1. Review the complaint details and linked order\n" +
		"2. Examine the **payment logs** - look for duplicate charges, failed transactions, " +
		"refund delays, or amount mismatches\n" +
		"3. Examine the **logistics logs** - look for shipping delays, transit damage, " +
		"stuck tracking, held_at_facility events, or delivery failures\n" +
		"4. **Correlate timestamps** across all domains to find the causal chain\n" +
		"5. Determine root cause, contributing factors, and impact scope\n" +
		"6. Recommend resolution and preventive measures\n\n" +
		"If you need more detail on any domain, use the individual log tools " +
		"(get_payment_logs, get_logistics_logs) with adjusted time windows."
	return &Rendered{
		Description: fmt.Sprintf("Deep RCA for complaint %d (category=%s, window=%dh)", cid, category, wh),
		Text: joinBlocks(intro,
			jsonBlock("Complaint", bundle.Complaint),
			jsonBlock("Linked Order", bundle.Order),
			jsonBlock("Customer Profile", bundle.User),
			jsonBlock("Payment Logs (full order history)", bundle.PaymentLogs),
			jsonBlock("Logistics Logs (full order history)", bundle.LogisticsLogs),
		),
	}, nil
}

func (a *Assembler) customerChurnRisk(ctx context.Context, args map[string]string) (*Rendered, error) {
	uid, err := requireID(args, "user_id")
	if err != nil {
		return nil, err
	}
	ltv, err := a.svc.UserLifetimeValue(ctx, uid)
	if err != nil {
		return nil, err
	}
	issues, err := a.svc.CorrelateUserIssues(ctx, uid)
	if err != nil {
		return nil, err
	}
	orders, err := a.repo.ListOrders(ctx, sqlitestore.OrderFilter{UserID: &uid})
	if err != nil {
		return nil, err
	}

	intro := "You are a customer retention specialist. Assess the churn risk for this " +
		"customer based on the data below. Provide:\n" +
		"1. **Risk Score** (Low / Medium / High / Critical) with justification\n" +
		"2. **Key Risk Factors** (e.g., unresolved complaints, declining order frequency, " +
		"high-value customer with open issues)\n" +
		"3. **Customer Health Indicators** (order recency, frequency, monetary value)\n" +
		"4. **Complaint Sentiment** (categories, resolutions, unresolved items)\n" +
		"5. **Retention Recommendations** (specific actions to retain this customer)"
	return &Rendered{
		Description: fmt.Sprintf("Churn risk assessment for user %d", uid),
		Text: joinBlocks(intro,
			jsonBlock("Lifetime Value Metrics", ltv),
			jsonBlock("Order History", orders),
			jsonBlock("Correlated Issues", issues),
		),
	}, nil
}

func (a *Assembler) regionalPerformanceReview(ctx context.Context) (*Rendered, error) {
	revenue, err := a.svc.RevenueByCity(ctx)
	if err != nil {
		return nil, err
	}
	carrier, err := a.svc.CarrierPerformance(ctx)
	if err != nil {
		return nil, err
	}
	top, err := a.svc.TopCustomers(ctx, 10)
	if err != nil {
		return nil, err
	}
	complaintStats, err := a.svc.ComplaintStatistics(ctx)
	if err != nil {
		return nil, err
	}
	dashboard, err := a.svc.DashboardSummary(ctx)
	if err != nil {
		return nil, err
	}

	intro := "You are a regional business strategist for an e-commerce company. " +
		"Analyse performance across cities and regions:\n" +
		"1. **Revenue Distribution** - which cities drive the most revenue?\n" +
		"2. **Order Concentration** - are we too dependent on a few cities?\n" +
		"3. **Carrier Reliability** - which carriers perform best/worst in which regions?\n" +
		"4. **Complaint Hotspots** - any city-level complaint patterns?\n" +
		"5. **Top Customer Geography** - where are our VIP customers?\n" +
		"6. **Growth Opportunities** - underserved cities with potential\n" +
		"7. **Logistics Recommendations** - carrier allocation improvements"
	return &Rendered{
		Description: "Regional performance review",
		Text: joinBlocks(intro,
			jsonBlock("Revenue by City", revenue),
			jsonBlock("Carrier Performance", carrier),
			jsonBlock("Top Customers", top),
			jsonBlock("Complaint Statistics", complaintStats),
			jsonBlock("Dashboard Summary", dashboard),
		),
	}, nil
}

func (a *Assembler) paymentHealthAudit(ctx context.Context) (*Rendered, error) {
	failure, err := a.svc.PaymentFailureRate(ctx)
	if err != nil {
		return nil, err
	}
	byMethod, err := a.svc.PaymentSummaryByMethod(ctx)
	if err != nil {
		return nil, err
	}
	orderStats, err := a.svc.OrderStatistics(ctx)
	if err != nil {
		return nil, err
	}

	intro := "You are a payments operations analyst for an e-commerce platform " +
		"supporting UPI, net banking, wallets, COD, EMI, credit and debit cards " +
		"across multiple gateways. Perform a comprehensive payment health audit:\n" +
		"1. **Gateway Reliability** - success/failure rates per gateway; identify any " +
		"gateway with concerning failure rates\n" +
		"2. **Payment Method Mix** - distribution of revenue across payment methods; " +
		"highlight dominant vs. underused methods\n" +
		"3. **Revenue Impact** - failed payments' impact on revenue\n" +
		"4. **UPI vs. Card vs. COD Analysis** - trends in digital adoption\n" +
		"5. **Anomaly Detection** - unusual patterns (duplicate charges, ghost payments, " +
		"refund delays)\n" +
		"6. **Recommendations** - gateway switching, method promotion, fraud prevention"
	return &Rendered{
		Description: "Payment health audit",
		Text: joinBlocks(intro,
			jsonBlock("Payment Failure Rates by Gateway", failure),
			jsonBlock("Revenue by Payment Method", byMethod),
			jsonBlock("Order Statistics (by payment method)", orderStats),
		),
	}, nil
}
