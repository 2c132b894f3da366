// Package correlation reconstructs "what happened around this event" by
// joining independent payment and logistics event streams against an anchor
// entity (a complaint or an order).
package correlation

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/caselens/caselens/internal/models"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/pkg/errors"
)

// DefaultWindowHours is the default correlation window around a complaint's
// creation time.
const DefaultWindowHours = 48

type Repository interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	SearchUsers(ctx context.Context, keyword string) ([]*models.User, error)

	ListOrders(ctx context.Context, f sqlitestore.OrderFilter) ([]*models.Order, error)
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	GetOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error)
	OrdersByDateRange(ctx context.Context, start, end string) ([]*models.Order, error)

	ListComplaints(ctx context.Context, f sqlitestore.ComplaintFilter) ([]*models.Complaint, error)
	GetComplaintByID(ctx context.Context, complaintID int64) (*models.Complaint, error)
	ComplaintsForOrder(ctx context.Context, orderID int64) ([]*models.Complaint, error)
	SearchComplaints(ctx context.Context, keyword string) ([]*models.Complaint, error)
	HighPriorityOpenComplaints(ctx context.Context) ([]*models.Complaint, error)

	PaymentLogs(ctx context.Context, f sqlitestore.PaymentLogFilter) ([]*models.PaymentLogEvent, error)
	LogisticsLogs(ctx context.Context, f sqlitestore.LogisticsLogFilter) ([]*models.LogisticsLogEvent, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// ComplaintContext is the primary enrichment bundle for root-cause analysis.
type ComplaintContext struct {
	Complaint     *models.Complaint           `json:"complaint"`
	User          *models.User                `json:"user"`
	Order         *models.Order               `json:"order"`
	PaymentLogs   []*models.PaymentLogEvent   `json:"payment_logs"`
	LogisticsLogs []*models.LogisticsLogEvent `json:"logistics_logs"`
	WindowHours   int                         `json:"window_hours"`
}

// ComplaintContext fetches a complaint plus its user, linked order and the
// order's payment and logistics history, ascending by logged_at.
//
// windowHours is echoed in the bundle but deliberately not applied as a
// filter: the bundle always carries the linked order's entire event history,
// and windowing is left to the reasoning layer. Delayed root causes (a charge
// a week before the complaint) stay visible that way.
func (s *Service) ComplaintContext(ctx context.Context, complaintID int64, windowHours int) (*ComplaintContext, error) {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}

	complaint, err := s.repo.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	out := &ComplaintContext{
		Complaint:     complaint,
		PaymentLogs:   []*models.PaymentLogEvent{},
		LogisticsLogs: []*models.LogisticsLogEvent{},
		WindowHours:   windowHours,
	}

	user, err := s.repo.GetUserByID(ctx, complaint.UserID)
	if err != nil && !errors.Is(err, sqlitestore.ErrNotFound) {
		return nil, err
	}
	out.User = user

	if complaint.OrderID == nil {
		return out, nil
	}

	order, err := s.repo.GetOrderByID(ctx, *complaint.OrderID)
	if err != nil && !errors.Is(err, sqlitestore.ErrNotFound) {
		return nil, err
	}
	out.Order = order

	if order != nil {
		out.PaymentLogs, err = s.repo.PaymentLogs(ctx, sqlitestore.PaymentLogFilter{OrderID: complaint.OrderID})
		if err != nil {
			return nil, err
		}
		out.LogisticsLogs, err = s.repo.LogisticsLogs(ctx, sqlitestore.LogisticsLogFilter{OrderID: complaint.OrderID})
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// FulfillmentTimeline combines an order with its payment events, logistics
// events and linked complaints. Each list is independently ordered ascending;
// they are not merged into one global timeline.
type FulfillmentTimeline struct {
	Order           *models.Order               `json:"order"`
	PaymentEvents   []*models.PaymentLogEvent   `json:"payment_events"`
	LogisticsEvents []*models.LogisticsLogEvent `json:"logistics_events"`
	Complaints      []*models.Complaint         `json:"complaints"`
}

func (s *Service) OrderFulfillmentTimeline(ctx context.Context, orderID int64) (*FulfillmentTimeline, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payments, err := s.repo.PaymentLogs(ctx, sqlitestore.PaymentLogFilter{OrderID: &orderID})
	if err != nil {
		return nil, err
	}
	logistics, err := s.repo.LogisticsLogs(ctx, sqlitestore.LogisticsLogFilter{OrderID: &orderID})
	if err != nil {
		return nil, err
	}
	complaints, err := s.repo.ComplaintsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &FulfillmentTimeline{
		Order:           order,
		PaymentEvents:   payments,
		LogisticsEvents: logistics,
		Complaints:      complaints,
	}, nil
}

// DeliveryTime derives processing/shipping/total hours for one order from
// its logistics anchors. Every duration depending on a missing anchor is nil.
type DeliveryTime struct {
	OrderID         int64    `json:"order_id"`
	Item            string   `json:"item"`
	TrackingNumber  *string  `json:"tracking_number"`
	OrderedAt       string   `json:"ordered_at"`
	ShippedAt       *string  `json:"shipped_at"`
	DeliveredAt     *string  `json:"delivered_at"`
	ProcessingHours *float64 `json:"processing_hours"`
	ShippingHours   *float64 `json:"shipping_hours"`
	TotalHours      *float64 `json:"total_hours"`
}

// OrderDeliveryTime anchors on the earliest "dispatched" event (shipped_at)
// and the latest "delivered" event (delivered_at). The order's status column
// is not consulted: a "shipped" order without a dispatch event has unknown,
// not zero, processing time.
func (s *Service) OrderDeliveryTime(ctx context.Context, orderID int64) (*DeliveryTime, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.LogisticsLogs(ctx, sqlitestore.LogisticsLogFilter{OrderID: &orderID})
	if err != nil {
		return nil, err
	}

	var shippedAt, deliveredAt *string
	for _, e := range events {
		switch e.EventType {
		case models.LogisticsEventDispatched:
			if shippedAt == nil || e.LoggedAt < *shippedAt {
				v := e.LoggedAt
				shippedAt = &v
			}
		case models.LogisticsEventDelivered:
			if deliveredAt == nil || e.LoggedAt > *deliveredAt {
				v := e.LoggedAt
				deliveredAt = &v
			}
		}
	}

	out := &DeliveryTime{
		OrderID:        order.ID,
		Item:           order.Item,
		TrackingNumber: order.TrackingNumber,
		OrderedAt:      order.OrderedAt,
		ShippedAt:      shippedAt,
		DeliveredAt:    deliveredAt,
	}
	if shippedAt != nil {
		out.ProcessingHours = hoursBetween(order.OrderedAt, *shippedAt)
	}
	if deliveredAt != nil {
		out.TotalHours = hoursBetween(order.OrderedAt, *deliveredAt)
		if shippedAt != nil {
			out.ShippingHours = hoursBetween(*shippedAt, *deliveredAt)
		}
	}
	return out, nil
}

// ActiveShipment is a "shipped" order left-joined with its most recent
// logistics event and its earliest dispatch event. Orders without any
// logistics events still appear, with nil event fields.
type ActiveShipment struct {
	OrderID         int64   `json:"order_id"`
	UserID          int64   `json:"user_id"`
	Item            string  `json:"item"`
	TrackingNumber  *string `json:"tracking_number"`
	ShippingAddress *string `json:"shipping_address"`
	CustomerName    string  `json:"customer_name"`
	CustomerPhone   *string `json:"customer_phone"`
	Carrier         *string `json:"carrier"`
	LatestEvent     *string `json:"latest_event"`
	LatestLocation  *string `json:"latest_location"`
	LatestEventAt   *string `json:"latest_event_at"`
	DispatchedAt    *string `json:"dispatched_at"`
}

// ActiveShipments returns every "shipped" order, most recently dispatched
// first, orders with no dispatch event last.
func (s *Service) ActiveShipments(ctx context.Context) ([]*ActiveShipment, error) {
	orders, err := s.repo.ListOrders(ctx, sqlitestore.OrderFilter{Status: models.OrderStatusShipped})
	if err != nil {
		return nil, err
	}

	out := make([]*ActiveShipment, 0, len(orders))
	for _, o := range orders {
		sh := &ActiveShipment{
			OrderID:         o.ID,
			UserID:          o.UserID,
			Item:            o.Item,
			TrackingNumber:  o.TrackingNumber,
			ShippingAddress: o.ShippingAddress,
		}

		user, err := s.repo.GetUserByID(ctx, o.UserID)
		if err != nil && !errors.Is(err, sqlitestore.ErrNotFound) {
			return nil, err
		}
		if user != nil {
			sh.CustomerName = user.Name
			sh.CustomerPhone = user.Phone
		}

		events, err := s.repo.LogisticsLogs(ctx, sqlitestore.LogisticsLogFilter{OrderID: &o.ID})
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if sh.LatestEventAt == nil || e.LoggedAt >= *sh.LatestEventAt {
				at, typ := e.LoggedAt, e.EventType
				sh.LatestEventAt = &at
				sh.LatestEvent = &typ
				sh.LatestLocation = e.Location
				carrier := e.Carrier
				sh.Carrier = &carrier
			}
			if e.EventType == models.LogisticsEventDispatched {
				if sh.DispatchedAt == nil || e.LoggedAt < *sh.DispatchedAt {
					v := e.LoggedAt
					sh.DispatchedAt = &v
				}
			}
		}
		out = append(out, sh)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DispatchedAt, out[j].DispatchedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return out, nil
}

// CarrierStats aggregates per-carrier delivery performance. The average spans
// first event to last "delivered" event per order; orders missing either
// anchor are excluded, and a carrier with no qualifying order reports a nil
// average rather than zero.
type CarrierStats struct {
	Carrier          string   `json:"carrier"`
	TotalEvents      int      `json:"total_events"`
	OrdersHandled    int      `json:"orders_handled"`
	AvgDeliveryHours *float64 `json:"avg_delivery_hours"`
}

func (s *Service) CarrierPerformance(ctx context.Context) ([]*CarrierStats, error) {
	events, err := s.repo.LogisticsLogs(ctx, sqlitestore.LogisticsLogFilter{})
	if err != nil {
		return nil, err
	}

	type span struct {
		first     string
		delivered *string
	}
	spans := map[int64]*span{}
	for _, e := range events {
		sp := spans[e.OrderID]
		if sp == nil {
			sp = &span{first: e.LoggedAt}
			spans[e.OrderID] = sp
		} else if e.LoggedAt < sp.first {
			sp.first = e.LoggedAt
		}
		if e.EventType == models.LogisticsEventDelivered {
			if sp.delivered == nil || e.LoggedAt > *sp.delivered {
				v := e.LoggedAt
				sp.delivered = &v
			}
		}
	}

	type agg struct {
		events int
		orders map[int64]struct{}
	}
	byCarrier := map[string]*agg{}
	for _, e := range events {
		a := byCarrier[e.Carrier]
		if a == nil {
			a = &agg{orders: map[int64]struct{}{}}
			byCarrier[e.Carrier] = a
		}
		a.events++
		a.orders[e.OrderID] = struct{}{}
	}

	out := make([]*CarrierStats, 0, len(byCarrier))
	for carrier, a := range byCarrier {
		st := &CarrierStats{
			Carrier:       carrier,
			TotalEvents:   a.events,
			OrdersHandled: len(a.orders),
		}
		var sum float64
		var cnt int
		for orderID := range a.orders {
			sp := spans[orderID]
			if sp == nil || sp.delivered == nil {
				continue
			}
			if h := hoursBetween(sp.first, *sp.delivered); h != nil {
				sum += *h
				cnt++
			}
		}
		if cnt > 0 {
			avg := round1(sum / float64(cnt))
			st.AvgDeliveryHours = &avg
		}
		out = append(out, st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrdersHandled != out[j].OrdersHandled {
			return out[i].OrdersHandled > out[j].OrdersHandled
		}
		return out[i].Carrier < out[j].Carrier
	})
	return out, nil
}

// Timestamps are ISO-8601 TEXT. A couple of layouts show up in practice.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// hoursBetween returns hours from a to b, rounded to one decimal, or nil if
// either timestamp is unparsable.
func hoursBetween(a, b string) *float64 {
	ta, okA := parseTimestamp(a)
	tb, okB := parseTimestamp(b)
	if !okA || !okB {
		return nil
	}
	h := round1(tb.Sub(ta).Hours())
	return &h
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
