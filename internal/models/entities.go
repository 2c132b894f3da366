package models

// Order statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusReturned   = "returned"
)

// Complaint categories.
const (
	ComplaintCategoryDelivery = "delivery"
	ComplaintCategoryBilling  = "billing"
	ComplaintCategoryProduct  = "product"
	ComplaintCategoryService  = "service"
	ComplaintCategoryAccount  = "account"
	ComplaintCategoryOther    = "other"
)

// Complaint priorities.
const (
	ComplaintPriorityLow      = "low"
	ComplaintPriorityMedium   = "medium"
	ComplaintPriorityHigh     = "high"
	ComplaintPriorityCritical = "critical"
)

// Complaint statuses.
const (
	ComplaintStatusOpen            = "open"
	ComplaintStatusInvestigating   = "investigating"
	ComplaintStatusWaitingCustomer = "waiting_customer"
	ComplaintStatusResolved        = "resolved"
	ComplaintStatusClosed          = "closed"
)

// Payment event statuses.
const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
	PaymentStatusPending = "pending"
)

// Logistics event types the correlation engine anchors on.
const (
	LogisticsEventDispatched = "dispatched"
	LogisticsEventDelivered  = "delivered"
)

// Timestamps are ISO-8601 TEXT throughout; lexicographic order equals
// chronological order, so range scans compare strings directly.

type User struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone"`
	AddressLine *string `json:"address_line"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	ZipCode     *string `json:"zip_code"`
	Country     string  `json:"country"`
	CreatedAt   string  `json:"created_at"`
}

type Order struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user_id"`
	Item            string  `json:"item"`
	Quantity        int64   `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TotalAmount     float64 `json:"total_amount"`
	Status          string  `json:"status"`
	PaymentMethod   *string `json:"payment_method"`
	ShippingAddress *string `json:"shipping_address"`
	TrackingNumber  *string `json:"tracking_number"`
	OrderedAt       string  `json:"ordered_at"`
}

type Complaint struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	OrderID    *int64  `json:"order_id"`
	Category   string  `json:"category"`
	Priority   string  `json:"priority"`
	Status     string  `json:"status"`
	Subject    string  `json:"subject"`
	Details    string  `json:"details"`
	Resolution *string `json:"resolution"`
	AssignedTo *string `json:"assigned_to"`
	CreatedAt  string  `json:"created_at"`
	ResolvedAt *string `json:"resolved_at"`
}

type PaymentLogEvent struct {
	ID            int64   `json:"id"`
	OrderID       int64   `json:"order_id"`
	TransactionID string  `json:"transaction_id"`
	EventType     string  `json:"event_type"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Gateway       string  `json:"gateway"`
	Status        string  `json:"status"`
	ErrorMessage  *string `json:"error_message"`
	LoggedAt      string  `json:"logged_at"`
}

type LogisticsLogEvent struct {
	ID             int64   `json:"id"`
	OrderID        int64   `json:"order_id"`
	TrackingNumber *string `json:"tracking_number"`
	Carrier        string  `json:"carrier"`
	EventType      string  `json:"event_type"`
	Location       *string `json:"location"`
	Notes          *string `json:"notes"`
	LoggedAt       string  `json:"logged_at"`
}
