package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderDisputed   OrderStatus = "disputed"
	OrderRefunded   OrderStatus = "refunded"
)

// orderTransitions lists every permitted forward move.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPaid, OrderCancelled},
	OrderPaid:       {OrderProcessing, OrderCancelled, OrderDisputed},
	OrderProcessing: {OrderShipped, OrderDisputed},
	OrderShipped:    {OrderDelivered, OrderDisputed},
	OrderDisputed:   {OrderDelivered, OrderRefunded},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderProcessing, OrderShipped,
		OrderDelivered, OrderCancelled, OrderDisputed, OrderRefunded:
		return true
	}
	return false
}

// CanTransition reports whether an order in status s may move to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Order Model. Totals are fixed at placement.
type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	OrderNumber     string      `gorm:"size:36;uniqueIndex;not null" json:"order_number"`
	BuyerID         uint        `gorm:"index;not null" json:"buyer_id"`
	VendorProfileID uint        `gorm:"index;not null" json:"vendor_profile_id"`
	Status          OrderStatus `gorm:"size:20;index;not null" json:"status"`
	Subtotal        int64       `gorm:"not null" json:"subtotal"`
	Shipping        int64       `gorm:"not null" json:"shipping"`
	Tax             int64       `gorm:"not null" json:"tax"`
	Total           int64       `gorm:"not null" json:"total"`
	Currency        string      `gorm:"size:8;not null" json:"currency"`
	ShippingAddress string      `gorm:"size:1000" json:"shipping_address"`
	Items           []OrderItem `gorm:"constraint:OnDelete:CASCADE;" json:"items,omitempty"`
	Escrow          *Escrow     `json:"escrow,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	ProcessingAt    *time.Time  `json:"processing_at,omitempty"`
	ShippedAt       *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	DisputedAt      *time.Time  `json:"disputed_at,omitempty"`
	RefundedAt      *time.Time  `json:"refunded_at,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TransitionColumns returns the columns written when an order enters status.
func TransitionColumns(status OrderStatus, at time.Time) map[string]any {
	cols := map[string]any{"status": status}
	if col := timestampColumn(status); col != "" {
		cols[col] = at
	}
	return cols
}

// Stamp mirrors TransitionColumns on an in-memory order.
func (o *Order) Stamp(status OrderStatus, at time.Time) {
	o.Status = status
	t := at
	switch status {
	case OrderPaid:
		o.PaidAt = &t
	case OrderProcessing:
		o.ProcessingAt = &t
	case OrderShipped:
		o.ShippedAt = &t
	case OrderDelivered:
		o.DeliveredAt = &t
	case OrderCancelled:
		o.CancelledAt = &t
	case OrderDisputed:
		o.DisputedAt = &t
	case OrderRefunded:
		o.RefundedAt = &t
	}
}

func timestampColumn(status OrderStatus) string {
	switch status {
	case OrderPaid:
		return "paid_at"
	case OrderProcessing:
		return "processing_at"
	case OrderShipped:
		return "shipped_at"
	case OrderDelivered:
		return "delivered_at"
	case OrderCancelled:
		return "cancelled_at"
	case OrderDisputed:
		return "disputed_at"
	case OrderRefunded:
		return "refunded_at"
	}
	return ""
}

// OrderItem Model. Title and price are snapshots taken at placement.
type OrderItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OrderID   uint   `gorm:"index;not null" json:"order_id"`
	ListingID uint   `gorm:"index;not null" json:"listing_id"`
	Title     string `gorm:"size:255" json:"title"`
	Quantity  int    `gorm:"not null" json:"quantity"`
	UnitPrice int64  `gorm:"not null" json:"unit_price"`
	LineTotal int64  `gorm:"not null" json:"line_total"`
}
