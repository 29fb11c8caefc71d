package models

import "time"

type OrderStatus string

const (
	StatusNew       OrderStatus = "new"
	StatusPreparing OrderStatus = "preparing"
	StatusDelivered OrderStatus = "delivered"
)

// Rank orders statuses along the kitchen lifecycle. A higher rank never
// goes back to a lower one.
func (s OrderStatus) Rank() int {
	switch s {
	case StatusNew:
		return 0
	case StatusPreparing:
		return 1
	case StatusDelivered:
		return 2
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0
}

// NextStatus returns the status a staff "advance" action moves an order
// to. Deployments may disable the preparing step, in which case new
// orders go straight to delivered. The second return is false when the
// order is already at the end of the lifecycle.
func NextStatus(s OrderStatus, preparingEnabled bool) (OrderStatus, bool) {
	switch s {
	case StatusNew:
		if preparingEnabled {
			return StatusPreparing, true
		}
		return StatusDelivered, true
	case StatusPreparing:
		return StatusDelivered, true
	}
	return s, false
}

type Order struct {
	ID          int64       `json:"id"`
	SessionID   int64       `json:"session_id"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	Notes       string      `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Items       []OrderItem `json:"items"`
	Session     *Session    `json:"session,omitempty"`
}

type OrderItem struct {
	ID       int64   `json:"id"`
	OrderID  int64   `json:"order_id"`
	ItemID   int64   `json:"item_id"`
	Name     string  `json:"name,omitempty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
	Notes    string  `json:"notes,omitempty"`
}

type Session struct {
	ID             int64      `json:"id"`
	TableID        int64      `json:"table_id"`
	NumberOfGuests int        `json:"number_of_guests"`
	Status         string     `json:"status"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Table          *Table     `json:"table,omitempty"`
}

type Table struct {
	ID           int64  `json:"id"`
	RestaurantID int64  `json:"restaurant_id"`
	TableNumber  string `json:"table_number"`
	Capacity     int    `json:"capacity"`
	Location     string `json:"location,omitempty"`
	IsActive     bool   `json:"is_active"`
}

type DashboardStats struct {
	NewOrdersCount       int `json:"new_orders_count"`
	PreparingOrdersCount int `json:"preparing_orders_count"`
	DeliveredOrdersCount int `json:"delivered_orders_count"`
	ActiveSessionsCount  int `json:"active_sessions_count"`
	TodayOrdersCount     int `json:"today_orders_count"`
}
