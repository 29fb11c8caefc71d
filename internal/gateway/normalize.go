package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"kitchen-dashboard/pkg/models"
)

// The backend's response envelopes are not stable: lists arrive under
// "orders", under "data", or as the bare body, and line items arrive as
// "items" or "orderItems". Everything is flattened here so the rest of
// the dashboard only ever sees models.Order.

type rawOrder struct {
	ID          int64              `json:"id"`
	SessionID   int64              `json:"session_id"`
	Status      models.OrderStatus `json:"status"`
	TotalAmount float64            `json:"total_amount"`
	Notes       string             `json:"notes"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Items       []models.OrderItem `json:"items"`
	OrderItems  []models.OrderItem `json:"orderItems"`
	Session     *models.Session    `json:"session"`
}

func (r rawOrder) normalize() models.Order {
	items := r.Items
	if items == nil {
		items = r.OrderItems
	}
	if items == nil {
		items = []models.OrderItem{}
	}
	return models.Order{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Status:      r.Status,
		TotalAmount: r.TotalAmount,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Items:       items,
		Session:     r.Session,
	}
}

func decodeOrderList(body []byte) ([]models.Order, error) {
	raws, err := rawOrderList(body)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(raws))
	for _, r := range raws {
		orders = append(orders, r.normalize())
	}
	return orders, nil
}

func rawOrderList(body []byte) ([]rawOrder, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []rawOrder
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}

	var envelope struct {
		Orders []rawOrder      `json:"orders"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Orders != nil {
		return envelope.Orders, nil
	}
	if len(envelope.Data) > 0 {
		var raws []rawOrder
		if err := json.Unmarshal(envelope.Data, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}
	return []rawOrder{}, nil
}

// DecodeOrder normalizes a single-order payload, pushed or fetched.
func DecodeOrder(body []byte) (models.Order, error) {
	return decodeOrder(body)
}

func decodeOrder(body []byte) (models.Order, error) {
	var envelope struct {
		Order *rawOrder       `json:"order"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &envelope); err != nil {
		return models.Order{}, err
	}
	if envelope.Order != nil {
		return envelope.Order.normalize(), nil
	}
	if len(envelope.Data) > 0 && !bytes.Equal(bytes.TrimSpace(envelope.Data), []byte("null")) {
		var r rawOrder
		if err := json.Unmarshal(envelope.Data, &r); err != nil {
			return models.Order{}, err
		}
		return r.normalize(), nil
	}

	// Bare body.
	var r rawOrder
	if err := json.Unmarshal(bytes.TrimSpace(body), &r); err != nil {
		return models.Order{}, err
	}
	if r.ID == 0 {
		return models.Order{}, fmt.Errorf("no order in response")
	}
	return r.normalize(), nil
}

func decodeSessionList(body []byte) ([]models.Session, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var sessions []models.Session
		if err := json.Unmarshal(trimmed, &sessions); err != nil {
			return nil, err
		}
		return sessions, nil
	}

	var envelope struct {
		Sessions []models.Session `json:"sessions"`
		Data     []models.Session `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Sessions != nil {
		return envelope.Sessions, nil
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return []models.Session{}, nil
}

func decodeStats(body []byte) (models.DashboardStats, error) {
	// Field names vary by backend generation, same as the envelopes.
	type rawStats struct {
		NewOrdersCount       int `json:"newOrdersCount"`
		PendingOrders        int `json:"pendingOrders"`
		PreparingOrdersCount int `json:"preparingOrdersCount"`
		PreparingOrders      int `json:"preparingOrders"`
		DeliveredOrdersCount int `json:"deliveredOrdersCount"`
		DeliveredOrders      int `json:"deliveredOrders"`
		ActiveSessionsCount  int `json:"activeSessionsCount"`
		ActiveSessions       int `json:"activeSessions"`
		TodayOrdersCount     int `json:"todayOrdersCount"`
		TodayOrders          int `json:"todayOrders"`
	}

	var envelope struct {
		Data *rawStats `json:"data"`
	}
	var r rawStats
	if err := json.Unmarshal(bytes.TrimSpace(body), &envelope); err == nil && envelope.Data != nil {
		r = *envelope.Data
	} else if err := json.Unmarshal(bytes.TrimSpace(body), &r); err != nil {
		return models.DashboardStats{}, err
	}

	return models.DashboardStats{
		NewOrdersCount:       firstNonZero(r.NewOrdersCount, r.PendingOrders),
		PreparingOrdersCount: firstNonZero(r.PreparingOrdersCount, r.PreparingOrders),
		DeliveredOrdersCount: firstNonZero(r.DeliveredOrdersCount, r.DeliveredOrders),
		ActiveSessionsCount:  firstNonZero(r.ActiveSessionsCount, r.ActiveSessions),
		TodayOrdersCount:     firstNonZero(r.TodayOrdersCount, r.TodayOrders),
	}, nil
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
