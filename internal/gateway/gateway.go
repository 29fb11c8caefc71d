// Package gateway is the REST boundary to the order backend. It owns
// envelope normalization and the error taxonomy; nothing past this
// package sees raw response shapes or status codes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"kitchen-dashboard/internal/session"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

type Gateway struct {
	baseURL string
	httpc   *http.Client
	sess    *session.Session
	mylog   *logger.Logger
}

func New(baseURL string, sess *session.Session, mylog *logger.Logger) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		sess:    sess,
		mylog:   mylog,
	}
}

// FetchOrders returns all orders currently in the given status. The
// returned orders always carry a non-nil items slice.
func (g *Gateway) FetchOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	endpoint := fmt.Sprintf("%s/api/orders?status=%s", g.baseURL, url.QueryEscape(string(status)))

	body, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	orders, err := decodeOrderList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding order list: %v", ErrServer, err)
	}
	return orders, nil
}

func (g *Gateway) FetchOrder(ctx context.Context, id int64) (models.Order, error) {
	endpoint := fmt.Sprintf("%s/api/orders/%d", g.baseURL, id)

	body, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Order{}, err
	}

	order, err := decodeOrder(body)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: decoding order: %v", ErrServer, err)
	}
	return order, nil
}

// AdvanceStatus asks the server to move an order to the given status and
// returns the server's view of the order.
func (g *Gateway) AdvanceStatus(ctx context.Context, id int64, status models.OrderStatus) (models.Order, error) {
	endpoint := fmt.Sprintf("%s/api/orders/%d/status", g.baseURL, id)

	payload, _ := json.Marshal(map[string]string{"status": string(status)})
	body, err := g.do(ctx, http.MethodPatch, endpoint, payload)
	if err != nil {
		return models.Order{}, err
	}

	order, err := decodeOrder(body)
	if err != nil {
		// Some backends answer a PATCH with a bare acknowledgement; the
		// change was accepted, there is just no record to return. The
		// caller keeps its optimistic one.
		return models.Order{}, nil
	}
	return order, nil
}

func (g *Gateway) FetchActiveSessions(ctx context.Context) ([]models.Session, error) {
	endpoint := g.baseURL + "/api/kitchen/sessions/active"

	body, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	sessions, err := decodeSessionList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding session list: %v", ErrServer, err)
	}
	return sessions, nil
}

// FetchDashboardStats hits the aggregated dashboard endpoint. Backends
// without it answer 404; callers compute the stats themselves then.
func (g *Gateway) FetchDashboardStats(ctx context.Context) (models.DashboardStats, error) {
	endpoint := g.baseURL + "/api/kitchen/dashboard"

	body, err := g.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.DashboardStats{}, err
	}

	stats, err := decodeStats(body)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("%w: decoding dashboard stats: %v", ErrServer, err)
	}
	return stats, nil
}

func (g *Gateway) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.sess.Token())
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	msg := serverMessage(body)
	g.mylog.Debug("", "request_failed", fmt.Sprintf("%s %s answered %d", method, endpoint, resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrAuth, msg)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, msg)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, msg)
	}
}

// serverMessage pulls the human-readable message most backends put in
// error bodies.
func serverMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return "no details"
}
