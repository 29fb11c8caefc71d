package kitchen

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"kitchen-dashboard/internal/alerts"
	"kitchen-dashboard/internal/gateway"
	"kitchen-dashboard/internal/reconcile"
	"kitchen-dashboard/internal/store"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

// OrderGateway is the slice of the REST gateway the service needs.
type OrderGateway interface {
	AdvanceStatus(ctx context.Context, id int64, status models.OrderStatus) (models.Order, error)
	FetchActiveSessions(ctx context.Context) ([]models.Session, error)
	FetchDashboardStats(ctx context.Context) (models.DashboardStats, error)
}

// Service carries the staff actions and the aggregated stats the
// dashboard surface exposes.
type Service struct {
	gw               OrderGateway
	rec              *reconcile.Reconciler
	st               *store.Store
	sink             alerts.Sink
	mylog            *logger.Logger
	preparingEnabled bool
}

func NewService(gw OrderGateway, rec *reconcile.Reconciler, st *store.Store, sink alerts.Sink, mylog *logger.Logger, preparingEnabled bool) *Service {
	return &Service{
		gw:               gw,
		rec:              rec,
		st:               st,
		sink:             sink,
		mylog:            mylog,
		preparingEnabled: preparingEnabled,
	}
}

// AdvanceOrder moves an order to its next status: optimistic local move
// first, server PATCH second, revert on rejection.
func (s *Service) AdvanceOrder(ctx context.Context, id int64) (models.Order, error) {
	requestID := "advance-" + uuid.NewString()

	current, ok := s.st.Get(id)
	if !ok {
		return models.Order{}, fmt.Errorf("%w: order %d not held locally", gateway.ErrNotFound, id)
	}
	next, ok := models.NextStatus(current.Status, s.preparingEnabled)
	if !ok {
		return models.Order{}, fmt.Errorf("%w: order %d is already delivered", gateway.ErrRejected, id)
	}

	prev, ok := s.rec.AdvanceLocal(requestID, id, next)
	if !ok {
		return models.Order{}, fmt.Errorf("%w: order %d cannot move to %s", gateway.ErrRejected, id, next)
	}

	confirmed, err := s.gw.AdvanceStatus(ctx, id, next)
	if err != nil {
		s.rec.Revert(requestID, prev)
		s.mylog.Error(requestID, "advance_failed", fmt.Sprintf("Server refused moving order %d to %s", id, next), err)
		s.sink.Report(requestID, alerts.Alert{
			Tag:     "advance-order",
			Message: fmt.Sprintf("Failed to mark order %d as %s", id, next),
			Detail:  err.Error(),
		})
		return models.Order{}, err
	}

	if confirmed.ID != 0 {
		// Server-computed record wins over the optimistic one.
		s.rec.Apply(requestID, reconcile.OrderUpserted{Order: confirmed})
	} else {
		confirmed, _ = s.st.Get(id)
	}

	s.mylog.Info(requestID, "order_advanced", fmt.Sprintf("Order %d is now %s", id, next))
	return confirmed, nil
}

// DashboardStats prefers the backend's aggregated endpoint and falls
// back to counting what the daemon already holds plus a sessions fetch.
func (s *Service) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	requestID := "stats-" + uuid.NewString()

	stats, err := s.gw.FetchDashboardStats(ctx)
	if err == nil {
		return stats, nil
	}
	s.mylog.Debug(requestID, "stats_endpoint_missing", "Aggregated stats unavailable, computing locally")

	snap := s.st.Snapshot()
	stats = models.DashboardStats{
		NewOrdersCount:       len(snap.New),
		PreparingOrdersCount: len(snap.Preparing),
		DeliveredOrdersCount: len(snap.Delivered),
		TodayOrdersCount:     len(snap.New) + len(snap.Preparing) + len(snap.Delivered),
	}

	sessions, err := s.gw.FetchActiveSessions(ctx)
	if err != nil {
		s.mylog.Error(requestID, "sessions_fetch_failed", "Could not count active sessions", err)
		s.sink.Report(requestID, alerts.Alert{
			Tag:     "fetch-sessions",
			Message: "Failed to load active sessions",
			Detail:  err.Error(),
		})
		return stats, nil
	}
	stats.ActiveSessionsCount = len(sessions)
	return stats, nil
}
