// Package dashboard is the read-only HTTP surface the thin browser
// client renders from: store snapshots, aggregated stats, the latest
// alerts, and the one staff action (advancing an order).
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kitchen-dashboard/internal/alerts"
	"kitchen-dashboard/internal/gateway"
	"kitchen-dashboard/internal/store"
	"kitchen-dashboard/pkg/logger"
	"kitchen-dashboard/pkg/models"
)

// Actions is what the surface needs from the kitchen service.
type Actions interface {
	AdvanceOrder(ctx context.Context, id int64) (models.Order, error)
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
}

type Server struct {
	srv     *http.Server
	st      *store.Store
	actions Actions
	mem     *alerts.Memory
	mylog   *logger.Logger
}

func NewServer(addr, frontendOrigin string, st *store.Store, actions Actions, mem *alerts.Memory, mylog *logger.Logger) *Server {
	s := &Server{
		st:      st,
		actions: actions,
		mem:     mem,
		mylog:   mylog,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{frontendOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	engine.GET("/healthz", s.health)
	view := engine.Group("/api/view")
	{
		view.GET("/orders", s.orders)
		view.GET("/stats", s.stats)
		view.GET("/alerts", s.alerts)
		view.POST("/orders/:id/advance", s.advance)
	}

	s.srv = &http.Server{Addr: addr, Handler: engine}
	return s
}

// Run blocks until the server stops.
func (s *Server) Run() error {
	s.mylog.Info("", "listening", "Dashboard API listening on "+s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) orders(c *gin.Context) {
	c.JSON(http.StatusOK, s.st.Snapshot())
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.actions.DashboardStats(c.Request.Context())
	if err != nil {
		jsonError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) alerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": s.mem.Latest()})
}

func (s *Server) advance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		jsonError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return
	}

	order, err := s.actions.AdvanceOrder(c.Request.Context(), id)
	if err != nil {
		jsonError(c, advanceStatusCode(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func advanceStatusCode(err error) int {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, gateway.ErrRejected):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func jsonError(c *gin.Context, code int, err error) {
	c.JSON(code, gin.H{"error": err.Error(), "code": code})
}
