package kitchen

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"kitchen-dashboard/internal/alerts"
	"kitchen-dashboard/internal/config"
	"kitchen-dashboard/internal/dashboard"
	"kitchen-dashboard/internal/gateway"
	"kitchen-dashboard/internal/notify"
	"kitchen-dashboard/internal/poller"
	"kitchen-dashboard/internal/pushchannel"
	"kitchen-dashboard/internal/reconcile"
	"kitchen-dashboard/internal/session"
	"kitchen-dashboard/internal/store"
	"kitchen-dashboard/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Execute wires the dashboard daemon and runs it until a signal or a
// fatal server error.
func Execute(ctx context.Context, mylog *logger.Logger) error {
	newCtx, cancel := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		mylog.Error("", "config_load_failed", "Invalid configuration", err)
		return err
	}

	sess, err := session.New(cfg.BearerToken, cfg.RestaurantID)
	if err != nil {
		mylog.Error("", "session_init_failed", "Cannot establish kitchen session", err)
		return err
	}
	mylog.Info("", "session_ready", "Kitchen session established")

	st := store.New()
	rec := reconcile.New(st, mylog.WithService("reconciler"))
	sink := alerts.NewMemory(mylog.WithService("alerts"))
	gw := gateway.New(cfg.APIBaseURL, sess, mylog.WithService("gateway"))

	var player notify.Player
	if cfg.ChimeSink != "" {
		player = notify.SinkPlayer{Path: cfg.ChimeSink}
	}
	// The permission decision is made once at startup; it gates only
	// the tagged notification channel, never the chime.
	var notifSink alerts.Sink
	if cfg.SystemNotifications {
		notifSink = sink
	}
	notifier := notify.NewDeltaNotifier(player, notifSink, mylog.WithService("notifier"))
	st.Subscribe(notifier.Observe)

	svc := NewService(gw, rec, st, sink, mylog.WithService("kitchen"), cfg.PreparingEnabled)

	pol := poller.New(gw, rec, sink, mylog.WithService("poller"), cfg.PollInterval, cfg.PreparingEnabled)
	pol.Start(newCtx)

	// The notifier stays disarmed until the initial refresh has landed
	// in full; arming it per-bucket would mistake the load for arrivals.
	go func() {
		select {
		case <-pol.FirstRefreshDone():
			notifier.Arm(st.NewCount())
		case <-newCtx.Done():
		}
	}()

	channel := pushchannel.New(cfg.APIBaseURL, sess.Token(), sess.RestaurantID(), rec, gw,
		mylog.WithService("push-channel"), cfg.ReconnectAttempts, cfg.ReconnectDelay)
	channel.Start(newCtx)

	srv := dashboard.NewServer(cfg.ListenAddr, cfg.FrontendOrigin, st, svc, sink, mylog.WithService("dashboard"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()
	mylog.Info("", "dashboard_started", "Kitchen dashboard is running on "+cfg.ListenAddr)

	select {
	case <-newCtx.Done():
	case err = <-errCh:
		if err != nil {
			mylog.Error("", "server_failed", "Dashboard HTTP server failed", err)
		}
	}

	mylog.Info("", "graceful_shutdown_started", "Shutting down kitchen dashboard...")

	pol.Stop()
	channel.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		mylog.Error("", "graceful_shutdown_failed", "HTTP server did not stop cleanly", shutdownErr)
		if err == nil {
			err = shutdownErr
		}
	}

	mylog.Info("", "graceful_shutdown_completed", "Kitchen dashboard stopped")
	return err
}
