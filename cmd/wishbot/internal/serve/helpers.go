package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinyland-inc/wishbot/cmd/wishbot/internal"
	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/channels"
	"github.com/tinyland-inc/wishbot/pkg/digest"
	"github.com/tinyland-inc/wishbot/pkg/health"
	"github.com/tinyland-inc/wishbot/pkg/logger"
	"github.com/tinyland-inc/wishbot/pkg/metrics"
	"github.com/tinyland-inc/wishbot/pkg/relay"
	"github.com/tinyland-inc/wishbot/pkg/session"
	"github.com/tinyland-inc/wishbot/pkg/store"
	"github.com/tinyland-inc/wishbot/pkg/wishlist"
)

const sessionSweepInterval = time.Minute

func serveCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	endpoints := cfg.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("no endpoints configured, enable at least one channel in %s", internal.GetConfigPath())
	}

	itemStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("error opening item store: %w", err)
	}
	defer itemStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	sessions := session.NewStore(time.Duration(cfg.Session.TTLMinutes) * time.Minute)
	sessions.StartSweeper(ctx, sessionSweepInterval)

	meters := metrics.NewDeliveryMeterStore()
	manager := channels.NewManager(cfg, msgBus)
	broadcaster := relay.NewBroadcaster(manager, meters)
	coordinator := wishlist.NewCoordinator(msgBus, itemStore, sessions, broadcaster, endpoints)

	if err := manager.StartAll(ctx); err != nil {
		return fmt.Errorf("error starting channels: %w", err)
	}
	manager.StartOutboundDispatcher(ctx)
	go coordinator.Run(ctx)

	if cfg.Digest.Enabled {
		digestService, err := digest.New(cfg.Digest.Schedule, itemStore, broadcaster, endpoints)
		if err != nil {
			return fmt.Errorf("error setting up digest: %w", err)
		}
		go digestService.Run(ctx)
		fmt.Printf("✓ Digest scheduled: %s\n", cfg.Digest.Schedule)
	}

	healthServer := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port, meters, func() bool {
		for _, ep := range endpoints {
			if ch, ok := manager.Get(ep.Channel); ok && ch.IsRunning() {
				return true
			}
		}
		return false
	})
	healthServer.Start()

	fmt.Printf("✓ Wishlist bot started, %d endpoint(s) configured\n", len(endpoints))
	fmt.Printf("✓ Operator endpoints at http://%s:%d/health, /ready and /metrics\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)
	manager.StopAll(shutdownCtx)
	msgBus.Close()
	fmt.Println("✓ Wishlist bot stopped")

	return nil
}
