package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barorder/bus"
	"barorder/configs"
	"barorder/middlewares"
	"barorder/repository"
	"barorder/routes"
	"barorder/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	lg := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(lg)

	cfg := configs.LoadConfig()

	db, err := configs.Connect(cfg)
	if err != nil {
		lg.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := configs.Migrate(db); err != nil {
		lg.Error("migrate failed", "err", err)
		os.Exit(1)
	}
	if err := configs.SeedAdmin(db); err != nil {
		lg.Error("seed admin failed", "err", err)
		os.Exit(1)
	}
	if err := configs.SeedDemo(db); err != nil {
		lg.Error("seed demo failed", "err", err)
		os.Exit(1)
	}

	eventBus := bus.New(cfg.EventBuffer, lg)

	var (
		relay    services.EventRelay
		notifier services.Notifier = services.LogNotifier{Lg: lg}
	)
	if cfg.AMQPURL != "" {
		r, err := bus.NewRelay(cfg.AMQPURL, lg)
		if err != nil {
			lg.Error("amqp relay unavailable, continuing without it", "err", err)
		} else {
			defer r.Close()
			relay = r
		}
	}

	machine := services.StateMachine{CustomerCancelWindow: cfg.CancelGrace}
	svc := services.NewOrderLifecycleService(
		repository.NewOrderRepository(db),
		repository.NewMenuRepository(db),
		repository.NewVendorRepository(db),
		machine, eventBus, relay, notifier, lg,
	)
	sweeper := services.NewSweeper(svc, cfg.SweepInterval, cfg.PendingTimeout, lg)

	r := gin.Default()
	r.Use(middlewares.CORSMiddleware())
	routes.RegisterRoutes(r, db, cfg, svc)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("fatal", "err", err)
		os.Exit(1)
	}
	lg.Info("shutdown complete")
}
