package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/ckfr/ops-allocation/internal/config"
	"github.com/ckfr/ops-allocation/internal/handler"
	"github.com/ckfr/ops-allocation/internal/middleware"
	"github.com/ckfr/ops-allocation/internal/queue"
	"github.com/ckfr/ops-allocation/internal/repository"
	"github.com/ckfr/ops-allocation/internal/router"
	"github.com/ckfr/ops-allocation/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the allocation event consumer when EVENTS_ENABLED)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	var publisher service.Publisher = service.NopPublisher{}
	if a.cfg.EventsEnabled {
		publisher = service.NewAMQPPublisher(a.cfg.RabbitURL, a.log)
		consumer := queue.NewConsumer(a.cfg.RabbitURL, a.cfg.AllocLogDir, a.log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("allocation consumer stopped", "err", err)
			}
		}()
	}

	ships := repository.NewShipRepo(a.db)
	templates := repository.NewTemplateRepo(a.db)
	slots := repository.NewSlotRepo(a.db)
	users := repository.NewUserRepo(a.db)
	tokens := repository.NewTokenRepo(a.db)

	catalog := service.NewCatalogService(ships, templates, service.NewReconciler(slots, templates, a.log), a.log)
	alloc := service.NewAllocationService(ships, templates, slots, users, publisher, a.log)
	ops := service.NewOperationService(repository.NewOperationRepo(a.db), repository.NewHighlightedShipRepo(a.db), publisher, a.log)

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(a.log))

	router.RegisterRoutes(e, a.db)
	router.RegisterAuth(e, handler.NewAuthHandler(a.cfg, users, tokens), a.cfg.JWTSecret, limit)
	router.RegisterAPI(e, router.API{
		Ships:        handler.NewShipHandler(ships, catalog, alloc),
		Allocation:   handler.NewAllocationHandler(catalog, alloc),
		Operations:   handler.NewOperationHandler(ops),
		Users:        handler.NewUserHandler(users),
		RateLimit:    limit,
		CatalogCache: middleware.NewResponseCache(cacheCfg, rdb),
		CatalogPurge: middleware.NewCachePurge(cacheCfg, rdb),
	}, a.cfg.JWTSecret)

	addr := ":" + a.cfg.Port
	a.log.Info("listening", "addr", addr, "env", a.cfg.Env, "db", a.cfg.DBDriver, "events", a.cfg.EventsEnabled)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

// requestLogger writes one structured line per request.
func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				log.Error("request", append(attrs, "err", v.Error.Error())...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	})
}
