package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/meethub/internal/config"
	"github.com/iliyamo/meethub/internal/database"
	"github.com/iliyamo/meethub/internal/gateway"
	"github.com/iliyamo/meethub/internal/handler"
	"github.com/iliyamo/meethub/internal/logger"
	"github.com/iliyamo/meethub/internal/middleware"
	"github.com/iliyamo/meethub/internal/queue"
	"github.com/iliyamo/meethub/internal/repository"
	"github.com/iliyamo/meethub/internal/router"
	"github.com/iliyamo/meethub/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment may be set already

	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	sweepCfg := config.LoadSweepConfig()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	tickets := repository.NewTicketRepo(db)
	favorites := repository.NewFavoriteRepo(db)
	bookmarks := repository.NewBookmarkRepo(db)

	gw := gateway.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, log)
	publisher := queue.NewPublisher(cfg.RabbitURL, log)

	reservations := service.NewReservationService(events, tickets, gw, cfg.AppURL, log)
	reconciler := service.NewReconciliationService(tickets, gw, publisher, log)
	sweeper := service.NewSweeper(tickets, log, service.WithAbandonTimeout(sweepCfg.Timeout))

	go sweeper.Run(ctx, sweepCfg.Interval)
	go func() {
		if err := queue.NewConsumer(cfg.RabbitURL, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("ticket notification consumer stopped")
		}
	}()

	purge := func(ctx context.Context) {
		if err := middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix); err != nil {
			log.WithError(err).Warn("purging event cache failed")
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, log), cfg.JWTSecret)
	router.RegisterEvents(e,
		handler.NewEventHandler(events, log, purge),
		handler.NewMarkHandler("favorite", events, favorites, log),
		handler.NewMarkHandler("bookmark", events, bookmarks, log),
		cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb),
	)
	router.RegisterTickets(e,
		handler.NewTicketHandler(reservations, reconciler, tickets, log),
		handler.NewWebhookHandler(reconciler, log),
		handler.NewCleanupHandler(sweeper, log),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewTokenBucket(config.LoadWebhookRateLimitConfig(), rdb),
	)

	addr := ":" + cfg.Port
	go func() {
		log.WithField("env", cfg.Env).Infof("listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
