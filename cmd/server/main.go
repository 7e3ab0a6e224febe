package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/config"
	"github.com/iliyamo/flight-booking/internal/database"
	"github.com/iliyamo/flight-booking/internal/handler"
	"github.com/iliyamo/flight-booking/internal/jobs"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/metrics"
	"github.com/iliyamo/flight-booking/internal/middleware"
	"github.com/iliyamo/flight-booking/internal/notify"
	"github.com/iliyamo/flight-booking/internal/queue"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/router"
	"github.com/iliyamo/flight-booking/internal/search"
	"github.com/iliyamo/flight-booking/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger depends on cfg.Env; fall back to production settings
		logger.New("prod").Fatal("invalid configuration", "error", err)
	}
	log := logger.New(cfg.Env)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("flight_booking", prometheus.DefaultRegisterer)

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal("connect database", "error", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal("ensure schema", "error", err)
	}

	// Redis backs the search cache and the rate limiter; both work without it.
	var rdb *redis.Client
	if cfg.SearchCache.Backend == config.CacheRedis || cfg.RateLimit.Enabled {
		rdb, err = config.NewRedisClient(ctx, config.LoadRedisConfig())
		if err != nil {
			log.Warn("redis unavailable, continuing without it", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var store search.Store = search.NewMemoryStore()
	if cfg.SearchCache.Backend == config.CacheRedis && rdb != nil {
		store = search.NewRedisStore(rdb, cfg.SearchCache.Prefix)
	}
	log.Info("search cache ready", "backend", cfg.SearchCache.Backend, "redis", rdb != nil, "ttl", cfg.SearchCache.TTL)

	amCfg := amadeus.Config{
		BaseURL:      cfg.AmadeusBaseURL,
		ClientID:     cfg.AmadeusClientID,
		ClientSecret: cfg.AmadeusClientSecret,
		Timeout:      cfg.AmadeusTimeout,
	}
	if !cfg.AmadeusConfigured() {
		log.Warn("amadeus credentials missing; flight search will fail")
	}
	httpClient := &http.Client{}
	creds := amadeus.NewCredentialManager(amCfg, httpClient)
	creds.OnRefresh(m.TokenRefreshes.Inc)
	upstream := amadeus.NewClient(amCfg, creds, httpClient, m, log)

	users := repository.NewUserRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	trackers := repository.NewTrackerRepo(db)

	publisher := queue.NewPublisher(cfg.RabbitURL, cfg.NotifyQueue, log)
	consumer := queue.NewConsumer(cfg.RabbitURL, cfg.NotifyQueue, cfg.MailLogPath, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification consumer stopped", "error", err)
		}
	}()

	searchSvc := service.NewSearchService(upstream, upstream, store, cfg.SearchCache.TTL, cfg.DefaultCurrency, m, log)
	bookingSvc := service.NewBookingService(bookingRepo, trackers, users, notify.NewQueueNotifier(publisher),
		cfg.DefaultCurrency, m, log)

	refresher := jobs.NewStatusRefresher(trackers, upstream, cfg.StatusInterval, cfg.StatusBatch, m, log)
	go refresher.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("2M"))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	} else {
		e.Use(echomw.CORS())
	}
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.RequestMetrics(m))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// untyped nil keeps the limiter disabled without redis
	var scripter redis.Scripter
	if rdb != nil {
		scripter = rdb
	}
	limit := middleware.NewTokenBucket(cfg.RateLimit, scripter, log)

	router.RegisterRoutes(e)
	api := e.Group("/api")
	router.RegisterAuth(api, handler.NewAuthHandler(users, cfg.JWTSecret, cfg.AccessTTL, cfg.BcryptCost, log), cfg.JWTSecret)
	router.RegisterFlights(api, handler.NewFlightHandler(searchSvc, log), limit)
	router.RegisterBookings(api, handler.NewBookingHandler(bookingSvc, log), cfg.JWTSecret, limit)

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	log.Info("received signal", "signal", <-sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	cancel()
	// let queued booking emails reach the broker
	bookingSvc.Wait()
	log.Info("stopped")
}
