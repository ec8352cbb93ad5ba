package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"comanda/internal/api"
	"comanda/internal/auth"
	"comanda/internal/config"
	"comanda/internal/database"
	"comanda/internal/events"
	"comanda/internal/menu"
	"comanda/internal/metrics"
	"comanda/internal/models"
	"comanda/internal/monitoring"
	"comanda/internal/orders"
	"comanda/internal/realtime"
	"comanda/internal/seed"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jinzhu/gorm"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", -1, "Metrics server port, 0 disables (overrides config)")
	configFile  = flag.String("config", config.DefaultPath, "Path to configuration file")
	seedData    = flag.Bool("seed", false, "Create default menus and the admin account")
)

func main() {
	flag.Parse()

	// Initialize context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort >= 0 {
		cfg.Server.MetricsPort = *metricsPort
	}

	logger := cfg.Logger()
	gin.SetMode(gin.ReleaseMode)

	// Initialize database
	db, err := initializeDB(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize metrics collector
	collector := metrics.NewCollector()
	collector.Registry().MustRegister(collectors.NewDBStatsCollector(db.DB(), "comanda"))

	// Event fan-out
	hub := realtime.NewHub(logger.WithField("component", "hub"),
		realtime.WithBuffer(cfg.Realtime.Buffer),
		realtime.WithSubscriberGauge(collector.SetSubscribers))
	defer hub.Close()

	monitor := monitoring.NewMonitor(2 * time.Second)
	monitor.Register("database", func(ctx context.Context) error { return database.Ping(db) })
	monitor.Observe("subscribers", func() interface{} { return hub.Count() })

	var publisher events.Publisher = hub
	if cfg.Redis.Addr != "" {
		bridge := initializeRedis(cfg, hub, logger)
		publisher = bridge
		monitor.Register("redis", bridge.Check)
		go bridge.Run(ctx)
	}

	// Services
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Failed to load time zone: %v", err)
	}
	schedule, err := menu.NewSchedule(cfg.Menu.Windows, loc)
	if err != nil {
		logger.Fatalf("Invalid menu windows: %v", err)
	}
	policy, err := orders.ParsePolicy(cfg.Orders.Policy)
	if err != nil {
		logger.Fatalf("Invalid order policy: %v", err)
	}

	menus := menu.NewService(db, schedule, logger.WithField("component", "menu"),
		menu.WithPublisher(publisher))
	orderService := orders.NewService(db, logger.WithField("component", "orders"),
		orders.WithPublisher(publisher),
		orders.WithMetrics(collector),
		orders.WithPolicy(policy),
		orders.WithTrustedTotals(cfg.Orders.TrustClientTotal))
	authService := auth.NewService(db, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), 0,
		logger.WithField("component", "auth"))

	if *seedData || cfg.Database.Seed {
		err := seed.Run(ctx, db, authService, seed.Options{
			AdminEmail:    cfg.Auth.AdminEmail,
			AdminPassword: cfg.Auth.AdminPassword,
		}, logger.WithField("component", "seed"))
		if err != nil {
			logger.Fatalf("Failed to seed database: %v", err)
		}
		monitor.RecordMetric("seeded_at", time.Now())
	}

	// Announce menu changes at each window start
	onRotate := func(category models.MenuCategory) {
		collector.MenuRotated(category)
		monitor.RecordMetric("last_rotation", map[string]interface{}{"category": category, "at": time.Now()})
	}
	rotation, err := menu.NewRotation(schedule, publisher, onRotate, logger.WithField("component", "rotation"))
	if err != nil {
		logger.Fatalf("Failed to schedule menu rotation: %v", err)
	}
	rotation.Start()
	defer rotation.Stop()
	monitor.Observe("current_menu", func() interface{} { return menus.CurrentCategory() })
	monitor.Observe("next_rotation", func() interface{} { return rotation.Next() })

	limiter := api.NewRateLimiter(cfg.Orders.RateLimit.RPS, cfg.Orders.RateLimit.Burst, collector)
	go cleanupLimiter(ctx, limiter)

	// Initialize API server
	apiServer := api.NewServer(api.Deps{
		Menus:   menus,
		Orders:  orderService,
		Auth:    authService,
		Hub:     hub,
		Monitor: monitor,
		Metrics: collector,
		Limiter: limiter,
		Logger:  logger.WithField("component", "http"),
	})

	// Start metrics server
	var metricsServer *http.Server
	if cfg.Server.MetricsPort > 0 {
		metricsServer = startMetricsServer(cfg.Server.MetricsPort, collector, logger)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: apiServer.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("API server shutdown error: %v", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("Metrics server shutdown error: %v", err)
			}
		}

		cancel() // Cancel main context
	}()

	logger.WithFields(logrus.Fields{
		"port":   cfg.Server.Port,
		"policy": policy,
		"menu":   menus.CurrentCategory(),
	}).Info("Starting API server")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("API server error: %v", err)
	}
	<-ctx.Done()
}

func initializeDB(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := database.Open(database.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Debug:           cfg.Database.Debug,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initializeRedis(cfg *config.Config, hub *realtime.Hub, logger *logrus.Logger) *realtime.RedisBridge {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return realtime.NewRedisBridge(client, cfg.Redis.Channel, hub, logger.WithField("component", "redis"))
}

// limiterIdle is how long a client goes unseen before its bucket is dropped.
const limiterIdle = 10 * time.Minute

func cleanupLimiter(ctx context.Context, limiter *api.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(limiterIdle)
		}
	}
}

func startMetricsServer(port int, collector *metrics.Collector, logger *logrus.Logger) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET("/metrics", gin.WrapH(collector.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	go func() {
		logger.Infof("Starting metrics server on port %d", port)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server error: %v", err)
		}
	}()
	return metricsServer
}
