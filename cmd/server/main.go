package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"scriptify/internal/automation"
	"scriptify/internal/config"
	"scriptify/internal/dispatch"
	"scriptify/internal/events"
	"scriptify/internal/handlers"
	"scriptify/internal/messaging"
	"scriptify/internal/models"
	"scriptify/internal/observability"
	"scriptify/internal/placeholders"
	"scriptify/internal/reports"
	"scriptify/internal/scripts"
	"scriptify/internal/services"
	"scriptify/pkg/notify"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

func main() {
	// Read config file (default ./config.yml) and initialize logging.
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cfg := config.Load()

	// Allow overriding database and listen settings via flags/env,
	// keeping the same interface as the migrate command.
	var (
		flagDSN   string
		dbHost    string
		dbPortStr string
		dbUser    string
		dbPass    string
		dbName    string
		dbSSLMode string
		dbTZ      string
		srvHost   string
		srvPort   int
	)
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(os.Stdout)
	flagSet.StringVar(&flagDSN, "dsn", os.Getenv("DB_DSN"), "Postgres DSN, if set overrides other DB flags")
	flagSet.StringVar(&dbHost, "db-host", getenvDefault("DB_HOST", cfg.Database.Host), "database host")
	flagSet.StringVar(&dbPortStr, "db-port", getenvDefault("DB_PORT", fmt.Sprintf("%d", cfg.Database.Port)), "database port")
	flagSet.StringVar(&dbUser, "db-user", getenvDefault("DB_USER", cfg.Database.User), "database user")
	flagSet.StringVar(&dbPass, "db-pass", getenvDefault("DB_PASSWORD", cfg.Database.Password), "database password")
	flagSet.StringVar(&dbName, "db-name", getenvDefault("DB_NAME", cfg.Database.Name), "database name")
	flagSet.StringVar(&dbSSLMode, "db-sslmode", getenvDefault("DB_SSLMODE", "disable"), "sslmode (disable, require, verify-ca, verify-full)")
	flagSet.StringVar(&dbTZ, "db-timezone", getenvDefault("DB_TIMEZONE", "UTC"), "database timezone")
	flagSet.StringVar(&srvHost, "host", getenvDefault("SCRIPTIFY_HOST", cfg.Server.Host), "server host (listen)")
	flagSet.IntVar(&srvPort, "port", func() int {
		if p := os.Getenv("SCRIPTIFY_PORT"); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				return n
			}
		}
		return cfg.Server.Port
	}(), "server port (listen)")
	_ = flagSet.Parse(os.Args[1:])

	dsn := flagDSN
	if dsn == "" {
		host := firstNonEmpty(dbHost, cfg.Database.Host)
		user := firstNonEmpty(dbUser, cfg.Database.User)
		pass := firstNonEmpty(dbPass, cfg.Database.Password)
		name := firstNonEmpty(dbName, cfg.Database.Name)
		port := dbPortStr
		if port == "" && cfg.Database.Port != 0 {
			port = fmt.Sprintf("%d", cfg.Database.Port)
		}
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", host, user, pass, name, port, dbSSLMode, dbTZ)
	}
	if err := config.InitLogger(cfg); err != nil {
		logrus.Warnf("init logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	// OpenTelemetry (optional).
	shutdownOTel, err := observability.SetupTracing(context.Background(), cfg)
	if err != nil {
		appLogger.Warnf("init tracing: %v", err)
	} else {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Info)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}

	if err := db.AutoMigrate(
		&models.Automation{}, &models.AutomationRun{},
		&models.Message{}, &models.PendingMessage{},
		&models.ActivityEvent{}, &models.DailyStat{},
	); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// Messenger: local rows or external webhook.
	var messenger dispatch.Messenger
	var localStore *messaging.Local
	if cfg.Messaging.Mode == "webhook" {
		messenger = notify.NewClient(&notify.Config{
			BaseURL:    cfg.Messaging.Webhook.BaseURL,
			APIKey:     cfg.Messaging.Webhook.APIKey,
			Timeout:    cfg.Messaging.Webhook.Timeout,
			MaxRetries: cfg.Messaging.Webhook.MaxRetries,
		}, appLogger)
	} else {
		localStore = messaging.NewLocal(db, appLogger)
		messenger = localStore
	}

	dispatcher := dispatch.NewDispatcher(db, messenger, appLogger)

	// Reports and placeholder rendering.
	seriesEngine := reports.NewSeriesEngine(db, appLogger)
	bridge := reports.NewBridge(seriesEngine, appLogger)
	engine := placeholders.NewEngine(bridge, appLogger)

	// Registries with the built-in triggers and scripts.
	scriptRegistry := automation.NewScriptRegistry()
	triggerRegistry := automation.NewTriggerRegistry()
	if err := scripts.RegisterTriggers(triggerRegistry); err != nil {
		appLogger.Fatalf("Failed to register triggers: %v", err)
	}
	if err := scripts.RegisterScripts(scriptRegistry, scripts.Deps{
		Engine:     engine,
		Dispatcher: dispatcher,
		DB:         db,
		Logger:     appLogger,
		SiteTitle:  cfg.Messaging.SiteTitle,
	}); err != nil {
		appLogger.Fatalf("Failed to register scripts: %v", err)
	}

	automationService := services.NewAutomationService(db, scriptRegistry, triggerRegistry, appLogger)
	runFeed := events.NewHub(appLogger)
	automationService.SetRunPublisher(runFeed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background workers.
	sweeper := dispatch.NewSweeper(db, messenger, appLogger)
	go sweeper.Start(ctx, cfg.Dispatch.SweepInterval)

	if cfg.Scheduler.Enabled {
		scheduler := services.NewScheduler(automationService, db, appLogger)
		go scheduler.Start(ctx, cfg.Scheduler.ReloadInterval)
	}

	statsService := services.NewStatsService(db, appLogger)
	go statsService.StartWorker(ctx, time.Hour)

	// Gin setup.
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddlewareWithConfig(cfg))
	if cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Monitoring.Tracing.ServiceName))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Monitoring.Enabled {
		r.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	handlers.RegisterDefinitionRoutes(api, handlers.NewDefinitionHandler(scriptRegistry, triggerRegistry))
	handlers.RegisterAutomationRoutes(api, handlers.NewAutomationHandler(automationService))
	handlers.RegisterMessageRoutes(api, handlers.NewMessageHandler(localStore, dispatcher))
	handlers.RegisterPreviewRoutes(api, handlers.NewPreviewHandler(engine, bridge, seriesEngine))

	// Live run feed.
	r.GET("/api/ws/runs", runFeed.ServeWS)

	host := firstNonEmpty(srvHost, cfg.Server.Host)
	port := srvPort
	if port == 0 {
		port = cfg.Server.Port
	}
	listenAddr := fmt.Sprintf("%s:%d", host, port)

	srv := &http.Server{Addr: listenAddr, Handler: r}
	go func() {
		appLogger.Infof("Starting server on %s", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}
	appLogger.Info("Server exited")
}

// helpers (copied from migrate for consistency)
func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func corsMiddlewareWithConfig(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := "*"
	allowedMethods := "GET, POST, PUT, DELETE, OPTIONS"
	allowedHeaders := "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization"
	if cfg != nil && cfg.Security.CORS.Enabled {
		if len(cfg.Security.CORS.AllowedOrigins) > 0 {
			allowedOrigins = strings.Join(cfg.Security.CORS.AllowedOrigins, ", ")
		}
		if len(cfg.Security.CORS.AllowedMethods) > 0 {
			allowedMethods = strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
		}
		if len(cfg.Security.CORS.AllowedHeaders) > 0 {
			allowedHeaders = strings.Join(cfg.Security.CORS.AllowedHeaders, ", ")
		}
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigins)
		c.Header("Access-Control-Allow-Methods", allowedMethods)
		c.Header("Access-Control-Allow-Headers", allowedHeaders)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
