package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/edumeet/errwatch-backend/internal/archive"
	"github.com/edumeet/errwatch-backend/internal/config"
	"github.com/edumeet/errwatch-backend/internal/handler"
	"github.com/edumeet/errwatch-backend/internal/middleware"
	"github.com/edumeet/errwatch-backend/internal/notify"
	"github.com/edumeet/errwatch-backend/internal/routes"
	"github.com/edumeet/errwatch-backend/internal/service"
	"github.com/edumeet/errwatch-backend/internal/store"
	"github.com/edumeet/errwatch-backend/pkg/jwt"
	pkglogger "github.com/edumeet/errwatch-backend/pkg/logger"
	pkgredis "github.com/edumeet/errwatch-backend/pkg/redis"
)

// @title           Errwatch Telemetry API
// @version         1.0
// @description     Error telemetry ingestion, classification and analytics for the school administration platform
//
// @host            localhost:8082
// @BasePath        /api/v2
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// MySQL connection (optional: archive only)
	var db *gorm.DB
	if cfg.Database.Enabled {
		db, err = initDB(cfg)
		if err != nil {
			pkglogger.Info("Warning: Failed to connect to database: %v (continuing without archive)", err)
			db = nil
		} else {
			pkglogger.Info("Connected to MySQL")
		}
	}
	errorArchive, err := archive.New(db)
	if err != nil {
		pkglogger.Info("Warning: archive migration failed: %v (continuing without archive)", err)
		errorArchive, _ = archive.New(nil)
	}

	// Redis connection (optional: critical alert channel)
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Info("Warning: Failed to connect to Redis: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if redisClient != nil {
		notifier = notify.NewRedisNotifier(redisClient, cfg.Telemetry.NotifyChannel)
	}

	// Telemetry pipeline
	telemetryStore := store.New(store.Config{
		MaxErrorsPerPage: cfg.Telemetry.MaxErrorsPerPage,
		DedupWindow:      cfg.Telemetry.DedupWindow,
	})
	source := cfg.Telemetry.Source
	if source == "" {
		if cfg.IsDevelopment() {
			source = "local"
		} else {
			source = "production"
		}
	}
	telemetrySvc := service.NewTelemetryService(
		telemetryStore,
		service.NewRuleAnalyzer(),
		service.CountSummarizer{},
		notifier,
		errorArchive,
		source,
	)
	telemetrySvc.SetDefaultLimit(cfg.Telemetry.DefaultQueryLimit)
	telemetryHandler := handler.NewTelemetryHandler(telemetrySvc)

	// JWT Manager
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS: instrumented pages report cross-origin
	allowOrigins := cfg.CORS.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(allowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           86400 * time.Second,
	}))

	// Middleware
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "errwatch-backend",
			"time":    time.Now().Unix(),
		})
	})

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Telemetry routes
	authz := middleware.LevelAuthorizer{MinLevel: middleware.MonitoringLevel}
	routes.SetupTelemetry(router, telemetryHandler, jwtManager, authz)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	pkglogger.Info("Starting errwatch-backend on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	return gorm.Open(mysql.Open(cfg.DSN()), gormCfg)
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
