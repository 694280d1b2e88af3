package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/controller"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/pkg/configwatcher"
	"study_buddy_backend/pkg/database"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/security"
	"study_buddy_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	cancel          context.CancelFunc
	limiter         gin.HandlerFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user      *repository.UserRepository
	activity  *repository.ActivityRepository
	badge     *repository.BadgeRepository
	userBadge *repository.UserBadgeRepository
	streak    *repository.StreakRepository
}

type services struct {
	catalog     *service.BadgeCatalog
	checker     *service.BadgeChecker
	streak      *service.StreakService
	activity    *service.ActivityService
	badge       *service.BadgeService
	leaderboard *service.LeaderboardService
	hub         *service.NotificationHub
	storage     *service.StorageService
	ai          *service.AIService
}

type controllers struct {
	health      *controller.HealthController
	badge       *controller.BadgeController
	activity    *controller.ActivityController
	leaderboard *controller.LeaderboardController
	study       *controller.StudyController
	ws          *controller.WSController
}

// RegisterConfigCallback 配置文件热加载后依次调用
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		activity:  repository.NewActivityRepository(db),
		badge:     repository.NewBadgeRepository(db),
		userBadge: repository.NewUserBadgeRepository(db),
		streak:    repository.NewStreakRepository(db),
	}
}

func (a *App) initServices(ctx context.Context, repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	catalog, err := service.LoadBadgeCatalog(ctx, repos.badge)
	if err != nil {
		return nil, err
	}
	s.catalog = catalog

	normalizer := service.NewActivityTypeNormalizer(cfg.Badges.ActivityAliases)
	evaluator := service.NewBadgeEvaluator(repos.activity, repos.streak, repos.userBadge, normalizer)
	s.checker = service.NewBadgeChecker(catalog, evaluator)

	var publisher service.AwardPublisher
	if cfg.Badges.Notify {
		publisher = service.NewBadgeNotifier(rdb)
	}

	s.streak = service.NewStreakService(repos.streak, repos.activity)
	s.activity = service.NewActivityService(repos.activity, s.streak, s.checker, publisher)
	s.badge = service.NewBadgeService(catalog, s.checker, repos.userBadge, publisher, cfg.Badges.ProgressConcurrency)
	s.leaderboard = service.NewLeaderboardService(rdb, cfg.Leaderboard.Key, repos.user, s.activity)
	s.hub = service.NewNotificationHub(rdb)
	s.storage = service.NewStorageService(cfg)
	s.ai = service.NewAIService(cfg.AI)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		health:      controller.NewHealthController(db, rdb, s.catalog),
		badge:       controller.NewBadgeController(s.badge),
		activity:    controller.NewActivityController(s.activity, s.streak),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		study:       controller.NewStudyController(s.ai, s.storage, s.activity),
		ws:          controller.NewWSController(s.hub),
	}
}

func (a *App) setupMiddlewares(ctx context.Context, router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 认证后按用户限流，在 registerRoutes 中挂到授权路由组
	a.limiter = security.RateLimiter(ctx, cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, security.ClientKey)

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services) {
	go s.hub.Run(ctx)

	if a.Config.File == "" {
		return
	}
	go func() {
		if err := configwatcher.Watch(ctx, a.Config.File, a.applyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}

	// release 模式默认不迁移，需通过 -migrate 显式开启
	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis, cfg.Database.MaxRetries)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	repos := app.initRepositories(db)
	services, err := app.initServices(ctx, repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to load badge catalog", zap.Error(err))
	}
	app.services = services
	logger.Log.Info("Badge catalog loaded", zap.Int("badges", services.catalog.Len()))
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("study-buddy-backend", cfg.Tracing.CollectorEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(ctx, router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(logger.ApplyConfig)
	app.startBackgroundTasks(ctx, services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 关闭 websocket hub 和配置监听
	if a.cancel != nil {
		a.cancel()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
