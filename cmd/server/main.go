// Package main runs the survey HTTP server with the live results WebSocket and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/survey-studio/backend/config"
	"github.com/survey-studio/backend/internal/accounts"
	"github.com/survey-studio/backend/internal/analytics"
	"github.com/survey-studio/backend/internal/answers"
	"github.com/survey-studio/backend/internal/auth"
	"github.com/survey-studio/backend/internal/exports"
	"github.com/survey-studio/backend/internal/middleware"
	"github.com/survey-studio/backend/internal/models"
	"github.com/survey-studio/backend/internal/questions"
	"github.com/survey-studio/backend/internal/realtime"
	"github.com/survey-studio/backend/internal/session"
	"github.com/survey-studio/backend/internal/surveys"
	"github.com/survey-studio/backend/internal/web"
	"github.com/survey-studio/backend/internal/worker"
	"github.com/survey-studio/backend/pkg/database"
	"github.com/survey-studio/backend/pkg/queue"
	"github.com/survey-studio/backend/pkg/redis"
	"github.com/survey-studio/backend/pkg/response"
	"github.com/survey-studio/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.S3Enabled() {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	denylist := auth.NewDenylist(rdb.Client)
	sessions := session.NewRedisStore(rdb.Client, jwtService.Lifetime())

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	defer hub.Shutdown()

	renderer, err := web.NewRenderer(sessions, logger)
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	// Accounts
	userRepo := auth.NewRepository(pool)
	profileRepo := accounts.NewRepository(pool)
	accountHandler := accounts.NewHandler(accounts.Deps{
		Users:         userRepo,
		Profiles:      profileRepo,
		Tokens:        jwtService,
		Revoker:       denylist,
		Sessions:      sessions,
		Renderer:      renderer,
		SecureCookies: cfg.Server.SecureCookies,
		Logger:        logger,
	})

	// Surveys and questions
	surveyRepo := surveys.NewRepository(pool)
	questionRepo := questions.NewRepository(pool)
	surveyHandler := surveys.NewHandler(surveyRepo, questionRepo, sessions, renderer, logger)
	questionHandler := questions.NewHandler(questionRepo, surveyRepo, sessions, renderer, logger)

	// Answers publish to the live room
	answerRepo := answers.NewRepository(pool)
	answerHandler := answers.NewHandler(answerRepo, surveyRepo, questionRepo, hub, sessions, renderer, logger)

	analyticsHandler := analytics.NewHandler(analytics.NewRepository(pool), surveyRepo, questionRepo, logger)

	// Exports are disabled without S3
	exportRepo := exports.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	var (
		signer   exports.Signer
		enqueuer exports.Enqueuer
	)
	if s3Client != nil {
		signer, enqueuer = s3Client, jobQueue
	}
	exportHandler := exports.NewHandler(exportRepo, surveyRepo, enqueuer, signer, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Authenticate(jwtService, denylist, logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	router.GET("/", surveyHandler.Home)

	// Accounts (public)
	acc := router.Group("/accounts")
	{
		acc.GET("/register", accountHandler.Register)
		acc.POST("/register", accountHandler.Register)
		acc.GET("/login", accountHandler.Login)
		acc.POST("/login", accountHandler.Login)
	}
	accPrivate := router.Group("/accounts", middleware.RequireLogin())
	{
		accPrivate.GET("/logout", accountHandler.Logout)
		accPrivate.POST("/logout", accountHandler.Logout)
		accPrivate.GET("/profile", accountHandler.Profile)
		accPrivate.GET("/profile-completion", accountHandler.ProfileCompletion)
		accPrivate.POST("/profile-completion", accountHandler.ProfileCompletion)
	}

	// Survey pages (login required)
	pages := router.Group("/surveys", middleware.RequireLogin())
	{
		pages.GET("/create/title", surveyHandler.Create)
		pages.POST("/create/title", surveyHandler.Create)
		pages.GET("/:slug/detail", surveyHandler.Detail)
		pages.GET("/:slug/edit", surveyHandler.Edit)
		pages.POST("/:slug/edit", surveyHandler.Edit)
		pages.GET("/:slug/delete", surveyHandler.Delete)
		pages.POST("/:slug/delete", surveyHandler.Delete)

		pages.GET("/:slug/question/create", questionHandler.Create)
		pages.POST("/:slug/question/create", questionHandler.Create)
		pages.GET("/:slug/question/choices", questionHandler.NewChoices)
		pages.POST("/:slug/question/choices", questionHandler.NewChoices)
		pages.GET("/:slug/question/:id", questionHandler.Detail)
		pages.GET("/:slug/question/:id/update", questionHandler.Update)
		pages.POST("/:slug/question/:id/update", questionHandler.Update)
		pages.POST("/:slug/question/:id/delete", questionHandler.Delete)
		pages.DELETE("/:slug/question/:id/delete", questionHandler.Delete)
		pages.GET("/:slug/question/:id/choices", questionHandler.Choices)
		pages.POST("/:slug/question/:id/choices", questionHandler.Choices)

		pages.GET("/:slug/respond", answerHandler.Respond)
		pages.POST("/:slug/respond", answerHandler.Respond)
	}

	// JSON API (session required)
	api := router.Group("", middleware.RequireAuth())
	{
		api.GET("/surveys/:slug/results", analyticsHandler.Results)
		api.POST("/surveys/:slug/exports", exportHandler.Create)
		api.GET("/exports/:id", exportHandler.Get)
		api.GET("/admin/surveys", middleware.RequireRole(string(models.RoleAdmin)), surveyHandler.AdminList)

		// WebSocket (session cookie carries the identity)
		api.GET("/surveys/:slug/live", realtime.ServeLive(hub, surveyRepo, config.SplitTrim(cfg.Server.CORSAllowedOrigins, ","), logger))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (CSV export to S3)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if s3Client != nil && cfg.Export.RunInServer {
		processor := worker.NewExportProcessor(exportRepo, s3Client, jobQueue, logger)
		go processor.Run(workerCtx)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
