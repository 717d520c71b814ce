package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/chowfast/chowfast-api/internal/config"
	"github.com/chowfast/chowfast-api/internal/handler"
	"github.com/chowfast/chowfast-api/internal/job"
	"github.com/chowfast/chowfast-api/internal/logger"
	"github.com/chowfast/chowfast-api/internal/middleware"
	pgRepo "github.com/chowfast/chowfast-api/internal/repository/postgres"
	redisRepo "github.com/chowfast/chowfast-api/internal/repository/redis"
	"github.com/chowfast/chowfast-api/internal/service"
	"github.com/chowfast/chowfast-api/pkg/auth"
	"github.com/chowfast/chowfast-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	if cfg.Log.Format == "text" {
		logger.SetTextFormatter()
	}
	log := logger.WithComponent("main")
	log.Infof("config loaded from %s", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("connected to redis")

	// Repositories
	tx := pgRepo.NewTransactor(db)
	userRepo := pgRepo.NewUserRepo(db)
	codeRepo := pgRepo.NewOneTimeCodeRepo(db)
	sessionRepo := pgRepo.NewSessionTokenRepo(db)
	vendorRepo := pgRepo.NewVendorRepo(db)
	customerRepo := pgRepo.NewCustomerRepo(db)
	revokedStore := pgRepo.NewRevokedTokenRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Fatalf("failed to initialize cache repo: %v", err)
	}
	revokedRepo := redisRepo.NewRevokedTokenCache(revokedStore, cacheRepo)
	attempts, err := redisRepo.NewAttemptCounter(redisClient, "otp_attempts")
	if err != nil {
		log.Fatalf("failed to initialize attempt counter: %v", err)
	}

	// Services
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	if err != nil {
		log.Fatalf("failed to initialize jwt service: %v", err)
	}
	emailService, err := newEmailService(cfg.Email)
	if err != nil {
		log.Fatalf("failed to initialize email service: %v", err)
	}
	otpService, err := service.NewOTPService(codeRepo, attempts, cfg.Signup)
	if err != nil {
		log.Fatalf("failed to initialize otp service: %v", err)
	}
	sessionService, err := service.NewSessionTokenService(sessionRepo, tx, cfg.Signup.SessionTokenTTL)
	if err != nil {
		log.Fatalf("failed to initialize session token service: %v", err)
	}
	signupService, err := service.NewSignupService(userRepo, tx, otpService, sessionService, jwtService, emailService, cfg.Signup)
	if err != nil {
		log.Fatalf("failed to initialize signup service: %v", err)
	}
	authService, err := service.NewAuthService(userRepo, revokedRepo, jwtService)
	if err != nil {
		log.Fatalf("failed to initialize auth service: %v", err)
	}
	vendorService, err := service.NewVendorService(userRepo, vendorRepo, tx, emailService)
	if err != nil {
		log.Fatalf("failed to initialize vendor service: %v", err)
	}
	customerService, err := service.NewCustomerService(customerRepo)
	if err != nil {
		log.Fatalf("failed to initialize customer service: %v", err)
	}

	// Background jobs
	scheduler := job.NewCronScheduler()
	if cfg.Cleanup.Enabled {
		cleanup := job.NewCredentialCleanup(sessionRepo, codeRepo, revokedStore, otpService.Validity(), cfg.Cleanup.Retention)
		if err := scheduler.AddJob(cleanup, cfg.Cleanup.Spec); err != nil {
			log.Fatalf("failed to schedule cleanup: %v", err)
		}
	}
	scheduler.Start(ctx)

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	router := gin.Default()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Warnf("failed to set trusted proxies: %v", err)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	registerRoutes(router, routeDeps{
		vendors:   handler.NewVendorHandler(signupService, vendorService),
		auth:      handler.NewAuthHandler(authService),
		customers: handler.NewCustomerHandler(customerService),
		health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": sqlDB.PingContext,
			"redis":    redisPing(redisClient),
		}),
		authMW:    middleware.NewAuthMiddleware(authService),
		limiter:   middleware.NewRateLimiter(redisClient, cfg.RateLimit.Enabled),
		rateLimit: cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Infof("starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		log.Warnf("failed to close database: %v", err)
	}
	log.Info("server exited")
}

type routeDeps struct {
	vendors   *handler.VendorHandler
	auth      *handler.AuthHandler
	customers *handler.CustomerHandler
	health    *handler.HealthHandler
	authMW    *middleware.AuthMiddleware
	limiter   *middleware.RateLimiter
	rateLimit config.RateLimitConfig
}

func registerRoutes(router *gin.Engine, d routeDeps) {
	limit := func(max int, prefix string) gin.HandlerFunc {
		return d.limiter.Limit(middleware.RateLimitConfig{MaxRequests: max, Window: d.rateLimit.Window, KeyPrefix: prefix})
	}
	authed := []gin.HandlerFunc{d.authMW.RequireAuth(), d.authMW.RequireActivated()}

	router.GET("/health", d.health.Health)

	api := router.Group("/api/v1")
	{
		vendors := api.Group("/vendors")
		{
			vendors.POST("/signup", limit(d.rateLimit.Signup, "rl:signup"), d.vendors.Signup)
			vendors.POST("/verify-otp", limit(d.rateLimit.Verify, "rl:verify"), d.vendors.VerifyOTP)
			vendors.POST("/resend-otp", limit(d.rateLimit.Resend, "rl:resend"), d.vendors.ResendOTP)
			vendors.POST("/signup/complete", append(authed, d.vendors.CompleteProfile)...)
		}

		users := api.Group("/users")
		{
			users.POST("/login", limit(d.rateLimit.Login, "rl:login"), d.auth.Login)
			users.POST("/logout", append(authed, d.auth.Logout)...)
			users.GET("/me", d.authMW.RequireAuth(), d.auth.Me)
		}

		api.POST("/token/refresh", limit(d.rateLimit.Login, "rl:refresh"), d.auth.Refresh)

		customers := api.Group("/customers", authed...)
		{
			customers.POST("/register", d.customers.Register)
			customers.GET("", d.customers.List)
			customers.GET("/export", d.authMW.AdminOnly(), d.customers.Export)
			customers.GET("/:customer_id", d.customers.Get)
			customers.PUT("/:customer_id", d.customers.Update)
		}
	}
}

func newEmailService(cfg config.EmailConfig) (service.EmailService, error) {
	if cfg.Provider == "resend" {
		svc, err := service.NewResendEmailService(cfg.ResendAPIKey, cfg.From, cfg.ReplyTo, cfg.SendTimeout)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
	logger.WithComponent("main").Warn("email provider is noop, emails are not sent")
	return &service.NoopEmailService{}, nil
}

func redisPing(client redis.UniversalClient) handler.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
