package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultline/config"
	"consultline/cron"
	"consultline/database"
	"consultline/database/repository/memory"
	practitionerRepo "consultline/database/repository/practitioner"
	profileRepo "consultline/database/repository/profile"
	reviewRepo "consultline/database/repository/review"
	sessionRepo "consultline/database/repository/session"
	userRepo "consultline/database/repository/user"
	"consultline/handlers"
	"consultline/middleware"
	"consultline/routes"
	"consultline/services/auth"
	"consultline/services/media"
	"consultline/services/presence"
	"consultline/services/profile"
	"consultline/services/realtime"
	"consultline/services/review"
	"consultline/services/session"
	"consultline/services/storage"
	"consultline/services/tasks"
	"consultline/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// repositories is the record store the services run on.
type repositories struct {
	Users         userRepo.UserRepository
	Profiles      profileRepo.ProfileRepository
	Practitioners practitionerRepo.PractitionerRepository
	Sessions      sessionRepo.SessionRepository
	Reviews       reviewRepo.ReviewRepository
	Ping          utils.HealthCheck
}

func newRepositories(logger *zap.Logger) repositories {
	if config.AppConfig.DatabaseDriver == "memory" {
		logger.Warn("main: using the in-memory record store; data is lost on restart")
		store := memory.NewStore()
		return repositories{
			Users:         store.Users(),
			Profiles:      store.Profiles(),
			Practitioners: store.Practitioners(),
			Sessions:      store.Sessions(),
			Reviews:       store.Reviews(),
			Ping:          store.Ping,
		}
	}

	database.InitDB()
	db := database.DB()
	return repositories{
		Users:         userRepo.NewMongoUserRepo(db),
		Profiles:      profileRepo.NewMongoProfileRepo(db),
		Practitioners: practitionerRepo.NewMongoPractitionerRepo(db),
		Sessions:      sessionRepo.NewMongoSessionRepo(db),
		Reviews:       reviewRepo.NewMongoReviewRepo(db),
		Ping:          database.Ping,
	}
}

func newGateway(ctx context.Context, repos repositories, logger *zap.Logger) (auth.Gateway, map[string]utils.HealthCheck) {
	checks := map[string]utils.HealthCheck{}
	if config.AppConfig.AuthProvider == "firebase" {
		gw, err := auth.NewFirebaseGateway(ctx, config.AppConfig.FirebaseCredentialsFile)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize firebase auth: %v", err)
		}
		return gw, checks
	}

	if config.AppConfig.JWTSecret == "" {
		logger.Sugar().Fatal("main: JWT_SECRET is required for the local identity provider")
	}
	var revocations auth.RevocationStore
	if config.AppConfig.DatabaseDriver == "memory" {
		revocations = auth.NewMemoryRevocationStore()
	} else {
		client := utils.GetAuthCacheClient()
		revocations = auth.NewRedisRevocationStore(client)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return &auth.LocalGateway{
		Users:       repos.Users,
		Secret:      []byte(config.AppConfig.JWTSecret),
		TTL:         config.AppConfig.TokenTTL,
		Revocations: revocations,
	}, checks
}

func newUploader(ctx context.Context, logger *zap.Logger) storage.Uploader {
	cfg := config.AppConfig
	if cfg.StorageProvider == "s3" {
		client, err := storage.NewS3Client(ctx, cfg.S3Region)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		u, err := storage.NewS3Uploader(client, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicBaseURL, cfg.UploadURLTTL)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize s3 uploader: %v", err)
		}
		return u
	}
	u, err := storage.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.UploadURLTTL)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary uploader: %v", err)
	}
	return u
}

// runLocalSweep expires overdue sessions in-process when no queue worker runs.
func runLocalSweep(ctx context.Context, engine session.SessionEngine, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := engine.SweepDue(ctx); err != nil {
				logger.Warn("main: sweep failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("main: expired overdue sessions", zap.Int("count", n))
			}
		}
	}
}

func main() {
	configFile := pflag.String("config", "", "path to a config file (default ./config.yaml)")
	pflag.Parse()

	config.LoadConfig(*configFile)
	logger := utils.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	repos := newRepositories(logger)
	gateway, checks := newGateway(ctx, repos, logger)
	checks["store"] = repos.Ping
	uploader := newUploader(ctx, logger)

	minter, err := media.NewJWTMinter(config.AppConfig.AgoraAppID, config.AppConfig.AgoraAppCertificate, config.AppConfig.MediaTokenTTL)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize media minter: %v", err)
	}

	hub := realtime.NewHub(logger)
	engine := &session.DefaultSessionEngine{
		Sessions:      repos.Sessions,
		Practitioners: repos.Practitioners,
		Profiles:      repos.Profiles,
		Reviews:       repos.Reviews,
		Minter:        minter,
		Publisher:     hub,
		Timing: session.Timing{
			WaitingTimeout: config.AppConfig.WaitingTimeout,
			LiveGrace:      config.AppConfig.LiveGrace,
			MaxLiveSeconds: config.AppConfig.MaxLiveSeconds,
		},
		Logger: logger,
	}

	var worker *cron.Worker
	var asynqClient *asynq.Client
	if config.AppConfig.ExpiryWorker {
		asynqClient = asynq.NewClient(cron.RedisOpt())
		engine.Expiry = &tasks.ExpiryScheduler{Client: asynqClient}
		worker = cron.InitExpiryWorker(engine, time.Minute)
	} else {
		go runLocalSweep(ctx, engine, 15*time.Second, logger)
	}

	// services.
	authService := &auth.DefaultAuthService{
		Gateway:       gateway,
		Profiles:      repos.Profiles,
		Practitioners: repos.Practitioners,
		Logger:        logger,
	}
	profileService := &profile.DefaultProfileService{Profiles: repos.Profiles}
	presenceService := &presence.DefaultPresenceService{Practitioners: repos.Practitioners, Profiles: repos.Profiles}
	reviewService := &review.DefaultReviewService{
		Reviews:       repos.Reviews,
		Sessions:      repos.Sessions,
		Practitioners: repos.Practitioners,
		Expiry:        engine,
	}

	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService)
	practitionerHandler := handlers.NewPractitionerHandler(presenceService)
	sessionHandler := handlers.NewSessionHandler(engine, hub)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	storageHandler := handlers.NewStorageHandler(uploader)
	mediaHandler := handlers.NewMediaHandler(engine)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Gateway: gateway,

		SignupHandler:      authHandler.SignupHandler,
		LoginHandler:       authHandler.LoginHandler,
		LogoutHandler:      authHandler.LogoutHandler,
		CurrentUserHandler: authHandler.CurrentUserHandler,

		GetProfileHandler:    profileHandler.GetProfileHandler,
		UpdateProfileHandler: profileHandler.UpdateProfileHandler,

		ListPractitionersHandler:       practitionerHandler.ListPractitionersHandler,
		ListOnlinePractitionersHandler: practitionerHandler.ListOnlinePractitionersHandler,
		GetPractitionerHandler:         practitionerHandler.GetPractitionerHandler,
		ToggleStatusHandler:            practitionerHandler.ToggleStatusHandler,

		StartSessionHandler:         sessionHandler.StartSessionHandler,
		AcceptSessionHandler:        sessionHandler.AcceptSessionHandler,
		AcknowledgeSessionHandler:   sessionHandler.AcknowledgeSessionHandler,
		ReadySessionHandler:         sessionHandler.ReadySessionHandler,
		RejectSessionHandler:        sessionHandler.RejectSessionHandler,
		EndSessionHandler:           sessionHandler.EndSessionHandler,
		GetSessionHandler:           sessionHandler.GetSessionHandler,
		PractitionerSessionsHandler: sessionHandler.PractitionerSessionsHandler,
		SessionTokenHandler:         sessionHandler.SessionTokenHandler,
		WatchSessionHandler:         sessionHandler.WatchSessionHandler,

		CreateReviewHandler: reviewHandler.CreateReviewHandler,
		ListReviewsHandler:  reviewHandler.ListReviewsHandler,

		UploadURLHandler:  storageHandler.UploadURLHandler,
		AgoraTokenHandler: mediaHandler.AgoraTokenHandler,

		HealthHandler: handlers.HealthHandler,
	}

	utils.StartHealthMonitor(ctx, 30*time.Second, checks)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	stop()
	hub.Close()
	if worker != nil {
		worker.Shutdown()
	}
	if asynqClient != nil {
		asynqClient.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if err := database.Close(shutdownCtx); err != nil {
		logger.Warn("main: failed to disconnect from MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
	_ = logger.Sync()
}
