package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/habit-coach/internal/config"
	"github.com/iliyamo/habit-coach/internal/database"
	"github.com/iliyamo/habit-coach/internal/handler"
	"github.com/iliyamo/habit-coach/internal/logger"
	"github.com/iliyamo/habit-coach/internal/middleware"
	"github.com/iliyamo/habit-coach/internal/queue"
	"github.com/iliyamo/habit-coach/internal/repository"
	"github.com/iliyamo/habit-coach/internal/router"
	"github.com/iliyamo/habit-coach/internal/service"
)

func main() {
	config.LoadDotEnv()  // Optional .env for local runs
	cfg := config.Load() // Load environment config

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		log.Fatal("database unavailable", "error", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("migrations failed", "error", err)
		}
	}

	rdb := config.NewRedisClient(ctx) // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Warn("redis unavailable, using in-process code store and nudge markers")
	}

	// Repositories
	users := repository.NewUserRepo(db)
	factors := repository.NewFactorRepo(db)
	habits := repository.NewHabitRepo(db)
	userHabits := repository.NewUserHabitRepo(db)
	successes := repository.NewSuccessRepo(db)
	partners := repository.NewPartnerRepo(db)

	// Outbound SMS goes through RabbitMQ
	qcfg := config.LoadQueueConfig()
	messenger := queue.NewPublisher(qcfg.URL, qcfg.SMSQueue, log)

	var codes service.CodeStore
	var marker service.Marker
	if rdb != nil {
		codes = &service.RedisCodeStore{Client: rdb, Prefix: "habit"}
		marker = service.RedisMarker{Client: rdb}
	} else {
		codes = service.NewMemoryCodeStore()
		marker = &service.MemoryMarker{}
	}

	// Services
	onboarding := &service.OnboardingService{
		Users:         users,
		Factors:       factors,
		Codes:         codes,
		Messenger:     messenger,
		Log:           log,
		JWTSecret:     cfg.JWTSecret,
		AccessTTLMin:  cfg.AccessTTLMin,
		OnboardTTLMin: cfg.OnboardTTLMin,
		BcryptCost:    cfg.BcryptCost,
		CodeTTL:       cfg.CodeTTL,
		CodeAttempts:  cfg.CodeAttempts,
	}
	habitSvc := &service.HabitService{
		Users:      users,
		Habits:     habits,
		UserHabits: userHabits,
		Successes:  successes,
		Partners:   partners,
		Factors:    factors,
		Messenger:  messenger,
		Log:        log,
	}
	recommender := &service.RecommendationService{Users: users, Habits: habits, Factors: factors}
	profiles := &service.ProfileService{Factors: factors}

	// Background workers
	consumer := &queue.Consumer{
		URL:      qcfg.URL,
		Queue:    qcfg.SMSQueue,
		Prefetch: qcfg.Prefetch,
		Sender:   queue.NewSender(config.LoadSMSConfig(), log),
		Log:      log,
	}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sms consumer exited", "error", err)
		}
	}()

	if ncfg := config.LoadNudgeConfig(); ncfg.Enabled {
		nudger := &service.Nudger{
			UserHabits: userHabits,
			Successes:  successes,
			Messenger:  messenger,
			Marker:     marker,
			Prefix:     ncfg.Prefix,
			Interval:   ncfg.Interval,
			Log:        log,
		}
		go nudger.Run(ctx)
	}

	// HTTP
	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	smsLimiter := middleware.NewTokenBucket(config.LoadVerifyRateLimitConfig(), rdb, log)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(onboarding, log), cfg.JWTSecret, smsLimiter)
	router.RegisterPublic(e, &handler.CatalogHandler{Habits: habits, Profiles: profiles, Log: log}, cache)
	router.RegisterAccount(e, &handler.AccountHandler{
		Users:     users,
		Profiles:  profiles,
		Recommend: recommender,
		Habits:    habitSvc,
		Log:       log,
	}, cfg.JWTSecret)
	router.RegisterWebhook(e, handler.NewWebhookHandler(users, habitSvc, log), cfg.WebhookToken)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("stopped")
}
