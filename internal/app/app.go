// Package app wires the portal components and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/appeal"
	"github.com/zeyuan/appeal-service/internal/auth"
	"github.com/zeyuan/appeal-service/internal/config"
	"github.com/zeyuan/appeal-service/internal/db"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/http/api/admin"
	"github.com/zeyuan/appeal-service/internal/http/api/admin/handlers"
	"github.com/zeyuan/appeal-service/internal/http/api/front"
	"github.com/zeyuan/appeal-service/internal/jobs"
	"github.com/zeyuan/appeal-service/internal/kb"
	"github.com/zeyuan/appeal-service/internal/ledger"
	"github.com/zeyuan/appeal-service/internal/llm"
	"github.com/zeyuan/appeal-service/internal/logging"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/notify"
	"github.com/zeyuan/appeal-service/internal/poa"
	"github.com/zeyuan/appeal-service/internal/realtime"
	"github.com/zeyuan/appeal-service/internal/security"
	"github.com/zeyuan/appeal-service/internal/settings"
	"github.com/zeyuan/appeal-service/internal/stats"
	"github.com/zeyuan/appeal-service/internal/storage"
	"github.com/zeyuan/appeal-service/internal/store"
	"github.com/zeyuan/appeal-service/internal/sysconfig"
	"github.com/zeyuan/appeal-service/internal/users"
	"gorm.io/gorm"
)

const (
	shutdownTimeout   = 10 * time.Second
	slowQueryWarning  = 500 * time.Millisecond
	notifyConcurrency = 4
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, appCfg config.AppConfig) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(appCfg.ConfigPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)
	return db.Migrate(conn.WithContext(ctx))
}

// CreateSuperAdmin creates a SUPER_ADMIN account, or promotes and resets an existing one.
func CreateSuperAdmin(ctx context.Context, appCfg config.AppConfig, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("app: email is required")
	}
	if len(password) < security.MinPasswordLength {
		return fmt.Errorf("app: password must be at least %d characters", security.MinPasswordLength)
	}
	cfg, errLoad := config.Load(config.ResolveConfigPath(appCfg.ConfigPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("app: hash password: %w", errHash)
	}
	s := store.New(conn, nil)
	existing, errGet := s.GetUserByEmail(ctx, email)
	if errGet == nil {
		log.WithField("user", existing.ID).Info("app: promoting existing account to super admin")
		return s.UpdateUser(ctx, existing.ID, map[string]any{"role": models.RoleSuperAdmin, "password": hash})
	}
	user := &models.User{Email: email, Username: email, Password: hash, Role: models.RoleSuperAdmin}
	if errCreate := s.CreateUser(ctx, user); errCreate != nil {
		return errCreate
	}
	log.WithField("user", user.ID).Info("app: super admin created")
	return nil
}

// RunServer boots the portal and blocks until ctx is cancelled or the listener fails.
func RunServer(ctx context.Context, appCfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(appCfg.ConfigPath)
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	logCloser, errLog := logging.Setup(cfg.Logging)
	if errLog != nil {
		return errLog
	}
	defer func() { _ = logCloser.Close() }()
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	loc := cfg.Location()

	conn, errOpen := openDatabase(cfg)
	if errOpen != nil {
		return errOpen
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	infra, errInfra := startInfra(runCtx, cfg)
	if errInfra != nil {
		return errInfra
	}
	defer infra.close()

	blobs, errBlobs := storage.NewLocalStorage(cfg.Storage.Root, cfg.Server.PublicBaseURL)
	if errBlobs != nil {
		return errBlobs
	}

	s := store.New(conn, infra.broker)
	settingsStore := settings.NewStore(conn)
	if errRefresh := settingsStore.Refresh(runCtx); errRefresh != nil {
		log.WithError(errRefresh).Warn("app: initial settings load failed")
	}
	configService := sysconfig.New(blobs)
	if errRefresh := configService.Refresh(runCtx); errRefresh != nil {
		log.WithError(errRefresh).Warn("app: initial system config load failed")
	}

	var notifier appeal.Notifier = notify.LogNotifier{}
	if infra.asynqClient != nil && cfg.Mail.SendGridAPIKey != "" {
		notifier = notify.NewQueueNotifier(infra.asynqClient)
	}

	ledgerService := ledger.New(s)
	kbService := kb.New(s)
	generator := llm.NewGeminiClient(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout})
	svc := apphttp.Services{
		DB:       conn,
		Auth:     auth.New(s, infra.revoker, settingsStore, cfg.JWT),
		Appeals:  appeal.New(s, blobs, ledgerService, notifier, loc),
		Ledger:   ledgerService,
		Users:    users.New(s),
		KB:       kbService,
		POA:      poa.New(kbService, generator, blobs, loc),
		Config:   configService,
		Settings: settingsStore,
		Stats:    stats.NewService(s, configService),
		Broker:   infra.broker,
		Location: loc,
	}

	if infra.asynqServer != nil && cfg.Mail.SendGridAPIKey != "" {
		siteName := func() string { return settingsStore.String(settings.SiteNameKey, settings.DefaultSiteName) }
		mux := notify.NewServeMux(notify.NewHandler(s, notify.NewSendGridMailer(cfg.Mail), siteName))
		if errStart := infra.asynqServer.Start(mux); errStart != nil {
			return fmt.Errorf("app: start notification worker: %w", errStart)
		}
		log.Info("app: notification worker started")
	} else {
		log.Info("app: status e-mails disabled (redis or sendgrid key not configured)")
	}

	deps := jobs.Deps{
		Refreshers: map[string]jobs.Refresher{"sysconfig": configService, "settings": settingsStore},
		Appeals:    s,
	}
	if infra.inspector != nil {
		deps.Queue = infra.inspector
	}
	scheduler, errJobs := jobs.New(cfg.Jobs, loc, deps)
	if errJobs != nil {
		return errJobs
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	if config.ConfigExists(configPath) {
		errWatch := config.Watch(runCtx, configPath, func(next *config.Config) {
			if errLevel := logging.ApplyLevel(next.Logging.Level); errLevel != nil {
				log.WithError(errLevel).Warn("app: apply reloaded log level")
				return
			}
			log.Infof("app: config reloaded, log level %s", next.Logging.Level)
		})
		if errWatch != nil {
			log.WithError(errWatch).Warn("app: config hot reload disabled")
		}
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(svc, blobs.Root()),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("app: listening on %s", cfg.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serveErr <- errServe
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case errServe, ok := <-serveErr:
		if ok && errServe != nil {
			return fmt.Errorf("app: serve: %w", errServe)
		}
	}

	log.Info("app: shutting down")
	cancelRun()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Warn("app: http shutdown")
	}
	return nil
}

// NewRouter builds the gin engine with the front and admin route groups, the health
// check and the public blob directory.
func NewRouter(svc apphttp.Services, filesRoot string) *gin.Engine {
	engine := gin.New()
	engine.Use(logging.Recovery(), logging.RequestLogger())

	health := handlers.NewHealthHandler(svc.DB)
	engine.GET("/healthz", health.Healthz)
	if filesRoot != "" {
		engine.Static("/files", filesRoot)
	}
	front.RegisterFrontRoutes(engine, svc)
	admin.RegisterAdminRoutes(engine, svc)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "kind": "not_found"})
	})
	return engine
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	return db.OpenWithOptions(cfg.Database.DSN, db.Options{
		TimeZone:      cfg.TimeZone,
		SlowThreshold: slowQueryWarning,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
	})
}

func closeDatabase(conn *gorm.DB) {
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.WithError(errClose).Warn("app: close database")
	}
}

// infra holds the Redis-backed collaborators. Without Redis every field except broker is nil.
type infra struct {
	broker      realtime.Broker
	revoker     auth.Revoker
	redis       *redis.Client
	asynqClient *asynq.Client
	asynqServer *asynq.Server
	inspector   *asynq.Inspector
}

func startInfra(ctx context.Context, cfg *config.Config) (*infra, error) {
	if !cfg.Redis.Enabled {
		log.Info("app: redis disabled, using in-process change broker")
		return &infra{broker: realtime.NewMemoryBroker()}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("app: redis ping %s: %w", cfg.Redis.Addr, errPing)
	}
	broker := realtime.NewRedisBroker(client, "")
	if errStart := broker.Start(ctx); errStart != nil {
		_ = client.Close()
		return nil, errStart
	}

	opt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: notifyConcurrency,
		Queues:      map[string]int{notify.Queue: 1},
		Logger:      log.StandardLogger(),
	})
	log.Infof("app: redis connected at %s", cfg.Redis.Addr)
	return &infra{
		broker:      broker,
		revoker:     auth.NewRedisRevoker(client),
		redis:       client,
		asynqClient: asynq.NewClient(opt),
		asynqServer: server,
		inspector:   asynq.NewInspector(opt),
	}, nil
}

func (i *infra) close() {
	if i.asynqServer != nil {
		i.asynqServer.Shutdown()
	}
	if i.asynqClient != nil {
		if errClose := i.asynqClient.Close(); errClose != nil {
			log.WithError(errClose).Warn("app: close task client")
		}
	}
	if i.inspector != nil {
		_ = i.inspector.Close()
	}
	if i.redis != nil {
		if errClose := i.redis.Close(); errClose != nil {
			log.WithError(errClose).Warn("app: close redis")
		}
	}
}
