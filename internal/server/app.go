// Package server wires the docmark services together and runs the HTTP API,
// the housekeeping scheduler and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/config"
	"github.com/dmitrijs2005/docmark/internal/server/converter"
	"github.com/dmitrijs2005/docmark/internal/server/jobs"
	"github.com/dmitrijs2005/docmark/internal/server/mailer"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/openaiclient"
	"github.com/dmitrijs2005/docmark/internal/server/ratelimit"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docmark/internal/server/rest"
	"github.com/dmitrijs2005/docmark/internal/server/services"
	"github.com/dmitrijs2005/docmark/internal/server/storage"
	"github.com/redis/go-redis/v9"
)

const (
	smtpTimeout      = 30 * time.Second
	converterTimeout = 5 * time.Minute
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	redis     *redis.Client
	users     *services.UserService
	server    *rest.HTTPServer
	scheduler *jobs.Scheduler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, c)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("object storage bucket error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var limiter ratelimit.Limiter = ratelimit.Nop{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		limiter = ratelimit.NewRedisLimiter(app.redis, c.RateLimitRequests, c.RateLimitWindow)
	}

	activeSmtp := mailer.ConfigSourceFunc(func(ctx context.Context) (*models.SmtpConfig, error) {
		return rm.SmtpConfigs(db).GetActive(ctx)
	})
	m := mailer.New(mailer.NewSMTPSender(smtpTimeout), activeSmtp, logger, c.ResetTokenValidityDuration)

	settings := services.NewSettingsService(c, logger)
	apiKeys := services.NewApiKeyService(db, rm, logger)
	ocr := openaiclient.New(c.OpenAIBaseURL)
	conv := converter.New(c.ConverterURL, c.ConverterAPIKey, &http.Client{Timeout: converterTimeout})

	app.users = services.NewUserService(db, rm, c, m, settings, logger)
	docs := services.NewDocumentService(db, rm, store, conv, ocr, apiKeys, c, logger)
	smtp := services.NewSmtpService(db, rm, m, logger)

	app.server, err = rest.NewHTTPServer(c.EndpointAddrHTTP, logger, rest.Deps{
		Users:          app.users,
		Documents:      docs,
		ApiKeys:        apiKeys,
		Smtp:           smtp,
		Settings:       settings,
		OpenAI:         ocr,
		Limiter:        limiter,
		MaxUploadSize:  c.MaxUploadSize,
		MaxUploadFiles: c.MaxUploadFiles,
		TrustedProxies: c.TrustedProxies,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	app.scheduler = jobs.NewScheduler(logger)
	if err := app.scheduler.Add(c.CleanupSchedule, jobs.NewPurgeResetTokensJob(app.users, logger)); err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", c.CleanupSchedule, err)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) bootstrapAdmin(ctx context.Context) {
	if app.config.AdminEmail == "" || app.config.AdminPassword == "" {
		return
	}
	if err := app.users.BootstrapAdmin(ctx, app.config.AdminName, app.config.AdminEmail, app.config.AdminPassword); err != nil {
		app.logger.Error(ctx, "admin bootstrap failed", "error", err)
		return
	}
	app.logger.Info(ctx, "admin account ready", "email", app.config.AdminEmail)
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(context.Background(), "redis close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close failed", "error", err)
	}
}

// Run blocks until a termination signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.bootstrapAdmin(ctx)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.scheduler.Run(ctx)
	}()

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
