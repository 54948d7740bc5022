// Package server wires configuration, storage, sessions and the HTTP
// surface together and runs them until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/folioguard/internal/cryptox"
	"github.com/dmitrijs2005/folioguard/internal/dbx"
	"github.com/dmitrijs2005/folioguard/internal/logging"
	"github.com/dmitrijs2005/folioguard/internal/server/auth"
	"github.com/dmitrijs2005/folioguard/internal/server/config"
	"github.com/dmitrijs2005/folioguard/internal/server/content"
	"github.com/dmitrijs2005/folioguard/internal/server/httpserver"
	"github.com/dmitrijs2005/folioguard/internal/server/metrics"
	"github.com/dmitrijs2005/folioguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/folioguard/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	server  *httpserver.Server
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	app := &App{config: c, logger: logger}

	db, dialect, err := dbx.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	m, err := repomanager.New(dialect)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	logger.Info(ctx, "Database ready", "dialect", string(dialect))

	admins, err := services.NewAdminService(db, m, cryptox.NewHasher(cryptox.DefaultArgon2Params()))
	if err != nil {
		app.Close()
		return nil, err
	}

	issuer, err := app.newIssuer(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	store, err := newContentStore(ctx, c)
	if err != nil {
		app.Close()
		return nil, err
	}

	router := httpserver.NewRouter(httpserver.Options{
		Admins:         admins,
		Access:         services.NewAccessService(db, m, issuer),
		Content:        store,
		Metrics:        metrics.New(),
		Logger:         logger,
		AllowedOrigins: c.AllowedOrigins,
		Cookies: httpserver.CookieSettings{
			Secure: c.CookieSecure,
			MaxAge: c.SessionValidityDuration,
		},
	})
	app.server = httpserver.NewServer(c.HTTPAddr, router, logger)

	return app, nil
}

func (app *App) newIssuer(ctx context.Context) (auth.Issuer, error) {
	c := app.config
	switch c.SessionBackend {
	case config.SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		app.logger.Info(ctx, "Sessions stored in Redis", "address", c.RedisAddr)
		return auth.NewRedisIssuer(client, c.SessionValidityDuration), nil
	default:
		return auth.NewJWTIssuer([]byte(c.SecretKey), c.SessionValidityDuration), nil
	}
}

func newContentStore(ctx context.Context, c *config.Config) (content.Store, error) {
	if c.ContentBackend != config.ContentBackendS3 {
		return content.NewMemoryStore(), nil
	}
	client, err := content.NewS3Client(ctx, content.S3Settings{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		Bucket:       c.S3Bucket,
	})
	if err != nil {
		return nil, err
	}
	return content.NewS3Store(client, c.S3Bucket), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment,
		"session_backend", app.config.SessionBackend, "content_backend", app.config.ContentBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

// Close releases everything NewApp opened, in reverse order.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
