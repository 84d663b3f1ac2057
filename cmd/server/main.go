package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/znwiqn/anidao/internal/api"
	"github.com/znwiqn/anidao/internal/auth"
	"github.com/znwiqn/anidao/internal/bot"
	"github.com/znwiqn/anidao/internal/config"
	"github.com/znwiqn/anidao/internal/database"
	"github.com/znwiqn/anidao/internal/ratelimit"
	"github.com/znwiqn/anidao/internal/services"
	"github.com/znwiqn/anidao/internal/validation"
	"github.com/znwiqn/anidao/internal/web"
)

// Login and registration attempts allowed per client address.
const (
	authRatePerSecond = 5.0 / 60
	authBurst         = 5
	limiterIdle       = 10 * time.Minute
)

func main() {
	app := cli.NewApp()
	app.Name = "anidao"
	app.Usage = "Serves the ANI DAO site, JSON API and Telegram bot webhook"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "env-file",
			Usage: "dotenv file loaded before reading the environment",
			Value: ".env",
		},
	}
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func serve(c *cli.Context) error {
	if err := godotenv.Load(c.String("env-file")); err != nil {
		log.Info("no env file found, using process environment")
	}

	cfg := config.Load()
	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; sessions will not survive a restart")
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established")

	stores := database.NewStores(db.DB)
	tokens := auth.NewTokens(cfg.JWTSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := api.Deps{
		DB:            db,
		Anime:         stores.Anime,
		Episodes:      stores.Episodes,
		Users:         stores.Users,
		Comments:      stores.Comments,
		Ratings:       stores.Ratings,
		Favorites:     stores.Favorites,
		History:       stores.History,
		Tokens:        tokens,
		Validator:     validation.New(),
		WebhookSecret: cfg.TelegramWebhookSecret,
		WebhookURL:    cfg.WebhookURL(),
		SecureCookies: cfg.SecureCookies(),
	}

	jobs := services.NewServiceScheduler()
	jobs.Register(services.ServiceDatabaseProbe, "Checks that the database answers", time.Minute,
		func(ctx context.Context) (int, error) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return 0, db.Health(ctx)
		})

	if cfg.TelegramBotToken != "" {
		client, err := bot.NewClient(cfg.TelegramBotToken)
		if err != nil {
			return err
		}
		sessions := bot.NewSessionStore(cfg.BotSessionTTL)
		jobs.Register(services.ServiceSessionSweep, "Drops idle bot dialogues", sessions.SweepInterval(),
			func(context.Context) (int, error) { return sessions.Sweep(), nil })

		deps.Bot = client
		deps.Updates = bot.NewEngine(stores.Admins, stores.Anime, stores.Episodes, client, sessions, cfg.MediaHost)
		log.WithField("media_host", cfg.MediaHost).Info("telegram bot enabled")
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN is not set; bot endpoints are disabled")
	}

	handler := api.NewHandler(deps)
	admin := api.NewAdminHandler(handler, stores.Admins, jobs)

	pages, err := web.New(web.Deps{
		Catalog:       stores.Anime,
		Episodes:      stores.Episodes,
		Comments:      stores.Comments,
		Ratings:       stores.Ratings,
		Favorites:     stores.Favorites,
		History:       stores.History,
		Users:         stores.Users,
		Stats:         stores.Admins,
		Services:      jobs,
		Tokens:        tokens,
		WebhookURL:    cfg.WebhookURL(),
		MediaHost:     cfg.MediaHost,
		SecureCookies: cfg.SecureCookies(),
	})
	if err != nil {
		return err
	}
	jobs.Register(services.ServiceFilterCache, "Evicts stale catalog filter options", pages.CacheTTL(),
		func(context.Context) (int, error) { return pages.SweepCache(), nil })
	jobs.Start(ctx)

	limiter := ratelimit.New(authRatePerSecond, authBurst, limiterIdle)
	defer limiter.Stop()

	router := api.NewRouter(tokens)
	api.SetupRoutes(router, handler, admin, limiter)
	pages.Register(router, limiter)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down server")
	case err := <-errCh:
		return errors.Wrap(err, "server failed to start")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	log.Info("server stopped")
	return nil
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	if cfg.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}
