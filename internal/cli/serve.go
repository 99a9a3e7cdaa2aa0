package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayash-Bera/ticketconsole/internal/alerts"
	"github.com/Ayash-Bera/ticketconsole/internal/api"
	"github.com/Ayash-Bera/ticketconsole/internal/api/handlers"
	"github.com/Ayash-Bera/ticketconsole/internal/console"
	"github.com/Ayash-Bera/ticketconsole/internal/database"
	"github.com/Ayash-Bera/ticketconsole/internal/health"
	"github.com/Ayash-Bera/ticketconsole/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the console API",
	Long: `Loads tickets and the knowledge base, starts the alert and analytics
pollers and serves the console HTTP API until interrupted.

The server holds one console session and is meant for a single operator:
every client shares the same suggestion box, so a second client typing
at the same time supersedes the first one's pending suggestion (409).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "override server.port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := newBackend(cfg, logger)
	checker := health.NewHealthChecker(5*time.Second, logger)
	checker.Register("backend", client, true)

	opts := console.Options{}
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.Redis.URL, logger)
		if err != nil {
			logger.WithError(err).Warn("Suggestion cache disabled")
		} else {
			cache := database.NewCache(redisClient, cfg.Recommend.CacheTTL, logger)
			defer cache.Close()
			opts.Cache = cache
			checker.Register("redis", cache, false)
		}
	}
	if cfg.Slack.WebhookURL != "" {
		opts.Notifier = alerts.NewSlackNotifier(cfg.Slack.WebhookURL)
	}

	c := console.New(client, cfg, logger, opts)
	defer c.Close()
	if err := c.Start(ctx); err != nil {
		logger.WithError(err).Warn("Initial load incomplete")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute)
	go limiter.Cleanup(ctx)

	if !logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(handlers.NewConsoleHandler(c, checker, logger), limiter, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Console API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down console API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
