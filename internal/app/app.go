// Package app wires configuration, logging, metrics, the Open-Meteo client,
// the optional Redis cache and the HTTP surface into one runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/valpere/weathernow/internal/cache"
	"github.com/valpere/weathernow/internal/config"
	"github.com/valpere/weathernow/internal/handlers/web"
	"github.com/valpere/weathernow/internal/middleware"
	"github.com/valpere/weathernow/internal/services"
	"github.com/valpere/weathernow/internal/version"
	"github.com/valpere/weathernow/pkg/metrics"
	"github.com/valpere/weathernow/pkg/openmeteo"
)

type App struct {
	config   *config.Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	services *services.Services
	router   *gin.Engine
	server   *http.Server
}

// NewLogger builds the root logger: JSON lines by default, human readable
// output for format "console".
func NewLogger(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("component", "weathernow").
		Logger(), nil
}

func New(cfg *config.Config) (*App, error) {
	logger, err := NewLogger(cfg.Logging, os.Stdout)
	if err != nil {
		return nil, err
	}
	return NewWithLogger(cfg, logger)
}

func NewWithLogger(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	metricsCollector := metrics.New()

	client := openmeteo.NewClient(openmeteo.Options{
		GeoURL:      cfg.OpenMeteo.GeoURL,
		ForecastURL: cfg.OpenMeteo.ForecastURL,
		UserAgent:   cfg.OpenMeteo.UserAgent,
		Timeout:     cfg.OpenMeteo.Timeout,
	})

	var responseCache *cache.Cache
	if cfg.Redis.Enabled {
		rdb, err := cache.ConnectRedis(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		responseCache = cache.New(rdb)
		logger.Info().
			Str("host", cfg.Redis.Host).
			Int("port", cfg.Redis.Port).
			Msg("Redis response cache enabled")
	}

	svcs := services.New(client, responseCache, cfg, &logger, metricsCollector)

	a := &App{
		config:   cfg,
		logger:   logger,
		metrics:  metricsCollector,
		services: svcs,
	}
	a.setupHTTPServer()

	return a, nil
}

func (a *App) setupHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(a.logger))
	if a.config.Metrics.Enabled {
		router.Use(middleware.Metrics(a.metrics))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "healthy",
			"version":         version.Version,
			"time":            time.Now().Unix(),
			"uptime":          a.services.Uptime().Round(time.Second).String(),
			"active_sessions": a.services.Sessions.Len(),
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.GetInfo())
	})

	if a.config.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	}

	web.New(a.services.Sessions, a.services.Weather, a.config.Search, &a.logger).Register(router)

	a.router = router
	a.server = &http.Server{
		Addr:         ":" + strconv.Itoa(a.config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	// Shutdown waits for active handlers; event streams return once their session closes
	a.server.RegisterOnShutdown(a.services.Sessions.CloseAll)
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves HTTP and sweeps idle sessions until ctx is cancelled or the
// listener fails.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info().Str("version", version.GetInfo().Short()).Msg("Starting WeatherNow...")

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.logger.Info().
		Int("port", a.config.Server.Port).
		Msg("HTTP server started")

	// Start background services
	go a.services.StartSweeper(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

func (a *App) Stop() error {
	a.logger.Info().Msg("Stopping WeatherNow...")

	var shutdownErr error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
	}

	// The listener is closed, so no session can be created past this point
	a.services.Stop()
	if shutdownErr != nil {
		return shutdownErr
	}

	a.logger.Info().Msg("WeatherNow stopped")
	return nil
}
