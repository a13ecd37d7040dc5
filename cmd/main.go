package main

import (
	"context"
	"errors"
	"fmt"
	logByDefault "log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plugfox/foxy-ban-server/internal/ban"
	config "github.com/plugfox/foxy-ban-server/internal/config"
	"github.com/plugfox/foxy-ban-server/internal/directory"
	"github.com/plugfox/foxy-ban-server/internal/hooks"
	"github.com/plugfox/foxy-ban-server/internal/httpclient"
	log "github.com/plugfox/foxy-ban-server/internal/log"
	"github.com/plugfox/foxy-ban-server/internal/metrics"
	"github.com/plugfox/foxy-ban-server/internal/model"
	"github.com/plugfox/foxy-ban-server/internal/notify"
	"github.com/plugfox/foxy-ban-server/internal/server"
	storage "github.com/plugfox/foxy-ban-server/internal/storage"
	"github.com/plugfox/foxy-ban-server/internal/telegram"

	// This controls the maxprocs environment variable in container runtimes.
	// see https://martin.baillie.id/wrote/gotchas-in-the-go-network-packages-defaults/#bonus-gomaxprocs-containers-and-the-cfs
	"go.uber.org/automaxprocs/maxprocs"
)

// Names the ban engine registers under at the host extension points.
const (
	engineHandlerName  = "global-ban"
	trackerHandlerName = "player-tracker"
)

func main() {
	// Set the local timezone to UTC
	time.Local = time.UTC

	// Initialize the configuration
	config, err := config.MustLoadConfig()
	if err != nil {
		logByDefault.Fatalf("Config load error: %v", err)
	}

	// Logger configuration
	logger := log.New(
		log.WithLevel(config.Verbose),
		log.WithFormat(config.LogFormat),
		log.WithSource(),
	)

	if err := run(config, logger); err != nil {
		logger.ErrorContext(context.Background(), "an error occurred", slog.String("error", err.Error()))
		os.Exit(1)
	}

	os.Exit(0)
}

func run(config *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := maxprocs.Set(maxprocs.Logger(func(s string, i ...interface{}) {
		logger.DebugContext(ctx, fmt.Sprintf(s, i...))
	}))
	if err != nil {
		return fmt.Errorf("setting max procs: %w", err)
	}

	// Setup hash function
	model.InitHashFunction()

	// Setup database connection
	db, err := storage.New(&config.Database, logger)
	if err != nil {
		return fmt.Errorf("database connection error: %w", err)
	}
	defer db.Close()

	// Identify this game server
	srvRecord, err := db.RegisterServer(ctx, config.Ban.Instance)
	if err != nil {
		return fmt.Errorf("server registration error: %w", err)
	}

	// Player directory
	players, err := directory.New(db, srvRecord.ID, config.Cache, logger)
	if err != nil {
		return fmt.Errorf("player directory error: %w", err)
	}
	defer players.Close()

	// Setup InfluxDB metrics (if any)
	metricsLogger := metrics.NewMetricsFake()
	if config.Metrics.URL != "" {
		metricsLogger = metrics.NewMetricsImpl(config.Metrics.URL, config.Metrics.Token, config.Metrics.Org, config.Metrics.Bucket,
			map[string]string{"instance": config.Ban.Instance})
	}
	defer metricsLogger.Close()

	// Create a http client
	httpClient, err := httpclient.NewHTTPClient(&config.Proxy, config.Webhooks.Timeout)
	if err != nil {
		return fmt.Errorf("http client error: %w", err)
	}

	// Notifiers, the telegram bot joins once the engine exists
	dispatcher := notify.NewDispatcher(config.Webhooks.Timeout, logger, metricsLogger,
		notify.NewBroadcast(logger),
		notify.NewDiscord(config.Webhooks, httpClient, logger),
	)
	dispatcher.SetResolver(players)
	defer dispatcher.Wait()

	engine := ban.New(db, players, dispatcher, config.Ban,
		ban.WithLogger(logger),
		ban.WithMetrics(metricsLogger),
	)

	var bot *telegram.Telegram
	if config.Telegram.Token != "" {
		bot, err = telegram.New(&config.Telegram, httpClient, engine, db, logger)
		if err != nil {
			return fmt.Errorf("telegram bot setup error: %w", err)
		}

		dispatcher.Add(bot)
	}

	// Host extension points
	registry := hooks.NewRegistry(logger)

	tracker := hooks.ConnectionHandlerFunc(func(ctx context.Context, conn model.Connection) (model.Verdict, error) {
		return model.Verdict{}, players.Track(ctx, conn)
	})
	if err := registry.RegisterConnectionHandler(trackerHandlerName, tracker); err != nil {
		return err
	}

	if err := registry.RegisterConnectionHandler(engineHandlerName, engine); err != nil {
		return err
	}

	if err := registry.RegisterBanRequestHandler(engineHandlerName, engine); err != nil {
		return err
	}

	defer registry.Deregister(trackerHandlerName)
	defer registry.Deregister(engineHandlerName)

	// Setup API server
	api := server.New(config, logger)
	api.AddBanRoutes(registry, engine, db)
	api.AddHealthCheck(func(ctx context.Context) (bool, map[string]string) {
		if err := db.Ping(ctx); err != nil {
			return false, map[string]string{"database": err.Error()}
		}

		return true, map[string]string{"database": "ok"}
	})

	serverErr := make(chan error, 1)

	go func() {
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if bot != nil {
		go bot.Start()
		defer bot.Stop()
	}

	logger.InfoContext(ctx, "Server started",
		slog.String("host", config.API.Host),
		slog.Int("port", config.API.Port),
		slog.String("instance", config.Ban.Instance),
		slog.Uint64("server_id", srvRecord.ID),
	)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
	}

	logger.InfoContext(context.Background(), "Shutting down")

	const shutdownTimeout = 15 * time.Second

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return api.Shutdown(shutdownCtx)
}
