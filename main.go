// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"companion-booking/cmd"
	"companion-booking/internal/data/repository"
	"companion-booking/internal/notifier"
	"companion-booking/internal/wire"
	"companion-booking/internal/worker"
	"companion-booking/pkg/database"
	"companion-booking/pkg/mq"
	"companion-booking/pkg/obs"
	"companion-booking/pkg/utils"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	utils.BindFlags(flags)
	_ = flags.Parse(os.Args[1:])

	// Load config
	config, err := utils.LoadConfig(flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("storage", config.App.StorageDriver),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownTracer, err := obs.InitTracer(ctx, config.Telemetry, config.App)
	if err != nil {
		logger.Fatal("Failed to init tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	// Storage
	var repos *repository.Repository
	switch config.App.StorageDriver {
	case "memory":
		repos = repository.NewMemoryRepository()
		logger.Warn("Using in-memory storage, data is lost on restart")
	default:
		if config.App.Migrate {
			if err := database.Migrate(config.Database); err != nil {
				logger.Fatal("Failed to apply migrations", zap.Error(err))
			}
			logger.Info("Migrations applied")
		}

		db, err := database.InitDB(ctx, config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger)
	}

	// Event sinks
	sinks := notifier.MultiSink{notifier.NewLogSink(logger)}
	if config.Broker.URL != "" {
		pub, err := mq.NewPublisher(config.Broker.URL, config.Broker.Exchange)
		if err != nil {
			logger.Fatal("Failed to connect to broker", zap.Error(err))
		}
		defer pub.Close()
		sinks = append(sinks, notifier.NewRabbitSink(pub))
		logger.Info("Publishing booking events", zap.String("exchange", config.Broker.Exchange))
	}

	deps, err := wire.NewDependencies(config, sinks, logger)
	if err != nil {
		logger.Fatal("Failed to build dependencies", zap.Error(err))
	}

	// Wire all dependencies
	app := wire.Wiring(repos, deps, config, logger)

	go worker.NewSweeper(app.Service.Booking, config.Sweep.Interval, logger).Run(ctx)

	// Start server
	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
	logger.Info("Application stopped")
}
