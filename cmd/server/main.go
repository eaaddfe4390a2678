package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/franckalain/foodmonster/internal/config"
	"github.com/franckalain/foodmonster/internal/database"
	"github.com/franckalain/foodmonster/internal/logging"
	"github.com/franckalain/foodmonster/internal/ml"
	"github.com/franckalain/foodmonster/internal/nutrition"
	"github.com/franckalain/foodmonster/internal/recognition"
	"github.com/franckalain/foodmonster/internal/server"
	"github.com/franckalain/foodmonster/internal/upload"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (JSON or YAML)")
	envFile := flag.String("env", ".env", "dotenv file to load before reading configuration")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *configPath == "" {
		*configPath = config.GetConfigPath()
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(*debug || cfg.Server.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Initialize metadata store
	backend, err := database.Open(cfg.Database.Type, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}
	repo := database.NewRepository(backend, logger.Named("store"))
	defer repo.Close()

	if _, err := repo.Load(context.Background()); err != nil {
		return err
	}

	// Initialize ML service
	model, err := ml.NewModel(cfg.ML.Type, cfg.ML.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to create ML model: %w", err)
	}
	if err := model.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to load ML model: %w", err)
	}
	if closer, ok := model.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	if !model.SupportsVision() {
		logger.Warn("vision recognition disabled, uploads will be stored without nutrition estimates")
	}

	images, err := upload.NewDiskImages(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	ids, err := upload.NewIDGenerator(cfg.Upload.IDStrategy)
	if err != nil {
		return err
	}

	recognizer := recognition.New(model,
		recognition.WithTimeout(cfg.ML.Timeout()),
		recognition.WithLogger(logger.Named("recognition")),
	)
	uploads := upload.NewService(images, recognizer, repo,
		upload.WithIDGenerator(ids),
		upload.WithLogger(logger.Named("upload")),
	)
	reporter := nutrition.NewReporter(repo)

	srv := server.New(uploads, reporter, server.Options{
		Addr:           cfg.Addr(),
		StaticDir:      cfg.Server.StaticDir,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	}, logger.Named("server"))

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	logger.Info("Food Monster backend ready",
		zap.String("addr", cfg.Addr()),
		zap.String("model", cfg.ML.Type),
		zap.String("database", cfg.Database.Type),
		zap.String("upload_dir", images.Dir()),
	)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Shutting down server...", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
