package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sticker-floor-tracker/config"
	"sticker-floor-tracker/internal/market"
	"sticker-floor-tracker/internal/reference"
	"sticker-floor-tracker/internal/report"
	"sticker-floor-tracker/internal/scraper"
)

func main() {
	// Console logger until the run log file is open
	logger := log.New(os.Stdout, "stickerfloor ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	allowMissing := configPath == ""
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	// Mirror console output into a per-run log file
	if err := os.MkdirAll(cfg.Logging.Dir, 0o755); err != nil {
		logger.Fatalf("failed to create log dir %s: %v", cfg.Logging.Dir, err)
	}
	logPath := filepath.Join(cfg.Logging.Dir, fmt.Sprintf("stickerfloor_%s.log", time.Now().Format("2006-01-02_15-04-05")))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Fatalf("failed to open log file %s: %v", logPath, err)
	}
	defer logFile.Close()
	logger.SetOutput(io.MultiWriter(os.Stdout, logFile))
	logger.Printf("configuration loaded from %s", configPath)

	userData, err := config.ReadUserData(cfg.API.UserDataFile)
	if err != nil {
		logger.Fatalf("failed to read %s: %v", cfg.API.UserDataFile, err)
	}

	table, err := reference.Load(cfg.Reference.Path, cfg.Reference.Sheet)
	if err != nil {
		logger.Fatalf("failed to load reference table: %v", err)
	}
	logger.Printf("Loaded %d reference rows from %s", table.Len(), cfg.Reference.Path)

	// Cancel the run on Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := market.NewClient(cfg.API, userData, logger)
	writer := report.NewWriter(cfg.Report.OutputDir)
	svc := scraper.NewService(cfg, client, table, writer, logger)

	if cfg.Schedule.Interval > 0 {
		logger.Printf("Repeating every %s", cfg.Schedule.Interval)
	}
	if err := svc.Run(ctx, cfg.Schedule.Interval); err != nil {
		logger.Fatalf("run failed: %v", err)
	}

	if cfg.ShouldPauseOnExit() && ctx.Err() == nil {
		fmt.Print("Press Enter to exit...")
		bufio.NewReader(os.Stdin).ReadString('\n')
	}
}
