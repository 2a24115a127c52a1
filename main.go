package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/prescription-dictation/catalog"
	"github.com/giygas/prescription-dictation/config"
	"github.com/giygas/prescription-dictation/extraction"
	"github.com/giygas/prescription-dictation/handlers"
	"github.com/giygas/prescription-dictation/health"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/scheduler"
	"github.com/giygas/prescription-dictation/server"
	"github.com/giygas/prescription-dictation/speech"
	"github.com/giygas/prescription-dictation/speech/deepgram"
	"github.com/giygas/prescription-dictation/workspace"
	"github.com/joho/godotenv"
)

func init() {
	// Get the working directory and read the env variables
	if err := godotenv.Load(); err != nil {
		// If failed, try loading from executable directory
		ex, err := os.Executable()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to get executable path:", err)
			os.Exit(1)
		}

		exPath := filepath.Dir(ex)
		if err := os.Chdir(exPath); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to change directory:", err)
			os.Exit(1)
		}
		_ = godotenv.Load()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Level:          logging.ParseLevel(cfg.LogLevel),
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}); err != nil {
		logging.Warn("Logging to console only", "error", err)
	}
	defer logging.Close()

	logging.Info("Configuration loaded",
		"env", cfg.Env,
		"speech_provider", cfg.SpeechProvider,
		"extraction_model", cfg.ExtractionModel)
	logging.Debug("Environment variables in use", "names", config.SetEnvVars())

	extractor := extraction.NewClient(extraction.Options{
		APIKey:  cfg.ExtractionAPIKey,
		BaseURL: cfg.ExtractionBaseURL,
		Model:   cfg.ExtractionModel,
		Timeout: cfg.ExtractionTimeout,
		Rate:    cfg.ExtractionRate,
		Burst:   cfg.ExtractionBurst,
	})

	captures, err := speech.NewFactory(cfg.SpeechProvider, deepgram.Options{
		APIKey:     cfg.DeepgramAPIKey,
		URL:        cfg.DeepgramURL,
		Model:      cfg.DeepgramModel,
		Language:   cfg.SpeechLanguage,
		Encoding:   cfg.DeepgramEncoding,
		SampleRate: cfg.DeepgramSampleRate,
	})
	if err != nil {
		logging.Error("Failed to configure speech capture", "error", err)
		os.Exit(1)
	}

	store := workspace.NewStore(extractor, captures)

	reaper := scheduler.NewScheduler(store, cfg.WorkspaceIdleTTL, cfg.WorkspaceReapInterval)
	if err := reaper.Start(); err != nil {
		logging.Error("Failed to start workspace reaper", "error", err)
		os.Exit(1)
	}

	checker := health.NewHealthChecker(health.Options{
		Workspaces:           store,
		Sweeper:              reaper,
		ExtractionConfigured: cfg.ExtractionAPIKey != "",
		SpeechProvider:       cfg.SpeechProvider,
	})

	srv := server.NewServer(cfg, handlers.NewHTTPHandler(store, catalog.Default(), checker))

	// Create a channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed", "error", err)
	}
	reaper.Stop()

	for _, id := range store.IDs() {
		store.Delete(id)
	}
	logging.Info("Server exited")
}
