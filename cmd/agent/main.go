package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelcut/reelcut-agent/internal/api"
	"github.com/reelcut/reelcut-agent/internal/backend"
	"github.com/reelcut/reelcut-agent/internal/config"
	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/dialog"
	"github.com/reelcut/reelcut-agent/internal/dispatch"
	"github.com/reelcut/reelcut-agent/internal/editor"
	"github.com/reelcut/reelcut-agent/internal/history"
	"github.com/reelcut/reelcut-agent/internal/logging"
	"github.com/reelcut/reelcut-agent/internal/media"
	"github.com/reelcut/reelcut-agent/internal/preview"
	"github.com/reelcut/reelcut-agent/internal/translate"
	"github.com/reelcut/reelcut-agent/internal/ui"
	"github.com/reelcut/reelcut-agent/internal/watcher"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelcut agent", "version", Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := history.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                    REELCUT AGENT v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	decoder, err := media.NewFFmpegDecoder(cfg.FFmpegPath(), cfg.FFprobePath(), cfg.ProbeTimeout(), logging.WithComponent(logger, "media"))
	if err != nil {
		return fmt.Errorf("media tooling unavailable: %w", err)
	}

	backendImpl, err := backend.NewFFmpegBackend(cfg.FFmpegPath(), decoder, cfg.TransformTimeout(), logging.WithComponent(logger, "backend"))
	if err != nil {
		return fmt.Errorf("media tooling unavailable: %w", err)
	}

	var translator translate.Translator
	if cfg.TranslatorURL() != "" {
		translator = translate.NewHTTPTranslator(cfg.TranslatorURL(), cfg.TranslatorKey(), logging.WithComponent(logger, "translate"))
		logger.Info("command translation enabled", "url", cfg.TranslatorURL())
	} else {
		translator = translate.NewStubTranslator(logging.WithComponent(logger, "translate"))
	}

	hist := history.NewManager()
	selector := dialog.NewStubSelector(logging.WithComponent(logger, "dialog"))
	dispatcher := dispatch.New(backendImpl, selector, hist, cfg.EditsDir(), logging.WithComponent(logger, "dispatch"))

	engine := preview.NewEngine(decoder, media.Options{
		TargetWidth:  cfg.PreviewWidth(),
		TargetHeight: cfg.PreviewHeight(),
	}, logging.WithComponent(logger, "preview"))

	session := editor.NewSession(hist, dispatcher, engine, backendImpl, translator, repo, cfg.EditsDir(), logging.WithComponent(logger, "editor"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	artifactWatcher := watcher.NewPollWatcher(2*time.Second, logging.WithComponent(logger, "watcher"))
	artifactWatcher.OnChange(func(path string, event watcher.EventType) {
		logger.Debug("artifact change", "path", logging.SanitizePath(path), "event", event.String())
	})
	if err := artifactWatcher.Watch(ctx, cfg.EditsDir()); err != nil {
		logger.Warn("artifact watcher failed to start", "error", err)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Editor:     session,
		Repository: repo,
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
		DeviceID:   deviceID,
		Version:    Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: session,
			Logger:  logging.WithComponent(logger, "ui"),
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	artifactWatcher.Stop()
	session.Close(context.Background())

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo history.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo history.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
