package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"squeeze/internal/backend"
	"squeeze/internal/config"
	"squeeze/internal/daemon"
	"squeeze/internal/intake"
	"squeeze/internal/ipc"
	"squeeze/internal/logging"
	"squeeze/internal/preview"
	"squeeze/internal/queue"
	"squeeze/internal/sequencer"
	"squeeze/internal/services/ffmpeg"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	ledger, err := preview.NewLedger(cfg.Paths.PreviewDir, logger)
	if err != nil {
		logger.Error("open preview ledger", logging.Error(err))
		store.Close()
		return
	}

	engine := buildEngine(cfg)
	intakeService := intake.NewService(cfg, store, ledger, logger)
	manager := sequencer.NewManager(cfg, store, ledger, engine, logger)

	d, err := daemon.New(cfg, store, ledger, intakeService, manager, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	select {
	case <-ctx.Done():
	case <-d.Done():
	}
	logger.Info("squeezed shutting down")
}

func buildEngine(cfg *config.Config) backend.Engine {
	return ffmpeg.New(blobDir(cfg), ffmpeg.WithBinary(cfg.FFmpeg.Binary))
}
