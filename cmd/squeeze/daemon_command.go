package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"squeeze/internal/daemon"
	"squeeze/internal/intake"
	"squeeze/internal/ipc"
	"squeeze/internal/logging"
	"squeeze/internal/preview"
	"squeeze/internal/queue"
	"squeeze/internal/sequencer"
	"squeeze/internal/services/ffmpeg"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run or control the squeeze daemon",
	}

	daemonCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	})

	daemonCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				}
				return nil
			})
		},
	})

	return daemonCmd
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	ledger, err := preview.NewLedger(cfg.Paths.PreviewDir, logger)
	if err != nil {
		return fmt.Errorf("open preview ledger: %w", err)
	}

	engine := ffmpeg.New(blobDir(cfg), ffmpeg.WithBinary(cfg.FFmpeg.Binary))
	intakeService := intake.NewService(cfg, store, ledger, logger)
	manager := sequencer.NewManager(cfg, store, ledger, engine, logger)

	d, err := daemon.New(cfg, store, ledger, intakeService, manager, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	select {
	case <-signalCtx.Done():
	case <-d.Done():
	}
	logger.Info("squeeze daemon shutting down")
	return nil
}
