package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-core/internal/api"
	"github.com/rxtech-lab/argo-core/internal/backtest/engine"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/task"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the backtest HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, defaults to server.addr",
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	source, closer, err := datasource.Open(cfg.Data.Dir, cfg.Data.MockFallback, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	eng, err := engine.New(engine.Config{
		Source:         source,
		Commission:     cfg.Backtest.Commission,
		CommissionRate: cfg.Backtest.CommissionRate,
		AllowShort:     cfg.Backtest.AllowShort,
		Analytics:      cfg.Analytics,
		Logger:         log,
	})
	if err != nil {
		return err
	}

	store, err := task.OpenStore(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := task.NewManager(eng, store, task.Config{
		Workers:   cfg.Server.Workers,
		QueueSize: cfg.Server.QueueSize,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)

	server, err := api.NewServer(manager, eng.Registry(), log)
	if err != nil {
		return err
	}

	if err := server.Start(cfg.Server.Addr); err != nil {
		return err
	}

	fmt.Fprintf(outWriter(cmd), "Listening on %s\n", server.Address())

	<-ctx.Done()

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop server", zap.Error(err))
	}

	return manager.Shutdown(shutdownCtx)
}
