package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-core/internal/config"
	"github.com/rxtech-lab/argo-core/internal/runtime"
	"github.com/rxtech-lab/argo-core/internal/trading/engine"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/marketdata"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "Trade a strategy against a live venue until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "venue",
				Usage: "Venue to trade on (binance, alpaca, oanda, okx), defaults to live.venue",
			},
			&cli.StringFlag{
				Name:    "symbol",
				Aliases: []string{"t"},
				Usage:   "Symbol to trade, defaults to live.symbol",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Registered strategy name, defaults to live.strategy",
			},
			&cli.StringFlag{
				Name:    "params",
				Aliases: []string{"p"},
				Usage:   "Strategy parameters as a JSON or YAML object",
			},
			&cli.StringFlag{
				Name:  "interval",
				Usage: "Bar interval, defaults to live.timespan",
			},
		},
		Action: liveAction,
	}
}

// applyLiveFlags overlays the command line onto the live section.
func applyLiveFlags(cmd *cli.Command, cfg *config.Config) error {
	if v := cmd.String("venue"); v != "" {
		cfg.Live.Venue = v
	}

	if v := cmd.String("symbol"); v != "" {
		cfg.Live.Symbol = v
	}

	if v := cmd.String("strategy"); v != "" {
		cfg.Live.Strategy = v
	}

	if v := cmd.String("interval"); v != "" {
		cfg.Live.Timespan = v
	}

	params, err := parseParams(cmd.String("params"))
	if err != nil {
		return err
	}

	if params != nil {
		cfg.Live.Params = params
	}

	return cfg.Validate()
}

func liveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := applyLiveFlags(cmd, &cfg); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	liveConfig, err := engine.ConfigFromApp(cfg)
	if err != nil {
		return err
	}

	eng, err := engine.NewLiveEngine(liveConfig, engine.WithLogger(log))
	if err != nil {
		return err
	}

	out := outWriter(cmd)

	onStart := engine.OnEngineStartCallback(func(venue string, symbol string, timespan marketdata.Timespan) error {
		fmt.Fprintf(out, "Trading %s on %s every %s, press Ctrl+C to stop\n", symbol, venue, timespan)

		return nil
	})
	onFill := engine.OnOrderFilledCallback(func(fill types.Fill) {
		fmt.Fprintf(out, "%s %s %s %.6f @ %.6f (fee %.4f)\n",
			fill.Time.Format("2006-01-02 15:04:05"), fill.Side(), fill.Symbol, fill.Size, fill.Price, fill.Commission)
	})
	onReject := engine.OnOrderRejectedCallback(func(order types.Order, err error) {
		fmt.Fprintln(out, lossStyle.Render(fmt.Sprintf("order %s rejected: %s", order.ID, order.Reason)))
	})
	onStatus := engine.OnStatusUpdateCallback(func(state runtime.State) {
		log.Info("Live engine state changed", zap.String("state", string(state)))
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		if _, ok := <-sigChan; ok {
			fmt.Fprintln(out, "\nReceived interrupt signal, stopping...")
			eng.Stop()
		}
	}()

	res, err := eng.Run(ctx, engine.LiveTradingCallbacks{
		OnEngineStart:   &onStart,
		OnOrderFilled:   &onFill,
		OnOrderRejected: &onReject,
		OnStatusUpdate:  &onStatus,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, renderSummary(fmt.Sprintf("%s on %s", cfg.Live.Strategy, cfg.Live.Symbol), res))

	return nil
}
