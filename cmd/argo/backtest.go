package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rxtech-lab/argo-core/internal/backtest/engine"
	"github.com/rxtech-lab/argo-core/internal/config"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/export"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run one backtest over stored or generated bars",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   "Registered strategy name",
				Value:   strategy.SmaCrossName,
			},
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"t"},
				Usage:    "Symbol to trade, e.g. EURUSD",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "Start date in `YYYY-MM-DD` format, defaults to backtest.start_time",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format (exclusive), defaults to backtest.end_time",
			},
			&cli.FloatFlag{
				Name:  "cash",
				Usage: "Initial cash, defaults to backtest.initial_cash",
			},
			&cli.StringFlag{
				Name:    "params",
				Aliases: []string{"p"},
				Usage:   "Strategy parameters as a JSON or YAML object, e.g. '{pfast: 5, pslow: 20}'",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Write the equity curve, trade markers and orders as parquet files to `DIR`",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the full result as JSON instead of the summary",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	req, err := runRequest(cmd, cfg)
	if err != nil {
		return err
	}

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

	var callbacks engine.LifecycleCallbacks

	if !cmd.Bool("no-progress") && !cmd.Bool("json") {
		var bar *progressbar.ProgressBar

		onStart := engine.OnRunStartCallback(func(req types.RunRequest, totalBars int) error {
			bar = progressbar.NewOptions(totalBars,
				progressbar.OptionSetWriter(errWriter(cmd)),
				progressbar.OptionSetDescription(fmt.Sprintf("Processing %s with %s", req.Symbol, req.Strategy)),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			return nil
		})
		onProcess := engine.OnProcessDataCallback(func(current int, total int) error {
			return bar.Set(current)
		})
		onEnd := engine.OnRunEndCallback(func(types.RunResult, error) {
			if bar != nil {
				_ = bar.Finish()
			}
		})

		callbacks = engine.LifecycleCallbacks{
			OnRunStart:    &onStart,
			OnProcessData: &onProcess,
			OnRunEnd:      &onEnd,
		}
	}

	res, err := eng.Run(ctx, req, callbacks)
	if err != nil {
		return err
	}

	out := outWriter(cmd)

	if cmd.Bool("json") {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, renderSummary(fmt.Sprintf("%s on %s", req.Strategy, req.Symbol), res))
	}

	if dir := cmd.String("export"); dir != "" {
		paths, err := export.Write(dir, res)
		if err != nil {
			return err
		}

		fmt.Fprintf(errWriter(cmd), "Exported %s, %s and %s\n", paths.Equity, paths.Markers, paths.Orders)
	}

	return nil
}

// runRequest builds the request from flags, falling back to the backtest
// section of the config for dates and cash.
func runRequest(cmd *cli.Command, cfg config.Config) (types.RunRequest, error) {
	req := types.RunRequest{
		Strategy:    cmd.String("strategy"),
		Symbol:      cmd.String("symbol"),
		StartDate:   cmd.String("start"),
		EndDate:     cmd.String("end"),
		InitialCash: cmd.Float("cash"),
	}

	if req.StartDate == "" && cfg.Backtest.StartTime.IsSome() {
		req.StartDate = cfg.Backtest.StartTime.Unwrap().UTC().Format(types.DateLayout)
	}

	if req.EndDate == "" && cfg.Backtest.EndTime.IsSome() {
		req.EndDate = cfg.Backtest.EndTime.Unwrap().UTC().Format(types.DateLayout)
	}

	if req.InitialCash == 0 {
		req.InitialCash = cfg.Backtest.InitialCash
	}

	params, err := parseParams(cmd.String("params"))
	if err != nil {
		return types.RunRequest{}, err
	}

	req.Params = params

	return req, req.Validate()
}

// parseParams decodes a JSON or YAML object. Empty input yields nil.
func parseParams(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	var params map[string]any
	if err := yaml.Unmarshal([]byte(raw), &params); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid --params", err)
	}

	return params, nil
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}

	return os.Stderr
}
