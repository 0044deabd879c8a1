package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-core/internal/config"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "argo",
		Usage: "Backtest and live trading core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML `FILE` (optional, environment variables override it)",
				Sources: cli.EnvVars("ARGO_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			backtestCommand(),
			liveCommand(),
			downloadCommand(),
			serveCommand(),
			strategiesCommand(),
			schemaCommand(),
			generateCommand(),
			versionCommand(),
		},
	}
}

// loadConfig reads the config named by the root --config flag and applies
// the --log-level override.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}

	return cfg, nil
}

func newLogger(cfg config.Config) (*logger.Logger, error) {
	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
