package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rxtech-lab/argo-core/internal/config"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/version"
	"github.com/urfave/cli/v3"
)

func strategiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "strategies",
		Usage: "List registered strategies",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "schema",
				Usage: "Print the parameter schema of each strategy",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			registry := strategy.DefaultRegistry()
			out := outWriter(cmd)

			for _, name := range registry.List() {
				d, err := registry.Get(name)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%s\t%s\n", titleStyle.Render(d.Name), d.Description)

				if !cmd.Bool("schema") {
					continue
				}

				schema, err := registry.Schema(name)
				if err != nil {
					return err
				}

				raw, err := json.MarshalIndent(schema, "", "  ")
				if err != nil {
					return err
				}

				fmt.Fprintln(out, string(raw))
			}

			return nil
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the config file",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			schema, err := config.GenerateSchemaJSON()
			if err != nil {
				return err
			}

			fmt.Fprintln(outWriter(cmd), schema)

			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the engine version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Fprintln(outWriter(cmd), version.GetVersion())

			return nil
		},
	}
}
